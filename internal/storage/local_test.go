package storage

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeArtifact(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("audio-bytes"), 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func TestPutNamespacesByOwnerAndReturnsFileURL(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewLocalStore(root)
	source := writeArtifact(t, "rec.m4a")

	rawURL, err := store.Put(context.Background(), "alice", source, "audio/mp4")
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme != "file" {
		t.Fatalf("expected file URL, got %q (%v)", rawURL, err)
	}
	if !strings.HasPrefix(parsed.Path, filepath.Join(root, "alice")+string(os.PathSeparator)) {
		t.Fatalf("artifact not namespaced by owner: %s", parsed.Path)
	}
	if !strings.HasSuffix(parsed.Path, ".m4a") {
		t.Fatalf("expected .m4a extension: %s", parsed.Path)
	}

	if _, err := os.Stat(parsed.Path); err != nil {
		t.Fatalf("stored artifact missing: %v", err)
	}
	if _, err := os.Stat(source); !os.IsNotExist(err) {
		t.Fatalf("source should be consumed by Put, stat err=%v", err)
	}
}

func TestPutRequiresOwner(t *testing.T) {
	t.Parallel()

	store := NewLocalStore(t.TempDir())
	if _, err := store.Put(context.Background(), "  ", writeArtifact(t, "rec.m4a"), "audio/mp4"); err == nil {
		t.Fatalf("expected owner error")
	}
}

func TestDeleteRemovesArtifact(t *testing.T) {
	t.Parallel()

	store := NewLocalStore(t.TempDir())
	rawURL, err := store.Put(context.Background(), "alice", writeArtifact(t, "rec.m4a"), "audio/mp4")
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	if err := store.Delete(context.Background(), rawURL); err != nil {
		t.Fatalf("delete: %v", err)
	}

	parsed, _ := url.Parse(rawURL)
	if _, err := os.Stat(parsed.Path); !os.IsNotExist(err) {
		t.Fatalf("artifact should be gone, stat err=%v", err)
	}
}

func TestDeleteMissingArtifactIsSuccess(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewLocalStore(root)

	gone := (&url.URL{Scheme: "file", Path: filepath.Join(root, "alice", "123.m4a")}).String()
	if err := store.Delete(context.Background(), gone); err != nil {
		t.Fatalf("deleting a missing artifact must succeed, got %v", err)
	}
}

func TestDeleteRefusesPathsOutsideRoot(t *testing.T) {
	t.Parallel()

	store := NewLocalStore(t.TempDir())
	outside := writeArtifact(t, "precious.m4a")

	rawURL := (&url.URL{Scheme: "file", Path: outside}).String()
	if err := store.Delete(context.Background(), rawURL); err != nil {
		t.Fatalf("delete outside root should be a no-op, got %v", err)
	}
	if _, err := os.Stat(outside); err != nil {
		t.Fatalf("file outside the root must survive: %v", err)
	}
}

func TestDeleteIgnoresForeignSchemes(t *testing.T) {
	t.Parallel()

	store := NewLocalStore(t.TempDir())
	if err := store.Delete(context.Background(), "https://bucket.example/alice/123.m4a"); err != nil {
		t.Fatalf("foreign scheme should be ignored, got %v", err)
	}
}
