// Package storage owns audio artifacts in durable storage. LocalStore
// keeps them on the filesystem under a per-user namespace and hands out
// stable file:// URLs that double as playback source and transcription
// input.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore is a filesystem-backed artifact store.
type LocalStore struct {
	root string
	now  func() time.Time
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root, now: time.Now}
}

// Put moves the local artifact into the store under the owner's
// namespace and returns its retrieval URL. The source file is removed on
// success; the recording pipeline owns no artifact twice.
func (s *LocalStore) Put(ctx context.Context, userID string, localPath string, mimeType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("artifact owner is required")
	}

	dir := filepath.Join(s.root, sanitizeOwner(userID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	target := filepath.Join(dir, fmt.Sprintf("%d%s", s.now().UnixMilli(), extensionFor(mimeType, localPath)))
	if err := moveFile(localPath, target); err != nil {
		return "", fmt.Errorf("store artifact: %w", err)
	}

	return (&url.URL{Scheme: "file", Path: target}).String(), nil
}

// Delete removes the artifact behind url. Missing objects are success:
// the record deletion is the operation of record.
func (s *LocalStore) Delete(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme != "file" {
		return nil
	}

	path := filepath.Clean(parsed.Path)
	root := filepath.Clean(s.root)
	if path != root && !strings.HasPrefix(path, root+string(os.PathSeparator)) {
		// Never delete outside the store root.
		return nil
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func sanitizeOwner(userID string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_")
	return replacer.Replace(userID)
}

func extensionFor(mimeType string, localPath string) string {
	switch mimeType {
	case "audio/mp4":
		return ".m4a"
	case "audio/wav":
		return ".wav"
	case "audio/mpeg":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	}
	if ext := filepath.Ext(localPath); ext != "" {
		return ext
	}
	return ".bin"
}

// moveFile renames when possible and falls back to copy+remove across
// filesystems.
func moveFile(source string, target string) error {
	if err := os.Rename(source, target); err == nil {
		return nil
	}

	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(source)
}
