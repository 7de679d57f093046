package usecase

import (
	"context"
	"fmt"
	"sync"

	"murmur/internal/domain"
	"murmur/internal/ports"
)

var systemPrompts = map[string]string{
	"es": "Eres un asistente útil que responde preguntas sobre una nota de voz transcrita. Responde siempre en español, de forma clara y concisa.",
	"en": "You are a helpful assistant that answers questions about a transcribed voice note. Always answer in English, clearly and concisely.",
}

var transcriptIntros = map[string]string{
	"es": "Esta es la transcripción de la nota de voz:",
	"en": "This is the transcript of the voice note:",
}

// ChatSession holds the conversation over one note's transcript. The
// transcript and system prompt are recomposed on every completion so a
// session survives note updates; only user/assistant turns accumulate.
type ChatSession struct {
	completer  ports.ChatCompleter
	transcript string
	language   string

	mu      sync.Mutex
	history []domain.ChatMessage
}

// NewChatSession requires a note with a usable transcript.
func NewChatSession(completer ports.ChatCompleter, note domain.VoiceNote) (*ChatSession, error) {
	if !note.Chatable() {
		return nil, fmt.Errorf("note %s has no transcript to chat about", note.ID)
	}
	return &ChatSession{
		completer:  completer,
		transcript: note.Transcript,
		language:   note.Language,
	}, nil
}

// Send appends the user message, requests a completion, and appends the
// reply. The user message stays in history even when the completion
// fails so a retry does not lose what was typed.
func (s *ChatSession) Send(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	s.history = append(s.history, domain.ChatMessage{Role: domain.ChatRoleUser, Content: text})
	messages := s.composeLocked()
	s.mu.Unlock()

	reply, err := s.completer.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("send chat message: %w", err)
	}

	s.mu.Lock()
	s.history = append(s.history, domain.ChatMessage{Role: domain.ChatRoleAssistant, Content: reply})
	s.mu.Unlock()

	return reply, nil
}

// History returns a copy of the user/assistant turns so far.
func (s *ChatSession) History() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

func (s *ChatSession) composeLocked() []domain.ChatMessage {
	lang := s.language
	if _, ok := systemPrompts[lang]; !ok {
		lang = domain.DefaultLanguage
	}

	messages := make([]domain.ChatMessage, 0, len(s.history)+2)
	messages = append(messages, domain.ChatMessage{
		Role:    domain.ChatRoleSystem,
		Content: systemPrompts[lang],
	})
	messages = append(messages, domain.ChatMessage{
		Role:    domain.ChatRoleSystem,
		Content: transcriptIntros[lang] + "\n\n" + s.transcript,
	})
	messages = append(messages, s.history...)
	return messages
}
