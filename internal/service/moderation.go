package service

import (
	"errors"
	"strings"
	"unicode"
)

// ErrModerationReject is answered to chat and never printed.
var ErrModerationReject = errors.New("message rejected by moderation")

// Moderator rejects messages containing a banned word. Matching is
// case-insensitive on whole words.
type Moderator struct {
	enabled bool
	banned  map[string]struct{}
}

func NewModerator(enabled bool, words []string) *Moderator {
	m := &Moderator{enabled: enabled, banned: make(map[string]struct{}, len(words))}
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			m.banned[w] = struct{}{}
		}
	}
	return m
}

func (m *Moderator) Check(text string) error {
	if !m.enabled || len(m.banned) == 0 {
		return nil
	}
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if _, ok := m.banned[w]; ok {
			return ErrModerationReject
		}
	}
	return nil
}
