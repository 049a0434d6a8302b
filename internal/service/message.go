package service

import (
	"github.com/tianyehedashu/ai-agent-sub002/internal/domain"
)

// Messages returns a copy of the conversation history.
func (s *Service) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message{}, s.messages...)
}

// ClearMessages cancels the outstanding run and empties the conversation.
// The session is kept.
func (s *Service) ClearMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && !s.current.status().Terminal() {
		s.cancelLocked(s.current)
	}
	s.current = nil
	s.messages = nil
	s.interrupt = nil
	s.recreation = nil
	s.loading = false
}

// LoadMessages replaces the conversation history, for example when a stored
// session is reopened. The outstanding run is cancelled.
func (s *Service) LoadMessages(history []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && !s.current.status().Terminal() {
		s.cancelLocked(s.current)
	}
	s.current = nil
	s.loading = false
	s.messages = append([]domain.Message{}, history...)
}
