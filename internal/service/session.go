package service

import (
	"log"

	"github.com/tianyehedashu/ai-agent-sub002/internal/adapter/cache"
	"github.com/tianyehedashu/ai-agent-sub002/internal/domain"
)

// bridgeLocked applies a session side-channel event.
func (s *Service) bridgeLocked(rc *runContext, ev domain.Event, fx *effects) {
	switch e := ev.(type) {
	case domain.SessionCreatedEvent:
		if e.SessionID != "" {
			s.sessionID = e.SessionID
			if rc.info.SessionID == "" {
				rc.info.SessionID = e.SessionID
			}
			log.Printf("INFO: session %s created", e.SessionID)
		}
		s.invalidate(fx, cache.TagSessions)

	case domain.SessionRecreatedEvent:
		if !e.IsRecreated || len(e.PreviousState) == 0 {
			return
		}
		info := domain.SessionRecreationInfo{
			SessionID:     e.SessionID,
			IsNew:         e.IsNew,
			IsRecreated:   e.IsRecreated,
			PreviousState: e.PreviousState,
			Message:       e.Message,
		}
		s.recreation = &info
		log.Printf("WARN: session %s was recreated: %s", e.SessionID, e.Message)
		if s.hooks.OnSessionRecreated != nil {
			fx.add(func() {
				s.hooks.OnSessionRecreated(info)
			})
		}

	case domain.TitleUpdatedEvent:
		tags := []string{cache.TagSessions}
		if e.SessionID != "" && e.SessionID == s.sessionID {
			tags = append(tags, cache.SessionTag(e.SessionID))
		}
		s.invalidate(fx, tags...)
	}
}

// SessionRecreation returns the unacknowledged session recreation notice.
func (s *Service) SessionRecreation() (domain.SessionRecreationInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recreation == nil {
		return domain.SessionRecreationInfo{}, false
	}
	return *s.recreation, true
}

// DismissSessionRecreation acknowledges the session recreation notice.
func (s *Service) DismissSessionRecreation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recreation = nil
}
