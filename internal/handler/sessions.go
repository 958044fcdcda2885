package handler

import (
	"sync"

	"policy-onboarding/internal/wizard"
)

type (
	// session serializes every action on one machine.
	session struct {
		mu      sync.Mutex
		machine *wizard.Machine
	}

	sessions struct {
		mu   sync.RWMutex
		byID map[string]*session
	}
)

func newSessions() *sessions {
	return &sessions{byID: map[string]*session{}}
}

func (s *sessions) put(m *wizard.Machine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[m.ID()] = &session{machine: m}
}

func (s *sessions) get(id string) (*session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byID[id]
	return sess, ok
}

func (s *sessions) delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byID[id]
	delete(s.byID, id)
	return ok
}
