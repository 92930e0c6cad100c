package credstore

import (
	"context"
	"sync"

	"github.com/icontact-sdk/client-go/internal/api"
)

// Session is a v1 login session.
type Session = api.Session

// Memory is an in-process credential store. The zero value is ready to use.
type Memory struct {
	mu      sync.RWMutex
	session Session
}

// NewMemory returns a store holding s.
func NewMemory(s Session) *Memory {
	return &Memory{session: s}
}

// Credentials returns the stored session.
func (m *Memory) Credentials(context.Context) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session, nil
}

// SetCredentials replaces the stored session.
func (m *Memory) SetCredentials(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
	return nil
}
