package session

import (
	"fmt"
	"log/slog"
	"sync"
)

// Manager keys active sessions by voice channel so concurrent guilds stay
// isolated. One session per channel at a time.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	log      *slog.Logger
}

func NewManager(log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{sessions: make(map[string]*Session), log: log}
}

// Add registers and starts a session for its channel. It fails when the
// channel already has an active session.
func (m *Manager) Add(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.cfg.ChannelID]; exists {
		return fmt.Errorf("channel %s already has an active session", s.cfg.ChannelID)
	}

	s.onTerminate = m.remove
	m.sessions[s.cfg.ChannelID] = s
	s.Start()

	m.log.Info("session started", "session", s.cfg.ID, "channel", s.cfg.ChannelID)
	return nil
}

// Get returns the active session for a channel, if any.
func (m *Manager) Get(channelID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[channelID]
	return s, ok
}

// ChannelEmpty reports that the last member left a voice channel. If a
// session tracks that channel, it is pushed to Ending.
func (m *Manager) ChannelEmpty(channelID string) {
	if s, ok := m.Get(channelID); ok {
		s.NotifyChannelEmpty()
	}
}

func (m *Manager) remove(channelID string) {
	m.mu.Lock()
	delete(m.sessions, channelID)
	m.mu.Unlock()
	m.log.Info("session slot cleared", "channel", channelID)
}
