// Package onboarding tracks the multi-step bot conversations that connect a
// Telegram channel and point it at a YouTube channel.
package onboarding

import (
	"sync"
	"time"

	"github.com/samber/lo"
)

// DefaultTTL is how long a conversation waits for the user's next message.
const DefaultTTL = 10 * time.Minute

// State is the step a user's conversation is in.
type State int

const (
	Idle State = iota
	AwaitingChannelHandle
	AwaitingSourceURL
)

func (s State) String() string {
	switch s {
	case AwaitingChannelHandle:
		return "awaiting_channel_handle"
	case AwaitingSourceURL:
		return "awaiting_source_url"
	default:
		return "idle"
	}
}

// Session is one user's conversation. ChannelKey is the channel a source URL
// will be attached to.
type Session struct {
	UserID     int64
	State      State
	ChannelKey string
	UpdatedAt  time.Time
}

// Manager holds sessions in memory. A restart drops every conversation,
// which only costs the user a repeated command.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]Session
	ttl      time.Duration
	now      func() time.Time
}

// NewManager creates a Manager whose sessions expire after ttl of inactivity.
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		sessions: make(map[int64]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// AwaitChannelHandle moves the user to the channel handle step.
func (m *Manager) AwaitChannelHandle(userID int64) {
	m.set(Session{UserID: userID, State: AwaitingChannelHandle})
}

// AwaitSourceURL moves the user to the YouTube URL step for channelKey.
func (m *Manager) AwaitSourceURL(userID int64, channelKey string) {
	m.set(Session{UserID: userID, State: AwaitingSourceURL, ChannelKey: channelKey})
}

// Current returns the user's live session. Expired or missing sessions read
// as Idle.
func (m *Manager) Current(userID int64) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return Session{UserID: userID, State: Idle}
	}
	if m.expired(s) {
		delete(m.sessions, userID)
		return Session{UserID: userID, State: Idle}
	}
	return s
}

// Reset returns the user to Idle. It reports whether a conversation was open.
func (m *Manager) Reset(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	return ok && !m.expired(s)
}

// Purge drops expired sessions and returns how many were removed.
func (m *Manager) Purge() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	stale := lo.Keys(lo.PickBy(m.sessions, func(_ int64, s Session) bool {
		return m.expired(s)
	}))
	for _, id := range stale {
		delete(m.sessions, id)
	}
	return len(stale)
}

// Active counts conversations that have not expired.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return lo.CountBy(lo.Values(m.sessions), func(s Session) bool {
		return !m.expired(s)
	})
}

func (m *Manager) set(s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.UpdatedAt = m.now()
	m.sessions[s.UserID] = s
}

func (m *Manager) expired(s Session) bool {
	return m.now().Sub(s.UpdatedAt) > m.ttl
}
