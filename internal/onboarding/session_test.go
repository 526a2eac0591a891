package onboarding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager() (*Manager, *clock) {
	c := &clock{t: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	m := NewManager(10 * time.Minute)
	m.now = c.now
	return m, c
}

func TestManager_Transitions(t *testing.T) {
	m, _ := newTestManager()

	assert.Equal(t, Idle, m.Current(1).State)

	m.AwaitChannelHandle(1)
	assert.Equal(t, AwaitingChannelHandle, m.Current(1).State)

	m.AwaitSourceURL(1, "@ForHumoTV")
	s := m.Current(1)
	assert.Equal(t, AwaitingSourceURL, s.State)
	assert.Equal(t, "@ForHumoTV", s.ChannelKey)

	assert.Equal(t, Idle, m.Current(2).State, "sessions are per user")

	assert.True(t, m.Reset(1))
	assert.Equal(t, Idle, m.Current(1).State)
	assert.False(t, m.Reset(1))
}

func TestManager_Expiry(t *testing.T) {
	m, c := newTestManager()

	m.AwaitChannelHandle(1)
	c.advance(9 * time.Minute)
	assert.Equal(t, AwaitingChannelHandle, m.Current(1).State)

	m.AwaitChannelHandle(2)
	c.advance(2 * time.Minute)

	assert.Equal(t, Idle, m.Current(1).State)
	assert.Equal(t, AwaitingChannelHandle, m.Current(2).State)
	assert.False(t, m.Reset(1), "an expired session does not count as open")
}

func TestManager_PurgeAndActive(t *testing.T) {
	m, c := newTestManager()

	m.AwaitChannelHandle(1)
	m.AwaitChannelHandle(2)
	c.advance(11 * time.Minute)
	m.AwaitSourceURL(3, "@humo")

	assert.Equal(t, 1, m.Active())
	assert.Equal(t, 2, m.Purge())
	assert.Equal(t, 0, m.Purge())
	assert.Equal(t, 1, m.Active())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "awaiting_channel_handle", AwaitingChannelHandle.String())
	assert.Equal(t, "awaiting_source_url", AwaitingSourceURL.String())
}
