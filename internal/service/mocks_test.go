package service

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/ad-tracker/youtube-announcer-go/internal/db/models"
	"github.com/ad-tracker/youtube-announcer-go/internal/service/youtube"
)

type mockYouTubeAPI struct {
	mock.Mock
}

func videosOrNil(args mock.Arguments) ([]*youtube.Video, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*youtube.Video), args.Error(1)
}

func infoOrNil(args mock.Arguments) (*youtube.ChannelInfo, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*youtube.ChannelInfo), args.Error(1)
}

func (m *mockYouTubeAPI) GetChannel(ctx context.Context, channelID string) (*youtube.ChannelInfo, error) {
	return infoOrNil(m.Called(ctx, channelID))
}

func (m *mockYouTubeAPI) ChannelByHandle(ctx context.Context, handle string) (*youtube.ChannelInfo, error) {
	return infoOrNil(m.Called(ctx, handle))
}

func (m *mockYouTubeAPI) ChannelByUsername(ctx context.Context, username string) (*youtube.ChannelInfo, error) {
	return infoOrNil(m.Called(ctx, username))
}

func (m *mockYouTubeAPI) SearchChannel(ctx context.Context, query string) (string, error) {
	args := m.Called(ctx, query)
	return args.String(0), args.Error(1)
}

func (m *mockYouTubeAPI) ListUploads(ctx context.Context, playlistID string) ([]*youtube.Video, error) {
	return videosOrNil(m.Called(ctx, playlistID))
}

func (m *mockYouTubeAPI) ListLive(ctx context.Context, channelID string) ([]*youtube.Video, error) {
	return videosOrNil(m.Called(ctx, channelID))
}

func (m *mockYouTubeAPI) ListUpcoming(ctx context.Context, channelID string) ([]*youtube.Video, error) {
	return videosOrNil(m.Called(ctx, channelID))
}

type mockFeed struct {
	mock.Mock
}

func (m *mockFeed) ListUploads(ctx context.Context, channelID string) ([]*youtube.Video, error) {
	return videosOrNil(m.Called(ctx, channelID))
}

type mockQuota struct {
	mock.Mock
}

func (m *mockQuota) CheckQuotaAvailable(ctx context.Context, requiredQuota int) (bool, *models.QuotaInfo, error) {
	args := m.Called(ctx, requiredQuota)
	info, _ := args.Get(1).(*models.QuotaInfo)
	return args.Bool(0), info, args.Error(2)
}

func (m *mockQuota) RecordQuotaUsage(ctx context.Context, quotaCost int, operationType string) error {
	return m.Called(ctx, quotaCost, operationType).Error(0)
}

// fakeSource serves a fixed item list per source id. Items must be newest first.
type fakeSource struct {
	mu    sync.Mutex
	items map[string][]*models.Item
	errs  map[string]error
	calls map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		items: make(map[string][]*models.Item),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *fakeSource) set(sourceID string, items ...*models.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[sourceID] = items
	delete(f.errs, sourceID)
}

func (f *fakeSource) fail(sourceID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[sourceID] = err
}

func (f *fakeSource) Fetch(_ context.Context, sourceID string) ([]*models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[sourceID]++
	if err := f.errs[sourceID]; err != nil {
		return nil, err
	}
	return append([]*models.Item(nil), f.items[sourceID]...), nil
}

func (f *fakeSource) callCount(sourceID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[sourceID]
}

type sentMessage struct {
	Target string
	Text   string
}

// recordingMessenger records sends. failures maps a target to the error
// returned for it; failAfter lets that many sends succeed first.
type recordingMessenger struct {
	mu        sync.Mutex
	sent      []sentMessage
	failures  map[string]error
	failAfter map[string]int
}

func newRecordingMessenger() *recordingMessenger {
	return &recordingMessenger{
		failures:  make(map[string]error),
		failAfter: make(map[string]int),
	}
}

func (m *recordingMessenger) SendText(_ context.Context, target, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.failures[target]; ok {
		if m.failAfter[target] <= 0 {
			return err
		}
		m.failAfter[target]--
	}
	m.sent = append(m.sent, sentMessage{Target: target, Text: text})
	return nil
}

func (m *recordingMessenger) failWith(target string, err error, after int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[target] = err
	m.failAfter[target] = after
}

func (m *recordingMessenger) heal(target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, target)
	delete(m.failAfter, target)
}

func (m *recordingMessenger) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}
