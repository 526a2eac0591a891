package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ad-tracker/youtube-announcer-go/internal/db/models"
	"github.com/ad-tracker/youtube-announcer-go/internal/service/youtube"
)

const testSource = "UCuAXFkgsw1L7xaCfnd5JJOw"

var t0 = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return t0.Add(time.Duration(minutes) * time.Minute)
}

func video(id string, minutes int) *youtube.Video {
	return &youtube.Video{ID: id, Title: "title " + id, PublishedAt: at(minutes)}
}

func allStreams() SourceOptions {
	return SourceOptions{IncludeLive: true, IncludePremieres: true, RequestTimeout: time.Second}
}

func ids(items []*models.Item) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func expectChannel(api *mockYouTubeAPI) {
	api.On("GetChannel", mock.Anything, testSource).
		Return(&youtube.ChannelInfo{ID: testSource, Title: "Humo TV", UploadsPlaylistID: "UUhumo"}, nil)
}

func TestContentSource_MergesStreams(t *testing.T) {
	api := new(mockYouTubeAPI)
	expectChannel(api)
	api.On("ListUploads", mock.Anything, "UUhumo").Return([]*youtube.Video{
		video("up-new", 30),
		video("tie-upload", 20),
		{ID: "", Title: "no id", PublishedAt: at(25)},
		video("up-old", 5),
	}, nil)
	api.On("ListLive", mock.Anything, testSource).Return([]*youtube.Video{
		video("tie-live", 20),
		video("up-new", 30),
	}, nil)
	api.On("ListUpcoming", mock.Anything, testSource).Return([]*youtube.Video{
		video("tie-premiere", 20),
		{ID: "no-time", Title: "broken"},
	}, nil)

	source := NewContentSource(api, nil, nil, nil, allStreams(), nil)
	items, err := source.Fetch(context.Background(), testSource)
	require.NoError(t, err)

	assert.Equal(t, []string{"up-new", "tie-upload", "tie-live", "tie-premiere", "up-old"}, ids(items))
	assert.Equal(t, models.ItemVideo, items[0].Type, "duplicate id keeps the first stream's type")
	assert.Equal(t, models.ItemLive, items[2].Type)
	assert.Equal(t, models.ItemPremiere, items[3].Type)
	assert.Equal(t, "Humo TV", items[0].ChannelTitle, "falls back to the channel title")
	api.AssertExpectations(t)
}

func TestContentSource_StreamFailureContributesNothing(t *testing.T) {
	api := new(mockYouTubeAPI)
	expectChannel(api)
	api.On("ListUploads", mock.Anything, "UUhumo").Return([]*youtube.Video{video("up1", 10)}, nil)
	api.On("ListLive", mock.Anything, testSource).Return(nil, errors.New("503 backend error"))
	api.On("ListUpcoming", mock.Anything, testSource).Return([]*youtube.Video{}, nil)

	items, err := NewContentSource(api, nil, nil, nil, allStreams(), nil).Fetch(context.Background(), testSource)
	require.NoError(t, err)
	assert.Equal(t, []string{"up1"}, ids(items))
}

func TestContentSource_UploadsFailureIsNotFatal(t *testing.T) {
	api := new(mockYouTubeAPI)
	expectChannel(api)
	api.On("ListUploads", mock.Anything, "UUhumo").Return(nil, errors.New("timeout"))
	api.On("ListLive", mock.Anything, testSource).Return([]*youtube.Video{video("live1", 10)}, nil)
	api.On("ListUpcoming", mock.Anything, testSource).Return(nil, nil)

	items, err := NewContentSource(api, nil, nil, nil, allStreams(), nil).Fetch(context.Background(), testSource)
	require.NoError(t, err)
	assert.Equal(t, []string{"live1"}, ids(items))
}

func TestContentSource_LookupFailurePropagates(t *testing.T) {
	tests := []struct {
		name  string
		setup func(api *mockYouTubeAPI)
	}{
		{
			name: "channel lookup",
			setup: func(api *mockYouTubeAPI) {
				api.On("GetChannel", mock.Anything, testSource).Return(nil, youtube.ErrChannelNotFound)
			},
		},
		{
			name: "uploads playlist gone",
			setup: func(api *mockYouTubeAPI) {
				expectChannel(api)
				api.On("ListUploads", mock.Anything, "UUhumo").Return(nil, youtube.ErrChannelNotFound)
				api.On("ListLive", mock.Anything, testSource).Return(nil, nil)
				api.On("ListUpcoming", mock.Anything, testSource).Return(nil, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(mockYouTubeAPI)
			tt.setup(api)

			_, err := NewContentSource(api, nil, nil, nil, allStreams(), nil).Fetch(context.Background(), testSource)
			assert.ErrorIs(t, err, youtube.ErrChannelNotFound)
		})
	}
}

func TestContentSource_CachesChannelLookup(t *testing.T) {
	api := new(mockYouTubeAPI)
	expectChannel(api)
	api.On("ListUploads", mock.Anything, "UUhumo").Return([]*youtube.Video{video("up1", 1)}, nil)

	source := NewContentSource(api, nil, nil, nil, SourceOptions{}, nil)
	for i := 0; i < 3; i++ {
		_, err := source.Fetch(context.Background(), testSource)
		require.NoError(t, err)
	}

	api.AssertNumberOfCalls(t, "GetChannel", 1)
	api.AssertNumberOfCalls(t, "ListUploads", 3)
	api.AssertNotCalled(t, "ListLive", mock.Anything, mock.Anything)
}

func TestContentSource_Feed(t *testing.T) {
	feed := new(mockFeed)
	feed.On("ListUploads", mock.Anything, testSource).Return([]*youtube.Video{
		{ID: "f2", Title: "two", ChannelTitle: "Humo TV", PublishedAt: at(2)},
		{ID: "f1", Title: "one", ChannelTitle: "Humo TV", PublishedAt: at(1)},
	}, nil)

	source := NewContentSource(nil, feed, nil, nil, SourceOptions{IncludeLive: true}, nil)
	items, err := source.Fetch(context.Background(), testSource)
	require.NoError(t, err)
	assert.Equal(t, []string{"f2", "f1"}, ids(items))

	feed.On("ListUploads", mock.Anything, "UCgone").Return(nil, youtube.ErrChannelNotFound)
	_, err = source.Fetch(context.Background(), "UCgone")
	assert.ErrorIs(t, err, youtube.ErrChannelNotFound)
}

func TestContentSource_Quota(t *testing.T) {
	t.Run("search streams skipped when quota is low", func(t *testing.T) {
		api := new(mockYouTubeAPI)
		expectChannel(api)
		api.On("ListUploads", mock.Anything, "UUhumo").Return([]*youtube.Video{video("up1", 1)}, nil)

		quota := new(mockQuota)
		quota.On("CheckQuotaAvailable", mock.Anything, 2).Return(true, &models.QuotaInfo{}, nil)
		quota.On("CheckQuotaAvailable", mock.Anything, 101).Return(false, &models.QuotaInfo{}, nil)
		quota.On("RecordQuotaUsage", mock.Anything, 1, youtube.OpChannelsList).Return(nil)
		quota.On("RecordQuotaUsage", mock.Anything, 1, youtube.OpPlaylistItemsList).Return(nil)

		items, err := NewContentSource(api, nil, quota, nil, allStreams(), nil).Fetch(context.Background(), testSource)
		require.NoError(t, err)
		assert.Equal(t, []string{"up1"}, ids(items))
		api.AssertNotCalled(t, "ListLive", mock.Anything, mock.Anything)
		api.AssertNotCalled(t, "ListUpcoming", mock.Anything, mock.Anything)
		quota.AssertExpectations(t)
	})

	t.Run("exhausted quota reads uploads from the feed", func(t *testing.T) {
		api := new(mockYouTubeAPI)
		feed := new(mockFeed)
		feed.On("ListUploads", mock.Anything, testSource).Return([]*youtube.Video{video("feed1", 2), video("feed0", 1)}, nil)

		quota := new(mockQuota)
		quota.On("CheckQuotaAvailable", mock.Anything, 2).Return(false, &models.QuotaInfo{}, nil)
		quota.On("CheckQuotaAvailable", mock.Anything, 100).Return(false, &models.QuotaInfo{}, nil)

		items, err := NewContentSource(api, feed, quota, nil, allStreams(), nil).Fetch(context.Background(), testSource)
		require.NoError(t, err)
		assert.Equal(t, []string{"feed1", "feed0"}, ids(items))
		api.AssertNotCalled(t, "GetChannel", mock.Anything, mock.Anything)
		api.AssertNotCalled(t, "ListLive", mock.Anything, mock.Anything)
		quota.AssertNotCalled(t, "RecordQuotaUsage", mock.Anything, mock.Anything, mock.Anything)
		feed.AssertExpectations(t)
	})

	t.Run("quota check failure fails the fetch", func(t *testing.T) {
		api := new(mockYouTubeAPI)
		feed := new(mockFeed)
		quota := new(mockQuota)
		quota.On("CheckQuotaAvailable", mock.Anything, 2).Return(false, nil, errors.New("database is locked"))

		_, err := NewContentSource(api, feed, quota, nil, allStreams(), nil).Fetch(context.Background(), testSource)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrQuotaExhausted)
		feed.AssertNotCalled(t, "ListUploads", mock.Anything, mock.Anything)
	})
}

func TestContentSource_RequiresSource(t *testing.T) {
	_, err := NewContentSource(new(mockYouTubeAPI), nil, nil, nil, SourceOptions{}, nil).Fetch(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestNewItems(t *testing.T) {
	items := []*models.Item{
		{ID: "c", Type: models.ItemVideo, PublishedAt: at(30)},
		{ID: "tie-video", Type: models.ItemVideo, PublishedAt: at(20)},
		{ID: "tie-live", Type: models.ItemLive, PublishedAt: at(20)},
		{ID: "mark", Type: models.ItemVideo, PublishedAt: at(10)},
		{ID: "old", Type: models.ItemVideo, PublishedAt: at(5)},
	}

	assert.Equal(t, []string{"tie-video", "tie-live", "c"}, ids(NewItems(items, at(10), "mark")))
	assert.Empty(t, NewItems(items, at(30), "c"))

	t.Run("ties at the mark other than the marking item", func(t *testing.T) {
		assert.Equal(t, []string{"tie-live", "c"}, ids(NewItems(items, at(20), "tie-video")))
	})
}
