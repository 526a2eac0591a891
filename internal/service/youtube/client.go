package youtube

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Quota cost of each Data API call, in units.
const (
	CostChannelsList      = 1
	CostPlaylistItemsList = 1
	CostSearchList        = 100
)

// Operation names recorded against the daily quota.
const (
	OpChannelsList      = "channels_list"
	OpPlaylistItemsList = "playlist_items_list"
	OpSearchList        = "search_list"
)

var (
	ErrChannelNotFound   = errors.New("youtube channel not found")
	ErrQuotaExceeded     = errors.New("youtube api quota exceeded")
	ErrInvalidChannelURL = errors.New("invalid youtube channel url")
)

// ChannelInfo is the subset of channel metadata the announcer uses.
type ChannelInfo struct {
	ID                string
	Title             string
	CustomURL         string
	UploadsPlaylistID string
	SubscriberCount   uint64
	VideoCount        uint64
}

// Video is one upload, live stream or scheduled premiere. PublishedAt is zero
// when YouTube returned no parseable timestamp.
type Video struct {
	ID           string
	Title        string
	ChannelTitle string
	PublishedAt  time.Time
}

// Client wraps the YouTube Data API v3 client
type Client struct {
	service    *youtube.Service
	maxResults int64
}

// NewClient creates a new YouTube API client. Extra options are applied after
// the API key, so tests can point the client at a local endpoint.
func NewClient(ctx context.Context, apiKey string, maxResults int64, opts ...option.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("YouTube API key is required")
	}
	if maxResults <= 0 || maxResults > 50 {
		maxResults = 5
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	return &Client{
		service:    service,
		maxResults: maxResults,
	}, nil
}

// GetChannel looks a channel up by its UC... id.
func (c *Client) GetChannel(ctx context.Context, channelID string) (*ChannelInfo, error) {
	call := c.channelsCall(ctx).Id(channelID)
	return c.firstChannel(call, channelID)
}

// ChannelByHandle looks a channel up by its @handle.
func (c *Client) ChannelByHandle(ctx context.Context, handle string) (*ChannelInfo, error) {
	call := c.channelsCall(ctx).ForHandle(handle)
	return c.firstChannel(call, handle)
}

// ChannelByUsername looks a channel up by its legacy /user/ name.
func (c *Client) ChannelByUsername(ctx context.Context, username string) (*ChannelInfo, error) {
	call := c.channelsCall(ctx).ForUsername(username)
	return c.firstChannel(call, username)
}

// SearchChannel returns the id of the best channel match for query.
func (c *Client) SearchChannel(ctx context.Context, query string) (string, error) {
	resp, err := c.service.Search.List([]string{"snippet"}).
		Q(query).
		Type("channel").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("search channel %q: %w", query, mapError(err))
	}

	for _, item := range resp.Items {
		if item.Id != nil && item.Id.ChannelId != "" {
			return item.Id.ChannelId, nil
		}
		if item.Snippet != nil && item.Snippet.ChannelId != "" {
			return item.Snippet.ChannelId, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrChannelNotFound, query)
}

// ListUploads returns the newest public entries of an uploads playlist.
func (c *Client) ListUploads(ctx context.Context, playlistID string) ([]*Video, error) {
	resp, err := c.service.PlaylistItems.List([]string{"snippet", "contentDetails", "status"}).
		PlaylistId(playlistID).
		MaxResults(c.maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list uploads %s: %w", playlistID, mapError(err))
	}

	videos := make([]*Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Status != nil && item.Status.PrivacyStatus == "private" {
			continue
		}

		video := &Video{}
		if item.ContentDetails != nil {
			video.ID = item.ContentDetails.VideoId
			video.PublishedAt = parseYouTubeTime(item.ContentDetails.VideoPublishedAt)
		}
		if item.Snippet != nil {
			video.Title = html.UnescapeString(item.Snippet.Title)
			video.ChannelTitle = item.Snippet.ChannelTitle
			if video.ID == "" && item.Snippet.ResourceId != nil {
				video.ID = item.Snippet.ResourceId.VideoId
			}
			if video.PublishedAt.IsZero() {
				video.PublishedAt = parseYouTubeTime(item.Snippet.PublishedAt)
			}
		}
		videos = append(videos, video)
	}

	return videos, nil
}

// ListLive returns the channel's broadcasts that are live right now.
func (c *Client) ListLive(ctx context.Context, channelID string) ([]*Video, error) {
	return c.searchEvents(ctx, channelID, "live")
}

// ListUpcoming returns the channel's scheduled premieres and broadcasts.
func (c *Client) ListUpcoming(ctx context.Context, channelID string) ([]*Video, error) {
	return c.searchEvents(ctx, channelID, "upcoming")
}

func (c *Client) searchEvents(ctx context.Context, channelID, eventType string) ([]*Video, error) {
	resp, err := c.service.Search.List([]string{"snippet"}).
		ChannelId(channelID).
		EventType(eventType).
		Type("video").
		Order("date").
		MaxResults(c.maxResults).
		Context(ctx).
		Do()
	if err != nil {
		err = mapError(err)
		if errors.Is(err, ErrChannelNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("search %s videos of %s: %w", eventType, channelID, err)
	}

	videos := make([]*Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		video := &Video{}
		if item.Id != nil {
			video.ID = item.Id.VideoId
		}
		if item.Snippet != nil {
			video.Title = html.UnescapeString(item.Snippet.Title)
			video.ChannelTitle = html.UnescapeString(item.Snippet.ChannelTitle)
			video.PublishedAt = parseYouTubeTime(item.Snippet.PublishedAt)
		}
		videos = append(videos, video)
	}

	return videos, nil
}

func (c *Client) channelsCall(ctx context.Context) *youtube.ChannelsListCall {
	return c.service.Channels.List([]string{"snippet", "contentDetails", "statistics"}).Context(ctx)
}

func (c *Client) firstChannel(call *youtube.ChannelsListCall, ref string) (*ChannelInfo, error) {
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("get channel %s: %w", ref, mapError(err))
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, ref)
	}

	ch := resp.Items[0]
	info := &ChannelInfo{ID: ch.Id}
	if ch.Snippet != nil {
		info.Title = ch.Snippet.Title
		info.CustomURL = ch.Snippet.CustomUrl
	}
	if ch.ContentDetails != nil && ch.ContentDetails.RelatedPlaylists != nil {
		info.UploadsPlaylistID = ch.ContentDetails.RelatedPlaylists.Uploads
	}
	if ch.Statistics != nil {
		info.SubscriberCount = ch.Statistics.SubscriberCount
		info.VideoCount = ch.Statistics.VideoCount
	}

	return info, nil
}

// mapError translates API errors into the package sentinels.
func mapError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.Code {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrChannelNotFound, apiErr.Message)
	case http.StatusForbidden:
		for _, item := range apiErr.Errors {
			if item.Reason == "quotaExceeded" || item.Reason == "dailyLimitExceeded" {
				return fmt.Errorf("%w: %s", ErrQuotaExceeded, apiErr.Message)
			}
		}
	}

	return err
}

// parseYouTubeTime parses RFC3339 timestamps from YouTube API
func parseYouTubeTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
