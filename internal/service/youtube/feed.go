package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ad-tracker/youtube-announcer-go/internal/parser"
)

// DefaultFeedURL is the public channel feed. It costs no API quota.
const DefaultFeedURL = "https://www.youtube.com/feeds/videos.xml"

// maxFeedBytes bounds the feed body read into memory.
const maxFeedBytes = 4 << 20

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// FeedClient reads a channel's uploads from its Atom feed.
type FeedClient struct {
	client  HTTPClient
	baseURL string
}

// NewFeedClient creates a feed client. An empty baseURL selects DefaultFeedURL.
func NewFeedClient(client HTTPClient, baseURL string) *FeedClient {
	if client == nil {
		client = &http.Client{}
	}
	if baseURL == "" {
		baseURL = DefaultFeedURL
	}
	return &FeedClient{client: client, baseURL: baseURL}
}

// ListUploads returns the channel's uploads, newest first.
func (f *FeedClient) ListUploads(ctx context.Context, channelID string) ([]*Video, error) {
	u, err := url.Parse(f.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse feed url: %w", err)
	}
	q := u.Query()
	q.Set("channel_id", channelID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", channelID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch feed %s: unexpected status %d", channelID, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}

	entries, err := parser.ParseChannelFeed(body)
	if err != nil {
		return nil, err
	}

	videos := make([]*Video, 0, len(entries))
	for _, e := range entries {
		videos = append(videos, &Video{
			ID:           e.VideoID,
			Title:        e.Title,
			ChannelTitle: e.ChannelTitle,
			PublishedAt:  e.PublishedAt,
		})
	}

	return videos, nil
}
