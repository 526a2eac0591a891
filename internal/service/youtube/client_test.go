package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), "test-key", 5,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

const quotaErrorBody = `{"error":{"code":403,"message":"quota","errors":[{"reason":"quotaExceeded","domain":"youtube.quota"}]}}`

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), "", 5)
	assert.Error(t, err)
}

func TestClient_GetChannel(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    *ChannelInfo
		wantErr error
	}{
		{
			name:   "found",
			status: http.StatusOK,
			body: `{"items":[{"id":"UCuAXFkgsw1L7xaCfnd5JJOw",
				"snippet":{"title":"Humo TV","customUrl":"@humotv"},
				"contentDetails":{"relatedPlaylists":{"uploads":"UUuAXFkgsw1L7xaCfnd5JJOw"}},
				"statistics":{"subscriberCount":"1200","videoCount":"34"}}]}`,
			want: &ChannelInfo{
				ID:                "UCuAXFkgsw1L7xaCfnd5JJOw",
				Title:             "Humo TV",
				CustomURL:         "@humotv",
				UploadsPlaylistID: "UUuAXFkgsw1L7xaCfnd5JJOw",
				SubscriberCount:   1200,
				VideoCount:        34,
			},
		},
		{
			name:    "no items",
			status:  http.StatusOK,
			body:    `{"items":[]}`,
			wantErr: ErrChannelNotFound,
		},
		{
			name:    "quota exceeded",
			status:  http.StatusForbidden,
			body:    quotaErrorBody,
			wantErr: ErrQuotaExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/youtube/v3/channels", r.URL.Path)
				assert.Equal(t, "UCuAXFkgsw1L7xaCfnd5JJOw", r.URL.Query().Get("id"))
				writeJSON(w, tt.status, tt.body)
			})

			got, err := client.GetChannel(context.Background(), "UCuAXFkgsw1L7xaCfnd5JJOw")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_ChannelLookups(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case r.URL.Path == "/youtube/v3/channels" && q.Get("forHandle") == "@humotv":
			writeJSON(w, http.StatusOK, `{"items":[{"id":"UChandle0000000000000000"}]}`)
		case r.URL.Path == "/youtube/v3/channels" && q.Get("forUsername") == "humo":
			writeJSON(w, http.StatusOK, `{"items":[{"id":"UCuser000000000000000000"}]}`)
		case r.URL.Path == "/youtube/v3/search":
			assert.Equal(t, "channel", q.Get("type"))
			writeJSON(w, http.StatusOK, `{"items":[{"id":{"kind":"youtube#channel","channelId":"UCsearch0000000000000000"}}]}`)
		default:
			writeJSON(w, http.StatusOK, `{"items":[]}`)
		}
	})
	ctx := context.Background()

	info, err := client.ChannelByHandle(ctx, "@humotv")
	require.NoError(t, err)
	assert.Equal(t, "UChandle0000000000000000", info.ID)

	info, err = client.ChannelByUsername(ctx, "humo")
	require.NoError(t, err)
	assert.Equal(t, "UCuser000000000000000000", info.ID)

	id, err := client.SearchChannel(ctx, "humotv")
	require.NoError(t, err)
	assert.Equal(t, "UCsearch0000000000000000", id)

	_, err = client.ChannelByHandle(ctx, "@nobody")
	assert.ErrorIs(t, err, ErrChannelNotFound)
}

func TestClient_ListUploads(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/youtube/v3/playlistItems", r.URL.Path)
		assert.Equal(t, "UUhumo", r.URL.Query().Get("playlistId"))
		assert.Equal(t, "5", r.URL.Query().Get("maxResults"))
		writeJSON(w, http.StatusOK, `{"items":[
			{"snippet":{"title":"Tom &amp; Jerry","channelTitle":"Humo TV","publishedAt":"2025-01-15T10:30:00Z","resourceId":{"videoId":"vid2"}},
			 "contentDetails":{"videoId":"vid2","videoPublishedAt":"2025-01-15T10:00:00Z"},
			 "status":{"privacyStatus":"public"}},
			{"snippet":{"title":"Private video","resourceId":{"videoId":"secret"}},
			 "contentDetails":{"videoId":"secret"},
			 "status":{"privacyStatus":"private"}},
			{"snippet":{"title":"No details","publishedAt":"2025-01-14T09:00:00Z","resourceId":{"videoId":"vid1"}}}
		]}`)
	})

	videos, err := client.ListUploads(context.Background(), "UUhumo")
	require.NoError(t, err)
	require.Len(t, videos, 2)

	assert.Equal(t, &Video{
		ID:           "vid2",
		Title:        "Tom & Jerry",
		ChannelTitle: "Humo TV",
		PublishedAt:  time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
	}, videos[0])
	assert.Equal(t, "vid1", videos[1].ID)
	assert.Equal(t, time.Date(2025, 1, 14, 9, 0, 0, 0, time.UTC), videos[1].PublishedAt)
}

func TestClient_ListUploads_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"error":{"code":404,"message":"playlist not found","errors":[{"reason":"playlistNotFound"}]}}`)
	})

	_, err := client.ListUploads(context.Background(), "UUmissing")
	assert.ErrorIs(t, err, ErrChannelNotFound)
}

func TestClient_SearchEvents(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCount int
		wantErr   error
	}{
		{
			name:      "live items",
			status:    http.StatusOK,
			body:      `{"items":[{"id":{"videoId":"live1"},"snippet":{"title":"Efir &quot;jonli&quot;","channelTitle":"Humo TV","publishedAt":"2025-01-15T12:00:00Z"}}]}`,
			wantCount: 1,
		},
		{
			name:      "empty result",
			status:    http.StatusOK,
			body:      `{"items":[]}`,
			wantCount: 0,
		},
		{
			name:      "not found yields nothing",
			status:    http.StatusNotFound,
			body:      `{"error":{"code":404,"message":"channel not found"}}`,
			wantCount: 0,
		},
		{
			name:    "quota exceeded",
			status:  http.StatusForbidden,
			body:    quotaErrorBody,
			wantErr: ErrQuotaExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/youtube/v3/search", r.URL.Path)
				assert.Equal(t, "live", r.URL.Query().Get("eventType"))
				assert.Equal(t, "video", r.URL.Query().Get("type"))
				writeJSON(w, tt.status, tt.body)
			})

			videos, err := client.ListLive(context.Background(), "UChumo")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, videos, tt.wantCount)
			if tt.wantCount > 0 {
				assert.Equal(t, `Efir "jonli"`, videos[0].Title)
			}
		})
	}
}

func TestClient_ListUpcoming(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "upcoming", r.URL.Query().Get("eventType"))
		writeJSON(w, http.StatusOK, `{"items":[{"id":{"videoId":"prem1"},"snippet":{"title":"Premyera","publishedAt":"2025-01-16T08:00:00Z"}}]}`)
	})

	videos, err := client.ListUpcoming(context.Background(), "UChumo")
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "prem1", videos[0].ID)
}
