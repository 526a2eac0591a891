package youtube

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ad-tracker/youtube-announcer-go/internal/validation"
)

// ChannelRefKind says how a channel URL identifies its channel.
type ChannelRefKind int

const (
	RefChannelID ChannelRefKind = iota
	RefHandle
	RefUsername
	RefCustom
)

// ChannelRef is a parsed channel URL.
type ChannelRef struct {
	Kind  ChannelRefKind
	Value string
}

// ParseChannelURL recognises the channel URL shapes YouTube hands out:
// /channel/UC..., /@handle, /user/name and /c/name. A bare @handle or UC id
// is accepted as well.
func ParseChannelURL(raw string) (*ChannelRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidChannelURL)
	}

	if strings.HasPrefix(raw, "@") && !strings.Contains(raw, "/") {
		return &ChannelRef{Kind: RefHandle, Value: raw}, nil
	}
	if validation.IsValidChannelID(raw) {
		return &ChannelRef{Kind: RefChannelID, Value: raw}, nil
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChannelURL, err)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	if host != "youtube.com" {
		return nil, fmt.Errorf("%w: unexpected host %q", ErrInvalidChannelURL, u.Hostname())
	}

	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no channel in path", ErrInvalidChannelURL)
	}

	first := segments[0]
	if strings.HasPrefix(first, "@") && len(first) > 1 {
		return &ChannelRef{Kind: RefHandle, Value: first}, nil
	}
	if len(segments) < 2 || segments[1] == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidChannelURL, u.Path)
	}

	switch first {
	case "channel":
		if !validation.IsValidChannelID(segments[1]) {
			return nil, fmt.Errorf("%w: bad channel id %q", ErrInvalidChannelURL, segments[1])
		}
		return &ChannelRef{Kind: RefChannelID, Value: segments[1]}, nil
	case "user":
		return &ChannelRef{Kind: RefUsername, Value: segments[1]}, nil
	case "c":
		return &ChannelRef{Kind: RefCustom, Value: segments[1]}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrInvalidChannelURL, u.Path)
}
