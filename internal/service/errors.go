package service

import (
	"errors"
	"fmt"

	"github.com/ad-tracker/youtube-announcer-go/internal/service/youtube"
)

var (
	// ErrNoSource is returned for a channel without a YouTube channel configured.
	ErrNoSource = errors.New("channel has no youtube source")

	// ErrQuotaExhausted is returned when the daily quota threshold leaves no
	// room for the calls an operation needs.
	ErrQuotaExhausted = fmt.Errorf("daily quota threshold reached: %w", youtube.ErrQuotaExceeded)

	// ErrLookupUnavailable is returned when resolving a channel needs the
	// Data API but no API key is configured.
	ErrLookupUnavailable = errors.New("channel lookup needs a youtube api key")
)
