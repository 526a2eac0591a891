package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	channelIDRegex = regexp.MustCompile(`^UC[a-zA-Z0-9_-]{22}$`)
	usernameRegex  = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{4,31}$`)
	chatIDRegex    = regexp.MustCompile(`^-100[0-9]{5,}$`)
)

var ErrInvalidChannelKey = errors.New("invalid telegram channel")

// ChannelKey normalizes what a user typed to name their Telegram channel.
// Usernames are accepted with or without the leading @ and come back as
// @username; private channels are given by their -100... chat id.
func ChannelKey(input string) (string, error) {
	s := strings.TrimSpace(input)
	s = strings.TrimPrefix(s, "https://t.me/")
	s = strings.TrimPrefix(s, "t.me/")
	s = strings.TrimPrefix(s, "@")

	switch {
	case chatIDRegex.MatchString(s):
		return s, nil
	case usernameRegex.MatchString(s):
		return "@" + s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidChannelKey, input)
	}
}

func IsValidChannelID(channelID string) bool {
	return channelIDRegex.MatchString(channelID)
}
