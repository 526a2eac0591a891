// Package delivery classifies the result of sending an announcement.
package delivery

import (
	"errors"
	"fmt"
)

// Outcome is the result of one send attempt.
type Outcome int

const (
	// Delivered means the messaging service acknowledged the message.
	Delivered Outcome = iota
	// Retryable means the send failed for a reason that may clear up by the
	// next sweep: network trouble, timeouts, rate limits, server errors.
	Retryable
	// Permanent means the target can no longer receive messages. Only this
	// outcome deactivates a channel.
	Permanent
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Retryable:
		return "retryable"
	case Permanent:
		return "permanent"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

var (
	ErrPermanent = errors.New("permanent delivery failure")
	ErrRetryable = errors.New("retryable delivery failure")
)

// PermanentError marks err as a permanent delivery failure.
func PermanentError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// RetryableError marks err as a retryable delivery failure.
func RetryableError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrRetryable, err)
}

// Classify maps a send error to its outcome. Errors not marked permanent are
// retryable, so an unknown failure never deactivates a channel.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return Delivered
	case errors.Is(err, ErrPermanent):
		return Permanent
	default:
		return Retryable
	}
}
