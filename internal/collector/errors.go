package collector

import (
	"errors"
	"fmt"
)

// ErrFeedUnavailable is matched by every fetch failure: network, timeout, bad status or
// malformed body.
var ErrFeedUnavailable = errors.New("feed unavailable")

// FeedError describes a failed feed request.
type FeedError struct {
	Feed       string
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *FeedError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s feed unavailable: status %d from %s: %v", e.Feed, e.StatusCode, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%s feed unavailable: %s: %v", e.Feed, e.Endpoint, e.Err)
}

func (e *FeedError) Unwrap() error { return e.Err }

func (e *FeedError) Is(target error) bool { return target == ErrFeedUnavailable }
