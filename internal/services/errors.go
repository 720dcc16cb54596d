package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest means the caller supplied no usable input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUpstreamFormat means the upstream replied successfully but not in the agreed shape.
	ErrUpstreamFormat = errors.New("unexpected upstream reply format")
	// ErrFetchFailure covers transport failures and, for image search, any non-success reply.
	ErrFetchFailure = errors.New("fetch failed")
	// ErrServiceDisabled is returned when the upstream API key is not configured.
	ErrServiceDisabled = errors.New("service not configured")
)

// UpstreamHTTPError is a non-2xx reply from a third-party API.
type UpstreamHTTPError struct {
	Upstream string
	Status   int
	Message  string
}

func (e *UpstreamHTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s returned status %d", e.Upstream, e.Status)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Upstream, e.Status, e.Message)
}
