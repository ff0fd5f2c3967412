package fetch

import (
	"errors"
	"fmt"
)

// Error is a typed fetch failure. StatusCode is zero for transport-level
// failures.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: connection failed: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrTooLarge marks payloads over the configured size cap.
var ErrTooLarge = errors.New("payload too large")

// StatusCode extracts the HTTP status from a fetch error, or 0.
func StatusCode(err error) int {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.StatusCode
	}
	return 0
}
