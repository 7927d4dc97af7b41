package transport

import "fmt"

// StatusError is an unexpected HTTP status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

type SizeMismatchError struct {
	Expected int64
	Received int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("size mismatch: expected %d bytes, got %d bytes", e.Expected, e.Received)
}
