package fetcher

import "fmt"

// ProbeError means the object size could not be determined. Nothing has
// been written when it is returned.
type ProbeError struct {
	URL string
	Err error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("error getting file size for %s: %v", e.URL, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// FileSetupError means the destination or its sidecar could not be
// prepared.
type FileSetupError struct {
	Path string
	Err  error
}

func (e *FileSetupError) Error() string {
	return fmt.Sprintf("error preparing %s: %v", e.Path, e.Err)
}

func (e *FileSetupError) Unwrap() error { return e.Err }

// ChunkFetchError records a range that was abandoned after exhausting its
// retry budget. The destination has a gap where the range belongs.
type ChunkFetchError struct {
	Range    Range
	Index    int
	Attempts int
	Err      error
}

func (e *ChunkFetchError) Error() string {
	return fmt.Sprintf("chunk %s failed after %d attempts: %v", e.Range, e.Attempts, e.Err)
}

func (e *ChunkFetchError) Unwrap() error { return e.Err }

// QueueCapacityError is returned at planning time when the object needs
// more ranges than the queue may hold.
type QueueCapacityError struct {
	Ranges   int
	Capacity int
}

func (e *QueueCapacityError) Error() string {
	return fmt.Sprintf("object needs %d ranges but at most %d are supported", e.Ranges, e.Capacity)
}
