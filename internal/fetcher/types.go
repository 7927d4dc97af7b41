package fetcher

import (
	"context"
	"fmt"
	"io"
)

// Range is an inclusive byte interval [Start, End] of the remote object.
type Range struct {
	Start int64
	End   int64
}

func (r Range) Len() int64 {
	return r.End - r.Start + 1
}

// Index maps the range to its slot in the completion bitmap.
func (r Range) Index(chunkSize int64) int {
	return int(r.Start / chunkSize)
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Task is the immutable description of one transfer, shared by all workers.
type Task struct {
	URL        string
	OutputPath string
}

// Prober reports the total length of a remote object without transferring
// its body.
type Prober interface {
	Size(ctx context.Context, url string) (int64, error)
}

// RangeFetcher streams the inclusive byte range [start, end] of url into w.
type RangeFetcher interface {
	FetchRange(ctx context.Context, url string, start, end int64, w io.Writer) error
}

type Transport interface {
	Prober
	RangeFetcher
}
