package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tanq16/rangefetch/internal/utils"
)

// Session is the state shared by the workers of one run. Nothing in it is
// process-global, so independent runs can share a process.
type Session struct {
	ID          string // manifest session, labels this run's log lines
	Task        Task
	ChunkSize   int64
	MaxAttempts int
	RetryDelay  time.Duration
	Fetcher     RangeFetcher
	Queue       *ChunkQueue
	Store       *CompletionStore
	Progress    *ProgressState

	mu     sync.Mutex
	failed []*ChunkFetchError
}

// Failed returns the abandoned ranges in the order they were reported.
func (s *Session) Failed() []*ChunkFetchError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*ChunkFetchError(nil), s.failed...)
}

func (s *Session) reportFailure(err *ChunkFetchError) {
	s.mu.Lock()
	s.failed = append(s.failed, err)
	s.mu.Unlock()
	// The caller prints the user-facing report from Failed().
	log := utils.GetLogger("worker")
	log.Debug().Str("session", s.ID).Str("range", err.Range.String()).Int("index", err.Index).
		Int("attempts", err.Attempts).Err(err.Err).Msg("Chunk abandoned")
}

// runWorker drains the queue. It only returns an error when ctx is
// cancelled; failed ranges are reported and skipped.
func (s *Session) runWorker(ctx context.Context, id int) error {
	log := utils.GetLogger("worker").With().Str("session", s.ID).Int("worker", id).Logger()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, ok := s.Queue.Dequeue()
		if !ok {
			log.Debug().Msg("Queue drained, worker exiting")
			return nil
		}
		if err := s.fetchRange(ctx, log, r); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var chunkErr *ChunkFetchError
			if errors.As(err, &chunkErr) {
				s.reportFailure(chunkErr)
			}
		}
	}
}

// fetchRange tries r up to MaxAttempts times and marks it complete on
// success.
func (s *Session) fetchRange(ctx context.Context, log zerolog.Logger, r Range) error {
	index := r.Index(s.ChunkSize)
	log = log.With().Int("index", index).Str("range", r.String()).Logger()
	var lastErr error
	for attempt := 1; attempt <= s.MaxAttempts; attempt++ {
		if attempt > 1 {
			log.Debug().Int("attempt", attempt).Int("maxAttempts", s.MaxAttempts).Msg("Retrying chunk")
			select {
			case <-time.After(time.Duration(attempt-1) * s.RetryDelay): // linear backoff
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		written, err := s.fetchOnce(ctx, r)
		if err != nil {
			// Bytes of a failed attempt are fetched again, so take them back.
			s.Progress.Add(-written)
			lastErr = err
			log.Warn().Err(err).Int("attempt", attempt).Int64("written", written).Msg("Error downloading chunk")
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		if err := s.Store.MarkComplete(index); err != nil {
			// The bytes are on disk; only the resume record is behind.
			log.Error().Err(err).Msg("Failed to save progress")
		}
		log.Debug().Int64("bytes", written).Msg("Chunk download completed")
		return nil
	}
	return &ChunkFetchError{Range: r, Index: index, Attempts: s.MaxAttempts, Err: lastErr}
}

// fetchOnce performs a single attempt on its own file handle.
func (s *Session) fetchOnce(ctx context.Context, r Range) (int64, error) {
	f, err := os.OpenFile(s.Task.OutputPath, os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("error opening output file: %v", err)
	}
	defer f.Close()
	if _, err := f.Seek(r.Start, io.SeekStart); err != nil {
		return 0, fmt.Errorf("error seeking to %d: %v", r.Start, err)
	}
	sink := &rangeWriter{w: f, limit: r.Len(), progress: s.Progress}
	if err := s.Fetcher.FetchRange(ctx, s.Task.URL, r.Start, r.End, sink); err != nil {
		return sink.written, err
	}
	if sink.written != r.Len() {
		return sink.written, fmt.Errorf("size mismatch: expected %d bytes, got %d", r.Len(), sink.written)
	}
	if err := f.Sync(); err != nil {
		return sink.written, fmt.Errorf("error syncing output file: %v", err)
	}
	return sink.written, nil
}

var errRangeOverflow = errors.New("server sent more bytes than requested")

// rangeWriter writes at the file's current position, counts every span
// into the progress state as it lands, and refuses to run past the range.
type rangeWriter struct {
	w        io.Writer
	limit    int64
	written  int64
	progress *ProgressState
}

func (rw *rangeWriter) Write(p []byte) (int, error) {
	if rw.written+int64(len(p)) > rw.limit {
		return 0, errRangeOverflow
	}
	n, err := rw.w.Write(p)
	rw.written += int64(n)
	rw.progress.Add(int64(n))
	return n, err
}
