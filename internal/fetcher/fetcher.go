package fetcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tanq16/rangefetch/internal/utils"
)

// Options tunes a run. Zero sizes and counts fall back to the defaults in
// utils; a zero RetryDelay retries immediately.
type Options struct {
	ChunkSize        int64
	Workers          int // 0 picks from the size table
	MaxAttempts      int
	RetryDelay       time.Duration
	MaxRanges        int
	RemoveMeta       bool // drop the sidecars after a run with no failures
	Out              io.Writer
	ProgressInterval time.Duration
}

// Result summarises a finished run.
type Result struct {
	TotalSize   int64
	Ranges      int
	Skipped     int // ranges already complete at start
	Workers     int
	Transferred int64
	Completed   int
	Failed      []*ChunkFetchError
	Session     string
	Duration    time.Duration
}

// Run fetches task.URL into task.OutputPath. Fatal setup problems come back
// as *ProbeError, *FileSetupError or *QueueCapacityError before any range is
// fetched. Abandoned ranges do not make Run fail; they are listed in
// Result.Failed and the caller decides what that means.
func Run(ctx context.Context, task Task, tr Transport, opts Options) (*Result, error) {
	log := utils.GetLogger("fetcher")
	opts = withDefaults(opts)
	started := time.Now()

	totalSize, err := tr.Size(ctx, task.URL)
	if err == nil && totalSize < 0 {
		err = fmt.Errorf("invalid file size %d", totalSize)
	}
	if err != nil {
		return nil, &ProbeError{URL: task.URL, Err: err}
	}
	log.Debug().Int64("size", totalSize).Str("url", task.URL).Msg("Probed remote object")
	if n := NumRanges(totalSize, opts.ChunkSize); n > opts.MaxRanges {
		return nil, &QueueCapacityError{Ranges: n, Capacity: opts.MaxRanges}
	}

	store, err := OpenCompletionStore(task.OutputPath, task.URL, totalSize, opts.ChunkSize)
	if err != nil {
		return nil, &FileSetupError{Path: utils.MetaPath(task.OutputPath), Err: err}
	}
	log = log.With().Str("session", store.Session()).Logger()
	if _, err := os.Stat(task.OutputPath); os.IsNotExist(err) && store.Count() > 0 {
		log.Warn().Str("file", task.OutputPath).Msg("Output file is missing, discarding saved progress")
		store.Reset()
		if err := store.Save(); err != nil {
			return nil, &FileSetupError{Path: utils.MetaPath(task.OutputPath), Err: err}
		}
	}

	plan, err := PlanRanges(totalSize, opts.ChunkSize, store, opts.MaxRanges)
	if err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = WorkerCount(totalSize)
	}
	fmt.Fprintf(opts.Out, "Total size: %d bytes (%s)\n", totalSize, utils.FormatBytes(uint64(totalSize)))
	fmt.Fprintf(opts.Out, "Using %d threads\n", workers)
	log.Info().Int("ranges", len(plan.Ranges)).Int("pending", len(plan.Pending)).Int64("baseline", plan.Baseline).
		Int("workers", workers).Msg("Planned download")

	if err := preallocate(task.OutputPath, totalSize); err != nil {
		return nil, &FileSetupError{Path: task.OutputPath, Err: err}
	}

	queue := NewChunkQueue(len(plan.Pending))
	for _, r := range plan.Pending {
		if err := queue.Enqueue(r); err != nil {
			return nil, err
		}
	}
	queue.Close()

	session := &Session{
		ID:          store.Session(),
		Task:        task,
		ChunkSize:   opts.ChunkSize,
		MaxAttempts: opts.MaxAttempts,
		RetryDelay:  opts.RetryDelay,
		Fetcher:     tr,
		Queue:       queue,
		Store:       store,
		Progress:    NewProgressState(totalSize, plan.Baseline),
	}

	reporter := NewProgressReporter(session.Progress, opts.Out, opts.ProgressInterval)
	reporter.Start()

	var g errgroup.Group
	for i := range workers {
		g.Go(func() error {
			return session.runWorker(ctx, i+1)
		})
	}
	runErr := g.Wait()
	reporter.Stop()

	if err := store.Save(); err != nil {
		log.Error().Err(err).Msg("Failed to save final progress")
	}

	result := &Result{
		TotalSize:   totalSize,
		Ranges:      len(plan.Ranges),
		Skipped:     len(plan.Ranges) - len(plan.Pending),
		Workers:     workers,
		Transferred: session.Progress.Transferred(),
		Completed:   store.Count(),
		Failed:      session.Failed(),
		Session:     store.Session(),
		Duration:    time.Since(started),
	}
	if runErr != nil {
		log.Warn().Err(runErr).Int("completed", result.Completed).Msg("Download interrupted, progress saved")
		return result, runErr
	}
	if len(result.Failed) == 0 && opts.RemoveMeta {
		if err := store.Remove(); err != nil {
			log.Warn().Err(err).Msg("Failed to remove metadata files")
		}
	}
	return result, nil
}

func withDefaults(opts Options) Options {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = utils.DefaultChunkSize
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = utils.DefaultMaxAttempts
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	if opts.MaxRanges <= 0 {
		opts.MaxRanges = utils.DefaultMaxRanges
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return opts
}

// preallocate sizes the destination without discarding bytes a previous run
// already wrote.
func preallocate(path string, size int64) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("error creating output file: %v", err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return fmt.Errorf("error sizing output file: %v", err)
	}
	return f.Close()
}
