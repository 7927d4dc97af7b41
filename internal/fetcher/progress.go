package fetcher

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/tanq16/rangefetch/internal/output"
)

// ProgressState is the shared byte counter of a run. Workers add to it on
// every write; the reporter samples it. A failed attempt subtracts what it
// wrote, so the count can step back during a retry but ends exact.
type ProgressState struct {
	mu          sync.Mutex
	transferred int64
	total       int64
	start       time.Time
}

// NewProgressState starts the counter at baseline, the bytes already
// complete from an earlier run.
func NewProgressState(total, baseline int64) *ProgressState {
	return &ProgressState{transferred: baseline, total: total, start: time.Now()}
}

func (p *ProgressState) Add(n int64) {
	p.mu.Lock()
	p.transferred += n
	p.mu.Unlock()
}

func (p *ProgressState) Transferred() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transferred
}

func (p *ProgressState) Total() int64 {
	return p.total
}

func (p *ProgressState) StartTime() time.Time {
	return p.start
}

// Sample is one progress reading. Speed is bytes per second and ETA is in
// seconds.
type Sample struct {
	Transferred int64
	Total       int64
	Elapsed     int64
	Speed       int64
	Remaining   int64
	ETA         int64
}

// ComputeSample derives speed and ETA from the counter. Elapsed is counted
// in whole seconds and never below one.
func ComputeSample(transferred, total int64, elapsed time.Duration) Sample {
	s := Sample{Transferred: transferred, Total: total}
	s.Elapsed = max(1, int64(elapsed/time.Second))
	s.Speed = transferred / s.Elapsed
	s.Remaining = max(0, total-transferred)
	if s.Speed > 0 {
		s.ETA = s.Remaining / s.Speed
	}
	return s
}

func (s Sample) Done() bool {
	return s.Transferred >= s.Total
}

func (s Sample) Line() string {
	return output.ProgressLine(s.Transferred, s.Total, s.Speed, s.ETA)
}

// ProgressReporter redraws the progress line on a fixed interval until the
// counter reaches the total or Stop is called.
type ProgressReporter struct {
	state    *ProgressState
	out      io.Writer
	interval time.Duration
	styled   bool

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once

	mu   sync.Mutex
	last Sample
}

func NewProgressReporter(state *ProgressState, out io.Writer, interval time.Duration) *ProgressReporter {
	if out == nil {
		out = io.Discard
	}
	if interval <= 0 {
		interval = time.Second
	}
	styled := false
	if f, ok := out.(*os.File); ok {
		styled = output.IsTerminal(f)
	}
	return &ProgressReporter{
		state:    state,
		out:      out,
		interval: interval,
		styled:   styled,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (r *ProgressReporter) Start() {
	go func() {
		defer close(r.doneCh)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if r.render().Done() {
					fmt.Fprintln(r.out)
					return
				}
			case <-r.stopCh:
				r.render()
				fmt.Fprintln(r.out)
				return
			}
		}
	}()
}

func (r *ProgressReporter) render() Sample {
	s := ComputeSample(r.state.Transferred(), r.state.Total(), time.Since(r.state.StartTime()))
	r.mu.Lock()
	r.last = s
	r.mu.Unlock()
	line := s.Line()
	if r.styled {
		line = output.FInfo(output.FitLine(line))
	}
	fmt.Fprintf(r.out, "\r%s", line)
	return s
}

// Stop ends the reporter after one last redraw and waits for it to exit.
// It is safe to call after the reporter finished on its own.
func (r *ProgressReporter) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.doneCh
}

// Last returns the most recent sample.
func (r *ProgressReporter) Last() Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
