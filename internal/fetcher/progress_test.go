package fetcher

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestComputeSample(t *testing.T) {
	tests := []struct {
		name        string
		transferred int64
		total       int64
		elapsed     time.Duration
		want        Sample
	}{
		{
			name:        "elapsed floored to one second",
			transferred: 1000, total: 4000, elapsed: 200 * time.Millisecond,
			want: Sample{Transferred: 1000, Total: 4000, Elapsed: 1, Speed: 1000, Remaining: 3000, ETA: 3},
		},
		{
			name:        "no bytes yet",
			transferred: 0, total: 4000, elapsed: 3 * time.Second,
			want: Sample{Transferred: 0, Total: 4000, Elapsed: 3, Speed: 0, Remaining: 4000, ETA: 0},
		},
		{
			name:        "overshoot clamps remaining",
			transferred: 5000, total: 4000, elapsed: 5 * time.Second,
			want: Sample{Transferred: 5000, Total: 4000, Elapsed: 5, Speed: 1000, Remaining: 0, ETA: 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeSample(tt.transferred, tt.total, tt.elapsed); got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestComputeSampleETANonIncreasing(t *testing.T) {
	const rate = int64(mib)
	const total = 100 * rate
	prev := int64(-1)
	for sec := int64(1); sec <= 100; sec++ {
		s := ComputeSample(sec*rate, total, time.Duration(sec)*time.Second)
		if s.Speed != rate {
			t.Fatalf("second %d: speed %d, want %d", sec, s.Speed, rate)
		}
		if prev >= 0 && s.ETA > prev {
			t.Fatalf("second %d: ETA rose from %d to %d", sec, prev, s.ETA)
		}
		prev = s.ETA
	}
	if prev != 0 {
		t.Fatalf("final ETA: got %d, want 0", prev)
	}
}

func TestProgressStateBaseline(t *testing.T) {
	p := NewProgressState(100, 40)
	p.Add(10)
	p.Add(-5)
	if got := p.Transferred(); got != 45 {
		t.Fatalf("transferred: got %d, want 45", got)
	}
}

func TestProgressReporterStopsWhenComplete(t *testing.T) {
	state := NewProgressState(100, 100)
	var out bytes.Buffer
	r := NewProgressReporter(state, &out, 10*time.Millisecond)
	r.Start()

	select {
	case <-r.doneCh:
	case <-time.After(2 * time.Second):
		t.Fatal("reporter did not stop on completion")
	}
	r.Stop()

	if !r.Last().Done() {
		t.Fatalf("last sample not done: %+v", r.Last())
	}
	if !strings.Contains(out.String(), "100%") {
		t.Fatalf("output missing 100%%: %q", out.String())
	}
}

func TestProgressReporterStop(t *testing.T) {
	state := NewProgressState(100, 0)
	var out bytes.Buffer
	r := NewProgressReporter(state, &out, time.Hour)
	r.Start()
	state.Add(50)
	r.Stop()

	if got := r.Last().Transferred; got != 50 {
		t.Fatalf("final sample: got %d, want 50", got)
	}
	if !strings.HasPrefix(out.String(), "\rProgress: [") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
