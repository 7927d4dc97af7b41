package fetcher

const mib = 1024 * 1024

// CompletionView answers whether a bitmap slot is already complete.
type CompletionView interface {
	IsComplete(index int) bool
}

// Plan is the partition of an object into ranges for one run.
type Plan struct {
	TotalSize int64
	ChunkSize int64
	Ranges    []Range // every range, in order
	Pending   []Range // ranges still to fetch
	Baseline  int64   // bytes already complete from a previous run
}

// NumRanges returns ceil(totalSize / chunkSize).
func NumRanges(totalSize, chunkSize int64) int {
	if totalSize <= 0 {
		return 0
	}
	return int((totalSize + chunkSize - 1) / chunkSize)
}

// PlanRanges partitions [0, totalSize) into chunkSize ranges, the last one
// truncated. Ranges marked complete in done are left out of Pending and
// their length is counted in Baseline. done may be nil.
func PlanRanges(totalSize, chunkSize int64, done CompletionView, maxRanges int) (*Plan, error) {
	n := NumRanges(totalSize, chunkSize)
	if maxRanges > 0 && n > maxRanges {
		return nil, &QueueCapacityError{Ranges: n, Capacity: maxRanges}
	}
	plan := &Plan{
		TotalSize: totalSize,
		ChunkSize: chunkSize,
		Ranges:    make([]Range, 0, n),
		Pending:   make([]Range, 0, n),
	}
	for start := int64(0); start < totalSize; start += chunkSize {
		end := min(start+chunkSize, totalSize) - 1
		r := Range{Start: start, End: end}
		plan.Ranges = append(plan.Ranges, r)
		if done != nil && done.IsComplete(r.Index(chunkSize)) {
			plan.Baseline += r.Len()
			continue
		}
		plan.Pending = append(plan.Pending, r)
	}
	return plan, nil
}

// WorkerCount picks the pool size from the object size.
func WorkerCount(totalSize int64) int {
	switch {
	case totalSize < 10*mib:
		return 2
	case totalSize < 50*mib:
		return 4
	case totalSize < 200*mib:
		return 8
	case totalSize < 500*mib:
		return 12
	default:
		return 16
	}
}
