package batch

import (
	"errors"
	"time"
)

// Summary is the end-of-run report of an indexing run over one collection.
type Summary struct {
	Collection string
	Total      int
	Indexed    int
	Skipped    int
	Duration   time.Duration
	Results    []Result
}

// Add records the outcome of one batch.
func (s *Summary) Add(r Result) {
	s.Results = append(s.Results, r)
	if r.Err == nil {
		s.Indexed += r.Size
		return
	}
	s.Skipped += r.Size
}

// Failed returns the number of skipped batches.
func (s Summary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// FailedRanges lists the [offset, offset+size) corpus ranges that were not
// indexed, in batch order.
func (s Summary) FailedRanges() [][2]int {
	var out [][2]int
	for _, r := range s.Results {
		if r.Err != nil {
			out = append(out, [2]int{r.Offset, r.Offset + r.Size})
		}
	}
	return out
}

// Err joins all batch errors, nil when every batch committed.
func (s Summary) Err() error {
	var errs []error
	for _, r := range s.Results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}
