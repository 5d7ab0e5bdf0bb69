package batch

// Status is the outcome of one indexing batch.
type Status string

// Batch outcomes.
const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Result locates one contiguous slice of the eligible corpus and records
// whether its records were committed. A nil Err means they were.
type Result struct {
	Batch  int
	Offset int
	Size   int
	Err    error
}

// Status derives the outcome from Err.
func (r Result) Status() Status {
	if r.Err != nil {
		return StatusError
	}
	return StatusOK
}
