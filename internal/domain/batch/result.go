package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of one operation in a bulk submission.
type Result struct {
	key    string
	status ItemStatus
	err    error
}

// NewOK creates a successful batch result.
func NewOK(key string) Result { return Result{key: key, status: StatusOK} }

// NewError creates a failed batch result.
func NewError(key string, err error) Result { return Result{key: key, status: StatusError, err: err} }

// Key returns the document key the result refers to.
func (r Result) Key() string { return r.key }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// OK reports whether the item succeeded.
func (r Result) OK() bool { return r.status == StatusOK }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Reason returns a printable failure reason, empty for successes.
func (r Result) Reason() string {
	if r.err == nil {
		if r.status == StatusError {
			return "rejected"
		}
		return ""
	}
	return r.err.Error()
}

// Outcome splits a bulk response into succeeded and failed items, order preserved.
type Outcome struct {
	Succeeded []Result
	Failed    []Result
}

// Split partitions results by status.
func Split(results []Result) Outcome {
	var out Outcome
	for _, r := range results {
		if r.OK() {
			out.Succeeded = append(out.Succeeded, r)
		} else {
			out.Failed = append(out.Failed, r)
		}
	}
	return out
}

// Partial reports whether some, but not all, items failed.
func (o Outcome) Partial() bool { return len(o.Failed) > 0 && len(o.Succeeded) > 0 }

// Indexed is the (id, type) pair delivered to resync completion callbacks.
type Indexed struct {
	ID   string
	Type string
}
