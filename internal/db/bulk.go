package db

// BulkAction is the kind of a bulk operation.
type BulkAction string

const (
	// BulkUpload replaces the document at Key with Fields.
	BulkUpload BulkAction = "upload"
	// BulkDelete removes the document at Key.
	BulkDelete BulkAction = "delete"
)

// BulkOp is one operation of a bulk request.
type BulkOp struct {
	Action BulkAction
	Key    string
	Fields map[string]string
}

// BulkResult is the outcome of one BulkOp.
type BulkResult struct {
	Key       string
	Succeeded bool
	Err       error
}

// Upload builds an upload op.
func Upload(key string, fields map[string]string) BulkOp {
	return BulkOp{Action: BulkUpload, Key: key, Fields: fields}
}

// Delete builds a delete op.
func Delete(key string) BulkOp {
	return BulkOp{Action: BulkDelete, Key: key}
}

// Failed returns the results that did not succeed.
func Failed(results []BulkResult) []BulkResult {
	var out []BulkResult
	for _, r := range results {
		if !r.Succeeded {
			out = append(out, r)
		}
	}
	return out
}
