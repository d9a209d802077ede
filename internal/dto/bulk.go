package dto

// BulkItemResult is the outcome of one item in a bulk action.
type BulkItemResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CountResults tallies succeeded and failed items.
func CountResults(results []BulkItemResult) (succeeded, failed int) {
	for _, r := range results {
		if r.Success {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}
