package export

import "fmt"

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Result is the outcome for one product or stock row.
type Result struct {
	ProductID   string `json:"product_id"`
	InventoryID string `json:"inventory_id,omitempty"`
	Name        string `json:"name"`
	Quantity    *int   `json:"quantity,omitempty"`
	Status      Status `json:"status"`
	CloverID    string `json:"clover_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (r Result) succeed(cloverID string) Result {
	r.Status = StatusSuccess
	r.CloverID = cloverID
	return r
}

func (r Result) fail(err error) Result {
	r.Status = StatusFailed
	r.Error = err.Error()
	return r
}

// Report aggregates a push. Results keep the order items were listed in.
type Report struct {
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Total     int      `json:"total"`
	Results   []Result `json:"results"`

	noun string
}

func newReport(noun string, results []Result) *Report {
	report := &Report{Total: len(results), Results: results, noun: noun}
	for _, r := range results {
		if r.Status == StatusSuccess {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	return report
}

func (r *Report) Message() string {
	return fmt.Sprintf("Synced %d/%d %s", r.Succeeded, r.Total, r.noun)
}

// FirstError returns the first failure message, if any.
func (r *Report) FirstError() string {
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			return res.Error
		}
	}
	return ""
}
