package models

// Stage identifies one step of a batch run.
type Stage string

const (
	StageSearching    Stage = "searching"
	StageFoundResults Stage = "found_results"
	StageProcessing   Stage = "processing"
	StageExtracting   Stage = "extracting"
	StageSuccess      Stage = "success"
	StageFailed       Stage = "failed"
	StageError        Stage = "error"
	StageScrolling    Stage = "scrolling"
	StageCompleted    Stage = "completed"
)

// Batch status texts.
const (
	StatusSuccess    = "Success"
	StatusNoListings = "No listings found"
)

// ProgressEvent is a snapshot of a batch run at one stage transition.
type ProgressEvent struct {
	BatchID     string `json:"batch_id"`
	Stage       Stage  `json:"stage"`
	Current     int    `json:"current"`
	Total       int    `json:"total"`
	Extracted   int    `json:"extracted"`
	Status      string `json:"status"`
	CompanyName string `json:"company_name,omitempty"`
}

// ProgressFunc receives progress events synchronously on the batch goroutine.
type ProgressFunc func(ProgressEvent)

// BatchOutcome is the terminal result of one batch run.
type BatchOutcome struct {
	BatchID  string
	Query    string
	Listings []Listing
	Status   string
	Err      error
}

// OK reports whether the batch ended without a fatal error.
func (o BatchOutcome) OK() bool {
	return o.Err == nil
}
