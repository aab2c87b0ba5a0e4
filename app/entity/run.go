package entity

const (
	RunStatusQueued     = "Queued"
	RunStatusProcessing = "Processing"
	RunStatusSuccessful = "Successful"
	RunStatusFailed     = "Failed"
	RunStatusDeclined   = "Declined"
)

// Run is one journal record of a migration attempt.
type Run struct {
	RunID      string `json:"run_id" db:"run_id"`
	Source     string `json:"source" db:"source"`
	Target     string `json:"target" db:"target"`
	Database   string `json:"database" db:"db_name"`
	Status     string `json:"status" db:"status"`
	Err        string `json:"err" db:"err"`
	StartedAt  string `json:"started_at" db:"started_at"`
	FinishedAt string `json:"finished_at" db:"finished_at"`
}
