package history

import "time"

// Status is the final state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusHalted    Status = "halted"
	// StatusDryRun marks runs that stopped early by request (identify or --dry-run).
	StatusDryRun Status = "dry_run"
)

// Run is one history row.
type Run struct {
	ID              string
	ImageSource     string
	Status          Status
	HaltStage       string
	ErrorKind       string
	ErrorMessage    string
	ImageURL        string
	IdentityName    string
	IdentityNumber  string
	CatalogID       string
	CardName        string
	SetName         string
	ContentID       string
	TokenID         string
	Serials         []int64
	OrphanedTokenID string
	StartedAt       time.Time
	FinishedAt      time.Time
}

// Duration reports how long a finished run took.
func (r Run) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// haltSummary drops everything a halted run produced except the failure
// itself and the orphaned token id, which is already committed on the ledger.
func (r Run) haltSummary() Run {
	return Run{
		ID:              r.ID,
		ImageSource:     r.ImageSource,
		Status:          r.Status,
		HaltStage:       r.HaltStage,
		ErrorKind:       r.ErrorKind,
		ErrorMessage:    r.ErrorMessage,
		OrphanedTokenID: r.OrphanedTokenID,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
	}
}
