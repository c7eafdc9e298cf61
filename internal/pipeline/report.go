package pipeline

import (
	"errors"
	"time"

	"cardmint/internal/card"
	"cardmint/internal/history"
	"cardmint/internal/services"
	"cardmint/internal/services/hedera"
)

// Outcome summarizes how a run ended.
type Outcome string

const (
	OutcomeMinted     Outcome = "minted"
	OutcomePackaged   Outcome = "packaged"
	OutcomeIdentified Outcome = "identified"
	OutcomeHalted     Outcome = "halted"
)

// Report is everything a run produced. Fields are filled in stage order, so
// a halted run carries the outputs of every stage before HaltStage.
type Report struct {
	RunID           string            `json:"run_id"`
	Mode            string            `json:"mode"`
	ImageSource     string            `json:"image_source"`
	Outcome         Outcome           `json:"outcome"`
	HaltStage       string            `json:"halt_stage,omitempty"`
	ErrorKind       string            `json:"error_kind,omitempty"`
	Error           string            `json:"error,omitempty"`
	ImageURL        string            `json:"image_url,omitempty"`
	Identity        *card.Identity    `json:"identity,omitempty"`
	Record          *card.Record      `json:"card,omitempty"`
	Metadata        *card.Metadata    `json:"metadata,omitempty"`
	ContentID       card.ContentID    `json:"content_id,omitempty"`
	Token           *card.MintedToken `json:"token,omitempty"`
	OrphanedTokenID string            `json:"orphaned_token_id,omitempty"`
	StartedAt       time.Time         `json:"started_at"`
	FinishedAt      time.Time         `json:"finished_at"`
	Stages          []StageTiming     `json:"stages"`
}

// StageTiming records one executed stage.
type StageTiming struct {
	Stage     string        `json:"stage"`
	RequestID string        `json:"request_id"`
	Duration  time.Duration `json:"duration_ns"`
	Failed    bool          `json:"failed,omitempty"`
}

// Halted reports whether a stage failed.
func (r *Report) Halted() bool {
	return r != nil && r.Outcome == OutcomeHalted
}

func (r *Report) halt(stage string, err error) {
	r.Outcome = OutcomeHalted
	r.HaltStage = stage
	r.ErrorKind = services.Kind(err)
	r.Error = err.Error()
	var orphan *hedera.OrphanedTokenError
	if errors.As(err, &orphan) {
		r.OrphanedTokenID = orphan.TokenID
	}
}

// historyRun is the row stored for the report. A halted run carries only its
// failure and orphaned token id; stage outputs stay in the report.
func (r *Report) historyRun() history.Run {
	run := history.Run{
		ID:              r.RunID,
		ImageSource:     r.ImageSource,
		HaltStage:       r.HaltStage,
		ErrorKind:       r.ErrorKind,
		ErrorMessage:    r.Error,
		OrphanedTokenID: r.OrphanedTokenID,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
	}
	switch r.Outcome {
	case OutcomeHalted:
		run.Status = history.StatusHalted
		return run
	case OutcomeMinted:
		run.Status = history.StatusSucceeded
	default:
		run.Status = history.StatusDryRun
	}
	run.ImageURL = r.ImageURL
	run.ContentID = string(r.ContentID)
	if r.Identity != nil {
		run.IdentityName = r.Identity.Name
		run.IdentityNumber = r.Identity.Number
	}
	if r.Record != nil {
		run.CatalogID = r.Record.ID
		run.CardName = r.Record.Name
		run.SetName = r.Record.SetName
	}
	if r.Token != nil && len(r.Token.Serials) > 0 {
		run.TokenID = r.Token.TokenID
		run.Serials = r.Token.Serials
	}
	return run
}
