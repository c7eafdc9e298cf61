package pipeline

import (
	"context"
	"time"

	"cardmint/internal/capture"
	"cardmint/internal/card"
	"cardmint/internal/history"
)

// Stage names used in logs, reports, and history rows.
const (
	StageUpload  = "upload"
	StageVision  = "vision"
	StageCatalog = "catalog"
	StagePackage = "package"
	StagePublish = "publish"
	StageMint    = "mint"
)

// Mode selects how far a run goes.
type Mode int

const (
	// ModeMint runs every stage.
	ModeMint Mode = iota
	// ModeDryRun stops after packaging.
	ModeDryRun
	// ModeIdentify stops after catalog resolution.
	ModeIdentify
)

func (m Mode) String() string {
	switch m {
	case ModeDryRun:
		return "dry_run"
	case ModeIdentify:
		return "identify"
	default:
		return "mint"
	}
}

// ImageHost publishes a photo and returns a URL the vision model can fetch.
type ImageHost interface {
	Upload(ctx context.Context, img capture.Image) (string, error)
}

// Extractor reads a card identity from a hosted image.
type Extractor interface {
	ExtractIdentity(ctx context.Context, imageURL string) (card.Identity, error)
}

// Catalog resolves an identity to its canonical record.
type Catalog interface {
	Resolve(ctx context.Context, name, number string) (card.Record, error)
}

// Publisher stores a metadata document and returns its content identifier.
type Publisher interface {
	Publish(ctx context.Context, md card.Metadata) (card.ContentID, error)
}

// Minter creates a token type and mints one unit pointing at a document.
type Minter interface {
	Mint(ctx context.Context, cid card.ContentID, params card.TokenParams) (card.MintedToken, error)
}

// Recorder persists a summary of each run.
type Recorder interface {
	Begin(ctx context.Context, id, imageSource string, startedAt time.Time) error
	Finish(ctx context.Context, run history.Run) error
}

// Notifier is told about mints and halted runs.
type Notifier interface {
	NotifyMinted(ctx context.Context, cardName, tokenID string, serials []int64) error
	NotifyRunFailed(ctx context.Context, stage string, err error) error
}
