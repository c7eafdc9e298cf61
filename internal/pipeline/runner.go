package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"cardmint/internal/capture"
	"cardmint/internal/card"
	"cardmint/internal/logging"
	"cardmint/internal/services"
)

// Deps are the stage adapters a Runner drives. Recorder and Notifier are
// optional. Publisher and Minter are only called in ModeMint.
type Deps struct {
	ImageHost ImageHost
	Extractor Extractor
	Catalog   Catalog
	Packager  card.Packager
	Publisher Publisher
	Minter    Minter
	Recorder  Recorder
	Notifier  Notifier
	Logger    *slog.Logger
}

// Runner executes pipeline runs.
type Runner struct {
	deps   Deps
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// New constructs a Runner.
func New(deps Deps) *Runner {
	return &Runner{
		deps:   deps,
		logger: logging.NewComponentLogger(deps.Logger, "pipeline"),
		now:    time.Now,
		newID:  func() string { return ulid.Make().String() },
	}
}

// ErrStageUnavailable reports a run that needs an adapter the runner was built without.
var ErrStageUnavailable = errors.New("stage adapter not configured")

// Run processes img up to the stage mode allows. The returned error is the
// one that halted the run; the report is never nil.
func (r *Runner) Run(ctx context.Context, img capture.Image, mode Mode) (*Report, error) {
	report := &Report{
		RunID:       r.newID(),
		Mode:        mode.String(),
		ImageSource: img.Source,
		StartedAt:   r.now().UTC(),
	}
	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("mode", mode.String()),
		logging.String("image_source", img.Source),
		logging.Int("image_bytes", len(img.Data)),
	)

	r.record(ctx, func(rec Recorder) error {
		return rec.Begin(ctx, report.RunID, report.ImageSource, report.StartedAt)
	})

	err := r.execute(ctx, img, mode, report)
	report.FinishedAt = r.now().UTC()

	if err != nil {
		r.notify(ctx, func(n Notifier) error { return n.NotifyRunFailed(ctx, report.HaltStage, err) })
	} else if report.Outcome == OutcomeMinted {
		r.notify(ctx, func(n Notifier) error {
			return n.NotifyMinted(ctx, report.Record.Name, report.Token.TokenID, report.Token.Serials)
		})
	}
	r.record(ctx, func(rec Recorder) error { return rec.Finish(ctx, report.historyRun()) })

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("outcome", string(report.Outcome)),
		logging.Duration("run_duration", report.FinishedAt.Sub(report.StartedAt)),
	}
	if report.Halted() {
		attrs = append(attrs,
			logging.String("halt_stage", report.HaltStage),
			logging.String(logging.FieldErrorKind, report.ErrorKind),
		)
		if report.ImageURL != "" {
			attrs = append(attrs, logging.String("uploaded_image", report.ImageURL))
		}
	}
	logger.Info("run finished", logging.Args(attrs...)...)
	return report, err
}

func (r *Runner) execute(ctx context.Context, img capture.Image, mode Mode, report *Report) error {
	if err := r.stage(ctx, report, StageUpload, func(ctx context.Context) error {
		if r.deps.ImageHost == nil {
			return ErrStageUnavailable
		}
		link, err := r.deps.ImageHost.Upload(ctx, img)
		if err != nil {
			return err
		}
		if strings.TrimSpace(link) == "" {
			return services.Wrap(services.ErrRemote, StageUpload, "upload", "image host returned no url", nil)
		}
		report.ImageURL = link
		return nil
	}); err != nil {
		return err
	}

	if err := r.stage(ctx, report, StageVision, func(ctx context.Context) error {
		if r.deps.Extractor == nil {
			return ErrStageUnavailable
		}
		identity, err := r.deps.Extractor.ExtractIdentity(ctx, report.ImageURL)
		if err != nil {
			return err
		}
		report.Identity = &identity
		return nil
	}, logging.String("image_url", report.ImageURL)); err != nil {
		return err
	}

	if err := r.stage(ctx, report, StageCatalog, func(ctx context.Context) error {
		if r.deps.Catalog == nil {
			return ErrStageUnavailable
		}
		record, err := r.deps.Catalog.Resolve(ctx, report.Identity.Name, report.Identity.Number)
		if err != nil {
			return err
		}
		report.Record = &record
		return nil
	}, logging.String("card_name", report.Identity.Name), logging.String("card_number", report.Identity.Number)); err != nil {
		return err
	}
	if mode == ModeIdentify {
		report.Outcome = OutcomeIdentified
		return nil
	}

	if err := r.stage(ctx, report, StagePackage, func(context.Context) error {
		md := r.deps.Packager.Package(*report.Record)
		report.Metadata = &md
		return nil
	}, logging.String("catalog_id", report.Record.ID)); err != nil {
		return err
	}
	if mode == ModeDryRun {
		report.Outcome = OutcomePackaged
		return nil
	}

	if err := r.stage(ctx, report, StagePublish, func(ctx context.Context) error {
		if r.deps.Publisher == nil {
			return ErrStageUnavailable
		}
		cid, err := r.deps.Publisher.Publish(ctx, *report.Metadata)
		if err != nil {
			return err
		}
		if strings.TrimSpace(string(cid)) == "" {
			return services.Wrap(services.ErrRemote, StagePublish, "publish", "publisher returned no content id", nil)
		}
		report.ContentID = cid
		return nil
	}); err != nil {
		return err
	}

	params := card.ParamsFor(*report.Record)
	if err := r.stage(ctx, report, StageMint, func(ctx context.Context) error {
		if r.deps.Minter == nil {
			return ErrStageUnavailable
		}
		token, err := r.deps.Minter.Mint(ctx, report.ContentID, params)
		if token.TokenID != "" {
			report.Token = &token
		}
		return err
	}, logging.String("content_id", string(report.ContentID)), logging.String("token_symbol", params.Symbol)); err != nil {
		return err
	}
	report.Outcome = OutcomeMinted
	return nil
}

// stage runs fn with a per-stage request id and records its timing. A
// failure halts the report.
func (r *Runner) stage(ctx context.Context, report *Report, name string, fn func(context.Context) error, attrs ...logging.Attr) error {
	requestID := uuid.NewString()
	stageCtx := services.WithRequestID(services.WithStage(ctx, name), requestID)
	stageLogger := logging.WithContext(stageCtx, r.logger)

	stageStart := time.Now()
	stageLogger.Info("stage started", logging.Args(append([]logging.Attr{logging.String(logging.FieldEventType, "stage_start")}, attrs...)...)...)

	err := fn(stageCtx)
	timing := StageTiming{Stage: name, RequestID: requestID, Duration: time.Since(stageStart), Failed: err != nil}
	report.Stages = append(report.Stages, timing)

	if err != nil {
		report.halt(name, err)
		logging.ErrorWithContext(stageLogger, "stage failed", "stage_failure",
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldErrorHint, hintFor(name, err)),
			logging.Duration("stage_duration", timing.Duration),
			logging.Error(err),
		)
		return err
	}
	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", timing.Duration),
	)
	return nil
}

func (r *Runner) record(ctx context.Context, fn func(Recorder) error) {
	if r.deps.Recorder == nil {
		return
	}
	if err := fn(r.deps.Recorder); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "run history not updated", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run will be missing from cardmint history"),
		)
	}
}

func (r *Runner) notify(ctx context.Context, fn func(Notifier) error) {
	if r.deps.Notifier == nil {
		return
	}
	if err := fn(r.deps.Notifier); err != nil {
		logging.WithContext(ctx, r.logger).Debug("notification failed", logging.Error(err))
	}
}

func hintFor(stage string, err error) string {
	switch {
	case errors.Is(err, ErrStageUnavailable):
		return "this command was built without the " + stage + " adapter"
	case errors.Is(err, services.ErrConfiguration):
		return "check credentials with cardmint config validate"
	case errors.Is(err, services.ErrMalformedOutput):
		return "the vision model did not return JSON; retake the photo with the card filling the frame"
	case errors.Is(err, services.ErrNoMatch):
		return "the catalog has no card with this name and number; check the identity in the run report"
	case errors.Is(err, services.ErrValidation):
		return "the extracted value was rejected before calling the next service"
	case errors.Is(err, services.ErrLedger):
		return "check the operator account balance and keys on the selected network"
	case errors.Is(err, services.ErrRemote):
		return "the " + stage + " service rejected the request; see error for its response"
	default:
		return "check network connectivity to the " + stage + " service"
	}
}
