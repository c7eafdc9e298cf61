package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"cardmint/internal/capture"
	"cardmint/internal/card"
	"cardmint/internal/history"
	"cardmint/internal/services"
	"cardmint/internal/services/hedera"
	"cardmint/internal/testsupport"
)

type calls struct {
	upload, vision, catalog, publish, mint int
}

type stubHost struct {
	c    *calls
	link string
	err  error
}

func (s stubHost) Upload(context.Context, capture.Image) (string, error) {
	s.c.upload++
	return s.link, s.err
}

type stubExtractor struct {
	c        *calls
	identity card.Identity
	err      error
	gotURL   *string
}

func (s stubExtractor) ExtractIdentity(_ context.Context, imageURL string) (card.Identity, error) {
	s.c.vision++
	if s.gotURL != nil {
		*s.gotURL = imageURL
	}
	return s.identity, s.err
}

type stubCatalog struct {
	c       *calls
	records []card.Record
	query   *[2]string
}

func (s stubCatalog) Resolve(_ context.Context, name, number string) (card.Record, error) {
	s.c.catalog++
	if s.query != nil {
		*s.query = [2]string{name, number}
	}
	if len(s.records) == 0 {
		return card.Record{}, services.Wrap(services.ErrNoMatch, "catalog", "resolve", "no cards matched", nil)
	}
	return s.records[0], nil
}

type stubPublisher struct {
	c   *calls
	cid card.ContentID
	got *card.Metadata
}

func (s stubPublisher) Publish(_ context.Context, md card.Metadata) (card.ContentID, error) {
	s.c.publish++
	if s.got != nil {
		*s.got = md
	}
	return s.cid, nil
}

type stubMinter struct {
	c     *calls
	token card.MintedToken
	err   error
}

func (s stubMinter) Mint(context.Context, card.ContentID, card.TokenParams) (card.MintedToken, error) {
	s.c.mint++
	return s.token, s.err
}

type memoryRecorder struct {
	begun    []string
	finished []history.Run
}

func (m *memoryRecorder) Begin(_ context.Context, id, _ string, _ time.Time) error {
	m.begun = append(m.begun, id)
	return nil
}

func (m *memoryRecorder) Finish(_ context.Context, run history.Run) error {
	m.finished = append(m.finished, run)
	return nil
}

type memoryNotifier struct {
	minted []string
	failed []string
}

func (m *memoryNotifier) NotifyMinted(_ context.Context, cardName, tokenID string, _ []int64) error {
	m.minted = append(m.minted, cardName+" "+tokenID)
	return nil
}

func (m *memoryNotifier) NotifyRunFailed(_ context.Context, stage string, _ error) error {
	m.failed = append(m.failed, stage)
	return nil
}

func yungoos(t *testing.T) card.Record {
	t.Helper()
	raw := json.RawMessage(`{"id":"sm1-117","name":"Yungoos","number":"117","rarity":"Common","set":{"id":"sm1","name":"Sun & Moon","ptcgoCode":"SUM"},"images":{"small":"https://images.example/sm1/117.png","large":"https://images.example/sm1/117_hires.png"}}`)
	record, err := card.ParseRecord(raw)
	if err != nil {
		t.Fatalf("parse record: %v", err)
	}
	return record
}

func testImage() capture.Image {
	return capture.Image{Source: "card.jpg", Name: "card.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}
}

func TestRunScenarioMintsCard(t *testing.T) {
	c := &calls{}
	var gotURL string
	var query [2]string
	var published card.Metadata
	recorder := &memoryRecorder{}
	notifier := &memoryNotifier{}
	runner := New(Deps{
		ImageHost: stubHost{c: c, link: "https://i.imgur.com/abc.jpg"},
		Extractor: stubExtractor{c: c, identity: card.Identity{Name: "Yungoos", Number: "117"}, gotURL: &gotURL},
		Catalog:   stubCatalog{c: c, records: []card.Record{yungoos(t)}, query: &query},
		Packager:  card.NewPackager(""),
		Publisher: stubPublisher{c: c, cid: "bafybeigdyrztexample", got: &published},
		Minter:    stubMinter{c: c, token: card.MintedToken{TokenID: "0.0.4242", Serials: []int64{1}}},
		Recorder:  recorder,
		Notifier:  notifier,
	})

	report, err := runner.Run(context.Background(), testImage(), ModeMint)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Outcome != OutcomeMinted || report.Halted() {
		t.Fatalf("expected minted outcome, got %+v", report)
	}
	if gotURL != "https://i.imgur.com/abc.jpg" {
		t.Fatalf("vision received %q", gotURL)
	}
	if query != [2]string{"Yungoos", "117"} {
		t.Fatalf("catalog queried with %v", query)
	}
	if published.Name != "Yungoos" || published.Image != "https://images.example/sm1/117_hires.png" || published.Properties.SetName != "Sun & Moon" {
		t.Fatalf("unexpected metadata %+v", published)
	}
	if published.Description != card.DefaultDescription {
		t.Fatalf("unexpected description %q", published.Description)
	}
	if report.ContentID != "bafybeigdyrztexample" {
		t.Fatalf("unexpected content id %q", report.ContentID)
	}
	if report.Token == nil || report.Token.TokenID != "0.0.4242" || len(report.Token.Serials) != 1 {
		t.Fatalf("unexpected token %+v", report.Token)
	}
	if len(report.Stages) != 6 {
		t.Fatalf("expected 6 stage timings, got %d", len(report.Stages))
	}
	seen := map[string]bool{}
	for _, stage := range report.Stages {
		if stage.RequestID == "" || seen[stage.RequestID] {
			t.Fatalf("stage %s has missing or duplicate request id", stage.Stage)
		}
		seen[stage.RequestID] = true
	}
	if len(recorder.begun) != 1 || recorder.begun[0] != report.RunID {
		t.Fatalf("history begin not recorded: %+v", recorder.begun)
	}
	if len(recorder.finished) != 1 {
		t.Fatalf("history finish not recorded")
	}
	row := recorder.finished[0]
	if row.Status != history.StatusSucceeded || row.TokenID != "0.0.4242" || row.CardName != "Yungoos" || row.ContentID != "bafybeigdyrztexample" {
		t.Fatalf("unexpected history row %+v", row)
	}
	if len(notifier.minted) != 1 || notifier.minted[0] != "Yungoos 0.0.4242" || len(notifier.failed) != 0 {
		t.Fatalf("unexpected notifications %+v", notifier)
	}
}

func TestRunHaltsWhenUploadFails(t *testing.T) {
	for name, host := range map[string]stubHost{
		"error":  {err: services.Wrap(services.ErrTransport, "image_host", "upload", "dial", errors.New("connection refused"))},
		"no url": {link: ""},
	} {
		t.Run(name, func(t *testing.T) {
			c := &calls{}
			host.c = c
			notifier := &memoryNotifier{}
			recorder := &memoryRecorder{}
			runner := New(Deps{
				ImageHost: host,
				Extractor: stubExtractor{c: c},
				Catalog:   stubCatalog{c: c},
				Packager:  card.NewPackager(""),
				Publisher: stubPublisher{c: c},
				Minter:    stubMinter{c: c},
				Recorder:  recorder,
				Notifier:  notifier,
			})
			report, err := runner.Run(context.Background(), testImage(), ModeMint)
			if err == nil {
				t.Fatal("expected upload failure")
			}
			if report.HaltStage != StageUpload || !report.Halted() {
				t.Fatalf("expected halt at upload, got %+v", report)
			}
			if c.upload != 1 || c.vision != 0 || c.catalog != 0 || c.publish != 0 || c.mint != 0 {
				t.Fatalf("later stages invoked: %+v", *c)
			}
			if len(notifier.failed) != 1 || notifier.failed[0] != StageUpload {
				t.Fatalf("expected failure notification, got %+v", notifier.failed)
			}
			if got := recorder.finished[0]; got.Status != history.StatusHalted || got.HaltStage != StageUpload {
				t.Fatalf("unexpected history row %+v", got)
			}
		})
	}
}

func TestRunHaltsOnCatalogMissWithFullNumber(t *testing.T) {
	c := &calls{}
	var query [2]string
	runner := New(Deps{
		ImageHost: stubHost{c: c, link: "https://i.imgur.com/abc.jpg"},
		Extractor: stubExtractor{c: c, identity: card.Identity{Name: "Yungoos", Number: "117/156"}},
		Catalog:   stubCatalog{c: c, query: &query},
		Packager:  card.NewPackager(""),
		Publisher: stubPublisher{c: c},
		Minter:    stubMinter{c: c},
	})
	report, err := runner.Run(context.Background(), testImage(), ModeMint)
	if !errors.Is(err, services.ErrNoMatch) {
		t.Fatalf("expected no match error, got %v", err)
	}
	if query[1] != "117/156" {
		t.Fatalf("number should pass through unchanged, got %q", query[1])
	}
	if report.HaltStage != StageCatalog || report.ErrorKind != "no_match" {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Metadata != nil || c.publish != 0 || c.mint != 0 {
		t.Fatalf("packaging or later stages ran: %+v", *c)
	}
	if report.Identity == nil || report.Identity.Number != "117/156" {
		t.Fatalf("identity missing from halted report")
	}
}

func TestHaltedRunHistoryKeepsNoStageOutputs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	c := &calls{}
	runner := New(Deps{
		ImageHost: stubHost{c: c, link: "https://i.imgur.com/abc.jpg"},
		Extractor: stubExtractor{c: c, identity: card.Identity{Name: "Yungoos", Number: "117/156"}},
		Catalog:   stubCatalog{c: c},
		Packager:  card.NewPackager(""),
		Recorder:  store,
	})
	report, err := runner.Run(context.Background(), testImage(), ModeMint)
	if err == nil {
		t.Fatal("expected catalog miss")
	}
	if report.ImageURL == "" || report.Identity == nil {
		t.Fatalf("report should still describe the halted run: %+v", report)
	}

	run, err := store.Get(context.Background(), report.RunID)
	if err != nil || run == nil {
		t.Fatalf("history row missing: %v", err)
	}
	if run.Status != history.StatusHalted || run.HaltStage != StageCatalog || run.ErrorKind != "no_match" || run.ErrorMessage == "" {
		t.Fatalf("unexpected halted row %+v", run)
	}
	if run.ImageURL != "" || run.IdentityName != "" || run.IdentityNumber != "" || run.CatalogID != "" || run.CardName != "" || run.ContentID != "" {
		t.Fatalf("halted row kept partial results: %+v", run)
	}
}

func TestRunHaltsOnMalformedVisionOutput(t *testing.T) {
	c := &calls{}
	runner := New(Deps{
		ImageHost: stubHost{c: c, link: "https://i.imgur.com/abc.jpg"},
		Extractor: stubExtractor{c: c, err: services.Wrap(services.ErrMalformedOutput, "vision", "parse", "not json", nil)},
		Catalog:   stubCatalog{c: c},
		Packager:  card.NewPackager(""),
	})
	report, err := runner.Run(context.Background(), testImage(), ModeMint)
	if !errors.Is(err, services.ErrMalformedOutput) {
		t.Fatalf("expected malformed output error, got %v", err)
	}
	if c.catalog != 0 {
		t.Fatal("catalog invoked after malformed vision output")
	}
	if report.HaltStage != StageVision || report.ImageURL == "" {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestRunSelectsFirstCatalogMatch(t *testing.T) {
	c := &calls{}
	first := yungoos(t)
	second := first
	second.ID = "sm35-117"
	second.SetName = "Shining Legends"
	runner := New(Deps{
		ImageHost: stubHost{c: c, link: "https://i.imgur.com/abc.jpg"},
		Extractor: stubExtractor{c: c, identity: card.Identity{Name: "Yungoos", Number: "117"}},
		Catalog:   stubCatalog{c: c, records: []card.Record{first, second}},
		Packager:  card.NewPackager(""),
	})
	report, err := runner.Run(context.Background(), testImage(), ModeIdentify)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Outcome != OutcomeIdentified || report.Record.ID != "sm1-117" {
		t.Fatalf("expected first record, got %+v", report.Record)
	}
	if report.Metadata != nil {
		t.Fatal("identify mode should not package")
	}
}

func TestDryRunStopsAfterPackaging(t *testing.T) {
	c := &calls{}
	recorder := &memoryRecorder{}
	runner := New(Deps{
		ImageHost: stubHost{c: c, link: "https://i.imgur.com/abc.jpg"},
		Extractor: stubExtractor{c: c, identity: card.Identity{Name: "Yungoos", Number: "117"}},
		Catalog:   stubCatalog{c: c, records: []card.Record{yungoos(t)}},
		Packager:  card.NewPackager("custom"),
		Recorder:  recorder,
	})
	report, err := runner.Run(context.Background(), testImage(), ModeDryRun)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Outcome != OutcomePackaged || report.Metadata == nil || report.Metadata.Description != "custom" {
		t.Fatalf("unexpected report %+v", report)
	}
	if c.publish != 0 || c.mint != 0 {
		t.Fatalf("dry run published or minted: %+v", *c)
	}
	if recorder.finished[0].Status != history.StatusDryRun {
		t.Fatalf("unexpected history status %q", recorder.finished[0].Status)
	}
}

func TestRunRecordsOrphanedToken(t *testing.T) {
	c := &calls{}
	orphanErr := services.Wrap(services.ErrLedger, "ledger", "mint", "mint failed",
		&hedera.OrphanedTokenError{TokenID: "0.0.777", Err: errors.New("INSUFFICIENT_PAYER_BALANCE")})
	runner := New(Deps{
		ImageHost: stubHost{c: c, link: "https://i.imgur.com/abc.jpg"},
		Extractor: stubExtractor{c: c, identity: card.Identity{Name: "Yungoos", Number: "117"}},
		Catalog:   stubCatalog{c: c, records: []card.Record{yungoos(t)}},
		Packager:  card.NewPackager(""),
		Publisher: stubPublisher{c: c, cid: "bafyorphan"},
		Minter:    stubMinter{c: c, token: card.MintedToken{TokenID: "0.0.777"}, err: orphanErr},
	})
	report, err := runner.Run(context.Background(), testImage(), ModeMint)
	if !errors.Is(err, services.ErrLedger) {
		t.Fatalf("expected ledger error, got %v", err)
	}
	if report.OrphanedTokenID != "0.0.777" || report.HaltStage != StageMint || report.ContentID != "bafyorphan" {
		t.Fatalf("unexpected report %+v", report)
	}
	if run := report.historyRun(); run.OrphanedTokenID != "0.0.777" || run.TokenID != "" {
		t.Fatalf("unexpected history row %+v", run)
	}
}

func TestRunMissingAdapter(t *testing.T) {
	c := &calls{}
	runner := New(Deps{
		ImageHost: stubHost{c: c, link: "https://i.imgur.com/abc.jpg"},
		Extractor: stubExtractor{c: c, identity: card.Identity{Name: "Yungoos", Number: "117"}},
		Catalog:   stubCatalog{c: c, records: []card.Record{yungoos(t)}},
		Packager:  card.NewPackager(""),
	})
	report, err := runner.Run(context.Background(), testImage(), ModeMint)
	if !errors.Is(err, ErrStageUnavailable) || report.HaltStage != StagePublish {
		t.Fatalf("expected publish stage unavailable, got %v (%s)", err, report.HaltStage)
	}
}

func TestPackagingIsDeterministicAcrossRuns(t *testing.T) {
	var encoded [][]byte
	for i := 0; i < 2; i++ {
		c := &calls{}
		var published card.Metadata
		runner := New(Deps{
			ImageHost: stubHost{c: c, link: "https://i.imgur.com/abc.jpg"},
			Extractor: stubExtractor{c: c, identity: card.Identity{Name: "Yungoos", Number: "117"}},
			Catalog:   stubCatalog{c: c, records: []card.Record{yungoos(t)}},
			Packager:  card.NewPackager(""),
			Publisher: stubPublisher{c: c, cid: card.ContentID(fmt.Sprintf("bafy%d", i)), got: &published},
			Minter:    stubMinter{c: c, token: card.MintedToken{TokenID: "0.0.1", Serials: []int64{1}}},
		})
		if _, err := runner.Run(context.Background(), testImage(), ModeMint); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		data, err := published.Encode()
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		encoded = append(encoded, data)
	}
	if !bytes.Equal(encoded[0], encoded[1]) {
		t.Fatalf("metadata differs between runs:\n%s\n%s", encoded[0], encoded[1])
	}
}

func TestRunIDsAreUnique(t *testing.T) {
	c := &calls{}
	runner := New(Deps{ImageHost: stubHost{c: c, err: errors.New("down")}})
	first, _ := runner.Run(context.Background(), testImage(), ModeMint)
	second, _ := runner.Run(context.Background(), testImage(), ModeMint)
	if first.RunID == "" || first.RunID == second.RunID {
		t.Fatalf("expected distinct run ids, got %q and %q", first.RunID, second.RunID)
	}
	if first.ErrorKind != "unknown" {
		t.Fatalf("unexpected error kind %q", first.ErrorKind)
	}
}
