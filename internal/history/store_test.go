package history_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"cardmint/internal/history"
	"cardmint/internal/testsupport"
)

func TestBeginFinishGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.Begin(ctx, "01HZZZRUN0000000000000001", "card.jpg", started); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	run, err := store.Get(ctx, "01HZZZRUN0000000000000001")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if run == nil || run.Status != history.StatusRunning || run.ImageSource != "card.jpg" {
		t.Fatalf("unexpected running row: %#v", run)
	}

	finished := started.Add(3 * time.Second)
	err = store.Finish(ctx, history.Run{
		ID:             "01HZZZRUN0000000000000001",
		Status:         history.StatusSucceeded,
		ImageURL:       "https://i.imgur.com/x.jpg",
		IdentityName:   "Pikachu",
		IdentityNumber: "58",
		CatalogID:      "base1-58",
		CardName:       "Pikachu",
		SetName:        "Base",
		ContentID:      "bafyX",
		TokenID:        "0.0.5005",
		Serials:        []int64{1},
		FinishedAt:     finished,
	})
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	run, err = store.Get(ctx, "01HZZZRUN0000000000000001")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if run.Status != history.StatusSucceeded || run.TokenID != "0.0.5005" || len(run.Serials) != 1 || run.Serials[0] != 1 {
		t.Fatalf("unexpected finished row: %#v", run)
	}
	if run.Duration() != 3*time.Second {
		t.Fatalf("duration = %s", run.Duration())
	}
	if run.ImageSource != "card.jpg" {
		t.Fatalf("Finish must keep the image source, got %q", run.ImageSource)
	}
}

func TestFinishRecordsHaltAndOrphan(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	if err := store.Begin(ctx, "01RUNHALT", "stdin", time.Time{}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	err := store.Finish(ctx, history.Run{
		ID:              "01RUNHALT",
		Status:          history.StatusHalted,
		HaltStage:       "mint",
		ErrorKind:       "ledger",
		ErrorMessage:    "mint failed",
		OrphanedTokenID: "0.0.7",
		ImageURL:        "https://i.imgur.com/x.jpg",
		IdentityName:    "Pikachu",
		IdentityNumber:  "58",
		CatalogID:       "base1-58",
		CardName:        "Pikachu",
		SetName:         "Base",
		ContentID:       "bafyX",
		TokenID:         "0.0.7",
	})
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	run, err := store.Get(ctx, "01RUNHALT")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if run.HaltStage != "mint" || run.ErrorKind != "ledger" || run.OrphanedTokenID != "0.0.7" || run.Serials != nil {
		t.Fatalf("unexpected halted row: %#v", run)
	}
	if run.ImageURL != "" || run.IdentityName != "" || run.IdentityNumber != "" || run.CatalogID != "" ||
		run.CardName != "" || run.SetName != "" || run.ContentID != "" || run.TokenID != "" {
		t.Fatalf("halted row kept stage outputs: %#v", run)
	}
	if run.ImageSource != "stdin" {
		t.Fatalf("halted row lost its image source: %q", run.ImageSource)
	}
}

func TestFinishUnknownRun(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	if err := store.Finish(context.Background(), history.Run{ID: "missing", Status: history.StatusHalted}); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestListNewestFirst(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()
	for _, id := range []string{"01A", "01C", "01B"} {
		if err := store.Begin(ctx, id, "card.jpg", time.Time{}); err != nil {
			t.Fatalf("Begin %s: %v", id, err)
		}
	}

	runs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "01C" || runs[1].ID != "01B" {
		t.Fatalf("unexpected order: %#v", runs)
	}
	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(all))
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	run, err := store.Get(context.Background(), "nope")
	if err != nil || run != nil {
		t.Fatalf("expected nil, nil; got %#v, %v", run, err)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	store.Close()

	db, err := sql.Open("sqlite", cfg.History.Path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	if _, err := history.Open(cfg); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
