package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const runColumns = "id, image_source, status, halt_stage, error_kind, error_message, image_url, identity_name, identity_number, catalog_id, card_name, set_name, content_id, token_id, serials_json, orphaned_token_id, started_at, finished_at"

// Begin inserts a running row for id.
func (s *Store) Begin(ctx context.Context, id, imageSource string, startedAt time.Time) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("history: run id is required")
	}
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, image_source, status, started_at) VALUES (?, ?, ?, ?)`,
		id, imageSource, StatusRunning, startedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Finish records the outcome of run. The row must have been created by Begin.
// A halted run keeps only its failure and any orphaned token id; stage
// outputs collected before the halt are not stored.
func (s *Store) Finish(ctx context.Context, run Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	if run.Status == StatusHalted {
		run = run.haltSummary()
	}
	serials, err := encodeSerials(run.Serials)
	if err != nil {
		return err
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE runs
         SET status = ?, halt_stage = ?, error_kind = ?, error_message = ?, image_url = ?,
             identity_name = ?, identity_number = ?, catalog_id = ?, card_name = ?, set_name = ?,
             content_id = ?, token_id = ?, serials_json = ?, orphaned_token_id = ?, finished_at = ?
         WHERE id = ?`,
		run.Status,
		nullableString(run.HaltStage),
		nullableString(run.ErrorKind),
		nullableString(run.ErrorMessage),
		nullableString(run.ImageURL),
		nullableString(run.IdentityName),
		nullableString(run.IdentityNumber),
		nullableString(run.CatalogID),
		nullableString(run.CardName),
		nullableString(run.SetName),
		nullableString(run.ContentID),
		nullableString(run.TokenID),
		serials,
		nullableString(run.OrphanedTokenID),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run: %s not found", run.ID)
	}
	return nil
}

// Get returns the run with id, or nil when none exists.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// List returns up to limit runs, newest first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		status      string
		haltStage   sql.NullString
		errorKind   sql.NullString
		errorMsg    sql.NullString
		imageURL    sql.NullString
		idName      sql.NullString
		idNumber    sql.NullString
		catalogID   sql.NullString
		cardName    sql.NullString
		setName     sql.NullString
		contentID   sql.NullString
		tokenID     sql.NullString
		serialsRaw  sql.NullString
		orphanedID  sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.ImageSource,
		&status,
		&haltStage,
		&errorKind,
		&errorMsg,
		&imageURL,
		&idName,
		&idNumber,
		&catalogID,
		&cardName,
		&setName,
		&contentID,
		&tokenID,
		&serialsRaw,
		&orphanedID,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	run.Status = Status(status)
	run.HaltStage = haltStage.String
	run.ErrorKind = errorKind.String
	run.ErrorMessage = errorMsg.String
	run.ImageURL = imageURL.String
	run.IdentityName = idName.String
	run.IdentityNumber = idNumber.String
	run.CatalogID = catalogID.String
	run.CardName = cardName.String
	run.SetName = setName.String
	run.ContentID = contentID.String
	run.TokenID = tokenID.String
	run.OrphanedTokenID = orphanedID.String
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTime(finishedRaw.String)
	}
	if serialsRaw.Valid && serialsRaw.String != "" {
		if err := json.Unmarshal([]byte(serialsRaw.String), &run.Serials); err != nil {
			return nil, fmt.Errorf("decode serials: %w", err)
		}
	}
	return &run, nil
}

func encodeSerials(serials []int64) (any, error) {
	if len(serials) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(serials)
	if err != nil {
		return nil, fmt.Errorf("encode serials: %w", err)
	}
	return string(data), nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
