package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cardmint/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past runs",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return errors.New("--limit must be positive")
			}
			return ctx.withHistory(func(store *history.Store) error {
				runs, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if strings.EqualFold(format, "json") {
					return writeJSON(cmd, runViews(runs))
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						run.ID,
						formatStarted(run.StartedAt),
						string(run.Status),
						fallback(run.CardName, run.IdentityName),
						fallback(run.TokenID, run.HaltStage),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Run", "Started", "Status", "Card", "Token / Halt"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().StringVarP(&format, "format", "o", "text", "Output format: text or json")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.ToUpper(strings.TrimSpace(args[0]))
			return ctx.withHistory(func(store *history.Store) error {
				run, err := store.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s not found", id)
				}
				if strings.EqualFold(format, "json") {
					return writeJSON(cmd, newRunView(*run))
				}
				rows := [][]string{
					{"Run", run.ID},
					{"Status", string(run.Status)},
					{"Image", run.ImageSource},
					{"Started", formatStarted(run.StartedAt)},
				}
				if !run.FinishedAt.IsZero() {
					rows = append(rows, []string{"Duration", run.Duration().Round(time.Millisecond).String()})
				}
				readAs := run.IdentityName
				if run.IdentityNumber != "" {
					readAs += " #" + run.IdentityNumber
				}
				optional := [][2]string{
					{"Uploaded", run.ImageURL},
					{"Read as", readAs},
					{"Card", run.CardName},
					{"Set", run.SetName},
					{"Catalog ID", run.CatalogID},
					{"Content ID", run.ContentID},
					{"Token", run.TokenID},
					{"Serials", joinSerials(run.Serials)},
					{"Orphaned token", run.OrphanedTokenID},
					{"Halt stage", run.HaltStage},
					{"Error kind", run.ErrorKind},
					{"Error", run.ErrorMessage},
				}
				for _, field := range optional {
					if field[1] != "" {
						rows = append(rows, []string{field[0], field[1]})
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "text", "Output format: text or json")
	return cmd
}

type runView struct {
	ID              string         `json:"id"`
	Status          history.Status `json:"status"`
	ImageSource     string         `json:"image_source"`
	HaltStage       string         `json:"halt_stage,omitempty"`
	ErrorKind       string         `json:"error_kind,omitempty"`
	Error           string         `json:"error,omitempty"`
	ImageURL        string         `json:"image_url,omitempty"`
	IdentityName    string         `json:"identity_name,omitempty"`
	IdentityNumber  string         `json:"identity_number,omitempty"`
	CatalogID       string         `json:"catalog_id,omitempty"`
	CardName        string         `json:"card_name,omitempty"`
	SetName         string         `json:"set_name,omitempty"`
	ContentID       string         `json:"content_id,omitempty"`
	TokenID         string         `json:"token_id,omitempty"`
	Serials         []int64        `json:"serials,omitempty"`
	OrphanedTokenID string         `json:"orphaned_token_id,omitempty"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      *time.Time     `json:"finished_at,omitempty"`
}

func newRunView(run history.Run) runView {
	view := runView{
		ID:              run.ID,
		Status:          run.Status,
		ImageSource:     run.ImageSource,
		HaltStage:       run.HaltStage,
		ErrorKind:       run.ErrorKind,
		Error:           run.ErrorMessage,
		ImageURL:        run.ImageURL,
		IdentityName:    run.IdentityName,
		IdentityNumber:  run.IdentityNumber,
		CatalogID:       run.CatalogID,
		CardName:        run.CardName,
		SetName:         run.SetName,
		ContentID:       run.ContentID,
		TokenID:         run.TokenID,
		Serials:         run.Serials,
		OrphanedTokenID: run.OrphanedTokenID,
		StartedAt:       run.StartedAt,
	}
	if !run.FinishedAt.IsZero() {
		finished := run.FinishedAt
		view.FinishedAt = &finished
	}
	return view
}

func runViews(runs []history.Run) []runView {
	views := make([]runView, 0, len(runs))
	for _, run := range runs {
		views = append(views, newRunView(run))
	}
	return views
}

func formatStarted(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func fallback(value, alt string) string {
	if value != "" {
		return value
	}
	if alt != "" {
		return alt
	}
	return "-"
}
