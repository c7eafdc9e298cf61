package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"cardmint/internal/pipeline"
)

type renderFunc func(*cobra.Command, *pipeline.Report) error

func reportRenderer(format string) (renderFunc, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return func(cmd *cobra.Command, r *pipeline.Report) error {
			return writeReportText(cmd.OutOrStdout(), r)
		}, nil
	case "json":
		return func(cmd *cobra.Command, r *pipeline.Report) error {
			return writeJSON(cmd, r)
		}, nil
	case "yaml":
		return func(cmd *cobra.Command, r *pipeline.Report) error {
			return writeYAML(cmd, r)
		}, nil
	default:
		return nil, fmt.Errorf("unsupported format %q (want text, json, or yaml)", format)
	}
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML renders v through its JSON form so field names and omitempty
// rules match --format json. Key order follows the JSON encoding.
func writeYAML(cmd *cobra.Command, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("convert report to yaml: %w", err)
	}
	blockStyle(&doc)
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}

// blockStyle clears the flow and quoting styles inherited from JSON input.
func blockStyle(node *yaml.Node) {
	node.Style = 0
	for _, child := range node.Content {
		blockStyle(child)
	}
}

func writeReportText(w io.Writer, r *pipeline.Report) error {
	var buf bytes.Buffer
	buf.WriteString(outcomeLine(r))
	buf.WriteByte('\n')

	rows := [][]string{{"Run", r.RunID}, {"Image", r.ImageSource}}
	if r.ImageURL != "" {
		rows = append(rows, []string{"Uploaded", r.ImageURL})
	}
	if r.Identity != nil {
		rows = append(rows, []string{"Read as", fmt.Sprintf("%s #%s", r.Identity.Name, r.Identity.Number)})
	}
	if r.Record != nil {
		rows = append(rows,
			[]string{"Card", r.Record.Name},
			[]string{"Set", strings.TrimSpace(r.Record.SetName + " " + bracket(r.Record.SetCode))},
			[]string{"Catalog ID", r.Record.ID},
		)
		if r.Record.Rarity != "" {
			rows = append(rows, []string{"Rarity", r.Record.Rarity})
		}
		if r.Record.ImageURL != "" {
			rows = append(rows, []string{"Card image", r.Record.ImageURL})
		}
	}
	if r.ContentID != "" {
		rows = append(rows, []string{"Metadata", r.ContentID.URI()})
	}
	if r.Token != nil && len(r.Token.Serials) > 0 {
		rows = append(rows, []string{"Token", r.Token.TokenID}, []string{"Serials", joinSerials(r.Token.Serials)})
	}
	if r.OrphanedTokenID != "" {
		rows = append(rows, []string{"Orphaned token", r.OrphanedTokenID + " (created but nothing minted)"})
	}
	if r.Halted() {
		rows = append(rows, []string{"Error", r.Error})
	}
	buf.WriteString(renderTable([]string{"Field", "Value"}, rows, nil))
	buf.WriteByte('\n')

	if len(r.Stages) > 0 {
		stageRows := make([][]string, 0, len(r.Stages))
		for _, stage := range r.Stages {
			status := "ok"
			if stage.Failed {
				status = "failed"
			}
			stageRows = append(stageRows, []string{stage.Stage, status, stage.Duration.Round(time.Millisecond).String()})
		}
		buf.WriteString(renderTable([]string{"Stage", "Status", "Duration"}, stageRows, []columnAlignment{alignLeft, alignLeft, alignRight}))
		buf.WriteByte('\n')
	}

	if r.Metadata != nil && r.ContentID == "" {
		encoded, err := r.Metadata.Encode()
		if err != nil {
			return err
		}
		buf.WriteString("Metadata (not published):\n")
		buf.Write(encoded)
		buf.WriteByte('\n')
	}

	_, err := w.Write(buf.Bytes())
	return err
}

func outcomeLine(r *pipeline.Report) string {
	switch r.Outcome {
	case pipeline.OutcomeMinted:
		return color.GreenString("Minted %s as %s", r.Record.Name, r.Token.TokenID)
	case pipeline.OutcomePackaged:
		return color.CyanString("Dry run: packaged metadata for %s", r.Record.Name)
	case pipeline.OutcomeIdentified:
		return color.CyanString("Identified %s (%s)", r.Record.Name, r.Record.SetName)
	default:
		return color.RedString("Halted at %s stage (%s)", r.HaltStage, r.ErrorKind)
	}
}

func bracket(value string) string {
	if value == "" {
		return ""
	}
	return "(" + value + ")"
}

func joinSerials(serials []int64) string {
	parts := make([]string, len(serials))
	for i, serial := range serials {
		parts[i] = strconv.FormatInt(serial, 10)
	}
	return strings.Join(parts, ", ")
}
