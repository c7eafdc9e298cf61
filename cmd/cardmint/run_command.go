package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cardmint/internal/capture"
	"cardmint/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var format string

	cmd := &cobra.Command{
		Use:   "run <image|->",
		Short: "Identify a card photo and mint it as an NFT",
		Long: "Upload the photo, read the card name and number, resolve the card in the catalog, " +
			"publish token metadata, and mint one token. Pass - to read the photo from stdin; " +
			"a base64 data URL is accepted as well as raw image bytes.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := pipeline.ModeMint
			if dryRun {
				mode = pipeline.ModeDryRun
			}
			return runPipeline(cmd, ctx, args[0], mode, format)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Stop after packaging metadata; nothing is published or minted")
	cmd.Flags().StringVarP(&format, "format", "o", "text", "Output format: text, json, or yaml")
	return cmd
}

func newIdentifyCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "identify <image|->",
		Short: "Identify a card photo without publishing or minting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, ctx, args[0], pipeline.ModeIdentify, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "text", "Output format: text, json, or yaml")
	return cmd
}

func runPipeline(cmd *cobra.Command, ctx *commandContext, source string, mode pipeline.Mode, format string) error {
	render, err := reportRenderer(format)
	if err != nil {
		return err
	}
	img, err := capture.Load(source, cmd.InOrStdin())
	if err != nil {
		return err
	}

	runner, closeFn, err := ctx.buildRunner(mode)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	report, runErr := runner.Run(cmd.Context(), img, mode)
	if err := render(cmd, report); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("run %s halted at %s stage: %w", report.RunID, report.HaltStage, runErr)
	}
	return nil
}
