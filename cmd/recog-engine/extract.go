// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/recog-engine/internal/recognition"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract structured module metadata from a module description",
	Long: `Extract reads a module description (plain text, or a JSON object whose
fields are flattened first) and asks the chat model for title, credits,
workload, learning goals, assessment type, level, program and institution.

When the model call or its answer fails, the record carries the error and the
raw text instead; the command still succeeds.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	addFormatFlag(extractCmd)
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	text, err := readText(cmd, args, 0)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), appConfig, false)
	if err != nil {
		return err
	}
	defer a.Close()

	text = recognition.Truncate(text, a.cfg.Recognition.Defaulted().MaxInputChars)
	return writeOutput(cmd, a.extractor.ModuleInfo(cmd.Context(), text))
}
