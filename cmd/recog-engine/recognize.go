// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/recog-engine/internal/recognition"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize [file]",
	Short: "Run extraction, suggestion and examination end to end",
	Long: `Recognize extracts the external module from the input, ranks catalog
modules against it, and judges it against the top-ranked suggestion.

With --html only the verdict HTML is printed; otherwise the whole result,
including all suggestions, is written in the selected format.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecognize,
}

func init() {
	recognizeCmd.Flags().String("institution", "", `institution filter ("all" disables it; default from config)`)
	recognizeCmd.Flags().Bool("html", false, "print only the verdict HTML")
	addFormatFlag(recognizeCmd)
	rootCmd.AddCommand(recognizeCmd)
}

func runRecognize(cmd *cobra.Command, args []string) error {
	text, err := readText(cmd, args, 0)
	if err != nil {
		return err
	}
	institution, _ := cmd.Flags().GetString("institution")
	htmlOnly, _ := cmd.Flags().GetBool("html")

	a, err := newApp(cmd.Context(), appConfig, true)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.service.Recognize(cmd.Context(), text, institution)
	if errors.Is(err, recognition.ErrNoSuggestions) {
		a.logger.Warn("no catalog module matched; nothing to examine")
		return writeOutput(cmd, res)
	}
	if err != nil {
		return err
	}

	if htmlOnly {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Select.ExaminationHTML)
		return err
	}
	return writeOutput(cmd, res)
}
