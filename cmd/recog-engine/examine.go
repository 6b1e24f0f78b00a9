// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var examineCmd = &cobra.Command{
	Use:   "examine <internal.json> <external.json>",
	Short: "Judge whether an external module can be recognized for an internal one",
	Long: `Examine reads two module records as JSON, the internal catalog module and
the external module, and asks the chat model for a recognition verdict
(full, partial or none). The verdict is printed as sanitized HTML.

Use "-" for one of the files to read it from stdin.`,
	Args: cobra.ExactArgs(2),
	RunE: runExamine,
}

func init() {
	examineCmd.Flags().Bool("select", false, "run the select workflow: re-extract the internal module's learning goals first")
	rootCmd.AddCommand(examineCmd)
}

func runExamine(cmd *cobra.Command, args []string) error {
	internal, err := readText(cmd, args, 0)
	if err != nil {
		return err
	}
	external, err := readText(cmd, args, 1)
	if err != nil {
		return err
	}
	selectFlow, _ := cmd.Flags().GetBool("select")

	a, err := newApp(cmd.Context(), appConfig, false)
	if err != nil {
		return err
	}
	defer a.Close()

	var html string
	if selectFlow {
		res, err := a.selectService().Select(cmd.Context(), internal, external)
		if err != nil {
			return err
		}
		html = res.ExaminationHTML
	} else {
		html, err = a.judge.Examine(cmd.Context(), internal, external)
		if err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), html)
	return err
}
