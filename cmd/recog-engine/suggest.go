// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [file]",
	Short: "Find catalog modules similar to a module description",
	Long: `Suggest extracts the module described in the input, builds a ranking
query from its title, learning goals and level, and lists the most similar
catalog modules from the index, filtered by institution.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().String("institution", "", `institution filter ("all" disables it; default from config)`)
	addFormatFlag(suggestCmd)
	rootCmd.AddCommand(suggestCmd)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	text, err := readText(cmd, args, 0)
	if err != nil {
		return err
	}
	institution, _ := cmd.Flags().GetString("institution")

	a, err := newApp(cmd.Context(), appConfig, true)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.service.Find(cmd.Context(), text, institution)
	if err != nil {
		return err
	}
	return writeOutput(cmd, res)
}
