package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var (
	searchDocs         []string
	searchMax          int
	searchMinRelevance float64
	searchMaxChars     int
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Select the sections that best answer a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, _, err := openRuntime(true)
		if err != nil {
			return err
		}
		defer rt.Close()

		opts := rt.Config.Navigator()
		if searchMax > 0 {
			opts.MaxSections = searchMax
		}
		if cmd.Flags().Changed("min-relevance") {
			opts.MinRelevanceScore = searchMinRelevance
		}
		if searchMaxChars > 0 {
			opts.MaxContentPerSection = searchMaxChars
		}

		recs, err := rt.Store.GetTreeIndexes(cmd.Context(), searchDocs)
		if err != nil {
			return err
		}
		query := strings.Join(args, " ")
		results := rt.Navigator.Search(cmd.Context(), query, recs, opts)
		renderResults(cmd.OutOrStdout(), results)
		return nil
	},
}

func init() {
	searchCmd.Flags().StringSliceVarP(&searchDocs, "doc", "d", nil, "Restrict to these document ids (default: all)")
	searchCmd.Flags().IntVarP(&searchMax, "max", "n", 0, "Maximum sections to return")
	searchCmd.Flags().Float64Var(&searchMinRelevance, "min-relevance", 0, "Drop selections below this relevance")
	searchCmd.Flags().IntVar(&searchMaxChars, "max-chars", 0, "Maximum bytes of text per section")
	rootCmd.AddCommand(searchCmd)
}
