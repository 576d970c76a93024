package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show DOC_ID",
	Short: "Print the stored tree index for a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, _, err := openRuntime(false)
		if err != nil {
			return err
		}
		defer rt.Close()

		rec, err := rt.Store.GetTreeIndex(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if showJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		}
		renderRecord(cmd.OutOrStdout(), rec)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored tree indexes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, _, err := openRuntime(false)
		if err != nil {
			return err
		}
		defer rt.Close()

		recs, err := rt.Store.ListTreeIndexes(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(recs) == 0 {
			fmt.Fprintln(out, dimStyle.Render("no tree indexes"))
			return nil
		}
		for _, rec := range recs {
			fmt.Fprintf(out, "%s  %s %s\n",
				sectionStyle.Render(rec.DocumentID),
				rec.Title,
				dimStyle.Render(fmt.Sprintf("(%s, %d sections, v%d, %s)", rec.Method, rec.NodeCount, rec.Version, rec.UpdatedAt.Format(time.DateTime))),
			)
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete DOC_ID",
	Short: "Delete a stored tree index and its local graph nodes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, _, err := openRuntime(false)
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.Store.DeleteTreeIndex(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("deleted "+args[0]))
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print the record as JSON")
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
}
