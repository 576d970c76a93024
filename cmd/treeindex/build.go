package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/treeindex/internal/pipeline"
	"github.com/dgallion1/treeindex/internal/store"
)

var (
	buildDocID string
	buildTitle string
	buildForce bool
	buildSync  bool
)

var buildCmd = &cobra.Command{
	Use:   "build FILE",
	Short: "Build and store the tree index for a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, log, err := openRuntime(true)
		if err != nil {
			return err
		}
		defer rt.Close()

		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		docID := buildDocID
		if docID == "" {
			docID = store.ContentHash(string(data))[:16]
		}

		graph := rt.BuildGraph()
		if buildSync {
			graph = rt.Graph
		}
		worker := pipeline.NewWorker(rt.Builder, rt.Store, graph, log)
		job := pipeline.NewJob(docID, filepath.Base(path), buildTitle, buildForce, data)
		worker.Process(cmd.Context(), job)

		out := cmd.OutOrStdout()
		snap := job.Snapshot()
		switch snap.Status {
		case pipeline.StatusCompleted:
		case pipeline.StatusDupSkipped:
			fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("already indexed as %s (use --force to rebuild)", snap.Progress.DuplicateOf)))
			return nil
		case pipeline.StatusNoStructure:
			return fmt.Errorf("no tree index could be derived from %s", path)
		default:
			return fmt.Errorf("build %s failed: %v", path, snap.Progress.Errors)
		}

		rec, err := rt.Store.GetTreeIndex(cmd.Context(), docID)
		if err != nil {
			return err
		}
		renderRecord(out, rec)
		if graph != nil {
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("graph (%s): %d nodes, %d edges", rt.GraphKind, snap.Progress.GraphNodes, snap.Progress.GraphEdges)))
		}
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVar(&buildDocID, "doc-id", "", "Document id (default: hash of the file)")
	buildCmd.Flags().StringVar(&buildTitle, "title", "", "Document title (default: from the document)")
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "Rebuild even if identical content is already indexed")
	buildCmd.Flags().BoolVar(&buildSync, "sync", false, "Project the tree into the graph after building")
	rootCmd.AddCommand(buildCmd)
}
