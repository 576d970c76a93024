// Command treeindex builds, inspects and searches tree indexes from the
// command line against the same database the server uses.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/treeindex/internal/app"
	"github.com/dgallion1/treeindex/internal/config"
	"github.com/dgallion1/treeindex/internal/version"
)

var (
	dbPath   string
	provider string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "treeindex",
	Short: "Hierarchical document indexes with inference-guided navigation",
	Long: `treeindex builds a table-of-contents tree over a document, either from its
headings or by asking a model to synthesize one, and answers questions by
letting the model navigate those trees.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(fmt.Sprintf("treeindex %s\n", version.String()))
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default from DB_PATH or config)")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "Inference provider (anthropic, openai)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log progress to stderr")
}

// openRuntime loads configuration, applies global flags and opens the
// collaborators. needLLM validates inference settings first.
func openRuntime(needLLM bool) (*app.Runtime, *slog.Logger, error) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if provider != "" {
		cfg.LLMProvider = provider
	}
	if needLLM {
		if err := cfg.ValidateLLM(); err != nil {
			return nil, nil, err
		}
	}
	rt, err := app.New(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return rt, log, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}
