// Package app wires configuration into the collaborators shared by the HTTP
// server and the CLI.
package app

import (
	"fmt"
	"log/slog"

	"github.com/dgallion1/treeindex/internal/config"
	"github.com/dgallion1/treeindex/internal/graphsync"
	"github.com/dgallion1/treeindex/internal/llm"
	"github.com/dgallion1/treeindex/internal/navigator"
	"github.com/dgallion1/treeindex/internal/pathstore"
	"github.com/dgallion1/treeindex/internal/store"
	"github.com/dgallion1/treeindex/internal/treeindex"
)

// Runtime holds the opened collaborators. Close releases them.
type Runtime struct {
	Config    config.Config
	Store     *store.Store
	LLM       *llm.Instrumented
	Graph     graphsync.Graph
	GraphKind string
	Builder   *treeindex.Builder
	Navigator *navigator.Navigator
	Mapper    *graphsync.Mapper

	closers []func()
}

const (
	GraphPathstore = "pathstore"
	GraphSQLite    = "sqlite"
)

// New opens the store and builds the inference client and graph selected by
// cfg. The caller is expected to have validated cfg.
func New(cfg config.Config, log *slog.Logger) (*Runtime, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Config: cfg, Store: st}
	rt.closers = append(rt.closers, func() { st.Close() })

	gen, err := rt.generator(log)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.LLM = llm.NewInstrumented(gen, cfg.LLMProvider, llm.NewLLMStats(cfg.LLMStatsWindow))

	if cfg.PathstoreURL != "" {
		ps := pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
		rt.Graph, rt.GraphKind = ps, GraphPathstore
		rt.closers = append(rt.closers, ps.Close)
	} else {
		rt.Graph, rt.GraphKind = st.Graph(), GraphSQLite
	}

	rt.Builder = treeindex.NewBuilder(rt.LLM, st, cfg.TreeIndex(), log)
	rt.Navigator = navigator.New(rt.LLM, log)
	rt.Mapper = graphsync.NewMapper(log)
	log.Info("runtime ready",
		"llm_provider", cfg.LLMProvider,
		"llm_model", rt.LLM.Model(),
		"db_path", cfg.DBPath,
		"graph", rt.GraphKind,
	)
	return rt, nil
}

func (rt *Runtime) generator(log *slog.Logger) (llm.Generator, error) {
	cfg := rt.Config
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		c := llm.NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicBaseURL, log)
		rt.closers = append(rt.closers, c.Close)
		return c, nil
	case config.ProviderOpenAI:
		return llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, log), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

// BuildGraph is the graph handed to the build pipeline: nil unless graph sync
// on build is enabled.
func (rt *Runtime) BuildGraph() graphsync.Graph {
	if !rt.Config.GraphSyncOnBuild {
		return nil
	}
	return rt.Graph
}

// Close releases collaborators in reverse order of creation.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
