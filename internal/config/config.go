package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/treeindex/internal/navigator"
	"github.com/dgallion1/treeindex/internal/treeindex"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

type Config struct {
	Port string `yaml:"port"`

	// Auth
	APIKey string `yaml:"api_key"`

	// Inference
	LLMProvider      string        `yaml:"llm_provider"`
	AnthropicAPIKey  string        `yaml:"anthropic_api_key"`
	AnthropicModel   string        `yaml:"anthropic_model"`
	AnthropicBaseURL string        `yaml:"anthropic_base_url"`
	OpenAIAPIKey     string        `yaml:"openai_api_key"`
	OpenAIModel      string        `yaml:"openai_model"`
	OpenAIBaseURL    string        `yaml:"openai_base_url"`
	LLMStatsWindow   time.Duration `yaml:"llm_stats_window"`

	// Storage
	DBPath string `yaml:"db_path"`

	// Remote graph; empty URL selects the SQLite graph tables.
	PathstoreURL    string `yaml:"pathstore_url"`
	PathstoreAPIKey string `yaml:"pathstore_api_key"`

	// Worker pool
	WorkerCount      int  `yaml:"worker_count"`
	MaxQueueSize     int  `yaml:"max_queue_size"`
	GraphSyncOnBuild bool `yaml:"graph_sync_on_build"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`

	// Tree construction
	MinHeaders            int `yaml:"min_headers"`
	MaxDepth              int `yaml:"max_depth"`
	MaxChildren           int `yaml:"max_children"`
	SummaryBatchSize      int `yaml:"summary_batch_size"`
	SectionPreviewChars   int `yaml:"section_preview_chars"`
	SynthesisPreviewChars int `yaml:"synthesis_preview_chars"`

	// Navigation
	MaxSections          int     `yaml:"max_sections"`
	MinRelevanceScore    float64 `yaml:"min_relevance_score"`
	MaxContentPerSection int     `yaml:"max_content_per_section"`
}

// Defaults returns the built-in configuration before any file or environment
// overrides.
func Defaults() Config {
	tree := treeindex.DefaultConfig()
	nav := navigator.DefaultOptions()
	return Config{
		Port:           "8090",
		LLMProvider:    ProviderAnthropic,
		AnthropicModel: "claude-sonnet-4-5-20250929",
		OpenAIModel:    "gpt-4o-mini",
		LLMStatsWindow: time.Hour,
		DBPath:         "data/treeindex.db",

		WorkerCount:  4,
		MaxQueueSize: 100,

		MaxUploadBytes: 52428800, // 50MB
		JobTTL:         time.Hour,

		MinHeaders:            tree.MinHeaders,
		MaxDepth:              tree.MaxDepth,
		MaxChildren:           tree.MaxChildren,
		SummaryBatchSize:      tree.SummaryBatchSize,
		SectionPreviewChars:   tree.SectionPreviewChars,
		SynthesisPreviewChars: tree.SynthesisPreviewChars,

		MaxSections:          nav.MaxSections,
		MinRelevanceScore:    nav.MinRelevanceScore,
		MaxContentPerSection: nav.MaxContentPerSection,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// TREEINDEX_CONFIG (if any), then environment variables.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("TREEINDEX_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("TREEINDEX_API_KEY", cfg.APIKey)

	cfg.LLMProvider = envOr("LLM_PROVIDER", cfg.LLMProvider)
	cfg.AnthropicAPIKey = envOr("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.AnthropicModel = envOr("ANTHROPIC_MODEL", cfg.AnthropicModel)
	cfg.AnthropicBaseURL = envOr("ANTHROPIC_BASE_URL", cfg.AnthropicBaseURL)
	cfg.OpenAIAPIKey = envOr("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIModel = envOr("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.OpenAIBaseURL = envOr("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.LLMStatsWindow = envDuration("LLM_STATS_WINDOW", cfg.LLMStatsWindow)

	cfg.DBPath = envOr("DB_PATH", cfg.DBPath)
	cfg.PathstoreURL = envOr("PATHSTORE_URL", cfg.PathstoreURL)
	cfg.PathstoreAPIKey = envOr("PATHSTORE_API_KEY", cfg.PathstoreAPIKey)

	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.GraphSyncOnBuild = envBool("GRAPH_SYNC_ON_BUILD", cfg.GraphSyncOnBuild)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)

	cfg.MinHeaders = envInt("TREE_MIN_HEADERS", cfg.MinHeaders)
	cfg.MaxDepth = envInt("TREE_MAX_DEPTH", cfg.MaxDepth)
	cfg.MaxChildren = envInt("TREE_MAX_CHILDREN", cfg.MaxChildren)
	cfg.SummaryBatchSize = envInt("TREE_SUMMARY_BATCH_SIZE", cfg.SummaryBatchSize)
	cfg.SectionPreviewChars = envInt("TREE_SECTION_PREVIEW_CHARS", cfg.SectionPreviewChars)
	cfg.SynthesisPreviewChars = envInt("TREE_SYNTHESIS_PREVIEW_CHARS", cfg.SynthesisPreviewChars)

	cfg.MaxSections = envInt("NAV_MAX_SECTIONS", cfg.MaxSections)
	cfg.MinRelevanceScore = envFloat("NAV_MIN_RELEVANCE", cfg.MinRelevanceScore)
	cfg.MaxContentPerSection = envInt("NAV_MAX_CONTENT_PER_SECTION", cfg.MaxContentPerSection)

	d := Defaults()
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = d.WorkerCount
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = d.MaxQueueSize
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = d.MaxUploadBytes
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = d.JobTTL
	}
	if cfg.LLMStatsWindow <= 0 {
		cfg.LLMStatsWindow = d.LLMStatsWindow
	}

	return cfg, nil
}

// Validate checks the keys required by the server.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("TREEINDEX_API_KEY is required")
	}
	if err := c.ValidateLLM(); err != nil {
		return err
	}
	if c.PathstoreURL != "" && c.PathstoreAPIKey == "" {
		return fmt.Errorf("PATHSTORE_API_KEY is required when PATHSTORE_URL is set")
	}
	return nil
}

// ValidateLLM checks only the inference settings; the CLI does not need an
// API token.
func (c Config) ValidateLLM() error {
	switch c.LLMProvider {
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for provider %q", c.LLMProvider)
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for provider %q", c.LLMProvider)
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.MinRelevanceScore < 0 || c.MinRelevanceScore > 1 {
		return fmt.Errorf("min relevance score must be within [0, 1], got %v", c.MinRelevanceScore)
	}
	return nil
}

// TreeIndex returns the tree construction settings.
func (c Config) TreeIndex() treeindex.Config {
	return treeindex.Config{
		MinHeaders:            c.MinHeaders,
		MaxDepth:              c.MaxDepth,
		MaxChildren:           c.MaxChildren,
		SummaryBatchSize:      c.SummaryBatchSize,
		SectionPreviewChars:   c.SectionPreviewChars,
		SynthesisPreviewChars: c.SynthesisPreviewChars,
	}
}

// Navigator returns the search settings.
func (c Config) Navigator() navigator.Options {
	return navigator.Options{
		MaxSections:          c.MaxSections,
		MinRelevanceScore:    c.MinRelevanceScore,
		MaxContentPerSection: c.MaxContentPerSection,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
