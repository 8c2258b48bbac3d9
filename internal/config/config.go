package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"rag-agent/internal/domain"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible
// embedder. The API key itself is never stored in the file; only the
// environment variable that carries it.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder. MaxRetries
// configures the retry wrapper around the embedder; zero disables it.
type EmbedderConfig struct {
	Type       string                `yaml:"type"`
	MaxRetries int                   `yaml:"max_retries"`
	OpenAI     *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// SplitterConfig configures how documents are split into chunks.
type SplitterConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// PineconeConfig contains placement and timeout settings for the
// Pinecone index client.
type PineconeConfig struct {
	APIKeyEnv   string `yaml:"api_key_env"`
	Cloud       string `yaml:"cloud"`
	Region      string `yaml:"region"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// IndexConfig selects and configures the vector index store.
type IndexConfig struct {
	Type      string          `yaml:"type"`
	Name      string          `yaml:"name"`
	Dimension int             `yaml:"dimension"`
	Metric    string          `yaml:"metric"`
	Pinecone  *PineconeConfig `yaml:"pinecone,omitempty"`
}

// QueryConfig holds the retrieval defaults.
type QueryConfig struct {
	TopK                int     `yaml:"top_k"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder EmbedderConfig `yaml:"embedder"`
	Splitter SplitterConfig `yaml:"splitter"`
	Index    IndexConfig    `yaml:"index"`
	Query    QueryConfig    `yaml:"query"`
}

// Load reads a config from the given path, applies defaults and the
// environment overlay. A missing file yields the defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnv(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then
// ~/.config/rag-agent/config.yaml. If neither exists it writes the
// defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnv(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the cross-field constraints that YAML decoding
// cannot express.
func (c *AppConfig) Validate() error {
	if c.Splitter.ChunkOverlap >= c.Splitter.ChunkSize {
		return domain.NewConfigError("splitter.chunk_overlap",
			"chunk overlap must be smaller than chunk size")
	}
	if c.Index.Name == "" {
		return domain.NewConfigError("index.name", "target index name is not set")
	}
	if c.Query.SimilarityThreshold < 0 {
		return domain.NewConfigError("query.similarity_threshold", "threshold must not be negative")
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "rag-agent", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "openai"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		o := cfg.Embedder.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "text-embedding-3-small"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
	}
	if cfg.Splitter.ChunkSize == 0 {
		cfg.Splitter.ChunkSize = 500
	}
	if cfg.Splitter.ChunkOverlap == 0 {
		cfg.Splitter.ChunkOverlap = 100
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "pinecone"
	}
	if cfg.Index.Name == "" {
		cfg.Index.Name = "rag-ai-agent"
	}
	if cfg.Index.Dimension == 0 {
		cfg.Index.Dimension = 1536
	}
	if cfg.Index.Metric == "" {
		cfg.Index.Metric = "cosine"
	}
	if cfg.Index.Type == "pinecone" {
		if cfg.Index.Pinecone == nil {
			cfg.Index.Pinecone = &PineconeConfig{}
		}
		p := cfg.Index.Pinecone
		if p.APIKeyEnv == "" {
			p.APIKeyEnv = "PINECONE_API_KEY"
		}
		if p.Cloud == "" {
			p.Cloud = "aws"
		}
		if p.Region == "" {
			p.Region = "us-east-1"
		}
		if p.TimeoutSecs == 0 {
			p.TimeoutSecs = 30
		}
	}
	if cfg.Query.TopK == 0 {
		cfg.Query.TopK = 3
	}
	if cfg.Query.SimilarityThreshold == 0 {
		cfg.Query.SimilarityThreshold = 0.7
	}
}

// applyEnv overlays the recognized environment variables on top of
// the file-based configuration.
func applyEnv(cfg *AppConfig) {
	if v := os.Getenv("PINECONE_INDEX_NAME"); v != "" {
		cfg.Index.Name = v
	}
	if v := os.Getenv("PINECONE_DIMENSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Index.Dimension = n
		}
	}
	if v := os.Getenv("PINECONE_METRIC"); v != "" {
		cfg.Index.Metric = v
	}
}
