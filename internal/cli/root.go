// Package cli wires the pipeline components behind the rag-agent
// command tree. Interactive confirmation for destructive operations
// lives here, not in the library packages.
package cli

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"rag-agent/internal/config"
	"rag-agent/internal/domain"
	"rag-agent/internal/embedding"
	"rag-agent/internal/embedding/openai"
	"rag-agent/internal/embedding/tfidf"
	"rag-agent/internal/loader"
	"rag-agent/internal/service"
	"rag-agent/internal/splitter"
	"rag-agent/internal/vectorstore/memory"
	"rag-agent/internal/vectorstore/pinecone"
)

// app carries the loaded configuration and logger across commands.
type app struct {
	cfg *config.AppConfig
	log *slog.Logger
}

// NewRootCommand builds the rag-agent command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	var cfgPath string
	var verbose bool

	root := &cobra.Command{
		Use:           "rag-agent",
		Short:         "Document ingestion and retrieval against a managed vector index",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			a.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(a.log)

			var err error
			if cfgPath == "" {
				a.cfg, _, err = config.LoadDefault()
			} else {
				a.cfg, err = config.Load(cfgPath)
			}
			if err != nil {
				return err
			}
			return a.cfg.Validate()
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to YAML config (default ./config.yaml, then ~/.config/rag-agent/config.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newIngestCommand(a),
		newQueryCommand(a),
		newSearchCommand(a),
		newIndexCommand(a),
		newValidateCommand(a),
	)
	return root
}

func (a *app) buildEmbedder() (domain.Embedder, error) {
	switch a.cfg.Embedder.Type {
	case "openai", "":
		o := a.cfg.Embedder.OpenAI
		client, err := openai.NewClient(openai.Config{
			BaseURL:   o.BaseURL,
			APIKey:    os.Getenv(o.APIKeyEnv),
			Model:     o.Model,
			Dimension: a.cfg.Index.Dimension,
			Timeout:   time.Duration(o.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		return embedding.WithRetry(client, a.cfg.Embedder.MaxRetries), nil
	case "tfidf":
		return tfidf.NewEmbedder(), nil
	default:
		return nil, domain.NewConfigError("embedder.type", "unknown embedder: "+a.cfg.Embedder.Type)
	}
}

func (a *app) buildStore() (domain.IndexStore, error) {
	switch a.cfg.Index.Type {
	case "pinecone", "":
		return a.buildPineconeClient()
	case "memory":
		return memory.NewStore(a.cfg.Index.Name), nil
	default:
		return nil, domain.NewConfigError("index.type", "unknown index store: "+a.cfg.Index.Type)
	}
}

func (a *app) buildPineconeClient() (*pinecone.Client, error) {
	p := a.cfg.Index.Pinecone
	if p == nil {
		p = &config.PineconeConfig{APIKeyEnv: "PINECONE_API_KEY"}
	}
	return pinecone.NewClient(pinecone.Config{
		APIKey:    os.Getenv(p.APIKeyEnv),
		IndexName: a.cfg.Index.Name,
		Cloud:     p.Cloud,
		Region:    p.Region,
		Timeout:   time.Duration(p.TimeoutSecs) * time.Second,
		Logger:    a.log,
	})
}

func (a *app) buildPipeline() (*service.Pipeline, error) {
	emb, err := a.buildEmbedder()
	if err != nil {
		return nil, err
	}
	store, err := a.buildStore()
	if err != nil {
		return nil, err
	}
	return service.New(service.Config{
		Loader:    loader.New(a.log),
		Splitter:  splitter.NewRecursive(a.cfg.Splitter.ChunkSize, a.cfg.Splitter.ChunkOverlap),
		Embedder:  emb,
		Store:     store,
		Metric:    a.cfg.Index.Metric,
		Dimension: a.cfg.Index.Dimension,
		Logger:    a.log,
	}), nil
}
