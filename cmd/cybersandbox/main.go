package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/iron-dillo/cybersandbox/internal/ai"
	"github.com/iron-dillo/cybersandbox/internal/chunker"
	"github.com/iron-dillo/cybersandbox/internal/config"
	"github.com/iron-dillo/cybersandbox/internal/db"
	"github.com/iron-dillo/cybersandbox/internal/embedcache"
	"github.com/iron-dillo/cybersandbox/internal/job"
	"github.com/iron-dillo/cybersandbox/internal/model"
	"github.com/iron-dillo/cybersandbox/internal/schedule"
	"github.com/iron-dillo/cybersandbox/internal/service"
	"github.com/iron-dillo/cybersandbox/internal/vault"
	"github.com/iron-dillo/cybersandbox/internal/vectorstore"
)

type app struct {
	cfg       *config.Config
	store     vectorstore.Store
	ingest    *service.IngestService
	retrieval *service.RetrievalService
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	var store vectorstore.Store
	switch cfg.Database.Type {
	case "memory":
		store = vectorstore.NewMemoryStore()
	default:
		conn, err := db.Open(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		if err := db.ApplyMigrations(conn); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		store, err = vectorstore.OpenCollection(ctx, conn, cfg.Database.Collection)
		if err != nil {
			return nil, fmt.Errorf("open collection: %w", err)
		}
	}

	provider, err := ai.NewProvider(cfg.Embedding.Provider, cfg.Embedding.Data)
	if err != nil {
		return nil, fmt.Errorf("init embedding provider: %w", err)
	}
	embedder := ai.NewEmbedder(provider, cfg.Embedding.Model)
	if cfg.Embedding.CacheSize > 0 {
		embedder = embedcache.WrapLruCacheToEmbedder(embedder,
			cfg.Embedding.CacheSize, time.Duration(cfg.Embedding.CacheTTL)*time.Second)
	}

	mode, err := chunker.ParseMode(cfg.Chunking.Mode)
	if err != nil {
		return nil, err
	}
	chunkOpts := chunker.Options{
		Size:    cfg.Chunking.Size,
		Overlap: cfg.Chunking.Overlap,
		Mode:    mode,
	}
	return &app{
		cfg:       cfg,
		store:     store,
		ingest:    service.NewIngestService(embedder, store, chunkOpts),
		retrieval: service.NewRetrievalService(embedder, store),
	}, nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "cybersandbox",
		Short: "local threat-intelligence ingestion and retrieval",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	loadConfig := func() (*config.Config, error) {
		if configPath == "" {
			return nil, fmt.Errorf("--config is required")
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		logger.Init(
			cfg.LogConfig.File,
			cfg.LogConfig.Level,
			int(cfg.LogConfig.FileCount),
			int(cfg.LogConfig.FileSize),
			int(cfg.LogConfig.KeepDays),
			cfg.LogConfig.Console,
		)
		return cfg, nil
	}

	var chunkMode string
	ingestCmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "ingest documents into the vector index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			application, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer application.store.Close()
			var mode chunker.Mode
			if chunkMode != "" {
				if mode, err = chunker.ParseMode(chunkMode); err != nil {
					return err
				}
			}
			for _, path := range args {
				raw, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				summary, err := application.ingest.IngestDocument(ctx, filepath.Base(path), raw, mode)
				if err != nil {
					return err
				}
				if err := printJSON(summary); err != nil {
					return err
				}
			}
			return nil
		},
	}
	ingestCmd.Flags().StringVar(&chunkMode, "mode", "", "chunk mode: fixed, paragraph, or markdown")

	var (
		topK     int
		retrMode string
		docIDs   []string
		reqTags  []string
	)
	queryCmd := &cobra.Command{
		Use:   "query <text>",
		Short: "retrieve ranked chunks for a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			application, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer application.store.Close()
			opts := model.QueryOptions{
				TopK:               topK,
				Mode:               model.RetrievalMode(retrMode),
				SemanticWeight:     cfg.Retrieval.SemanticWeight,
				KeywordWeight:      cfg.Retrieval.KeywordWeight,
				ThreatWeight:       cfg.Retrieval.ThreatWeight,
				DocIDs:             docIDs,
				RequiredThreatTags: reqTags,
			}
			if topK == 0 {
				opts.TopK = cfg.Retrieval.TopK
			}
			result, err := application.retrieval.Retrieve(ctx, args[0], opts)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	queryCmd.Flags().IntVar(&topK, "top-k", 0, "number of hits to return")
	queryCmd.Flags().StringVar(&retrMode, "mode", "vector", "retrieval mode: vector, hybrid, or intel")
	queryCmd.Flags().StringSliceVar(&docIDs, "doc-ids", nil, "restrict hits to these document ids")
	queryCmd.Flags().StringSliceVar(&reqTags, "require-tags", nil, "require these threat tags on every hit")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the scheduled vault ingestion loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			application, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer application.store.Close()
			if cfg.Vault.Type == "" {
				return fmt.Errorf("vault.type is required for run")
			}
			source, err := vault.New(cfg.Vault.Type, cfg.Vault.Data)
			if err != nil {
				return fmt.Errorf("init vault: %w", err)
			}
			spec := cfg.Schedule.VaultIngestSpec
			if spec == "" {
				spec = "*/15 * * * *"
			}
			mode := chunker.Mode(cfg.Chunking.Mode)
			scheduler := schedule.NewCronScheduler()
			if err := scheduler.AddJob(job.NewVaultIngestJob(application.ingest, source, mode), spec); err != nil {
				return err
			}
			scheduler.Start(ctx)
			logutil.GetLogger(ctx).Info("vault ingest loop running", zap.String("spec", spec))
			<-ctx.Done()
			logutil.GetLogger(context.Background()).Info("stopping...")
			scheduler.Stop()
			return nil
		},
	}

	rootCmd.AddCommand(ingestCmd, queryCmd, runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("command failed", zap.Error(err))
	}
}
