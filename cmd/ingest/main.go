// Command ingest loads scraped video JSON files, chunks and embeds their
// transcripts, and writes the chunks to the vector index.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/coachchat/coachchat/internal/config"
	dbRedis "github.com/coachchat/coachchat/internal/db/redis"
	"github.com/coachchat/coachchat/internal/ingest"
	logpkg "github.com/coachchat/coachchat/internal/logger"
	"github.com/coachchat/coachchat/internal/metrics"
	indexrepo "github.com/coachchat/coachchat/internal/repository/index"
	openaiTransport "github.com/coachchat/coachchat/internal/transport/openai"
	"github.com/coachchat/coachchat/internal/version"
)

func main() {
	dataDir := flag.String("data", "data/raw", "directory with scraped video JSON files")
	recreate := flag.Bool("recreate", false, "drop and recreate the chunk index before ingesting")
	hnswM := flag.Int("hnsw-m", 0, "HNSW M parameter (0 = server default)")
	hnswEF := flag.Int("hnsw-ef", 0, "HNSW EF_CONSTRUCTION parameter (0 = server default)")
	flag.Parse()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting coachchat ingest",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("data_dir", *dataDir),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Cancel on Ctrl-C so a long run can stop between batches.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}

	metrics.RegisterPipelineMetrics()

	embedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	if err := embedder.HealthCheck(ctx); err != nil {
		logger.Fatal("Embedding model unavailable", zap.Error(err))
	}

	chunkRepo := indexrepo.New(store, cfg.Embedding.Dimensions).
		WithHNSW(indexrepo.HNSWConfig{M: *hnswM, EFConstruct: *hnswEF})
	if *recreate {
		logger.Info("Dropping existing chunk index")
		if err := chunkRepo.Reset(ctx); err != nil {
			logger.Fatal("Failed to drop chunk index", zap.Error(err))
		}
	}
	if err := chunkRepo.Ensure(ctx); err != nil {
		logger.Fatal("Failed to ensure chunk index", zap.Error(err))
	}

	videos, err := ingest.ReadVideos(*dataDir, logger)
	if err != nil {
		logger.Fatal("Failed to read video records", zap.Error(err))
	}
	logger.Info("Video records loaded", zap.Int("count", len(videos)))

	pipeline := ingest.New(embedder, chunkRepo, ingest.Options{
		ChunkWords:   cfg.Ingest.ChunkWords,
		OverlapWords: cfg.Ingest.OverlapWords,
		Workers:      cfg.Ingest.Workers,
		BatchSize:    cfg.Ingest.BatchSize,
		EmbedsPerSec: cfg.Ingest.EmbedsPerSec,
	}, logger)

	start := time.Now()
	stats, err := pipeline.Run(ctx, videos)
	if err != nil {
		logger.Fatal("Ingest aborted", zap.Error(err),
			zap.Int64("chunks_indexed", stats.Chunks),
		)
	}

	total, err := chunkRepo.Count(ctx)
	if err != nil {
		logger.Warn("Failed to count indexed chunks", zap.Error(err))
	}

	logger.Info("Ingest finished",
		zap.Int("videos", stats.Videos),
		zap.Int64("chunks", stats.Chunks),
		zap.Int64("tokens", stats.Tokens),
		zap.Int64("failed_videos", stats.FailedVideos),
		zap.Int("index_total", total),
		zap.Duration("elapsed", time.Since(start)),
	)
}
