package ingest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/coachchat/coachchat/internal/domain"
)

// ChunkWriter stores embedded chunks in the vector index.
type ChunkWriter interface {
	UpsertChunks(ctx context.Context, chunks []domain.IndexedChunk) error
}

// Options tunes the ingestion pipeline.
type Options struct {
	ChunkWords   int
	OverlapWords int
	Workers      int
	BatchSize    int
	EmbedsPerSec float64 // 0 = unlimited
}

// Stats counts what one Run processed.
type Stats struct {
	Videos       int
	Chunks       int64
	Tokens       int64
	FailedVideos int64
}

// Pipeline embeds and indexes video transcripts with a bounded worker
// pool. Embedding calls are rate limited across all workers.
type Pipeline struct {
	embed   domain.BatchEmbedder
	writer  ChunkWriter
	opts    Options
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New creates an ingestion pipeline.
func New(embed domain.BatchEmbedder, writer ChunkWriter, opts Options, logger *zap.Logger) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.EmbedsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.EmbedsPerSec), 1)
	}

	return &Pipeline{embed: embed, writer: writer, opts: opts, limiter: limiter, logger: logger}
}

// Run chunks, embeds, and indexes all videos. Videos are distributed
// across workers; a failed video is logged and counted, not fatal.
func (p *Pipeline) Run(ctx context.Context, videos []domain.VideoRecord) (Stats, error) {
	stats := Stats{Videos: len(videos)}
	if len(videos) == 0 {
		return stats, nil
	}

	jobs := make(chan *domain.VideoRecord)
	var wg sync.WaitGroup

	for w := 0; w < p.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				if err := p.processVideo(ctx, rec, &stats); err != nil {
					atomic.AddInt64(&stats.FailedVideos, 1)
					p.logger.Error("Failed to ingest video",
						zap.String("video_id", rec.ID),
						zap.Error(err),
					)
				}
			}
		}()
	}

	for i := range videos {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return stats, ctx.Err()
		case jobs <- &videos[i]:
		}
	}
	close(jobs)
	wg.Wait()

	return stats, nil
}

func (p *Pipeline) processVideo(ctx context.Context, rec *domain.VideoRecord, stats *Stats) error {
	chunks := ChunkVideo(rec, p.opts.ChunkWords, p.opts.OverlapWords)
	if len(chunks) == 0 {
		return nil
	}

	for start := 0; start < len(chunks); start += p.opts.BatchSize {
		end := start + p.opts.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].Text
		}

		res, err := p.embed.BatchEmbed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}

		for i := range batch {
			batch[i].Vector = res.Embeddings[i]
		}

		if err := p.writer.UpsertChunks(ctx, batch); err != nil {
			return fmt.Errorf("upsert batch [%d:%d]: %w", start, end, err)
		}

		atomic.AddInt64(&stats.Chunks, int64(len(batch)))
		atomic.AddInt64(&stats.Tokens, int64(res.TotalTokens))
	}

	p.logger.Debug("Video ingested",
		zap.String("video_id", rec.ID),
		zap.Int("chunks", len(chunks)),
	)
	return nil
}
