// Package chat implements the query pipeline: embed the question, fetch
// nearest transcript chunks, assemble the prompt context, pick video
// recommendations, and generate the answer in the creator's voice.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coachchat/coachchat/internal/domain"
	"github.com/coachchat/coachchat/internal/logger"
	"github.com/coachchat/coachchat/internal/metrics"
)

// Options tunes the pipeline. Zero values are replaced with sane
// defaults by New.
type Options struct {
	TopK               int
	MaxRecommendations int
	ContextWordBudget  int
	EmbedTimeout       time.Duration
	SearchTimeout      time.Duration
	GenerateTimeout    time.Duration
	RetryAttempts      int
	RetryBaseDelay     time.Duration
	Persona            Persona
}

// Service runs user queries through the retrieval and generation pipeline.
type Service struct {
	embed  Embedder
	search Searcher
	gen    Generator
	opts   Options
}

// New creates a chat service.
func New(embed Embedder, search Searcher, gen Generator, opts Options) *Service {
	if opts.TopK <= 0 {
		opts.TopK = 6
	}
	if opts.MaxRecommendations <= 0 {
		opts.MaxRecommendations = 3
	}
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 200 * time.Millisecond
	}
	return &Service{embed: embed, search: search, gen: gen, opts: opts}
}

// Process answers a single user query. The returned Answer carries the
// generated text, up to MaxRecommendations distinct source videos, and
// the wall-clock elapsed time. When the index has no matches the answer
// is still generated, with empty context and no recommendations.
func (s *Service) Process(ctx context.Context, query string) (domain.Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.Answer{}, domain.ErrEmptyQuery
	}

	log := logger.FromContext(ctx)
	start := time.Now()

	vector, err := s.embedQuery(ctx, query)
	if err != nil {
		metrics.PipelineQueriesTotal.WithLabelValues("error").Inc()
		return domain.Answer{}, err
	}

	matches, err := s.searchChunks(ctx, vector)
	if err != nil {
		metrics.PipelineQueriesTotal.WithLabelValues("error").Inc()
		return domain.Answer{}, err
	}

	promptContext := assembleContext(matches, s.opts.ContextWordBudget)
	recommendations := selectRecommendations(matches, s.opts.MaxRecommendations)

	answer, err := s.generateAnswer(ctx, query, promptContext)
	if err != nil {
		metrics.PipelineQueriesTotal.WithLabelValues("error").Inc()
		return domain.Answer{}, err
	}

	elapsed := time.Since(start)
	metrics.PipelineQueriesTotal.WithLabelValues("success").Inc()
	metrics.PipelineStageDuration.WithLabelValues("total").Observe(elapsed.Seconds())

	log.Debug("Query processed",
		zap.Int("matches", len(matches)),
		zap.Int("recommendations", len(recommendations)),
		zap.Duration("elapsed", elapsed),
	)

	return domain.Answer{
		Text:            answer,
		Recommendations: recommendations,
		Elapsed:         elapsed,
	}, nil
}

func (s *Service) embedQuery(ctx context.Context, query string) ([]float32, error) {
	stage := time.Now()
	defer func() {
		metrics.PipelineStageDuration.WithLabelValues("embed").Observe(time.Since(stage).Seconds())
	}()

	embedCtx, cancel := s.stageContext(ctx, s.opts.EmbedTimeout)
	defer cancel()

	res, err := s.embed.Embed(embedCtx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	return res.Embedding, nil
}

func (s *Service) searchChunks(ctx context.Context, vector []float32) ([]domain.Match, error) {
	stage := time.Now()
	defer func() {
		metrics.PipelineStageDuration.WithLabelValues("search").Observe(time.Since(stage).Seconds())
	}()

	var matches []domain.Match
	err := retryTransient(ctx, s.opts.RetryAttempts, s.opts.RetryBaseDelay, func() error {
		searchCtx, cancel := s.stageContext(ctx, s.opts.SearchTimeout)
		defer cancel()

		var searchErr error
		matches, searchErr = s.search.Query(searchCtx, vector, s.opts.TopK)
		return searchErr
	})
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	return matches, nil
}

func (s *Service) generateAnswer(ctx context.Context, query, promptContext string) (string, error) {
	stage := time.Now()
	defer func() {
		metrics.PipelineStageDuration.WithLabelValues("generate").Observe(time.Since(stage).Seconds())
	}()

	systemPrompt := buildSystemPrompt(s.opts.Persona, promptContext)

	var answer string
	err := retryTransient(ctx, s.opts.RetryAttempts, s.opts.RetryBaseDelay, func() error {
		genCtx, cancel := s.stageContext(ctx, s.opts.GenerateTimeout)
		defer cancel()

		var genErr error
		answer, genErr = s.gen.Generate(genCtx, systemPrompt, query)
		return genErr
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return answer, nil
}

// stageContext bounds one pipeline stage. timeout <= 0 keeps the parent
// deadline as-is.
func (s *Service) stageContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
