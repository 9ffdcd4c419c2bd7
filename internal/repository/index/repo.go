// Package index owns the chunk schema of the vector index: how transcript
// chunks are keyed, stored, and queried for nearest neighbors.
package index

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/coachchat/coachchat/internal/db"
	"github.com/coachchat/coachchat/internal/domain"
)

const (
	indexName   = domain.KeyPrefix + "chunks:idx"
	chunkPrefix = domain.KeyPrefix + "chunk:"
)

// Field names inside a chunk hash.
const (
	fieldText      = "text"
	fieldVideoID   = "video_id"
	fieldTitle     = "title"
	fieldThumbnail = "thumbnail_url"
	fieldVector    = "vector"
)

// store is the consumer interface for index operations (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// HNSWConfig carries the tunable HNSW build parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo stores and queries indexed transcript chunks.
type Repo struct {
	store     store
	vectorDim int
	hnsw      HNSWConfig
}

// New creates a chunk index repository for vectors of the given dimension.
func New(s store, vectorDim int) *Repo {
	return &Repo{store: s, vectorDim: vectorDim}
}

// WithHNSW overrides the HNSW build parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

// Ensure creates the FT index if it does not exist yet.
func (r *Repo) Ensure(ctx context.Context) error {
	def := &db.IndexDefinition{
		Name:     indexName,
		Prefixes: []string{chunkPrefix},
		Fields: []db.IndexField{
			{Name: fieldVideoID, Type: db.IndexFieldTag},
			{Name: fieldVector, Type: db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         r.vectorDim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.hnsw.M,
				VectorEFConstruct: r.hnsw.EFConstruct,
			},
		},
	}

	err := r.store.CreateIndex(ctx, def)
	if errors.Is(err, db.ErrIndexExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create chunk index: %w: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// Reset drops the FT index if it exists. Stored chunk hashes stay in
// place and are picked up again by the next Ensure.
func (r *Repo) Reset(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("check chunk index: %w: %w", domain.ErrIndexUnavailable, err)
	}
	if !exists {
		return nil
	}

	if err := r.store.DropIndex(ctx, indexName); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop chunk index: %w: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// UpsertChunks stores a batch of embedded chunks as hashes in one round-trip.
func (r *Repo) UpsertChunks(ctx context.Context, chunks []domain.IndexedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if len(c.Vector) != r.vectorDim {
			return fmt.Errorf("chunk %s:%d: vector dim %d, index expects %d",
				c.VideoID, c.Seq, len(c.Vector), r.vectorDim)
		}
		items = append(items, db.HashSetItem{
			Key: chunkKey(c.VideoID, c.Seq),
			Fields: map[string]string{
				fieldText:      c.Text,
				fieldVideoID:   c.VideoID,
				fieldTitle:     c.Title,
				fieldThumbnail: c.ThumbnailURL,
				fieldVector:    vectorToBytes(c.Vector),
			},
		})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert chunks: %w: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// Query runs a KNN search and returns matches sorted by descending
// similarity. An empty index yields an empty slice, not an error.
func (r *Repo) Query(ctx context.Context, vector []float32, topK int) ([]domain.Match, error) {
	q := &db.KNNQuery{
		IndexName:    indexName,
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{fieldText, fieldVideoID, fieldTitle, fieldThumbnail, "__vector_score"},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query chunk index: %w: %w", domain.ErrIndexUnavailable, err)
	}
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	matches := make([]domain.Match, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		matches = append(matches, domain.Match{
			Score:        entry.Score,
			Text:         entry.Fields[fieldText],
			VideoID:      entry.Fields[fieldVideoID],
			Title:        entry.Fields[fieldTitle],
			ThumbnailURL: entry.Fields[fieldThumbnail],
		})
	}
	return matches, nil
}

// Count returns the number of indexed chunks.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, indexName, "*")
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w: %w", domain.ErrIndexUnavailable, err)
	}
	return n, nil
}

func chunkKey(videoID string, seq int) string {
	return chunkPrefix + videoID + ":" + strconv.Itoa(seq)
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
