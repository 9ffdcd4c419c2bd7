// Package ingest loads scraped video records, chunks their transcripts,
// embeds the chunks, and writes them to the vector index.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/coachchat/coachchat/internal/domain"
)

// ReadVideos loads all *.json video records from dir, one file per
// video. Records without an English transcript are skipped, matching
// what the scraper can deliver.
func ReadVideos(dir string, logger *zap.Logger) ([]domain.VideoRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	videos := make([]domain.VideoRecord, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)

		rec, err := readVideoFile(path)
		if err != nil {
			logger.Warn("Skipping unreadable video file", zap.String("path", path), zap.Error(err))
			continue
		}

		if rec.ID == "" {
			logger.Warn("Skipping record without video id", zap.String("path", path))
			continue
		}
		if !rec.HasTranscript() {
			logger.Debug("Skipping video without transcript",
				zap.String("video_id", rec.ID),
				zap.String("error", rec.TranscriptError),
			)
			continue
		}
		if rec.TranscriptLanguage != "" && rec.TranscriptLanguage != "en" {
			logger.Debug("Skipping non-English transcript",
				zap.String("video_id", rec.ID),
				zap.String("language", rec.TranscriptLanguage),
			)
			continue
		}

		videos = append(videos, rec)
	}

	return videos, nil
}

func readVideoFile(path string) (domain.VideoRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.VideoRecord{}, fmt.Errorf("read file: %w", err)
	}

	var rec domain.VideoRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.VideoRecord{}, fmt.Errorf("parse json: %w", err)
	}
	return rec, nil
}
