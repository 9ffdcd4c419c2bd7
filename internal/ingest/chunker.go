package ingest

import (
	"strings"

	"github.com/coachchat/coachchat/internal/domain"
)

// ChunkVideo splits a transcript into word windows of chunkWords with
// overlapWords carried between consecutive windows. Seq numbers follow
// window order. Vectors are left nil; the pipeline fills them in.
func ChunkVideo(rec *domain.VideoRecord, chunkWords, overlapWords int) []domain.IndexedChunk {
	if chunkWords <= 0 {
		chunkWords = 300
	}
	if overlapWords < 0 || overlapWords >= chunkWords {
		overlapWords = 0
	}

	words := strings.Fields(rec.Transcript)
	if len(words) == 0 {
		return nil
	}

	step := chunkWords - overlapWords
	chunks := make([]domain.IndexedChunk, 0, (len(words)+step-1)/step)

	for start, seq := 0, 0; start < len(words); start, seq = start+step, seq+1 {
		end := start + chunkWords
		if end > len(words) {
			end = len(words)
		}

		chunks = append(chunks, domain.IndexedChunk{
			VideoID:      rec.ID,
			Seq:          seq,
			Text:         strings.Join(words[start:end], " "),
			Title:        rec.Title,
			ThumbnailURL: rec.ThumbnailURL,
		})

		if end == len(words) {
			break
		}
	}

	return chunks
}
