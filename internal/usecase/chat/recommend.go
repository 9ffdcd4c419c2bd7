package chat

import "github.com/coachchat/coachchat/internal/domain"

// selectRecommendations picks the first match per distinct video id, in
// match order, up to max. Matches without a video id are skipped.
// Match order is descending similarity, so each video keeps its best score.
func selectRecommendations(matches []domain.Match, max int) []domain.Recommendation {
	seen := make(map[string]bool, max)
	recs := make([]domain.Recommendation, 0, max)

	for _, m := range matches {
		if m.VideoID == "" || seen[m.VideoID] {
			continue
		}
		seen[m.VideoID] = true
		recs = append(recs, domain.Recommendation{
			Title:        m.Title,
			VideoID:      m.VideoID,
			ThumbnailURL: m.ThumbnailURL,
			Score:        m.Score,
		})
		if len(recs) == max {
			break
		}
	}

	return recs
}
