package domain

// Match is a single query-time hit from the vector index. Ephemeral,
// lives for one query. The index returns matches sorted by descending
// similarity score; consumers rely on that ordering.
type Match struct {
	Score        float64
	Text         string
	VideoID      string
	Title        string
	ThumbnailURL string
}

// Recommendation is a distinct source video surfaced alongside the
// answer, derived from the first match per video id.
type Recommendation struct {
	Title        string  `json:"title"`
	VideoID      string  `json:"video_id"`
	ThumbnailURL string  `json:"thumbnail_url"`
	Score        float64 `json:"score"`
}
