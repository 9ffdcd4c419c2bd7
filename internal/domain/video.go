package domain

// VideoRecord is one scraped video as written by the offline scraper:
// one JSON file per video, immutable after ingestion. Count fields stay
// strings because the scraper emits "N/A" when YouTube hides them.
type VideoRecord struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	UploadDate         string `json:"upload_date"`
	ViewCount          string `json:"view_count"`
	LikeCount          string `json:"like_count"`
	CommentCount       string `json:"comment_count"`
	ThumbnailURL       string `json:"thumbnail_url"`
	Transcript         string `json:"transcript"`
	TranscriptLanguage string `json:"transcript_language"`
	TranscriptError    string `json:"transcript_error,omitempty"`
}

// HasTranscript reports whether the record carries usable transcript text.
func (v *VideoRecord) HasTranscript() bool {
	return v.Transcript != ""
}
