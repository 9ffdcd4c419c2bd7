package domain

// IndexedChunk is one unit of transcript text stored in the vector index
// together with its embedding and display metadata. Chunk-to-video is
// many-to-one; Seq orders chunks within a video.
type IndexedChunk struct {
	VideoID      string
	Seq          int
	Text         string
	Title        string
	ThumbnailURL string
	Vector       []float32
}
