package domain

import "time"

// Chunk is a contiguous paragraph-aligned slice of the knowledge source.
// ID is the chunk's position in the chunk sequence.
type Chunk struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// SearchResult is one local hit. Distance is squared L2, smaller is closer.
type SearchResult struct {
	ChunkID  int     `json:"chunk_id"`
	Distance float64 `json:"distance"`
	Text     string  `json:"text"`
}

type WebResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

type RetrievalBundle struct {
	Local []SearchResult `json:"local"`
	Web   []WebResult    `json:"web"`
}

func (b RetrievalBundle) Empty() bool {
	return len(b.Local) == 0 && len(b.Web) == 0
}

// IngestReceipt describes an accepted knowledge upload.
type IngestReceipt struct {
	ID         string      `json:"id"`
	Filename   string      `json:"filename"`
	MimeType   string      `json:"mime_type"`
	StorageKey string      `json:"storage_key"`
	Queued     bool        `json:"queued"`
	Stats      *IndexStats `json:"stats,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

type IndexStats struct {
	Chunks    int       `json:"chunks"`
	Dimension int       `json:"dimension"`
	Model     string    `json:"embedding_model"`
	BuiltAt   time.Time `json:"built_at"`
}
