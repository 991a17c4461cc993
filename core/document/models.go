package document

import "time"

// Document is a read-only projection of a stored file; the marketplace owns
// the bytes, this client only lists and streams them through.
type Document struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// Download is the streamed content of GET /documents/{id}/download.
type Download struct {
	Name        string
	ContentType string
	Data        []byte
}
