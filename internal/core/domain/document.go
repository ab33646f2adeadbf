package domain

import "time"

type BatchStatus string

const (
	BatchStatusUploaded   BatchStatus = "uploaded"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusAssessed   BatchStatus = "assessed"
	BatchStatusRejected   BatchStatus = "rejected"
	BatchStatusFailed     BatchStatus = "failed"
)

// Document is an uploaded artifact. The assessment pipeline only reads it.
type Document struct {
	ID            string    `json:"id"`
	BatchID       string    `json:"batch_id,omitempty"`
	Name          string    `json:"name"`
	MimeType      string    `json:"mime_type"`
	ByteSize      int64     `json:"byte_size"`
	StoragePath   string    `json:"storage_path,omitempty"`
	ExtractedText string    `json:"extracted_text,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// WithText returns a copy of the document carrying extracted text.
func (d Document) WithText(text string) Document {
	d.ExtractedText = text
	return d
}

type Batch struct {
	ID        string             `json:"id"`
	WorkerID  string             `json:"worker_id"`
	Domains   []AssessmentDomain `json:"domains,omitempty"`
	Status    BatchStatus        `json:"status"`
	Error     string             `json:"error,omitempty"`
	Documents []Document         `json:"documents,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}
