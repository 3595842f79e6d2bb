package storage

import "time"

type UploadRequest struct {
	FileName    string `json:"file_name" validate:"notblank,max=200"`
	ContentType string `json:"content_type" validate:"notblank"`
	SizeBytes   int64  `json:"size_bytes" validate:"gt=0"`
}

// Upload is a presigned PUT target. ObjectURL is what the participant submits as evidence.
type Upload struct {
	ID        string    `json:"id"`
	ObjectKey string    `json:"object_key"`
	UploadURL string    `json:"upload_url"`
	ObjectURL string    `json:"object_url"`
	ExpiresAt time.Time `json:"expires_at"`
}
