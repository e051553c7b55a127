package entity

import "time"

// DocumentRef points at a blob held by the document store.
// The claim never holds the bytes.
type DocumentRef struct {
	ID          string           `json:"id"`
	Category    DocumentCategory `json:"category"`
	FileName    string           `json:"file_name"`
	ContentType string           `json:"content_type"`
	Size        int64            `json:"size"`
	StorageKey  string           `json:"storage_key"`
	UploadedBy  string           `json:"uploaded_by"`
	UploadedAt  time.Time        `json:"uploaded_at"`
}

// DocumentMeta describes an upload before it is stored
type DocumentMeta struct {
	Category    DocumentCategory
	FileName    string
	ContentType string
	UploadedBy  string
}
