package models

import "time"

// Document is the metadata of an uploaded attachment.
type Document struct {
	ID          string    `json:"document_id"`
	OfficerID   string    `json:"officer_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}
