// Package models contains shared data models used across the termscope codebase.
package models

import "time"

// Document is a server-owned text document as it appears in a listing.
// The client never generates IDs; they are assigned by the backend on create.
type Document struct {
	ID   string    `json:"id"`
	Date time.Time `json:"date"`
}

// DocumentPreview is a truncated view of a document's content for list rendering.
type DocumentPreview struct {
	ID        string `json:"id"`
	Preview   string `json:"preview"`
	Truncated bool   `json:"truncated"`
}
