// Package models defines the records shared between storage, index and API.
package models

import (
	"encoding/json"
	"time"
)

// BoardFile is a lightweight description of a stored board snapshot.
type BoardFile struct {
	Path      string    `json:"path"`
	BoardID   string    `json:"board_id"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BoardSummary is the indexed view of a board returned by list operations.
type BoardSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	BoardType   string    `json:"board_type"`
	ObjectCount int       `json:"object_count"`
	Checksum    string    `json:"checksum"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SearchHit is one text search result.
type SearchHit struct {
	BoardID string `json:"board_id"`
	Name    string `json:"name"`
	Snippet string `json:"snippet"`
}

// LoggedEvent is a board event as stored in the append-only event log.
type LoggedEvent struct {
	Seq       int64           `json:"seq"`
	BoardID   string          `json:"board_id"`
	EventID   string          `json:"event_id"`
	Type      string          `json:"type"`
	Event     json.RawMessage `json:"event"`
	CreatedAt time.Time       `json:"created_at"`
}
