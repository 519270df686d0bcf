// Package message defines the request and response bodies exchanged with the
// capture daemon over gRPC.
//
// Bodies are plain structs carried by the "json" codec, so the same types
// serve gRPC clients and the HTTP gateway routes.
package message

import (
	"time"

	"go.klb.dev/clipone/internal/entry"
)

// Empty is sent where a call takes or returns nothing.
type Empty struct{}

// StatusResponse reports the daemon's capture state.
type StatusResponse struct {
	Active      bool      `json:"active"`
	Backend     string    `json:"backend"`
	Source      string    `json:"source"`
	Subscribers int       `json:"subscribers"`
	StoredItems int       `json:"stored_items"`
	Since       time.Time `json:"since,omitzero"`
}

// WriteRequest replaces the system clipboard with Text.
type WriteRequest struct {
	Text string `json:"text"`
}

// OpenURLRequest asks the daemon to open URL with the system handler.
type OpenURLRequest struct {
	URL string `json:"url"`
}

// HistoryRequest fetches at most Limit entries, newest first. Zero means all.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

type HistoryResponse struct {
	Entries []entry.Entry `json:"entries"`
}

// SearchRequest finds entries whose content contains Query, newest first.
// Zero Limit means the daemon's default.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type ClearResponse struct {
	Removed int64 `json:"removed"`
}

// IDRequest addresses a single stored entry.
type IDRequest struct {
	ID string `json:"id"`
}

type FavoriteResponse struct {
	Favorite bool `json:"favorite"`
}

// WatchRequest opens a push stream of captured entries. Backlog replays the
// most recent entry first when set.
type WatchRequest struct {
	Backlog bool `json:"backlog,omitempty"`
}
