package domain

import (
	"time"

	"github.com/palimpsest-cms/palimpsest"
)

// HistoryEntry is an immutable snapshot of a variant's payload taken by a
// state-changing operation. Entries are append-only; only retention eviction
// removes them, oldest first.
type HistoryEntry struct {
	ID         int64  `json:"id"`
	DocumentID string `json:"documentId"`
	Collection string `json:"collection"`
	Locale     string `json:"locale"`
	// VersionID is strictly increasing per (documentId, locale).
	VersionID int64               `json:"versionId"`
	Status    palimpsest.Status   `json:"status"`
	Snapshot  palimpsest.Envelope `json:"snapshot"`
	CreatedAt time.Time           `json:"createdAt"`
	CreatedBy string              `json:"createdBy,omitempty"`
	Notes     string              `json:"notes,omitempty"`
}
