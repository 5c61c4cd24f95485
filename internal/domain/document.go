package domain

import (
	"time"

	"github.com/palimpsest-cms/palimpsest"
)

// DocumentVariant is one stored record of a logical document at a specific
// (locale, status) pair. A document has at most one draft and one published
// variant per locale.
type DocumentVariant struct {
	DocumentID string            `json:"documentId"`
	Collection string            `json:"collection"`
	Locale     string            `json:"locale"`
	Status     palimpsest.Status `json:"status"`
	Payload    map[string]any    `json:"payload"`
	// PublishedAt is set when the variant is published. On the draft row it
	// records the last time this locale went live and survives unpublish.
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CreatedBy   string     `json:"createdBy,omitempty"`
	UpdatedBy   string     `json:"updatedBy,omitempty"`
}

// LocaleStatus answers "what exists" for one locale of a document.
type LocaleStatus struct {
	HasDraft     bool `json:"hasDraft"`
	HasPublished bool `json:"hasPublished"`
}

// ListOptions controls filtering, ordering and pagination of variant lists.
// Filtering and ordering are delegated to the persistence driver.
type ListOptions struct {
	Locale    string
	Status    palimpsest.Status
	SortBy    string
	Ascending bool
	Offset    int
	Limit     int
}

// Page is one page of a variant listing.
type Page struct {
	Items  []DocumentVariant `json:"items"`
	Total  int64             `json:"total"`
	Offset int               `json:"offset"`
	Limit  int               `json:"limit"`
}
