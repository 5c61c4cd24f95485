package models

import (
	"time"
)

// Variant is one stored (document, locale, status) record. The compound
// unique index enforces at most one draft and one published row per locale.
type Variant struct {
	ID          int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	DocumentID  string     `json:"documentId" gorm:"type:text;not null;index;uniqueIndex:variant_identity"`
	Collection  string     `json:"collection" gorm:"type:text;not null;index"`
	Locale      string     `json:"locale" gorm:"type:text;not null;uniqueIndex:variant_identity"`
	Status      string     `json:"status" gorm:"type:text;not null;uniqueIndex:variant_identity"`
	Payload     string     `json:"payload" gorm:"type:jsonb"`
	PublishedAt *time.Time `json:"publishedAt" gorm:"type:timestamp with time zone"`
	CreatedBy   string     `json:"createdBy" gorm:"type:text"`
	UpdatedBy   string     `json:"updatedBy" gorm:"type:text"`
	CDate       time.Time  `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	MDate       time.Time  `json:"mdate" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
}

// Revision is an immutable payload snapshot. version_id is strictly
// increasing per (document_id, locale); the unique index turns allocation
// races into constraint violations instead of silent duplicates.
type Revision struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	DocumentID    string    `json:"documentId" gorm:"type:text;not null;index;uniqueIndex:revision_identity"`
	Collection    string    `json:"collection" gorm:"type:text;not null;index"`
	Locale        string    `json:"locale" gorm:"type:text;not null;uniqueIndex:revision_identity"`
	VersionID     int64     `json:"versionId" gorm:"not null;uniqueIndex:revision_identity"`
	Status        string    `json:"status" gorm:"type:text;not null"`
	SchemaVersion int       `json:"schemaVersion" gorm:"not null"`
	Checksum      string    `json:"checksum" gorm:"type:text;not null"`
	Snapshot      string    `json:"snapshot" gorm:"type:jsonb"`
	CreatedBy     string    `json:"createdBy" gorm:"type:text"`
	Notes         string    `json:"notes" gorm:"type:text"`
	CDate         time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

// Setting is one key of a settings group (e.g. the versioning policy).
type Setting struct {
	Group string `json:"group" gorm:"primaryKey;type:text"`
	Key   string `json:"key" gorm:"primaryKey;type:text"`
	Value string `json:"value" gorm:"type:text"`
}
