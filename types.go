package palimpsest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zeebo/xxh3"
)

// Status is the lifecycle state of a single locale variant.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// ParseStatus validates a status string coming in over the wire.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDraft, StatusPublished:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Event types emitted on the content event bus.
const (
	EventCreated     string = "content.created"
	EventUpdated     string = "content.updated"
	EventPublished   string = "content.published"
	EventUnpublished string = "content.unpublished"
	EventDeleted     string = "content.deleted"
	EventRestored    string = "content.restored"
	EventLocaleAdded string = "content.locale-added"
)

// Event is a content change notification delivered over the bus and the
// realtime websocket.
type Event struct {
	Type       string         `json:"type"`
	Collection string         `json:"collection"`
	DocumentID string         `json:"documentId"`
	Locale     string         `json:"locale,omitempty"`
	Status     Status         `json:"status,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Envelope is the tagged snapshot blob stored in history entries. The schema
// version tag and checksum let a restore against a changed content type fail
// explicitly instead of producing malformed data.
type Envelope struct {
	SchemaVersion int             `json:"schemaVersion"`
	Checksum      string          `json:"checksum"`
	Data          json.RawMessage `json:"data"`
}

// Checksum computes the payload digest used in snapshot envelopes.
func Checksum(data []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(data))
}

// SealEnvelope snapshots a payload under the given schema version.
func SealEnvelope(schemaVersion int, payload map[string]any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		SchemaVersion: schemaVersion,
		Checksum:      Checksum(data),
		Data:          data,
	}, nil
}

// Open unwraps a snapshot envelope, verifying the schema version tag and the
// checksum.
func (e Envelope) Open(schemaVersion int) (map[string]any, error) {
	if e.SchemaVersion != schemaVersion {
		return nil, fmt.Errorf("snapshot was taken under schema version %d, content type is now at %d", e.SchemaVersion, schemaVersion)
	}
	if Checksum(e.Data) != e.Checksum {
		return nil, fmt.Errorf("snapshot checksum mismatch")
	}
	var payload map[string]any
	if err := json.Unmarshal(e.Data, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
