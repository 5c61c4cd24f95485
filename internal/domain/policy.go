package domain

// VersioningPolicy is the parsed configuration consumed by the orchestrator.
// It is sourced from the "versioning" settings group.
type VersioningPolicy struct {
	// MaxVersions bounds retained history entries per (document, locale).
	MaxVersions int
	// DraftsEnabled gates the draft lifecycle. When false, every write goes
	// live immediately.
	DraftsEnabled bool
	// RequireApproval makes publish demand a non-empty approver.
	RequireApproval bool
	// AutoPublish publishes a locale right after create/update/add-locale.
	AutoPublish bool
}

// DefaultVersioningPolicy is used when the settings group is absent or a key
// fails to parse.
func DefaultVersioningPolicy() VersioningPolicy {
	return VersioningPolicy{
		MaxVersions:     10,
		DraftsEnabled:   true,
		RequireApproval: false,
		AutoPublish:     false,
	}
}

// Setting is one key/value pair of a settings group.
type Setting struct {
	Group string `json:"group"`
	Key   string `json:"key"`
	Value string `json:"value"`
}
