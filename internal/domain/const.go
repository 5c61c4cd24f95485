package domain

const (
	EditorIDCtxKey   = "pp-editorId"
	EditorRoleCtxKey = "pp-editorRole"
	AuthLevelCtxKey  = "pp-authLevel"
)

const (
	// SettingsGroupVersioning holds the versioning policy keys.
	SettingsGroupVersioning = "versioning"

	SettingMaxVersions     = "maxVersions"
	SettingDraftsEnabled   = "draftsEnabled"
	SettingRequireApproval = "requireApproval"
	SettingAutoPublish     = "autoPublish"
)
