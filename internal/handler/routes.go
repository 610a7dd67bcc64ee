package handler

// Paths are kept as a single source of truth to avoid drift across handlers and tests.
const (
	// AdminPrefix groups the operator-facing endpoints.
	AdminPrefix = "/admin"
	// PrefixSettingsPath is the settings form endpoint under AdminPrefix.
	PrefixSettingsPath = "/settings/api-prefix"
	// ActivatePath seeds the override from the host prefix on the serving node.
	ActivatePath = "/activate"
	// CachePath drops the serving node's cached prefix.
	CachePath = "/cache"
	// APIV1Path is mounted below whatever prefix Resolve returns.
	APIV1Path = "/v1"
)
