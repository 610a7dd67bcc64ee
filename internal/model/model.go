// Package model contains domain entities and DTOs used across layers.
// I keep it lean and focused on data shapes without behavior.
package model

import "time"

// Setting is one named value in the Settings Store.
type Setting struct {
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PrefixSettings is what the admin form needs to render the current state.
type PrefixSettings struct {
	// Stored is the persisted override, empty when nothing is configured.
	Stored string `json:"stored"`
	// Effective is what routing currently resolves to.
	Effective string `json:"effective"`
	Default   string `json:"default"`
	APIRoot   string `json:"api_root"`
}

// PrefixPreview reports what a candidate value would normalize to without saving it.
type PrefixPreview struct {
	Input      string `json:"input"`
	Normalized string `json:"normalized"`
	Empty      bool   `json:"empty"`
	Message    string `json:"message"`
	APIRoot    string `json:"api_root"`
}

// SavedPrefix is returned after a successful save.
type SavedPrefix struct {
	Prefix  string `json:"prefix"`
	APIRoot string `json:"api_root"`
	Notice  string `json:"notice"`
}
