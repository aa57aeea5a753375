// Package directory exposes read-only views of the marketplace's guide and
// sponsor store registries. These tables are owned by the wider platform;
// the payout engine only joins against them.
package directory

// Guide is a tourist guide profile.
type Guide struct {
	ID                string `json:"id"`
	GuideName         string `json:"guide_name"`
	PreferredLanguage string `json:"preferred_language,omitempty"`
	ContactMethod     string `json:"contact_method,omitempty"`
	DashboardKey      string `json:"dashboard_key,omitempty"`
}

// Store is a sponsor store profile. Inactive stores are excluded from payout
// generation.
type Store struct {
	ID        string `json:"id"`
	StoreName string `json:"store_name"`
	IsActive  bool   `json:"is_active"`
}
