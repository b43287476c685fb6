package models

// PlaybackState tracks the in-page player.
type PlaybackState struct {
	IsPlaying bool   `json:"is_playing"`
	CurrentID string `json:"current_id,omitempty"`
}

// AppState is the single root aggregate for a session. Exactly one value
// exists per session at a time; every transition replaces it wholesale
// (copy-on-write). Fields untouched by a transition keep their slice and
// map identity so derived views can detect unchanged inputs.
type AppState struct {
	Catalog       []ContentItem  `json:"catalog"`
	Profile       UserProfile    `json:"profile"`
	SelectedID    string         `json:"selected_id,omitempty"`
	SearchQuery   string         `json:"search_query"`
	ActiveTab     Tab            `json:"active_tab"`
	Playback      PlaybackState  `json:"playback"`
	Notifications []Notification `json:"notifications"`
}
