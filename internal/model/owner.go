package model

// OwnerDirectoryEntry is one team leader from the owner directory.
// The directory is loaded once per import run and treated as an
// immutable snapshot for the run's duration.
type OwnerDirectoryEntry struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`

	// BadgeID is the normalized badge code embedded in DisplayName
	// (e.g. "trv/1042"), or empty when the name carries none. Filled
	// by the resolver when it indexes the snapshot.
	BadgeID string `json:"badge_id,omitempty"`
}
