package model

// MatchStrategy identifies which resolver rung matched an owner
// reference. Recorded per row so false-positive matches can be
// audited after the fact.
type MatchStrategy string

const (
	MatchByID        MatchStrategy = "id"
	MatchByEmail     MatchStrategy = "email"
	MatchByBadge     MatchStrategy = "badge"
	MatchByExactName MatchStrategy = "exact_name"
	MatchByBareName  MatchStrategy = "bare_name"
	MatchBySubstring MatchStrategy = "substring"
	MatchNone        MatchStrategy = "none"
)

// ResolvedIdentity is the outcome of resolving a free-text owner
// reference against the directory snapshot. An empty OwnerID means
// the record proceeds as unassigned; that is not an error.
type ResolvedIdentity struct {
	OwnerID  string        `json:"owner_id,omitempty"`
	Strategy MatchStrategy `json:"strategy"`
	RawRef   string        `json:"raw_ref"`
}

// Assigned reports whether the reference resolved to a directory entry.
func (r ResolvedIdentity) Assigned() bool {
	return r.OwnerID != ""
}
