package model

import "strings"

// NormalizedRecord is the canonical typed view of one import row
// after header mapping and amount parsing. It is never persisted
// directly; the store receives a payload built from it.
type NormalizedRecord struct {
	Name          string
	Mobile        string
	ExternalID    string
	ChassisID     string
	ClientName    string
	WalletAmount  float64
	OwnerRef      string
	AllotmentDate string
	Remarks       string
	Status        string
}

// HasIdentifyingKey reports whether at least one duplicate-detection
// key (external id, mobile, chassis id) is present.
func (r NormalizedRecord) HasIdentifyingKey() bool {
	return strings.TrimSpace(r.ExternalID) != "" ||
		strings.TrimSpace(r.Mobile) != "" ||
		strings.TrimSpace(r.ChassisID) != ""
}
