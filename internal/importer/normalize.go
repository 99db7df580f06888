// Package importer implements the bulk tabular reconciliation engine:
// header normalization, amount parsing, owner-identity resolution,
// duplicate detection, per-row upserts, and end-of-run notification
// batching.
package importer

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/trievops/fleet-cli/internal/model"
)

// Canonical field names produced by header normalization.
const (
	FieldName          = "name"
	FieldMobile        = "mobile"
	FieldExternalID    = "external_id"
	FieldChassisID     = "chassis_id"
	FieldClientName    = "client_name"
	FieldWalletAmount  = "wallet_amount"
	FieldOwner         = "owner"
	FieldAllotmentDate = "allotment_date"
	FieldRemarks       = "remarks"
	FieldStatus        = "status"
)

// SynonymTable maps a canonical field name to the header aliases
// accepted for it, in precedence order.
type SynonymTable map[string][]string

// RiderSynonyms is the default header profile for rider roster sheets.
func RiderSynonyms() SynonymTable {
	return SynonymTable{
		FieldName:          {"rider name", "driver name", "name"},
		FieldMobile:        {"mobile", "mobile no", "phone", "contact"},
		FieldExternalID:    {"triev id", "trievid", "id", "vehicle id", "ev id"},
		FieldChassisID:     {"chassis no", "chassis number", "chassis"},
		FieldClientName:    {"client", "client name", "company"},
		FieldWalletAmount:  {"wallet", "wallet amount", "wallet balance", "balance"},
		FieldOwner:         {"team leader", "owner", "tl", "supervisor"},
		FieldAllotmentDate: {"allotment date", "allotted on", "date of allotment"},
		FieldRemarks:       {"remarks", "comments", "notes"},
		FieldStatus:        {"status", "vehicle status"},
	}
}

// WalletSynonyms is the header profile for wallet-balance sheets.
func WalletSynonyms() SynonymTable {
	return SynonymTable{
		FieldName:         {"rider name", "driver name", "name"},
		FieldMobile:       {"mobile", "mobile no", "phone"},
		FieldExternalID:   {"triev id", "trievid", "id"},
		FieldChassisID:    {"chassis no", "chassis number", "chassis"},
		FieldWalletAmount: {"amount", "wallet", "wallet amount", "wallet balance", "balance", "recharge"},
		FieldOwner:        {"team leader", "owner", "tl"},
		FieldRemarks:      {"remarks", "comments"},
	}
}

// LoadSynonyms reads a synonym profile from a YAML file mapping
// canonical field names to header alias lists.
func LoadSynonyms(path string) (SynonymTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "importer: read synonym file")
	}
	var t SynonymTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, eris.Wrap(err, "importer: parse synonym file")
	}
	if len(t) == 0 {
		return nil, eris.Errorf("importer: synonym file %s defines no fields", path)
	}
	return t, nil
}

// CanonicalHeader trims, lower-cases, and strips all whitespace, so
// "Triev ID", "TrievId" and "trievid" resolve identically.
func CanonicalHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), ""))
}

// Normalize maps one raw header-to-value row onto canonical fields.
// For each canonical field the first alias carrying a non-empty
// trimmed value wins; fields with no match come back empty. Pure.
func (t SynonymTable) Normalize(row map[string]string) map[string]string {
	byHeader := make(map[string]string, len(row))
	for h, v := range row {
		key := CanonicalHeader(h)
		if key == "" {
			continue
		}
		if existing, ok := byHeader[key]; ok && strings.TrimSpace(existing) != "" {
			continue
		}
		byHeader[key] = v
	}

	fields := make(map[string]string, len(t))
	for field, aliases := range t {
		fields[field] = ""
		for _, alias := range aliases {
			if v := strings.TrimSpace(byHeader[CanonicalHeader(alias)]); v != "" {
				fields[field] = v
				break
			}
		}
	}
	return fields
}

// BuildRecord types the normalized fields. An unparseable amount or a
// row with none of the three identifying keys is a row-validation
// error.
func BuildRecord(fields map[string]string) (model.NormalizedRecord, error) {
	rec := model.NormalizedRecord{
		Name:          fields[FieldName],
		Mobile:        fields[FieldMobile],
		ExternalID:    fields[FieldExternalID],
		ChassisID:     fields[FieldChassisID],
		ClientName:    fields[FieldClientName],
		OwnerRef:      fields[FieldOwner],
		AllotmentDate: fields[FieldAllotmentDate],
		Remarks:       fields[FieldRemarks],
		Status:        fields[FieldStatus],
	}

	amount, err := ParseAmount(fields[FieldWalletAmount])
	if err != nil {
		return rec, err
	}
	rec.WalletAmount = amount

	if !rec.HasIdentifyingKey() {
		return rec, eris.New("row carries none of triev id, mobile, or chassis id")
	}
	return rec, nil
}
