package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalHeader(t *testing.T) {
	assert.Equal(t, "trievid", CanonicalHeader("Triev ID"))
	assert.Equal(t, "trievid", CanonicalHeader("TrievId"))
	assert.Equal(t, "trievid", CanonicalHeader("  triev   id  "))
	assert.Equal(t, "", CanonicalHeader("   "))
}

func TestNormalizeHeaderVariantsResolveIdentically(t *testing.T) {
	syn := RiderSynonyms()

	for _, header := range []string{"Triev ID", "TrievId", "ID"} {
		fields := syn.Normalize(map[string]string{header: "EV-42"})
		assert.Equal(t, "EV-42", fields[FieldExternalID], "header %q", header)
	}
}

func TestNormalizeFirstNonEmptyAliasWins(t *testing.T) {
	syn := RiderSynonyms()

	fields := syn.Normalize(map[string]string{
		"Triev ID":   "  ",
		"Vehicle ID": "EV-7",
		"Mobile":     "9876500001",
		"Mobile No":  "ignored",
	})
	assert.Equal(t, "EV-7", fields[FieldExternalID])
	assert.Equal(t, "9876500001", fields[FieldMobile])
}

func TestNormalizeUnknownHeadersDropped(t *testing.T) {
	syn := RiderSynonyms()

	fields := syn.Normalize(map[string]string{
		"Mystery Column": "x",
		"Rider Name":     "Ravi Das",
	})
	assert.Equal(t, "Ravi Das", fields[FieldName])
	assert.NotContains(t, fields, "mystery column")
}

func TestBuildRecord(t *testing.T) {
	rec, err := BuildRecord(map[string]string{
		FieldName:         "Ravi Das",
		FieldMobile:       "9876500001",
		FieldWalletAmount: "(-) 250",
		FieldOwner:        "Asha Kumar",
	})
	require.NoError(t, err)
	assert.Equal(t, -250.0, rec.WalletAmount)
	assert.Equal(t, "Asha Kumar", rec.OwnerRef)
}

func TestBuildRecordRejectsBadAmount(t *testing.T) {
	_, err := BuildRecord(map[string]string{
		FieldMobile:       "9876500001",
		FieldWalletAmount: "abc",
	})
	assert.Error(t, err)
}

func TestBuildRecordRequiresIdentifyingKey(t *testing.T) {
	_, err := BuildRecord(map[string]string{
		FieldName:         "Ravi Das",
		FieldWalletAmount: "500",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of")
}

func TestLoadSynonyms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "headers.yaml")
	content := `
external_id: ["fleet id", "asset"]
mobile: ["cell"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	syn, err := LoadSynonyms(path)
	require.NoError(t, err)

	fields := syn.Normalize(map[string]string{"Fleet ID": "EV-9", "Cell": "9876500001"})
	assert.Equal(t, "EV-9", fields[FieldExternalID])
	assert.Equal(t, "9876500001", fields[FieldMobile])
}

func TestLoadSynonymsMissingFile(t *testing.T) {
	_, err := LoadSynonyms(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
