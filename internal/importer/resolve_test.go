package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trievops/fleet-cli/internal/model"
)

func directory() []model.OwnerDirectoryEntry {
	return []model.OwnerDirectoryEntry{
		{ID: "aaaaaaaa-0000-0000-0000-000000000001", DisplayName: "Asha Kumar (TRV/10)", Email: "asha.kumar@trievops.example"},
		{ID: "aaaaaaaa-0000-0000-0000-000000000002", DisplayName: "Vikram Singh", Email: "vikram@trievops.example"},
		{ID: "aaaaaaaa-0000-0000-0000-000000000003", DisplayName: "Renée D'Souza (TRV/33)", Email: "renee@trievops.example"},
	}
}

func TestResolveByUUID(t *testing.T) {
	r := NewResolver(directory(), "")
	got := r.Resolve("aaaaaaaa-0000-0000-0000-000000000002")
	assert.Equal(t, "aaaaaaaa-0000-0000-0000-000000000002", got.OwnerID)
	assert.Equal(t, model.MatchByID, got.Strategy)
}

func TestResolveByEmail(t *testing.T) {
	r := NewResolver(directory(), "")
	got := r.Resolve("ASHA.KUMAR@trievops.example")
	assert.Equal(t, "aaaaaaaa-0000-0000-0000-000000000001", got.OwnerID)
	assert.Equal(t, model.MatchByEmail, got.Strategy)
}

func TestResolveByEmbeddedBadge(t *testing.T) {
	r := NewResolver(directory(), "")

	// Name drifted badly but the badge code survives.
	got := r.Resolve("A. Kumar trv / 10")
	assert.Equal(t, "aaaaaaaa-0000-0000-0000-000000000001", got.OwnerID)
	assert.Equal(t, model.MatchByBadge, got.Strategy)
}

func TestResolveByExactCleanName(t *testing.T) {
	r := NewResolver(directory(), "")
	got := r.Resolve("  vikram   SINGH ")
	assert.Equal(t, "aaaaaaaa-0000-0000-0000-000000000002", got.OwnerID)
	assert.Equal(t, model.MatchByExactName, got.Strategy)
}

func TestResolveFoldsDiacritics(t *testing.T) {
	r := NewResolver(directory(), "")
	got := r.Resolve("Renee D'Souza")
	assert.Equal(t, "aaaaaaaa-0000-0000-0000-000000000003", got.OwnerID)
	assert.Equal(t, model.MatchByBareName, got.Strategy)
}

func TestResolveBareNameIgnoresParenthetical(t *testing.T) {
	r := NewResolver(directory(), "")
	got := r.Resolve("Asha Kumar (on leave)")
	assert.Equal(t, "aaaaaaaa-0000-0000-0000-000000000001", got.OwnerID)
	assert.Equal(t, model.MatchByBareName, got.Strategy)
}

func TestResolveSubstringFallback(t *testing.T) {
	r := NewResolver(directory(), "")
	got := r.Resolve("Vikram")
	assert.Equal(t, "aaaaaaaa-0000-0000-0000-000000000002", got.OwnerID)
	assert.Equal(t, model.MatchBySubstring, got.Strategy)
}

func TestResolveSubstringBadgeGuard(t *testing.T) {
	owners := []model.OwnerDirectoryEntry{
		{ID: "u1", DisplayName: "Asha Kumar (BADGE/10)"},
		{ID: "u2", DisplayName: "Asha Singh (BADGE/99)"},
	}
	r := NewResolver(owners, "BADGE")

	// "Asha" alone is ambiguous; the badge disambiguates to u1 even
	// though u2's name also contains it.
	got := r.Resolve("Asha (BADGE/10)")
	assert.Equal(t, "u1", got.OwnerID)
	assert.Equal(t, model.MatchByBadge, got.Strategy)

	// Differing badges on both sides reject the pair outright.
	got = r.Resolve("Asha Kumarswamy (BADGE/77)")
	assert.Equal(t, model.MatchNone, got.Strategy)
	assert.Empty(t, got.OwnerID)
}

func TestResolveEmptyAndUnknown(t *testing.T) {
	r := NewResolver(directory(), "")

	got := r.Resolve("   ")
	assert.Equal(t, model.MatchNone, got.Strategy)
	assert.Empty(t, got.OwnerID)

	got = r.Resolve("Totally Unknown Person")
	assert.Equal(t, model.MatchNone, got.Strategy)
	assert.Empty(t, got.OwnerID)
	assert.Equal(t, "Totally Unknown Person", got.RawRef)
}

func TestResolveDirectoryOrderBreaksTies(t *testing.T) {
	owners := []model.OwnerDirectoryEntry{
		{ID: "first", DisplayName: "Ramesh Patel"},
		{ID: "second", DisplayName: "Ramesh Patel"},
	}
	r := NewResolver(owners, "")

	got := r.Resolve("Ramesh Patel")
	assert.Equal(t, "first", got.OwnerID)
}
