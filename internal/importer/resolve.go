package importer

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/trievops/fleet-cli/internal/model"
)

// DefaultBadgePrefix is the literal prefix of badge codes embedded in
// owner display names, e.g. "TRV/1042" in "Asha Kumar (TRV/1042)".
const DefaultBadgePrefix = "TRV"

var (
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
	parenRe      = regexp.MustCompile(`\([^)]*\)`)

	// foldTransformer strips diacritics so "Renée" and "Renee"
	// compare equal.
	foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

type ownerEntry struct {
	id      string
	display string
	clean   string // folded, lower-cased, space-collapsed
	bare    string // clean with parenthetical segments removed
	badge   string // normalized embedded badge id, "" when absent
}

// Resolver maps free-text owner references to directory entries using
// a fixed-precedence strategy ladder, so results are reproducible
// across runs on the same directory snapshot.
type Resolver struct {
	entries []ownerEntry
	ids     map[string]string
	emails  map[string]string
	badgeRe *regexp.Regexp
	prefix  string
}

// NewResolver indexes a directory snapshot. Directory order is
// preserved: where a ladder rung admits several candidates, the first
// entry wins.
func NewResolver(owners []model.OwnerDirectoryEntry, badgePrefix string) *Resolver {
	prefix := strings.TrimSpace(badgePrefix)
	if prefix == "" {
		prefix = DefaultBadgePrefix
	}

	r := &Resolver{
		ids:     make(map[string]string, len(owners)),
		emails:  make(map[string]string, len(owners)),
		badgeRe: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(prefix) + `\s*/\s*(\d+)`),
		prefix:  strings.ToLower(prefix),
	}

	for i := range owners {
		o := &owners[i]
		o.BadgeID = r.badgeOf(o.DisplayName)

		r.ids[o.ID] = o.ID
		if email := strings.ToLower(strings.TrimSpace(o.Email)); email != "" {
			if _, dup := r.emails[email]; !dup {
				r.emails[email] = o.ID
			}
		}
		r.entries = append(r.entries, ownerEntry{
			id:      o.ID,
			display: o.DisplayName,
			clean:   cleanName(o.DisplayName),
			bare:    bareName(o.DisplayName),
			badge:   o.BadgeID,
		})
	}
	return r
}

// badgeOf extracts and normalizes the embedded badge id from s, or
// returns "" when none is present.
func (r *Resolver) badgeOf(s string) string {
	m := r.badgeRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return r.prefix + "/" + m[1]
}

// Resolve walks the strategy ladder; the first rung that matches
// wins. An empty result means the record proceeds as unassigned.
func (r *Resolver) Resolve(ref string) model.ResolvedIdentity {
	ident := model.ResolvedIdentity{Strategy: model.MatchNone, RawRef: ref}

	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return ident
	}

	// 1. Exact identifier match.
	if _, err := uuid.Parse(trimmed); err == nil {
		if id, ok := r.ids[trimmed]; ok {
			ident.OwnerID = id
			ident.Strategy = model.MatchByID
			return ident
		}
	}

	// 2. Exact email match.
	if id, ok := r.emails[strings.ToLower(trimmed)]; ok {
		ident.OwnerID = id
		ident.Strategy = model.MatchByEmail
		return ident
	}

	// 3. Embedded badge id match. Human-entered names drift; the
	// badge code embedded alongside them does not.
	if badge := r.badgeOf(trimmed); badge != "" {
		for _, e := range r.entries {
			if e.badge == badge {
				ident.OwnerID = e.id
				ident.Strategy = model.MatchByBadge
				return ident
			}
		}
	}

	// 4. Exact normalized name match.
	clean := cleanName(trimmed)
	for _, e := range r.entries {
		if e.clean != "" && e.clean == clean {
			ident.OwnerID = e.id
			ident.Strategy = model.MatchByExactName
			return ident
		}
	}

	// 5. Parenthetical-stripped name match; handles
	// "Name (TRV/123)" vs "Name" drift on either side.
	bare := bareName(trimmed)
	if bare != "" {
		for _, e := range r.entries {
			if e.bare != "" && e.bare == bare {
				ident.OwnerID = e.id
				ident.Strategy = model.MatchByBareName
				return ident
			}
		}
	}

	// 6. Guarded substring fallback. When both sides carry a badge id
	// and the ids disagree, the pair is rejected no matter how similar
	// the names are; two people sharing a name substring must never be
	// merged across different badge codes.
	if bare != "" {
		refBadge := r.badgeOf(trimmed)
		for _, e := range r.entries {
			if e.bare == "" {
				continue
			}
			if !strings.Contains(e.bare, bare) && !strings.Contains(bare, e.bare) {
				continue
			}
			if refBadge != "" && e.badge != "" && refBadge != e.badge {
				continue
			}
			ident.OwnerID = e.id
			ident.Strategy = model.MatchBySubstring
			return ident
		}
	}

	return ident
}

func cleanName(s string) string {
	if folded, _, err := transform.String(foldTransformer, s); err == nil {
		s = folded
	}
	s = strings.ToLower(strings.TrimSpace(s))
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return s
}

func bareName(s string) string {
	return cleanName(parenRe.ReplaceAllString(s, " "))
}
