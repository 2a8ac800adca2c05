package onboard

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/model"
)

// normalizeName is the grouping key for duplicate detection. Lowercasing
// must be Turkic-aware so that I maps to ı and İ to i; the Unicode default
// mapping would split "KAŞ ALIMI" and "Kaş Alımı" into different keys.
// Casers are stateful, so one is built per call.
func normalizeName(name string) string {
	return cases.Lower(language.Turkish).String(strings.TrimSpace(name))
}

// MergeOfferings deduplicates offerings gathered from multiple pages.
// Candidates sharing a normalized name collapse to the single most complete
// record; the winner is kept wholesale, not field-merged. Names that differ
// by a variant qualifier ("Saç Kesimi Kadın" vs "Saç Kesimi Erkek") stay
// separate because grouping is exact normalized-name equality only.
// Output preserves first-seen order of the surviving records.
func MergeOfferings(candidates []model.Offering) []model.Offering {
	if len(candidates) <= 1 {
		return candidates
	}

	order := make([]string, 0, len(candidates))
	best := make(map[string]model.Offering, len(candidates))

	for _, cand := range candidates {
		key := normalizeName(cand.Name)
		if key == "" {
			continue
		}
		cur, seen := best[key]
		if !seen {
			order = append(order, key)
			best[key] = cand
			continue
		}
		if outranks(cand, cur) {
			best[key] = cand
		}
	}

	out := make([]model.Offering, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}

// outranks reports whether a should replace b as the canonical record.
// Completeness decides first; on a tie, the more specific source page wins.
// A full tie keeps the earlier candidate.
func outranks(a, b model.Offering) bool {
	as, bs := a.CompletenessScore(), b.CompletenessScore()
	if as != bs {
		return as > bs
	}
	return a.SourcePageType.SourceSpecificity() > b.SourcePageType.SourceSpecificity()
}
