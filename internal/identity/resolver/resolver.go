// Package resolver answers "who is this?" queries against a built identity
// index using a fixed strategy cascade.
package resolver

import (
	"strings"

	"rosterboard/internal/identity/index"
	"rosterboard/internal/identity/phone"
)

// MatchType records which strategy produced a match. The declaration order
// is also the cascade priority: name strategies outrank phone strategies
// because the roster's name column is the primary human-entered identifier,
// with phone as the fallback for spelling divergence.
type MatchType string

const (
	MatchExactName     MatchType = "exact_name"
	MatchFuzzyName     MatchType = "fuzzy_name"
	MatchExactPhone    MatchType = "exact_phone"
	MatchOriginalPhone MatchType = "original_phone"
	MatchNone          MatchType = "none"
)

// Result is a successful resolution: the directory identity a query was
// matched to, plus the provenance of the match.
type Result struct {
	ID           string    `json:"id"`
	MatchedName  string    `json:"matched_name"`
	MatchedPhone string    `json:"matched_phone"`
	Type         MatchType `json:"match_type"`
}

// Resolver holds a read reference to an index; it never mutates it, so one
// resolver can serve an entire reconciliation batch.
type Resolver struct {
	idx *index.Index
}

func New(idx *index.Index) *Resolver {
	return &Resolver{idx: idx}
}

// Resolve runs the cascade and short-circuits on the first hit:
//
//  1. exact name (lowercased, trimmed)
//  2. fuzzy name (lowercased, whitespace stripped)
//  3. exact phone (normalized key)
//  4. original phone (verbatim raw string)
//
// A blank name skips the name strategies; a blank phone skips the phone
// strategies. Lookups hit single-valued maps, so for a fixed index the same
// query always yields the same result. Substring and partial name matching
// are intentionally not part of the cascade.
func (r *Resolver) Resolve(name, rawPhone string) (Result, bool) {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		if id, ok := r.idx.ByName(index.NameKey(trimmed)); ok {
			return r.result(id, MatchExactName), true
		}
		if id, ok := r.idx.ByName(index.CompactNameKey(trimmed)); ok {
			return r.result(id, MatchFuzzyName), true
		}
	}

	if strings.TrimSpace(rawPhone) != "" {
		if key, ok := phone.Normalize(rawPhone); ok {
			if id, ok := r.idx.ByPhone(key); ok {
				return r.result(id, MatchExactPhone), true
			}
		}
		if id, ok := r.idx.ByRawPhone(rawPhone); ok {
			return r.result(id, MatchOriginalPhone), true
		}
	}

	return Result{Type: MatchNone}, false
}

func (r *Resolver) result(id string, mt MatchType) Result {
	ident, _ := r.idx.Get(id)
	return Result{
		ID:           id,
		MatchedName:  ident.Name,
		MatchedPhone: ident.Phone,
		Type:         mt,
	}
}
