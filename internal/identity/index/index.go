// Package index builds the lookup structures the resolver answers queries
// from: name keys and phone keys mapped to directory identity IDs, with an
// explicit collision log instead of silent overwrites.
package index

import (
	"strings"
	"unicode"

	"rosterboard/internal/identity/models"
	"rosterboard/internal/identity/phone"
)

// CollisionKind distinguishes which map a collision happened in.
type CollisionKind string

const (
	KindName  CollisionKind = "name"
	KindPhone CollisionKind = "phone"
)

// Collision records a key that ended up pointing at more than one identity.
// The index keeps the most recently inserted mapping (directory order wins)
// and surfaces the overwrite here for human review.
type Collision struct {
	Kind       CollisionKind `json:"kind"`
	Key        string        `json:"key"`
	PreviousID string        `json:"previous_id"`
	ID         string        `json:"id"`
}

// Collisions groups the collision log by kind.
type Collisions struct {
	Name  []Collision `json:"name"`
	Phone []Collision `json:"phone"`
}

// Index owns the name and phone lookup maps built from one directory
// snapshot. Callers hold read references only; the maps are never mutated
// after Build returns.
type Index struct {
	byName  map[string]string
	byPhone map[phone.Key]string
	byRaw   map[string]string
	byID    map[string]models.Identity

	collisions Collisions
}

// NameKey is the exact-match name key: lowercased and trimmed.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CompactNameKey is the fuzzy-match name key: lowercased with all
// whitespace removed, so "Asha  Rao" and "AshaRao" compare equal.
func CompactNameKey(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Build constructs an Index from a directory snapshot. Iteration follows
// input order, so for duplicate keys the last identity in the snapshot wins
// and every overwrite is logged; results are deterministic for a given
// snapshot.
func Build(identities []models.Identity) *Index {
	x := &Index{
		byName:  make(map[string]string, len(identities)*2),
		byPhone: make(map[phone.Key]string, len(identities)),
		byRaw:   make(map[string]string, len(identities)),
		byID:    make(map[string]models.Identity, len(identities)),
	}

	for _, ident := range identities {
		x.byID[ident.ID] = ident

		if strings.TrimSpace(ident.Name) != "" {
			exact := NameKey(ident.Name)
			x.insertName(exact, ident.ID)
			if compact := CompactNameKey(ident.Name); compact != exact {
				x.insertName(compact, ident.ID)
			}
		}

		if strings.TrimSpace(ident.Phone) != "" {
			if key, ok := phone.Normalize(ident.Phone); ok {
				x.insertNormalizedPhone(key, ident.ID)
			}
			// The verbatim raw string is indexed too, backing the
			// original_phone fallback when normalization fails on
			// either side.
			x.insertRawPhone(ident.Phone, ident.ID)
		}
	}

	return x
}

func (x *Index) insertName(key, id string) {
	if prev, ok := x.byName[key]; ok && prev != id {
		x.collisions.Name = append(x.collisions.Name, Collision{
			Kind:       KindName,
			Key:        key,
			PreviousID: prev,
			ID:         id,
		})
	}
	x.byName[key] = id
}

func (x *Index) insertNormalizedPhone(key phone.Key, id string) {
	if prev, ok := x.byPhone[key]; ok && prev != id {
		x.collisions.Phone = append(x.collisions.Phone, Collision{
			Kind:       KindPhone,
			Key:        string(key),
			PreviousID: prev,
			ID:         id,
		})
	}
	x.byPhone[key] = id
}

func (x *Index) insertRawPhone(raw, id string) {
	if prev, ok := x.byRaw[raw]; ok && prev != id {
		x.collisions.Phone = append(x.collisions.Phone, Collision{
			Kind:       KindPhone,
			Key:        raw,
			PreviousID: prev,
			ID:         id,
		})
	}
	x.byRaw[raw] = id
}

// ByName looks up an identity ID by a name key (exact or compact form).
func (x *Index) ByName(key string) (string, bool) {
	id, ok := x.byName[key]
	return id, ok
}

// ByPhone looks up an identity ID by a normalized phone key.
func (x *Index) ByPhone(key phone.Key) (string, bool) {
	id, ok := x.byPhone[key]
	return id, ok
}

// ByRawPhone looks up an identity ID by the verbatim raw phone string.
func (x *Index) ByRawPhone(raw string) (string, bool) {
	id, ok := x.byRaw[raw]
	return id, ok
}

// Get returns the identity stored under an ID.
func (x *Index) Get(id string) (models.Identity, bool) {
	ident, ok := x.byID[id]
	return ident, ok
}

// Len reports how many distinct identities the index holds.
func (x *Index) Len() int {
	return len(x.byID)
}

// Collisions returns the collision log accumulated during Build.
func (x *Index) Collisions() Collisions {
	return x.collisions
}
