package index

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"rosterboard/internal/identity/models"
	"rosterboard/internal/identity/phone"
)

type IndexSuite struct {
	suite.Suite
}

func TestIndexSuite(t *testing.T) {
	suite.Run(t, new(IndexSuite))
}

func (s *IndexSuite) TestNameLookups() {
	x := Build([]models.Identity{
		{ID: "u1", Name: "Asha Rao"},
		{ID: "u2", Name: "Ravi Kumar"},
	})

	s.Run("exact key finds identity", func() {
		id, ok := x.ByName(NameKey(" Asha Rao "))
		s.True(ok)
		s.Equal("u1", id)
	})

	s.Run("compact key finds identity", func() {
		id, ok := x.ByName(CompactNameKey("RaviKumar"))
		s.True(ok)
		s.Equal("u2", id)
	})

	s.Run("unknown key misses", func() {
		_, ok := x.ByName(NameKey("Nobody Here"))
		s.False(ok)
	})

	s.Run("empty names contribute no entries", func() {
		y := Build([]models.Identity{{ID: "u3", Name: "   "}})
		_, ok := y.ByName("")
		s.False(ok)
	})
}

func (s *IndexSuite) TestPhoneLookups() {
	x := Build([]models.Identity{
		{ID: "u1", Name: "Asha Rao", Phone: "+91 90000 00001"},
		{ID: "u2", Name: "Ravi Kumar", Phone: "garbled-123"},
	})

	s.Run("normalized key finds identity", func() {
		key, ok := phone.Normalize("9000000001")
		s.Require().True(ok)
		id, ok := x.ByPhone(key)
		s.True(ok)
		s.Equal("u1", id)
	})

	s.Run("verbatim raw string finds identity", func() {
		id, ok := x.ByRawPhone("+91 90000 00001")
		s.True(ok)
		s.Equal("u1", id)
	})

	s.Run("malformed phone is raw-indexed only", func() {
		id, ok := x.ByRawPhone("garbled-123")
		s.True(ok)
		s.Equal("u2", id)

		_, ok = x.ByPhone(phone.Key("garbled-123"))
		s.False(ok)
	})
}

func (s *IndexSuite) TestCollisions() {
	s.Run("duplicate name records one collision per key and last write wins", func() {
		x := Build([]models.Identity{
			{ID: "u1", Name: "Asha Rao"},
			{ID: "u2", Name: "asha  rao"},
		})

		// "asha rao" differs between the two spellings but the compact
		// key "asharao" is shared, and the exact key of the second
		// spelling stays distinct.
		id, ok := x.ByName(CompactNameKey("Asha Rao"))
		s.True(ok)
		s.Equal("u2", id, "directory order defines precedence")

		cols := x.Collisions()
		s.Len(cols.Name, 1)
		s.Equal(KindName, cols.Name[0].Kind)
		s.Equal("asharao", cols.Name[0].Key)
		s.Equal("u1", cols.Name[0].PreviousID)
		s.Equal("u2", cols.Name[0].ID)
		s.Empty(cols.Phone)
	})

	s.Run("shared normalized phone records exactly one collision for that key", func() {
		x := Build([]models.Identity{
			{ID: "u1", Phone: "9000000001"},
			{ID: "u2", Phone: "+91 90000 00001"},
		})

		key, _ := phone.Normalize("9000000001")
		id, ok := x.ByPhone(key)
		s.True(ok)
		s.Equal("u2", id)

		cols := x.Collisions()
		normCollisions := 0
		for _, c := range cols.Phone {
			if c.Key == string(key) {
				normCollisions++
			}
		}
		s.Equal(1, normCollisions)
		s.Empty(cols.Name)
	})

	s.Run("same identity listed twice is not a collision", func() {
		x := Build([]models.Identity{
			{ID: "u1", Name: "Asha Rao", Phone: "9000000001"},
			{ID: "u1", Name: "Asha Rao", Phone: "9000000001"},
		})
		cols := x.Collisions()
		s.Empty(cols.Name)
		s.Empty(cols.Phone)
	})
}

func (s *IndexSuite) TestGet() {
	x := Build([]models.Identity{{ID: "u1", Name: "Asha Rao", Phone: "9000000001"}})

	ident, ok := x.Get("u1")
	s.True(ok)
	s.Equal("Asha Rao", ident.Name)

	_, ok = x.Get("u9")
	s.False(ok)

	s.Equal(1, x.Len())
}

func TestNameKeys(t *testing.T) {
	s := struct {
		exact, compact string
	}{NameKey("  Asha  Rao "), CompactNameKey("  Asha  Rao ")}

	if s.exact != "asha  rao" {
		t.Fatalf("NameKey: got %q", s.exact)
	}
	if s.compact != "asharao" {
		t.Fatalf("CompactNameKey: got %q", s.compact)
	}
}
