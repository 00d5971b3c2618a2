package reconcile

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"rosterboard/internal/identity/index"
	"rosterboard/internal/identity/models"
	"rosterboard/internal/identity/resolver"
	"rosterboard/internal/roster"
	dErrors "rosterboard/pkg/domainerrors"
)

type ReconcileSuite struct {
	suite.Suite
	idx *index.Index
	cfg Config
}

func (s *ReconcileSuite) SetupTest() {
	s.idx = index.Build([]models.Identity{
		{ID: "u1", Name: "Ravi Kumar", Phone: "9000000001"},
		{ID: "u2", Name: "Asha Rao", Phone: "9000000002"},
		{ID: "u3", Name: "Meena Iyer", Phone: "odd/phone"},
	})
	s.cfg = Config{
		NameColumn:   "FirstName",
		PhoneColumns: []string{"Phone Number", "WhatsApp Number"},
	}
}

func TestReconcileSuite(t *testing.T) {
	suite.Run(t, new(ReconcileSuite))
}

func (s *ReconcileSuite) table(rows ...roster.Row) roster.Table {
	return roster.Table{
		Headers: []string{"FirstName", "Phone Number", "WhatsApp Number", "College"},
		Rows:    rows,
	}
}

func (s *ReconcileSuite) TestStructuralErrors() {
	s.Run("missing name column is fatal before any row", func() {
		table := roster.Table{Headers: []string{"Phone Number"}, Rows: []roster.Row{{"Phone Number": "9000000001"}}}

		report, err := Reconcile(table, s.idx, s.cfg)
		s.Require().Error(err)
		s.Nil(report)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("empty config name column is fatal", func() {
		_, err := Reconcile(s.table(), s.idx, Config{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("missing phone columns are tolerated", func() {
		table := roster.Table{
			Headers: []string{"FirstName"},
			Rows:    []roster.Row{{"FirstName": "Ravi Kumar"}},
		}

		report, err := Reconcile(table, s.idx, s.cfg)
		s.Require().NoError(err)
		s.Equal(StatusFound, report.Rows[0].Status)
	})
}

func (s *ReconcileSuite) TestRowOutcomes() {
	table := s.table(
		roster.Row{"FirstName": "Ravi Kumar", "Phone Number": "9000000001"},
		roster.Row{"FirstName": "Asha  Rao"},
		roster.Row{"FirstName": "Ravi Kumarr", "WhatsApp Number": "+91 90000 00001"},
		roster.Row{"FirstName": "Unknown Person", "Phone Number": "1234"},
		roster.Row{"College": "IIT"},
	)

	report, err := Reconcile(table, s.idx, s.cfg)
	s.Require().NoError(err)
	s.Require().Len(report.Rows, 5)

	s.Run("exact name match", func() {
		out := report.Rows[0]
		s.Equal(StatusFound, out.Status)
		s.Equal("u1", out.ResolvedID)
		s.Equal("Ravi Kumar", out.ResolvedName)
		s.Equal("9000000001", out.ResolvedPhone)
		s.Equal(resolver.MatchExactName, out.MatchType)
	})

	s.Run("fuzzy name match", func() {
		out := report.Rows[1]
		s.Equal(StatusFound, out.Status)
		s.Equal("u2", out.ResolvedID)
		s.Equal(resolver.MatchFuzzyName, out.MatchType)
	})

	s.Run("phone rescue after name miss", func() {
		out := report.Rows[2]
		s.Equal(StatusFound, out.Status)
		s.Equal("u1", out.ResolvedID)
		s.Equal(resolver.MatchExactPhone, out.MatchType)
	})

	s.Run("no match", func() {
		out := report.Rows[3]
		s.Equal(StatusNotFound, out.Status)
		s.Empty(out.ResolvedID)
		s.Equal(resolver.MatchNone, out.MatchType)
	})

	s.Run("empty name and phone", func() {
		out := report.Rows[4]
		s.Equal(StatusEmptyData, out.Status)
		s.Equal("IIT", out.Row["College"])
	})

	s.Run("tallies are complete and consistent", func() {
		st := report.Stats
		s.Equal(5, st.Total)
		s.Equal(3, st.Matched)
		s.Equal(1, st.Unmatched)
		s.Equal(1, st.EmptyData)
		s.Equal(st.Total, st.Matched+st.Unmatched+st.EmptyData)

		s.Equal(1, st.ExactName)
		s.Equal(1, st.FuzzyName)
		s.Equal(1, st.ExactPhone)
		s.Equal(0, st.OriginalPhone)
		s.Equal(1, st.RescuedByPhone)
	})
}

func (s *ReconcileSuite) TestRescueCountsExcludeNamelessRows() {
	table := s.table(
		// No name at all: phone match, but not a rescue.
		roster.Row{"Phone Number": "9000000002"},
		// Misspelled name rescued by raw phone string.
		roster.Row{"FirstName": "Mina Ayer", "Phone Number": "odd/phone"},
	)

	report, err := Reconcile(table, s.idx, s.cfg)
	s.Require().NoError(err)

	s.Equal(resolver.MatchExactPhone, report.Rows[0].MatchType)
	s.Equal(resolver.MatchOriginalPhone, report.Rows[1].MatchType)
	s.Equal(1, report.Stats.RescuedByPhone)
	s.Equal(1, report.Stats.ExactPhone)
	s.Equal(1, report.Stats.OriginalPhone)
}

func (s *ReconcileSuite) TestPhoneColumnPreferenceOrder() {
	table := s.table(
		roster.Row{"FirstName": "Not In Directory", "Phone Number": "9000000002", "WhatsApp Number": "9000000001"},
	)

	report, err := Reconcile(table, s.idx, s.cfg)
	s.Require().NoError(err)

	// "Phone Number" is first in the candidate list, so u2 wins over u1.
	s.Equal("u2", report.Rows[0].ResolvedID)
}

func (s *ReconcileSuite) TestOutputOrderIsStable() {
	rows := make([]roster.Row, 0, 20)
	for i := 0; i < 20; i++ {
		name := "Ravi Kumar"
		if i%2 == 1 {
			name = "Unknown"
		}
		rows = append(rows, roster.Row{"FirstName": name, "College": string(rune('A' + i))})
	}

	report, err := Reconcile(s.table(rows...), s.idx, s.cfg)
	s.Require().NoError(err)
	s.Require().Len(report.Rows, 20)
	for i, out := range report.Rows {
		s.Equal(rows[i]["College"], out.Row["College"], "row %d out of order", i)
	}
}

func (s *ReconcileSuite) TestAugmentedTable() {
	table := s.table(roster.Row{"FirstName": "Ravi Kumar", "College": "IIT"})

	report, err := Reconcile(table, s.idx, s.cfg)
	s.Require().NoError(err)

	aug := report.AugmentedTable(table)
	s.Equal(append([]string{"FirstName", "Phone Number", "WhatsApp Number", "College"},
		ColResolvedID, ColResolvedName, ColResolvedPhone, ColMatchType, ColMatchStatus), aug.Headers)
	s.Require().Len(aug.Rows, 1)
	s.Equal("IIT", aug.Rows[0]["College"])
	s.Equal("u1", aug.Rows[0][ColResolvedID])
	s.Equal("found", aug.Rows[0][ColMatchStatus])
	s.Equal("exact_name", aug.Rows[0][ColMatchType])
}
