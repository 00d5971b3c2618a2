// Package reconcile matches every row of an external roster against the
// identity directory and reports both per-row outcomes and aggregate match
// quality.
package reconcile

import (
	"fmt"
	"strings"

	"rosterboard/internal/identity/index"
	"rosterboard/internal/identity/resolver"
	"rosterboard/internal/roster"
	dErrors "rosterboard/pkg/domainerrors"
)

// MatchStatus is the per-row disposition.
type MatchStatus string

const (
	StatusFound     MatchStatus = "found"
	StatusNotFound  MatchStatus = "not_found"
	StatusEmptyData MatchStatus = "empty_data"
)

// Config names the roster columns the reconciler reads. NameColumn is
// required; PhoneColumns is an ordered candidate list and the first
// non-empty value per row is used. Candidate columns absent from the
// header are skipped, since sheets from different colleges rarely agree
// on phone column names.
type Config struct {
	NameColumn   string   `json:"name_column"`
	PhoneColumns []string `json:"phone_columns"`
}

// RowOutcome is one roster row augmented with match metadata. Row keeps
// the original columns untouched.
type RowOutcome struct {
	Row           roster.Row         `json:"row"`
	ResolvedID    string             `json:"resolved_id,omitempty"`
	ResolvedName  string             `json:"resolved_name,omitempty"`
	ResolvedPhone string             `json:"resolved_phone,omitempty"`
	MatchType     resolver.MatchType `json:"match_type"`
	Status        MatchStatus        `json:"match_status"`
}

// Stats are the reconciliation tallies. Explicit fields rather than a map
// keyed by match type: reports must serialize identically run to run.
type Stats struct {
	Total     int `json:"total"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
	EmptyData int `json:"empty_data"`

	ExactName     int `json:"exact_name"`
	FuzzyName     int `json:"fuzzy_name"`
	ExactPhone    int `json:"exact_phone"`
	OriginalPhone int `json:"original_phone"`

	// RescuedByPhone counts rows where the name was present but no name
	// strategy matched and a phone strategy did. It measures fallback
	// effectiveness, not phone-match volume: a row with a blank name that
	// matched by phone is a phone match but not a rescue.
	RescuedByPhone int `json:"rescued_by_phone"`
}

// Report is the full reconciliation output, row outcomes in input order.
type Report struct {
	Rows  []RowOutcome `json:"rows"`
	Stats Stats        `json:"stats"`
}

// Reconcile resolves every roster row against the index. A name column
// missing from the header is a structural error reported before any row is
// touched; per-row data problems never abort the batch, they downgrade the
// row to not_found or empty_data.
func Reconcile(table roster.Table, idx *index.Index, cfg Config) (*Report, error) {
	if strings.TrimSpace(cfg.NameColumn) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "name column is required")
	}
	if !table.HasColumn(cfg.NameColumn) {
		return nil, dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("roster has no column %q", cfg.NameColumn))
	}
	phoneColumns := presentColumns(table, cfg.PhoneColumns)

	res := resolver.New(idx)
	report := &Report{Rows: make([]RowOutcome, 0, len(table.Rows))}

	for _, row := range table.Rows {
		name := strings.TrimSpace(row[cfg.NameColumn])
		phone := row.FirstNonEmpty(phoneColumns)

		outcome := RowOutcome{Row: row, MatchType: resolver.MatchNone}
		report.Stats.Total++

		if name == "" && phone == "" {
			outcome.Status = StatusEmptyData
			report.Stats.EmptyData++
			report.Rows = append(report.Rows, outcome)
			continue
		}

		if result, ok := res.Resolve(name, phone); ok {
			outcome.Status = StatusFound
			outcome.ResolvedID = result.ID
			outcome.ResolvedName = result.MatchedName
			outcome.ResolvedPhone = result.MatchedPhone
			outcome.MatchType = result.Type
			report.Stats.record(result.Type, name != "")
		} else {
			outcome.Status = StatusNotFound
			report.Stats.Unmatched++
		}
		report.Rows = append(report.Rows, outcome)
	}

	return report, nil
}

func (s *Stats) record(mt resolver.MatchType, hadName bool) {
	s.Matched++
	switch mt {
	case resolver.MatchExactName:
		s.ExactName++
	case resolver.MatchFuzzyName:
		s.FuzzyName++
	case resolver.MatchExactPhone:
		s.ExactPhone++
		if hadName {
			s.RescuedByPhone++
		}
	case resolver.MatchOriginalPhone:
		s.OriginalPhone++
		if hadName {
			s.RescuedByPhone++
		}
	}
}

func presentColumns(table roster.Table, columns []string) []string {
	present := make([]string, 0, len(columns))
	for _, c := range columns {
		if table.HasColumn(c) {
			present = append(present, c)
		}
	}
	return present
}

// Derived column names appended by AugmentedTable.
const (
	ColResolvedID    = "resolved_id"
	ColResolvedName  = "resolved_name"
	ColResolvedPhone = "resolved_phone"
	ColMatchType     = "match_type"
	ColMatchStatus   = "match_status"
)

// AugmentedTable returns the original roster with the derived match columns
// appended, ready for CSV export. Original column order is preserved.
func (r *Report) AugmentedTable(original roster.Table) roster.Table {
	headers := make([]string, 0, len(original.Headers)+5)
	headers = append(headers, original.Headers...)
	headers = append(headers, ColResolvedID, ColResolvedName, ColResolvedPhone, ColMatchType, ColMatchStatus)

	rows := make([]roster.Row, 0, len(r.Rows))
	for _, outcome := range r.Rows {
		row := make(roster.Row, len(headers))
		for k, v := range outcome.Row {
			row[k] = v
		}
		row[ColResolvedID] = outcome.ResolvedID
		row[ColResolvedName] = outcome.ResolvedName
		row[ColResolvedPhone] = outcome.ResolvedPhone
		row[ColMatchType] = string(outcome.MatchType)
		row[ColMatchStatus] = string(outcome.Status)
		rows = append(rows, row)
	}

	return roster.Table{Headers: headers, Rows: rows}
}
