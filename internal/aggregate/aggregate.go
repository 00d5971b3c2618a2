// Package aggregate joins a resolved roster against the contribution
// record stream: per-identity totals, per-media-type breakdowns, and the
// coverage diagnostics that make systemic match failures visible.
package aggregate

import (
	"sort"

	"rosterboard/internal/reconcile"
	"rosterboard/internal/remote"
)

// EntityTotals is the record tally for one resolved identity.
type EntityTotals struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Total int    `json:"total"`
	// MediaCounts is keyed by whatever media_type values appear in the
	// stream; the set is open-ended. JSON marshaling sorts map keys, so
	// serialized reports stay deterministic.
	MediaCounts map[string]int `json:"media_counts"`
}

// Summary is the global coverage picture for one aggregation.
type Summary struct {
	// Identities counts distinct resolved identities plus unmatched
	// roster rows, i.e. every roster entry the aggregation considered.
	Identities     int `json:"identities"`
	WithRecords    int `json:"with_records"`
	WithoutRecords int `json:"without_records"`
	TotalRecords   int `json:"total_records"`
	// OrphanRecords are records whose owner is not any row's resolved
	// identity. A large value here means the roster match failed
	// systemically, so it is reported rather than dropped.
	OrphanRecords int `json:"orphan_records"`
	UnmatchedRows int `json:"unmatched_rows"`
}

// Report maps identities to their totals. Entities is sorted for
// leaderboard consumption: total descending, then name ascending, then ID
// ascending.
type Report struct {
	Entities []EntityTotals `json:"entities"`
	Summary  Summary        `json:"summary"`
}

// Aggregate counts records per resolved identity. Ownership is exact
// string equality on the directory ID; both sides already speak canonical
// IDs, so no normalization happens here. Rows that resolved to the same
// identity share one entity entry, which keeps the conservation property:
// entity totals plus orphans always sum to len(records).
func Aggregate(rows []reconcile.RowOutcome, records []remote.Record) *Report {
	entities := make([]EntityTotals, 0, len(rows))
	position := make(map[string]int, len(rows))
	unmatchedRows := 0

	for _, row := range rows {
		if row.Status == reconcile.StatusEmptyData {
			continue
		}
		if row.ResolvedID == "" {
			unmatchedRows++
			continue
		}
		if _, seen := position[row.ResolvedID]; seen {
			continue
		}
		position[row.ResolvedID] = len(entities)
		entities = append(entities, EntityTotals{
			ID:          row.ResolvedID,
			Name:        row.ResolvedName,
			MediaCounts: map[string]int{},
		})
	}

	orphans := 0
	for _, rec := range records {
		i, ok := position[rec.OwnerID]
		if !ok {
			orphans++
			continue
		}
		entities[i].Total++
		entities[i].MediaCounts[rec.MediaType]++
	}

	sort.SliceStable(entities, func(i, j int) bool {
		if entities[i].Total != entities[j].Total {
			return entities[i].Total > entities[j].Total
		}
		if entities[i].Name != entities[j].Name {
			return entities[i].Name < entities[j].Name
		}
		return entities[i].ID < entities[j].ID
	})

	withRecords := 0
	for _, e := range entities {
		if e.Total > 0 {
			withRecords++
		}
	}

	return &Report{
		Entities: entities,
		Summary: Summary{
			Identities:     len(entities) + unmatchedRows,
			WithRecords:    withRecords,
			WithoutRecords: (len(entities) - withRecords) + unmatchedRows,
			TotalRecords:   len(records),
			OrphanRecords:  orphans,
			UnmatchedRows:  unmatchedRows,
		},
	}
}
