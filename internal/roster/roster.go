// Package roster models externally sourced spreadsheets as header-mapped
// tables. Column names are arbitrary and chosen by whoever exported the
// sheet; the reconciler is told which columns carry names and phones.
package roster

import "strings"

// Row is one spreadsheet row keyed by header name.
type Row map[string]string

// Table is a parsed spreadsheet: the header in original column order plus
// the data rows. Header order is preserved so exports are stable.
type Table struct {
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// HasColumn reports whether the header contains the named column.
func (t Table) HasColumn(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// FirstNonEmpty returns the first non-blank value among the named columns,
// scanned in the given preference order.
func (r Row) FirstNonEmpty(columns []string) string {
	for _, c := range columns {
		if v := strings.TrimSpace(r[c]); v != "" {
			return v
		}
	}
	return ""
}
