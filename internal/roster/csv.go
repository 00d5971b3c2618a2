package roster

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	dErrors "rosterboard/pkg/domainerrors"
)

// Warning is a non-fatal issue hit while parsing a single CSV row. Rows
// with warnings are still delivered (padded or truncated) or skipped;
// parsing only fails outright for structural problems like a missing
// header.
type Warning struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV parses raw spreadsheet bytes into a Table. Real-world exports
// are messy: BOMs, Latin-1 encodings, quoting that no spec blesses, and
// rows that disagree with the header width. All of that is absorbed into
// warnings; only an unreadable header is fatal.
func ParseCSV(data []byte) (*Table, []Warning, error) {
	decoded := decodeToUTF8(data)

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, dErrors.New(dErrors.CodeBadRequest, "empty file: no header row")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable header row")
	}
	for i, h := range headers {
		headers[i] = trimHeader(h)
	}

	table := &Table{Headers: headers}
	var warnings []Warning
	rowNum := 1

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			warnings = append(warnings, Warning{Row: rowNum, Message: fmt.Sprintf("parse error: %v", err)})
			continue
		}

		if len(record) < len(headers) {
			warnings = append(warnings, Warning{
				Row:     rowNum,
				Message: fmt.Sprintf("row has %d columns, expected %d; padding", len(record), len(headers)),
			})
			padded := make([]string, len(headers))
			copy(padded, record)
			record = padded
		} else if len(record) > len(headers) {
			warnings = append(warnings, Warning{
				Row:     rowNum,
				Message: fmt.Sprintf("row has %d columns, expected %d; truncating", len(record), len(headers)),
			})
			record = record[:len(headers)]
		}

		row := make(Row, len(headers))
		for i, h := range headers {
			row[h] = record[i]
		}
		table.Rows = append(table.Rows, row)
	}

	return table, warnings, nil
}

// WriteCSV writes a table with the given header order. Missing cells are
// written as empty strings so every row has the full width.
func WriteCSV(w io.Writer, headers []string, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(headers))
	for i, row := range rows {
		for j, h := range headers {
			record[j] = row[h]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// decodeToUTF8 strips a UTF-8 BOM and falls back to Latin-1 when the bytes
// are not valid UTF-8. Latin-1 decoding cannot fail, so older institutional
// exports still parse.
func decodeToUTF8(data []byte) []byte {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return data
	}
	return decoded
}

func trimHeader(h string) string {
	// Headers sometimes carry a stray BOM remnant or padding.
	return string(bytes.TrimSpace(bytes.TrimPrefix([]byte(h), utf8BOM)))
}
