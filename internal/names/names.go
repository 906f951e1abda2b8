// Package names turns user-supplied name lists into the ordered, cleaned list
// a batch renders, and derives archive file names from them.
package names

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

const FileSuffix = "_certificate.png"

// Parse splits a newline-delimited block, trimming each line and dropping
// blank ones. Order is preserved.
func Parse(text string) []string {
	return Filter(strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n"))
}

// Filter collapses every run of whitespace in an entry, line breaks included,
// to a single space, trims it, and drops the blank ones.
func Filter(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, n := range raw {
		if t := strings.Join(strings.Fields(n), " "); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// FromCSV reads names from a CSV file. A header cell named "name" selects its
// column; otherwise every row contributes its first column.
func FromCSV(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read names csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := 0
	header := rows[0]
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		if strings.EqualFold(strings.TrimSpace(h), "name") {
			col = i
			rows = rows[1:]
			break
		}
	}

	raw := make([]string, 0, len(rows))
	for _, row := range rows {
		if col < len(row) {
			raw = append(raw, strings.TrimPrefix(row[col], "\ufeff"))
		}
	}
	return Filter(raw), nil
}

// Slug joins the whitespace-separated words of name with underscores. Path
// separators are replaced too so a name can never address a directory inside
// the archive.
func Slug(name string) string {
	slug := strings.Join(strings.Fields(name), "_")
	return strings.NewReplacer("/", "_", "\\", "_").Replace(slug)
}

// Filename is the archive entry name for a certificate.
func Filename(name string) string {
	return Slug(name) + FileSuffix
}
