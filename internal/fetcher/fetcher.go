// Package fetcher reads tabular import sources: XLSX sheets, CSV
// files, and partner FTP drops. Every source reduces to the same
// shape: first row is headers, remaining rows are data.
package fetcher

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Table is one parsed tabular source.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Open parses a local file by extension. Sheet selects the worksheet
// for XLSX sources; empty means the first sheet.
func Open(path, sheet string) (Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(path, sheet)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return Table{}, eris.Wrap(err, "fetcher: open csv")
		}
		defer f.Close()
		return ReadCSV(f)
	default:
		return Table{}, eris.Errorf("fetcher: unsupported source extension %q", filepath.Ext(path))
	}
}

// RowMap pairs header cells with one data row. Blank headers are
// ignored for their column; short rows yield empty values. The first
// occurrence of a duplicated header wins.
func RowMap(headers, cells []string) map[string]string {
	m := make(map[string]string, len(headers))
	for i, h := range headers {
		if strings.TrimSpace(h) == "" {
			continue
		}
		if _, seen := m[h]; seen {
			continue
		}
		var v string
		if i < len(cells) {
			v = cells[i]
		}
		m[h] = v
	}
	return m
}
