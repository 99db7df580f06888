package fetcher

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// ReadCSV parses CSV data into a Table. Field counts may vary per
// row; fields are whitespace-trimmed.
func ReadCSV(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var tbl Table
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return tbl, nil
		}
		if err != nil {
			return Table{}, eris.Wrap(err, "csv: read row")
		}

		for i, field := range record {
			record[i] = strings.TrimSpace(field)
		}

		if first {
			first = false
			tbl.Headers = record
			continue
		}
		tbl.Rows = append(tbl.Rows, record)
	}
}
