package fetcher

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ReadXLSX reads one worksheet into a Table. Sheet selects by name;
// empty selects the first sheet.
func ReadXLSX(path, sheet string) (Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return Table{}, eris.Wrap(err, "xlsx: open file")
	}

	s, err := pickSheet(f, sheet)
	if err != nil {
		return Table{}, err
	}

	var tbl Table
	for i, row := range s.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		if i == 0 {
			tbl.Headers = cells
			continue
		}
		tbl.Rows = append(tbl.Rows, cells)
	}
	return tbl, nil
}

func pickSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		s, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", name)
		}
		return s, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: file has no sheets")
	}
	return f.Sheets[0], nil
}
