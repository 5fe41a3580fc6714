package upload

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/isq-cli/internal/model"
)

type column int

const (
	colName column = iota
	colOptions
	colTier
	colInputType
)

// headerAliases maps lowercased header cells to columns.
var headerAliases = map[string]column{
	"specification":      colName,
	"specification name": colName,
	"spec name":          colName,
	"spec_name":          colName,
	"name":               colName,

	"options":                   colOptions,
	"option":                    colOptions,
	"options (comma separated)": colOptions,

	"tier":       colTier,
	"input type": colInputType,
	"input_type": colInputType,
}

// ReadXLSX reads the first sheet of a seller workbook. The sheet needs a
// header row naming at least the Specification and Options columns. An
// optional row above it of the form "MCAT | <name>" sets the product name.
func ReadXLSX(path string) (model.AuditInput, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return model.AuditInput{}, eris.Wrap(err, "upload: open xlsx")
	}
	return fromWorkbook(f)
}

// ParseXLSX reads a seller workbook from memory.
func ParseXLSX(data []byte) (model.AuditInput, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return model.AuditInput{}, eris.Wrap(err, "upload: open xlsx")
	}
	return fromWorkbook(f)
}

func fromWorkbook(f *xlsx.File) (model.AuditInput, error) {
	if len(f.Sheets) == 0 {
		return model.AuditInput{}, eris.New("upload: workbook has no sheets")
	}
	rows := sheetRows(f.Sheets[0])

	var (
		in     model.AuditInput
		cols   map[column]int
		header = -1
	)
	for i, row := range rows {
		if len(row) >= 2 && isMCATLabel(row[0]) {
			in.MCATName = strings.TrimSpace(row[1])
			continue
		}
		if c, ok := parseHeader(row); ok {
			cols, header = c, i
			break
		}
	}
	if header < 0 {
		return model.AuditInput{}, eris.New("upload: xlsx header row with Specification and Options columns not found")
	}

	for _, row := range rows[header+1:] {
		cell := func(c column) string {
			idx, ok := cols[c]
			if !ok || idx >= len(row) {
				return ""
			}
			return row[idx]
		}
		spec, ok := newSpec(cell(colName), SplitOptions(cell(colOptions)), cell(colTier), cell(colInputType))
		if ok {
			in.Specifications = append(in.Specifications, spec)
		}
	}
	if len(in.Specifications) == 0 {
		return model.AuditInput{}, eris.New("upload: no specifications found")
	}
	return in, nil
}

func parseHeader(row []string) (map[column]int, bool) {
	cols := map[column]int{}
	for i, cell := range row {
		c, ok := headerAliases[strings.ToLower(strings.TrimSpace(cell))]
		if !ok {
			continue
		}
		if _, dup := cols[c]; !dup {
			cols[c] = i
		}
	}
	_, hasName := cols[colName]
	_, hasOptions := cols[colOptions]
	return cols, hasName && hasOptions
}

func isMCATLabel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ":"))) {
	case "mcat", "mcat name", "mcat_name", "product":
		return true
	}
	return false
}

func sheetRows(sheet *xlsx.Sheet) [][]string {
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows
}
