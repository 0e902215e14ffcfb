package document

import (
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/localnerve/tabledit/internal/types"
)

// Worksheet mapping: header row is row 1, data starts at row 2, and the first
// column is the readonly id column.

const sheetName = "Sheet1"

// WriteXLSX renders a document as a single-sheet workbook, carrying cell fill
// and font colors.
func WriteXLSX(doc *TableDocument) ([]byte, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	for col, h := range doc.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, h.Text); err != nil {
			return nil, err
		}
		if err := applyCellColors(f, cell, h.BackgroundColor, h.Color); err != nil {
			return nil, err
		}
	}

	for r, row := range doc.Rows {
		for c, rec := range row.Cells {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, rec.Value); err != nil {
				return nil, err
			}
			bg, fg := rec.BackgroundColor, rec.Color
			if row.Styles != nil {
				if bg == "" {
					bg = row.Styles.BackgroundColor
				}
				if fg == "" {
					fg = row.Styles.Color
				}
			}
			if err := applyCellColors(f, cell, bg, fg); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadXLSX parses the first sheet of a workbook into a document. Row 1
// becomes the headers, the first column is marked readonly.
func ReadXLSX(r io.Reader) (*TableDocument, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, types.Wrap(types.KindInvalidDocument, err, "not a readable workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, types.E(types.KindInvalidDocument, "workbook has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, types.Wrap(types.KindInvalidDocument, err, "cannot read sheet rows")
	}
	if len(rows) == 0 {
		return nil, types.E(types.KindInvalidDocument, "sheet has no header row")
	}

	doc := &TableDocument{
		Headers: make([]HeaderRecord, len(rows[0])),
		Rows:    make([]RowRecord, 0, len(rows)-1),
	}
	for col, text := range rows[0] {
		bg, fg := readCellColors(f, sheet, col+1, 1)
		doc.Headers[col] = HeaderRecord{Text: text, BackgroundColor: bg, Color: fg}
	}

	for r := 1; r < len(rows); r++ {
		cells := make([]CellRecord, len(rows[r]))
		for c, value := range rows[r] {
			bg, fg := readCellColors(f, sheet, c+1, r+1)
			cells[c] = CellRecord{
				Value:           value,
				Readonly:        c == 0,
				BackgroundColor: bg,
				Color:           fg,
			}
		}
		doc.Rows = append(doc.Rows, RowRecord{Cells: cells})
	}

	return doc.Normalize(), nil
}

func applyCellColors(f *excelize.File, cell, bg, fg string) error {
	if bg == "" && fg == "" {
		return nil
	}
	style := excelize.Style{}
	if bg != "" {
		style.Fill = excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{strings.TrimPrefix(bg, "#")},
		}
	}
	if fg != "" {
		style.Font = &excelize.Font{Color: strings.TrimPrefix(fg, "#")}
	}
	styleID, err := f.NewStyle(&style)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheetName, cell, cell, styleID)
}

func readCellColors(f *excelize.File, sheet string, col, row int) (bg, fg string) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", ""
	}
	styleID, err := f.GetCellStyle(sheet, cell)
	if err != nil {
		return "", ""
	}
	style, err := f.GetStyle(styleID)
	if err != nil || style == nil {
		return "", ""
	}
	if style.Fill.Type == "pattern" && len(style.Fill.Color) > 0 {
		bg = style.Fill.Color[0]
	}
	if style.Font != nil {
		fg = style.Font.Color
	}
	return bg, fg
}
