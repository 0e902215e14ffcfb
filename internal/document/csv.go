package document

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/localnerve/tabledit/internal/types"
)

// WriteCSV renders header texts and cell values. Styles and readonly flags
// are not representable in CSV and are dropped.
func WriteCSV(doc *TableDocument) ([]byte, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, len(doc.Headers))
	for i, h := range doc.Headers {
		header[i] = h.Text
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	record := make([]string, len(doc.Headers))
	for _, row := range doc.Rows {
		for i, cell := range row.Cells {
			record[i] = cell.Value
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadCSV parses the first record as headers and the rest as rows, marking
// the first column readonly. Ragged records are tolerated and repaired.
func ReadCSV(r io.Reader) (*TableDocument, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, types.Wrap(types.KindInvalidDocument, err, "not a readable CSV payload")
	}
	if len(records) == 0 {
		return nil, types.E(types.KindInvalidDocument, "CSV payload has no header record")
	}

	doc := &TableDocument{
		Headers: make([]HeaderRecord, len(records[0])),
		Rows:    make([]RowRecord, 0, len(records)-1),
	}
	for i, text := range records[0] {
		doc.Headers[i] = HeaderRecord{Text: text}
	}

	for _, record := range records[1:] {
		cells := make([]CellRecord, len(record))
		for i, value := range record {
			cells[i] = CellRecord{Value: value, Readonly: i == 0}
		}
		doc.Rows = append(doc.Rows, RowRecord{Cells: cells})
	}

	return doc.Normalize(), nil
}
