package table

import (
	"github.com/localnerve/tabledit/internal/document"
)

// Snapshot serializes the grid exhaustively into a fresh TableDocument.
// It never fails: ragged rows are padded with empty cells or truncated to
// the header count, and metadata is recomputed on every call.
func (m *Model) Snapshot() *document.TableDocument {
	doc := &document.TableDocument{
		Headers: make([]document.HeaderRecord, len(m.headers)),
		Rows:    make([]document.RowRecord, len(m.rows)),
	}
	copy(doc.Headers, m.headers)

	width := len(m.headers)
	for i, r := range m.rows {
		cells := make([]document.CellRecord, width)
		copy(cells, r.cells)
		doc.Rows[i].Cells = cells
		if r.styles != nil {
			styles := *r.styles
			doc.Rows[i].Styles = &styles
		}
	}

	doc.Stamp(m.createdAt, m.clock.Now(), "tabledit")
	return doc
}

// Load fully replaces the grid content from a document, restoring per-cell
// readonly and style attributes exactly as serialized. Absent headers or rows
// is an InvalidDocument error; empty slices load an empty table.
func (m *Model) Load(doc *document.TableDocument) error {
	if doc == nil {
		return (&document.TableDocument{}).Validate()
	}
	if doc.Headers == nil || doc.Rows == nil {
		return doc.Validate()
	}

	normalized := doc.Clone().Normalize()

	m.headers = normalized.Headers
	m.rows = make([]row, len(normalized.Rows))
	for i, r := range normalized.Rows {
		m.rows[i] = row{cells: r.Cells, styles: r.Styles}
	}
	if !normalized.Metadata.CreatedAt.IsZero() {
		m.createdAt = normalized.Metadata.CreatedAt
	} else {
		m.createdAt = m.clock.Now()
	}
	return nil
}
