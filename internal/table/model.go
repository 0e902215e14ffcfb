// model.go
//
// Cloud table editor backend and client sync engine
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of tabledit.
// tabledit is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// tabledit is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with tabledit.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package table

import (
	"time"

	"github.com/localnerve/tabledit/internal/document"
	"github.com/localnerve/tabledit/internal/types"
	"github.com/localnerve/tabledit/internal/utils"
)

// Model is the abstract editable grid. UI adapters bind it to actual widgets;
// transient helper columns (row-selection checkboxes and the like) live in the
// adapter and never enter the model.
type Model struct {
	headers   []document.HeaderRecord
	rows      []row
	clock     utils.Clock
	createdAt time.Time
}

type row struct {
	cells  []document.CellRecord
	styles *document.RowStyles
}

// New creates an empty grid. A nil clock falls back to the real clock.
func New(clock utils.Clock) *Model {
	if clock == nil {
		clock = utils.RealClock{}
	}
	return &Model{clock: clock, createdAt: clock.Now()}
}

// RowCount returns the number of data rows.
func (m *Model) RowCount() int { return len(m.rows) }

// ColumnCount returns the number of columns.
func (m *Model) ColumnCount() int { return len(m.headers) }

// SetHeaders replaces the column set. Existing rows are padded or truncated
// to the new width.
func (m *Model) SetHeaders(headers []document.HeaderRecord) {
	m.headers = append([]document.HeaderRecord(nil), headers...)
	width := len(m.headers)
	for i := range m.rows {
		cells := m.rows[i].cells
		switch {
		case len(cells) < width:
			padded := make([]document.CellRecord, width)
			copy(padded, cells)
			m.rows[i].cells = padded
		case len(cells) > width:
			m.rows[i].cells = cells[:width]
		}
	}
}

// AppendRow adds a row. Missing cells are defaulted, extras dropped.
func (m *Model) AppendRow(cells []document.CellRecord) {
	width := len(m.headers)
	normalized := make([]document.CellRecord, width)
	copy(normalized, cells)
	m.rows = append(m.rows, row{cells: normalized})
}

// RemoveRow deletes a row by index.
func (m *Model) RemoveRow(i int) error {
	if i < 0 || i >= len(m.rows) {
		return types.E(types.KindInvalidDocument, "row %d out of range", i)
	}
	m.rows = append(m.rows[:i], m.rows[i+1:]...)
	return nil
}

// Cell returns a copy of the cell at (r, c).
func (m *Model) Cell(r, c int) (document.CellRecord, error) {
	if r < 0 || r >= len(m.rows) || c < 0 || c >= len(m.headers) {
		return document.CellRecord{}, types.E(types.KindInvalidDocument, "cell (%d,%d) out of range", r, c)
	}
	return m.rows[r].cells[c], nil
}

// SetCell updates a cell value. Readonly cells reject edits.
func (m *Model) SetCell(r, c int, value string) error {
	if r < 0 || r >= len(m.rows) || c < 0 || c >= len(m.headers) {
		return types.E(types.KindInvalidDocument, "cell (%d,%d) out of range", r, c)
	}
	if m.rows[r].cells[c].Readonly {
		return types.E(types.KindForbidden, "cell (%d,%d) is readonly", r, c)
	}
	m.rows[r].cells[c].Value = value
	return nil
}

// ColorizeCell sets per-cell colors. Empty strings clear the override.
func (m *Model) ColorizeCell(r, c int, background, color string) error {
	if r < 0 || r >= len(m.rows) || c < 0 || c >= len(m.headers) {
		return types.E(types.KindInvalidDocument, "cell (%d,%d) out of range", r, c)
	}
	m.rows[r].cells[c].BackgroundColor = background
	m.rows[r].cells[c].Color = color
	return nil
}

// ColorizeRow sets a row-level color override.
func (m *Model) ColorizeRow(r int, background, color string) error {
	if r < 0 || r >= len(m.rows) {
		return types.E(types.KindInvalidDocument, "row %d out of range", r)
	}
	if background == "" && color == "" {
		m.rows[r].styles = nil
		return nil
	}
	m.rows[r].styles = &document.RowStyles{BackgroundColor: background, Color: color}
	return nil
}

// Clear empties the grid entirely.
func (m *Model) Clear() {
	m.headers = nil
	m.rows = nil
	m.createdAt = m.clock.Now()
}
