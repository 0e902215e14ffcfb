// document.go
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

package document

import (
	"encoding/json"
	"time"

	"github.com/localnerve/tabledit/internal/types"
)

// SchemaVersion is stamped into Metadata.Version on every serialization.
const SchemaVersion = "1.0"

// HeaderRecord is one column header. Order of headers defines column order.
type HeaderRecord struct {
	Text            string `json:"text"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	Color           string `json:"color,omitempty"`
}

// CellRecord is one grid cell. Value is always a string; numeric or date
// semantics are not modeled.
type CellRecord struct {
	Value           string `json:"value"`
	Readonly        bool   `json:"readonly,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	Color           string `json:"color,omitempty"`
}

// RowStyles is a row-level color override, set when a whole row is colorized.
type RowStyles struct {
	BackgroundColor string `json:"backgroundColor,omitempty"`
	Color           string `json:"color,omitempty"`
}

// RowRecord is one grid row. Cells length should equal the header count for a
// well-formed document; Validate enforces it, Normalize repairs it.
type RowRecord struct {
	Cells  []CellRecord `json:"cells"`
	Styles *RowStyles   `json:"styles,omitempty"`
}

// Metadata is derived bookkeeping, recomputed on every serialization and
// never hand-edited.
type Metadata struct {
	RowCount     int       `json:"rowCount"`
	ColumnCount  int       `json:"columnCount"`
	CreatedAt    time.Time `json:"createdAt"`
	LastModified time.Time `json:"lastModified"`
	Version      string    `json:"version"`
	Source       string    `json:"source"`
}

// TableDocument is the portable JSON form of a grid.
type TableDocument struct {
	Headers  []HeaderRecord `json:"headers"`
	Rows     []RowRecord    `json:"rows"`
	Metadata Metadata       `json:"metadata"`
}

// Validate checks structural well-formedness. Absent (nil) headers or rows is
// an invalid document; empty slices are a valid empty table. Every row must
// carry exactly one cell per header.
func (d *TableDocument) Validate() error {
	if d == nil {
		return types.E(types.KindInvalidDocument, "document is nil")
	}
	if d.Headers == nil {
		return types.E(types.KindInvalidDocument, "document has no headers")
	}
	if d.Rows == nil {
		return types.E(types.KindInvalidDocument, "document has no rows")
	}
	for i, row := range d.Rows {
		if len(row.Cells) != len(d.Headers) {
			return types.E(types.KindInvalidDocument,
				"row %d has %d cells, expected %d", i, len(row.Cells), len(d.Headers))
		}
	}
	return nil
}

// Normalize pads short rows with empty cells and truncates long rows so every
// row matches the header count. Returns the receiver for chaining.
func (d *TableDocument) Normalize() *TableDocument {
	width := len(d.Headers)
	for i := range d.Rows {
		cells := d.Rows[i].Cells
		switch {
		case len(cells) < width:
			padded := make([]CellRecord, width)
			copy(padded, cells)
			d.Rows[i].Cells = padded
		case len(cells) > width:
			d.Rows[i].Cells = cells[:width]
		}
	}
	return d
}

// Stamp recomputes the derived metadata in place.
func (d *TableDocument) Stamp(createdAt, now time.Time, source string) {
	if createdAt.IsZero() {
		createdAt = now
	}
	d.Metadata = Metadata{
		RowCount:     len(d.Rows),
		ColumnCount:  len(d.Headers),
		CreatedAt:    createdAt,
		LastModified: now,
		Version:      SchemaVersion,
		Source:       source,
	}
}

// Size returns the serialized byte length, the basis for fileSize and for the
// local snapshot size guard.
func (d *TableDocument) Size() int64 {
	data, err := json.Marshal(d)
	if err != nil {
		return 0
	}
	return int64(len(data))
}

// Clone returns a deep copy.
func (d *TableDocument) Clone() *TableDocument {
	out := &TableDocument{
		Headers:  make([]HeaderRecord, len(d.Headers)),
		Rows:     make([]RowRecord, len(d.Rows)),
		Metadata: d.Metadata,
	}
	copy(out.Headers, d.Headers)
	for i, row := range d.Rows {
		cells := make([]CellRecord, len(row.Cells))
		copy(cells, row.Cells)
		out.Rows[i].Cells = cells
		if row.Styles != nil {
			styles := *row.Styles
			out.Rows[i].Styles = &styles
		}
	}
	return out
}
