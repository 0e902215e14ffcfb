// file.go
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

package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/localnerve/tabledit/internal/document"
)

// FileRecord is one persisted, owned, versioned table document.
//
// Invariants: ID is immutable once assigned; UserID never changes (ownership
// is not transferable); Version increments by exactly 1 per successful
// update; IsActive=false is soft deletion, excluded from listing and search
// but still reachable by Purge.
type FileRecord struct {
	ID          string `gorm:"type:char(36);primaryKey" json:"id"`
	UserID      string `gorm:"type:char(36);not null;index:idx_owner_active" json:"userId"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"size:1024" json:"description,omitempty"`
	Tags        JSON   `gorm:"type:json" json:"tags,omitempty"`
	Content     JSON   `gorm:"type:json" json:"-"`
	// FileSize is a derived cache of the serialized byte length, recomputed
	// on every save. Not authoritative.
	FileSize int64  `gorm:"not null;default:0" json:"fileSize"`
	Version  uint64 `gorm:"not null;default:1" json:"version"`
	IsActive bool   `gorm:"not null;default:true;index:idx_owner_active" json:"isActive"`
	// RowCount and ColumnCount are derived from document metadata on save so
	// listings avoid decoding content.
	RowCount       int        `gorm:"not null;default:0" json:"rowCount"`
	ColumnCount    int        `gorm:"not null;default:0" json:"columnCount"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// TableName overrides the table name for FileRecord.
func (FileRecord) TableName() string {
	return "file_records"
}

// Document decodes the stored content.
func (f *FileRecord) Document() (*document.TableDocument, error) {
	var doc document.TableDocument
	if err := json.Unmarshal([]byte(f.Content.JSON), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// SetDocument encodes the content and refreshes the derived size and counts.
func (f *FileRecord) SetDocument(doc *document.TableDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	f.Content = JSON{JSON: datatypes.JSON(data)}
	f.FileSize = int64(len(data))
	f.RowCount = len(doc.Rows)
	f.ColumnCount = len(doc.Headers)
	return nil
}

// TagList decodes the stored tags, nil when unset.
func (f *FileRecord) TagList() []string {
	if len(f.Tags.JSON) == 0 {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(f.Tags.JSON), &tags); err != nil {
		return nil
	}
	return tags
}

// SetTagList encodes the tags.
func (f *FileRecord) SetTagList(tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	f.Tags = JSON{JSON: datatypes.JSON(data)}
	return nil
}
