// files.go
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

package store

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/localnerve/tabledit/internal/document"
	"github.com/localnerve/tabledit/internal/models"
	"github.com/localnerve/tabledit/internal/ratelimit"
	"github.com/localnerve/tabledit/internal/types"
)

// Create validates and persists a new file, returning its id. The first
// version of a file is always 1.
func (s *Store) Create(ctx context.Context, p Principal, name string, doc *document.TableDocument) (string, error) {
	if err := s.requireAuth(p, ratelimit.ActionSave); err != nil {
		return "", err
	}
	if err := validateName(name); err != nil {
		return "", err
	}
	if err := doc.Validate(); err != nil {
		return "", err
	}
	if size := doc.Size(); size > s.cfg.MaxDocumentBytes {
		return "", types.E(types.KindQuotaExceeded,
			"document is %d bytes, limit is %d", size, s.cfg.MaxDocumentBytes)
	}

	rec := models.FileRecord{
		ID:       uuid.NewString(),
		UserID:   p.UserID,
		Name:     strings.TrimSpace(name),
		Version:  1,
		IsActive: true,
	}
	if err := rec.SetDocument(doc); err != nil {
		return "", types.Wrap(types.KindInvalidDocument, err, "document not serializable")
	}
	if err := rec.SetTagList(nil); err != nil {
		return "", types.Wrap(types.KindInvalidDocument, err, "tags not serializable")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active int64
		if err := tx.Model(&models.FileRecord{}).
			Where("user_id = ? AND is_active = ?", p.UserID, true).
			Count(&active).Error; err != nil {
			return types.Wrap(types.KindBackendUnavailable, err, "file count failed")
		}
		if active >= int64(s.cfg.MaxFiles) {
			return types.E(types.KindQuotaExceeded,
				"file quota of %d reached", s.cfg.MaxFiles)
		}
		if err := tx.Create(&rec).Error; err != nil {
			return types.Wrap(types.KindBackendUnavailable, err, "file create failed")
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.lists.invalidate(p.UserID)
	return rec.ID, nil
}

// Read returns an owned, active file. Soft-deleted files read as absent.
// The last-accessed timestamp is refreshed best-effort; its failure never
// fails the read.
func (s *Store) Read(ctx context.Context, p Principal, id string) (*models.FileRecord, error) {
	if err := s.requireAuth(p, ratelimit.ActionLoad); err != nil {
		return nil, err
	}

	rec, err := fetchOwned(s.db.WithContext(ctx), p, id, false)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	_ = s.db.WithContext(ctx).Model(&models.FileRecord{}).
		Where("id = ?", rec.ID).
		UpdateColumn("last_accessed_at", now).Error
	rec.LastAccessedAt = &now

	return rec, nil
}

// Update replaces a file's name and content. When expectedVersion is
// non-zero it must match the stored version or the call fails with Conflict;
// the version column itself is guarded optimistically either way, so a
// concurrent writer loses with Conflict instead of silently clobbering.
func (s *Store) Update(ctx context.Context, p Principal, id, name string, doc *document.TableDocument, expectedVersion uint64) (uint64, error) {
	if err := s.requireAuth(p, ratelimit.ActionSave); err != nil {
		return 0, err
	}
	if err := validateName(name); err != nil {
		return 0, err
	}
	if err := doc.Validate(); err != nil {
		return 0, err
	}
	if size := doc.Size(); size > s.cfg.MaxDocumentBytes {
		return 0, types.E(types.KindQuotaExceeded,
			"document is %d bytes, limit is %d", size, s.cfg.MaxDocumentBytes)
	}

	var newVersion uint64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := fetchOwned(tx.Clauses(clause.Locking{Strength: "UPDATE"}), p, id, false)
		if err != nil {
			return err
		}
		if expectedVersion != 0 && rec.Version != expectedVersion {
			return types.E(types.KindConflict,
				"file %s is at version %d, caller expected %d", id, rec.Version, expectedVersion)
		}

		if err := rec.SetDocument(doc); err != nil {
			return types.Wrap(types.KindInvalidDocument, err, "document not serializable")
		}
		newVersion = rec.Version + 1

		result := tx.Model(&models.FileRecord{}).
			Where("id = ? AND version = ?", rec.ID, rec.Version).
			Updates(map[string]interface{}{
				"name":         strings.TrimSpace(name),
				"content":      rec.Content,
				"file_size":    rec.FileSize,
				"row_count":    rec.RowCount,
				"column_count": rec.ColumnCount,
				"version":      newVersion,
			})
		if result.Error != nil {
			return types.Wrap(types.KindBackendUnavailable, result.Error, "file update failed")
		}
		if result.RowsAffected == 0 {
			return types.E(types.KindConflict,
				"file %s was modified concurrently", id)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.lists.invalidate(p.UserID)
	return newVersion, nil
}

// SetMetadata updates description and tags without touching content or
// version.
func (s *Store) SetMetadata(ctx context.Context, p Principal, id, description string, tags []string) error {
	if err := s.requireAuth(p, ratelimit.ActionSave); err != nil {
		return err
	}

	rec, err := fetchOwned(s.db.WithContext(ctx), p, id, false)
	if err != nil {
		return err
	}
	if err := rec.SetTagList(tags); err != nil {
		return types.Wrap(types.KindInvalidDocument, err, "tags not serializable")
	}

	err = s.db.WithContext(ctx).Model(&models.FileRecord{}).
		Where("id = ?", rec.ID).
		Updates(map[string]interface{}{
			"description": description,
			"tags":        rec.Tags,
		}).Error
	if err != nil {
		return types.Wrap(types.KindBackendUnavailable, err, "metadata update failed")
	}

	s.lists.invalidate(p.UserID)
	return nil
}
