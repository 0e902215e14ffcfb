// delete.go
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

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/localnerve/tabledit/internal/models"
	"github.com/localnerve/tabledit/internal/ratelimit"
	"github.com/localnerve/tabledit/internal/types"
)

// SoftDelete marks a file inactive. Idempotent: deleting an already
// soft-deleted file succeeds without further effect.
func (s *Store) SoftDelete(ctx context.Context, p Principal, id string) error {
	if err := s.requireAuth(p, ratelimit.ActionDelete); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := fetchOwned(tx.Clauses(clause.Locking{Strength: "UPDATE"}), p, id, true)
		if err != nil {
			return err
		}
		if !rec.IsActive {
			return nil
		}
		if err := tx.Model(&models.FileRecord{}).
			Where("id = ?", rec.ID).
			UpdateColumn("is_active", false).Error; err != nil {
			return types.Wrap(types.KindBackendUnavailable, err, "soft delete failed")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.lists.invalidate(p.UserID)
	return nil
}

// Purge permanently removes a file, soft-deleted or not.
func (s *Store) Purge(ctx context.Context, p Principal, id string) error {
	if err := s.requireAuth(p, ratelimit.ActionDelete); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := fetchOwned(tx.Clauses(clause.Locking{Strength: "UPDATE"}), p, id, true)
		if err != nil {
			return err
		}
		if err := tx.Delete(&models.FileRecord{}, "id = ?", rec.ID).Error; err != nil {
			return types.Wrap(types.KindBackendUnavailable, err, "purge failed")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.lists.invalidate(p.UserID)
	return nil
}

// BatchSoftDelete marks several files inactive in one transaction,
// all-or-nothing: a missing or foreign id rolls back the whole batch.
// Returns the number of files that transitioned to inactive.
func (s *Store) BatchSoftDelete(ctx context.Context, p Principal, ids []string) (int, error) {
	if err := s.requireAuth(p, ratelimit.ActionDelete); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, types.E(types.KindInvalidQuery, "no file ids given")
	}
	if len(ids) > s.cfg.MaxBatchDelete {
		return 0, types.E(types.KindInvalidQuery,
			"batch of %d exceeds the maximum of %d", len(ids), s.cfg.MaxBatchDelete)
	}

	var transitioned int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recs []models.FileRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "user_id", "is_active").
			Where("id IN ?", ids).
			Find(&recs).Error; err != nil {
			return types.Wrap(types.KindBackendUnavailable, err, "batch lookup failed")
		}

		found := make(map[string]models.FileRecord, len(recs))
		for _, rec := range recs {
			found[rec.ID] = rec
		}
		for _, id := range ids {
			rec, ok := found[id]
			if !ok {
				return types.E(types.KindNotFound, "file %s not found", id)
			}
			if rec.UserID != p.UserID {
				return types.E(types.KindForbidden, "file %s is not owned by caller", id)
			}
		}

		result := tx.Model(&models.FileRecord{}).
			Where("id IN ? AND user_id = ? AND is_active = ?", ids, p.UserID, true).
			UpdateColumn("is_active", false)
		if result.Error != nil {
			return types.Wrap(types.KindBackendUnavailable, result.Error, "batch soft delete failed")
		}
		transitioned = int(result.RowsAffected)
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.lists.invalidate(p.UserID)
	return transitioned, nil
}
