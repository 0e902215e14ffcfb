// store.go
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
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/localnerve/tabledit/internal/models"
	"github.com/localnerve/tabledit/internal/ratelimit"
	"github.com/localnerve/tabledit/internal/types"
	"github.com/localnerve/tabledit/internal/utils"
)

// Principal is the authenticated caller, extracted from the identity
// provider's session.
type Principal struct {
	UserID        string
	Email         string
	EmailVerified bool
}

// Config tunes quotas, batch bounds, and caching. Zero values take defaults.
type Config struct {
	// MaxFiles is the per-user active file quota.
	MaxFiles int
	// MaxBatchDelete bounds one batch soft-delete call.
	MaxBatchDelete int
	// MaxDocumentBytes bounds the serialized document size.
	MaxDocumentBytes int64
	// ListCacheTTL bounds the per-user listing cache.
	ListCacheTTL time.Duration
	// Limits holds the per-action rate ceilings.
	Limits ratelimit.Config
}

const (
	defaultMaxFiles         = 50
	defaultMaxBatchDelete   = 25
	defaultMaxDocumentBytes = 5 << 20
	defaultListCacheTTL     = 5 * time.Minute
)

// Store is the remote file store: per-user CRUD over FileRecord with
// validation, quotas, rate limiting, and a per-user listing cache. State that
// used to be module-global (rate windows, list cache) lives here explicitly,
// with an injectable clock.
type Store struct {
	db      *gorm.DB
	clock   utils.Clock
	limiter *ratelimit.Limiter
	lists   *listCache
	cfg     Config
}

// New builds a Store. A nil clock falls back to the real clock.
func New(db *gorm.DB, clock utils.Clock, cfg Config) *Store {
	if clock == nil {
		clock = utils.RealClock{}
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = defaultMaxFiles
	}
	if cfg.MaxBatchDelete <= 0 {
		cfg.MaxBatchDelete = defaultMaxBatchDelete
	}
	if cfg.MaxDocumentBytes <= 0 {
		cfg.MaxDocumentBytes = defaultMaxDocumentBytes
	}
	if cfg.ListCacheTTL <= 0 {
		cfg.ListCacheTTL = defaultListCacheTTL
	}
	if cfg.Limits == nil {
		cfg.Limits = ratelimit.DefaultConfig()
	}
	return &Store{
		db:      db,
		clock:   clock,
		limiter: ratelimit.New(cfg.Limits, clock),
		lists:   newListCache(cfg.ListCacheTTL, clock),
		cfg:     cfg,
	}
}

// requireAuth validates the principal and consumes one rate unit for the
// action before any backend work happens.
func (s *Store) requireAuth(p Principal, action ratelimit.Action) error {
	if p.UserID == "" {
		return types.E(types.KindUnauthenticated, "no authenticated principal")
	}
	return s.limiter.Allow(p.UserID, action)
}

// fetchOwned loads a record by id and enforces ownership. Soft-deleted rows
// are returned only when includeInactive is set; otherwise they read as
// absent, matching the isActive check at the read layer.
func fetchOwned(tx *gorm.DB, p Principal, id string, includeInactive bool) (*models.FileRecord, error) {
	var rec models.FileRecord
	err := tx.Where("id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.E(types.KindNotFound, "file %s not found", id)
		}
		return nil, types.Wrap(types.KindBackendUnavailable, err, "file lookup failed")
	}
	if rec.UserID != p.UserID {
		return nil, types.E(types.KindForbidden, "file %s is not owned by caller", id)
	}
	if !rec.IsActive && !includeInactive {
		return nil, types.E(types.KindNotFound, "file %s not found", id)
	}
	return &rec, nil
}
