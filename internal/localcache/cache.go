// cache.go
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

package localcache

import (
	"encoding/json"
	"time"

	"github.com/localnerve/tabledit/internal/document"
	"github.com/localnerve/tabledit/internal/utils"
)

const (
	sessionKey  = "tabledit.snapshot.session"
	recoveryKey = "tabledit.snapshot.recovery"

	// DefaultSessionTTL bounds same-tab reload recovery.
	DefaultSessionTTL = time.Hour
	// DefaultRecoveryTTL bounds crash recovery across sessions.
	DefaultRecoveryTTL = 24 * time.Hour
	// DefaultMaxBytes guards the serialized snapshot size. Oversized
	// snapshots are dropped rather than risking a corrupt or failed write.
	DefaultMaxBytes = 2 << 20
)

// Snapshot is one persisted grid state plus its save bookkeeping.
type Snapshot struct {
	Document *document.TableDocument `json:"document"`
	FileID   string                  `json:"fileId,omitempty"`
	FileName string                  `json:"fileName,omitempty"`
	Dirty    bool                    `json:"dirty"`
	SavedAt  time.Time               `json:"savedAt"`
	// Recovery marks a snapshot restored from the long-lived slot.
	Recovery bool `json:"recovery,omitempty"`
}

// Config tunes slot freshness and the size guard. Zero values take defaults.
type Config struct {
	SessionTTL  time.Duration
	RecoveryTTL time.Duration
	MaxBytes    int
}

// Cache writes serialized snapshots to on-device storage under a short-lived
// session slot and a longer-lived recovery slot. All failures are best-effort:
// losing the write-ahead copy is non-fatal to the running session.
type Cache struct {
	storage Storage
	clock   utils.Clock
	cfg     Config
}

// New builds a Cache over a Storage. A nil clock falls back to the real clock.
func New(storage Storage, clock utils.Clock, cfg Config) *Cache {
	if clock == nil {
		clock = utils.RealClock{}
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.RecoveryTTL <= 0 {
		cfg.RecoveryTTL = DefaultRecoveryTTL
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	return &Cache{storage: storage, clock: clock, cfg: cfg}
}

// PersistSnapshot writes the document to both slots. Oversized or failing
// writes are skipped silently.
func (c *Cache) PersistSnapshot(doc *document.TableDocument, fileID, fileName string, dirty bool) {
	if doc == nil {
		return
	}
	snap := Snapshot{
		Document: doc,
		FileID:   fileID,
		FileName: fileName,
		Dirty:    dirty,
		SavedAt:  c.clock.Now(),
	}
	payload, err := json.Marshal(&snap)
	if err != nil {
		return
	}
	if len(payload) > c.cfg.MaxBytes {
		return
	}
	_ = c.storage.Set(sessionKey, string(payload))
	_ = c.storage.Set(recoveryKey, string(payload))
}

// LoadSnapshot returns the freshest valid slot, preferring the session slot.
// Stale slots are discarded. Returns nil when nothing usable remains.
func (c *Cache) LoadSnapshot() *Snapshot {
	if snap := c.loadSlot(sessionKey, c.cfg.SessionTTL); snap != nil {
		return snap
	}
	if snap := c.loadSlot(recoveryKey, c.cfg.RecoveryTTL); snap != nil {
		snap.Recovery = true
		return snap
	}
	return nil
}

// Clear removes both slots. Called on explicit logout or "start fresh".
func (c *Cache) Clear() {
	c.storage.Delete(sessionKey)
	c.storage.Delete(recoveryKey)
}

func (c *Cache) loadSlot(key string, ttl time.Duration) *Snapshot {
	raw, ok := c.storage.Get(key)
	if !ok {
		return nil
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil || snap.Document == nil {
		c.storage.Delete(key)
		return nil
	}
	if c.clock.Now().Sub(snap.SavedAt) > ttl {
		c.storage.Delete(key)
		return nil
	}
	return &snap
}
