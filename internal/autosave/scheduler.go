// scheduler.go
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

// Package autosave drives periodic background saves of the working grid.
// The scheduler writes a local snapshot first, then pushes to the remote
// store, queueing snapshots taken while offline for replay on reconnect.
package autosave

import (
	"context"
	"sync"
	"time"

	"github.com/localnerve/tabledit/internal/document"
	"github.com/localnerve/tabledit/internal/localcache"
	"github.com/localnerve/tabledit/internal/types"
	"github.com/localnerve/tabledit/internal/utils"
)

// Remote is the slice of the file store the scheduler needs.
type Remote interface {
	Create(ctx context.Context, name string, doc *document.TableDocument) (id string, err error)
	Update(ctx context.Context, id, name string, doc *document.TableDocument, expectedVersion uint64) (uint64, error)
}

// Connectivity reports whether the remote store is reachable.
type Connectivity interface {
	Online() bool
}

// SnapshotFunc returns the current grid state, or nil when no grid is open.
type SnapshotFunc func() *document.TableDocument

const (
	// DefaultInterval is the save cadence.
	DefaultInterval = 30 * time.Second
	// DefaultSaveTimeout bounds a single remote save attempt.
	DefaultSaveTimeout = 10 * time.Second
	// DefaultMaxPending bounds the offline queue. The oldest snapshot is
	// dropped when the bound is hit; newer state supersedes it anyway.
	DefaultMaxPending = 10
)

// Config tunes the scheduler. Zero values take defaults.
type Config struct {
	Interval    time.Duration
	SaveTimeout time.Duration
	MaxPending  int
	// Authenticated reports whether a signed-in principal is available.
	// Nil means the remote carries its own credentials and is always usable.
	Authenticated func() bool
}

type pendingSave struct {
	name    string
	doc     *document.TableDocument
	takenAt time.Time
}

// Scheduler periodically pushes dirty grid state to the remote store.
// All exported methods are safe for concurrent use.
type Scheduler struct {
	remote Remote
	net    Connectivity
	cache  *localcache.Cache
	source SnapshotFunc
	clock  utils.Clock
	cfg    Config

	// saveMu serializes remote writes so a manual SaveNow and a tick
	// never race on the same file version.
	saveMu sync.Mutex

	mu       sync.Mutex
	enabled  bool
	dirty    bool
	inFlight bool
	fileID   string
	fileName string
	version  uint64
	pending  []pendingSave
	lastErr  error
	stop     chan struct{}
}

// New builds a Scheduler. remote, net, and source are required; cache may be
// nil when no on-device persistence is available.
func New(remote Remote, net Connectivity, cache *localcache.Cache, source SnapshotFunc, clock utils.Clock, cfg Config) *Scheduler {
	if clock == nil {
		clock = utils.RealClock{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = DefaultSaveTimeout
	}
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = DefaultMaxPending
	}
	return &Scheduler{
		remote: remote,
		net:    net,
		cache:  cache,
		source: source,
		clock:  clock,
		cfg:    cfg,
	}
}

// Track binds the scheduler to an already-persisted file. Saves update that
// file with optimistic version checks instead of creating a new one.
func (s *Scheduler) Track(fileID, fileName string, version uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileID = fileID
	s.fileName = fileName
	s.version = version
}

// SetName changes the name used for the next create or update.
func (s *Scheduler) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileName = name
}

// MarkDirty flags the grid as changed since the last successful save.
func (s *Scheduler) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
}

// Enable turns automatic saving on. Requires a signed-in user and a file
// name to save under.
func (s *Scheduler) Enable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.Authenticated != nil && !s.cfg.Authenticated() {
		return types.E(types.KindUnauthenticated, "cannot enable auto-save without a signed-in user")
	}
	if s.fileName == "" {
		return types.E(types.KindInvalidName, "cannot enable auto-save without a file name")
	}
	s.enabled = true
	return nil
}

// Disable turns automatic saving off. Pending offline saves are kept.
func (s *Scheduler) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = false
}

// Enabled reports whether automatic saving is on.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// FileID returns the tracked remote file id, empty before the first create.
func (s *Scheduler) FileID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fileID
}

// Version returns the last acknowledged remote version.
func (s *Scheduler) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Dirty reports whether unsaved changes exist.
func (s *Scheduler) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// PendingCount returns the number of queued offline saves.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// LastError returns the most recent save failure, cleared by the next
// successful save.
func (s *Scheduler) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Run ticks the scheduler at the configured interval until ctx is done or
// Stop is called.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.stop = stop
	s.mu.Unlock()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Stop ends a running Run loop. Scheduler state is kept so a later Run or
// SaveNow picks up where it left off.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

// Tick performs one scheduling pass: skip when disabled or already saving.
// A clean grid still ticks while queued offline saves wait, so the backlog
// drains on reconnect without a new edit.
func (s *Scheduler) Tick(ctx context.Context) {
	s.mu.Lock()
	if !s.enabled || s.inFlight || (!s.dirty && len(s.pending) == 0) {
		s.mu.Unlock()
		return
	}
	s.inFlight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	if err := s.saveCycle(ctx, false); err != nil {
		s.setLastError(err)
	}
}

// SaveNow performs an immediate save regardless of the enabled state and
// returns the outcome to the caller.
func (s *Scheduler) SaveNow(ctx context.Context) error {
	err := s.saveCycle(ctx, true)
	if err != nil {
		s.setLastError(err)
	}
	return err
}

// saveCycle snapshots, writes the local cache, drains any offline backlog,
// then saves the current state. Offline and backend failures queue the
// snapshot; rate limiting defers without queueing since the state will be
// re-snapshot on the next pass. Loss of authentication disables the
// scheduler until the user signs back in and re-enables it.
func (s *Scheduler) saveCycle(ctx context.Context, manual bool) error {
	doc := s.source()
	// Never push an empty grid over saved content.
	empty := doc == nil || len(doc.Rows) == 0

	s.mu.Lock()
	name := s.fileName
	fileID := s.fileID
	dirty := s.dirty
	s.mu.Unlock()

	if !empty && s.cache != nil {
		s.cache.PersistSnapshot(doc, fileID, name, true)
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if !s.net.Online() {
		if !empty && (dirty || manual) {
			s.enqueue(name, doc)
		}
		return nil
	}

	if err := s.drainPending(ctx); err != nil {
		if types.IsKind(err, types.KindRateLimited) && !manual {
			return nil
		}
		if types.IsKind(err, types.KindUnauthenticated) {
			s.Disable()
		}
		return err
	}

	if empty || (!dirty && !manual) {
		// Drain-only pass, nothing new to push.
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.lastErr = nil
		}
		s.mu.Unlock()
		return nil
	}

	err := s.push(ctx, name, doc)
	switch {
	case err == nil:
		s.mu.Lock()
		s.dirty = false
		s.lastErr = nil
		s.mu.Unlock()
		if s.cache != nil {
			s.cache.PersistSnapshot(doc, s.FileID(), name, false)
		}
		return nil
	case types.IsKind(err, types.KindRateLimited):
		// Stay dirty and retry on a later pass. Manual saves report the
		// limit to the caller.
		if manual {
			return err
		}
		return nil
	case types.IsKind(err, types.KindBackendUnavailable):
		s.enqueue(name, doc)
		return nil
	case types.IsKind(err, types.KindUnauthenticated):
		s.Disable()
		return err
	default:
		return err
	}
}

// drainPending replays queued offline saves in order, stopping at the first
// failure so order is preserved for the next attempt.
func (s *Scheduler) drainPending(ctx context.Context) error {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return nil
		}
		head := s.pending[0]
		s.mu.Unlock()

		if err := s.push(ctx, head.name, head.doc); err != nil {
			return err
		}

		s.mu.Lock()
		s.pending = s.pending[1:]
		s.mu.Unlock()
	}
}

// push performs one remote save with a bounded timeout, creating the file on
// first save and updating with the tracked version afterwards.
func (s *Scheduler) push(ctx context.Context, name string, doc *document.TableDocument) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SaveTimeout)
	defer cancel()

	s.mu.Lock()
	fileID := s.fileID
	version := s.version
	s.mu.Unlock()

	if fileID == "" {
		id, err := s.remote.Create(ctx, name, doc)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.fileID = id
		s.version = 1
		s.mu.Unlock()
		return nil
	}

	newVersion, err := s.remote.Update(ctx, fileID, name, doc, version)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.version = newVersion
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) enqueue(name string, doc *document.TableDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) >= s.cfg.MaxPending {
		s.pending = s.pending[1:]
	}
	s.pending = append(s.pending, pendingSave{
		name:    name,
		doc:     doc.Clone(),
		takenAt: s.clock.Now(),
	})
	// The snapshot is captured; new edits re-dirty the grid.
	s.dirty = false
}

func (s *Scheduler) setLastError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}
