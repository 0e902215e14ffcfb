// limiter.go
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

package ratelimit

import (
	"sync"

	"github.com/localnerve/tabledit/internal/types"
	"github.com/localnerve/tabledit/internal/utils"
)

// Action is the kind of operation being limited. Each action carries its own
// ceiling.
type Action string

const (
	ActionSave   Action = "save"
	ActionLoad   Action = "load"
	ActionDelete Action = "delete"
)

// Config maps actions to their per-minute ceilings. Actions absent from the
// map are unlimited.
type Config map[Action]int

// DefaultConfig mirrors the production ceilings.
func DefaultConfig() Config {
	return Config{
		ActionSave:   30,
		ActionLoad:   60,
		ActionDelete: 20,
	}
}

type window struct {
	minute int64
	count  int
}

// Limiter enforces per-user, per-action ceilings over wall-clock-minute
// buckets. Expiry is lazy: stale windows are reset on access and swept
// opportunistically, no timers involved.
type Limiter struct {
	mu       sync.Mutex
	clock    utils.Clock
	ceilings Config
	windows  map[string]window
	ops      int
}

// sweepEvery bounds how much garbage accumulates between sweeps.
const sweepEvery = 256

// New builds a Limiter. A nil clock falls back to the real clock.
func New(ceilings Config, clock utils.Clock) *Limiter {
	if clock == nil {
		clock = utils.RealClock{}
	}
	return &Limiter{
		clock:    clock,
		ceilings: ceilings,
		windows:  make(map[string]window),
	}
}

// Allow consumes one unit for userID+action in the current minute window.
// Returns a RateLimited error once the ceiling for that action is exhausted;
// the counter is not advanced past the ceiling, and the underlying operation
// must not run.
func (l *Limiter) Allow(userID string, action Action) error {
	ceiling, limited := l.ceilings[action]
	if !limited {
		return nil
	}

	minute := l.clock.Now().Unix() / 60
	key := userID + "|" + string(action)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.ops++
	if l.ops%sweepEvery == 0 {
		l.sweep(minute)
	}

	w := l.windows[key]
	if w.minute != minute {
		w = window{minute: minute}
	}
	if w.count >= ceiling {
		return types.E(types.KindRateLimited,
			"rate limit exceeded for %s (%d per minute)", action, ceiling)
	}
	w.count++
	l.windows[key] = w
	return nil
}

// Remaining reports how many units are left for userID+action in the current
// window, or -1 when the action is unlimited.
func (l *Limiter) Remaining(userID string, action Action) int {
	ceiling, limited := l.ceilings[action]
	if !limited {
		return -1
	}

	minute := l.clock.Now().Unix() / 60
	key := userID + "|" + string(action)

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[key]
	if w.minute != minute {
		return ceiling
	}
	if left := ceiling - w.count; left > 0 {
		return left
	}
	return 0
}

// sweep drops windows from past minutes. Caller holds the lock.
func (l *Limiter) sweep(minute int64) {
	for key, w := range l.windows {
		if w.minute != minute {
			delete(l.windows, key)
		}
	}
}
