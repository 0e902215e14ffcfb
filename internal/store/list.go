package store

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/localnerve/tabledit/internal/models"
	"github.com/localnerve/tabledit/internal/ratelimit"
	"github.com/localnerve/tabledit/internal/types"
	"github.com/localnerve/tabledit/internal/utils"
)

// listCache holds per-user listings with a TTL. Expiry is lazy on read;
// any mutation by the user invalidates their entry.
type listCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   utils.Clock
	entries map[string]listEntry
}

type listEntry struct {
	files []models.FileRecord
	at    time.Time
}

func newListCache(ttl time.Duration, clock utils.Clock) *listCache {
	return &listCache{ttl: ttl, clock: clock, entries: make(map[string]listEntry)}
}

func (c *listCache) get(userID string) ([]models.FileRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[userID]
	if !ok {
		return nil, false
	}
	if c.clock.Now().Sub(entry.at) > c.ttl {
		delete(c.entries, userID)
		return nil, false
	}
	out := make([]models.FileRecord, len(entry.files))
	copy(out, entry.files)
	return out, true
}

func (c *listCache) put(userID string, files []models.FileRecord) {
	kept := make([]models.FileRecord, len(files))
	copy(kept, files)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = listEntry{files: kept, at: c.clock.Now()}
}

func (c *listCache) invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}

// List returns the caller's active files, newest first, without content.
// Row and column counts ride along as columns derived at save time.
func (s *Store) List(ctx context.Context, p Principal) ([]models.FileRecord, error) {
	if err := s.requireAuth(p, ratelimit.ActionLoad); err != nil {
		return nil, err
	}
	return s.listActive(ctx, p)
}

// Search filters the (possibly cached) listing by case-insensitive substring
// over name, description, and tags. Terms shorter than 2 characters are
// rejected before any backend work.
func (s *Store) Search(ctx context.Context, p Principal, term string) ([]models.FileRecord, error) {
	if err := s.requireAuth(p, ratelimit.ActionLoad); err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(term))
	if utf8.RuneCountInString(needle) < 2 {
		return nil, types.E(types.KindInvalidQuery, "search term must be at least 2 characters")
	}

	files, err := s.listActive(ctx, p)
	if err != nil {
		return nil, err
	}

	matches := make([]models.FileRecord, 0, len(files))
	for _, f := range files {
		if matchesTerm(&f, needle) {
			matches = append(matches, f)
		}
	}
	return matches, nil
}

func matchesTerm(f *models.FileRecord, needle string) bool {
	if strings.Contains(strings.ToLower(f.Name), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(f.Description), needle) {
		return true
	}
	for _, tag := range f.TagList() {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

func (s *Store) listActive(ctx context.Context, p Principal) ([]models.FileRecord, error) {
	if files, ok := s.lists.get(p.UserID); ok {
		return files, nil
	}

	var files []models.FileRecord
	err := s.db.WithContext(ctx).
		Omit("content").
		Where("user_id = ? AND is_active = ?", p.UserID, true).
		Order("updated_at DESC").
		Find(&files).Error
	if err != nil {
		return nil, types.Wrap(types.KindBackendUnavailable, err, "file listing failed")
	}

	s.lists.put(p.UserID, files)
	return files, nil
}
