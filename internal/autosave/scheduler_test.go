package autosave

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/localnerve/tabledit/internal/document"
	"github.com/localnerve/tabledit/internal/localcache"
	"github.com/localnerve/tabledit/internal/models"
	"github.com/localnerve/tabledit/internal/store"
	"github.com/localnerve/tabledit/internal/testutil"
	"github.com/localnerve/tabledit/internal/types"
)

type savedCall struct {
	name    string
	doc     *document.TableDocument
	version uint64
}

type fakeRemote struct {
	creates  []savedCall
	updates  []savedCall
	version  uint64
	failWith error
}

func (r *fakeRemote) Create(_ context.Context, name string, doc *document.TableDocument) (string, error) {
	if r.failWith != nil {
		return "", r.failWith
	}
	r.creates = append(r.creates, savedCall{name: name, doc: doc.Clone()})
	r.version = 1
	return fmt.Sprintf("file-%d", len(r.creates)), nil
}

func (r *fakeRemote) Update(_ context.Context, _, name string, doc *document.TableDocument, expectedVersion uint64) (uint64, error) {
	if r.failWith != nil {
		return 0, r.failWith
	}
	if expectedVersion != r.version {
		return 0, types.E(types.KindConflict, "version %d expected %d", r.version, expectedVersion)
	}
	r.updates = append(r.updates, savedCall{name: name, doc: doc.Clone(), version: expectedVersion})
	r.version++
	return r.version, nil
}

type fakeNet struct {
	online bool
}

func (n *fakeNet) Online() bool { return n.online }

func gridWithValue(value string) *document.TableDocument {
	return &document.TableDocument{
		Headers: []document.HeaderRecord{{Text: "A"}},
		Rows: []document.RowRecord{
			{Cells: []document.CellRecord{{Value: value}}},
		},
	}
}

type harness struct {
	remote *fakeRemote
	net    *fakeNet
	cache  *localcache.Cache
	store  *localcache.MemoryStorage
	sched  *Scheduler
	grid   *document.TableDocument
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := testutil.FixedClock()
	h := &harness{
		remote: &fakeRemote{},
		net:    &fakeNet{online: true},
		store:  localcache.NewMemoryStorage(),
		grid:   gridWithValue("v1"),
	}
	h.cache = localcache.New(h.store, clock, localcache.Config{})
	h.sched = New(h.remote, h.net, h.cache, func() *document.TableDocument {
		if h.grid == nil {
			return nil
		}
		return h.grid.Clone()
	}, clock, Config{MaxPending: 3})
	h.sched.SetName("Worksheet")
	return h
}

func TestDisabledTickDoesNothing(t *testing.T) {
	h := newHarness(t)
	h.sched.MarkDirty()

	h.sched.Tick(context.Background())
	if len(h.remote.creates) != 0 {
		t.Errorf("disabled scheduler saved: %+v", h.remote.creates)
	}
}

func TestEnableRequiresName(t *testing.T) {
	h := newHarness(t)
	h.sched.SetName("")
	if err := h.sched.Enable(); !types.IsKind(err, types.KindInvalidName) {
		t.Errorf("expected invalid_name, got %v", err)
	}
	h.sched.SetName("Worksheet")
	if err := h.sched.Enable(); err != nil {
		t.Errorf("enable with name failed: %v", err)
	}
}

func TestCleanTickDoesNothing(t *testing.T) {
	h := newHarness(t)
	if err := h.sched.Enable(); err != nil {
		t.Fatal(err)
	}

	h.sched.Tick(context.Background())
	if len(h.remote.creates) != 0 {
		t.Errorf("clean scheduler saved: %+v", h.remote.creates)
	}
}

func TestEmptyGridNeverSaved(t *testing.T) {
	h := newHarness(t)
	if err := h.sched.Enable(); err != nil {
		t.Fatal(err)
	}
	h.grid = &document.TableDocument{
		Headers: []document.HeaderRecord{{Text: "A"}},
		Rows:    []document.RowRecord{},
	}
	h.sched.MarkDirty()

	h.sched.Tick(context.Background())
	if len(h.remote.creates) != 0 {
		t.Errorf("empty grid was saved: %+v", h.remote.creates)
	}
	if !h.sched.Dirty() {
		t.Error("dirty flag should survive a skipped save")
	}
}

func TestFirstSaveCreatesThenUpdates(t *testing.T) {
	h := newHarness(t)
	if err := h.sched.Enable(); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	h.sched.MarkDirty()
	h.sched.Tick(ctx)
	if len(h.remote.creates) != 1 {
		t.Fatalf("expected one create, got %d", len(h.remote.creates))
	}
	if h.sched.FileID() == "" || h.sched.Version() != 1 {
		t.Errorf("tracking not updated: id=%q version=%d", h.sched.FileID(), h.sched.Version())
	}
	if h.sched.Dirty() {
		t.Error("dirty flag should clear after a successful save")
	}

	h.grid = gridWithValue("v2")
	h.sched.MarkDirty()
	h.sched.Tick(ctx)
	if len(h.remote.updates) != 1 {
		t.Fatalf("expected one update, got %d", len(h.remote.updates))
	}
	if h.sched.Version() != 2 {
		t.Errorf("version not advanced: %d", h.sched.Version())
	}
	if got := h.remote.updates[0].doc.Rows[0].Cells[0].Value; got != "v2" {
		t.Errorf("update pushed stale content: %q", got)
	}
}

func TestLocalSnapshotPersistedEvenOffline(t *testing.T) {
	h := newHarness(t)
	if err := h.sched.Enable(); err != nil {
		t.Fatal(err)
	}
	h.net.online = false

	h.sched.MarkDirty()
	h.sched.Tick(context.Background())

	snap := h.cache.LoadSnapshot()
	if snap == nil {
		t.Fatal("offline save left no local snapshot")
	}
	if snap.Document.Rows[0].Cells[0].Value != "v1" {
		t.Errorf("snapshot content wrong: %+v", snap.Document)
	}
	if len(h.remote.creates) != 0 {
		t.Error("offline save reached the remote")
	}
}

func TestOfflineQueueDrainsInOrder(t *testing.T) {
	h := newHarness(t)
	if err := h.sched.Enable(); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	h.net.online = false

	for _, v := range []string{"a", "b", "c"} {
		h.grid = gridWithValue(v)
		h.sched.MarkDirty()
		h.sched.Tick(ctx)
	}
	if h.sched.PendingCount() != 3 {
		t.Fatalf("expected 3 queued saves, got %d", h.sched.PendingCount())
	}

	h.net.online = true
	h.grid = gridWithValue("d")
	h.sched.MarkDirty()
	h.sched.Tick(ctx)

	if h.sched.PendingCount() != 0 {
		t.Errorf("queue not drained: %d left", h.sched.PendingCount())
	}
	// The first queued snapshot creates the file, the rest update in order,
	// and the live snapshot lands last.
	if len(h.remote.creates) != 1 {
		t.Fatalf("expected one create, got %d", len(h.remote.creates))
	}
	got := []string{h.remote.creates[0].doc.Rows[0].Cells[0].Value}
	for _, u := range h.remote.updates {
		got = append(got, u.doc.Rows[0].Cells[0].Value)
	}
	want := []string{"a", "b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("saved %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("saved %v, want %v", got, want)
		}
	}
}

func TestReconnectDrainsWithoutNewEdits(t *testing.T) {
	h := newHarness(t)
	if err := h.sched.Enable(); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	h.net.online = false

	for _, v := range []string{"a", "b"} {
		h.grid = gridWithValue(v)
		h.sched.MarkDirty()
		h.sched.Tick(ctx)
	}
	if h.sched.PendingCount() != 2 {
		t.Fatalf("expected 2 queued saves, got %d", h.sched.PendingCount())
	}

	// Connectivity returns but the user makes no further edits. The next
	// tick must still replay the backlog.
	h.net.online = true
	h.sched.Tick(ctx)

	if h.sched.PendingCount() != 0 {
		t.Errorf("queue not drained on reconnect: %d left", h.sched.PendingCount())
	}
	if len(h.remote.creates) != 1 || len(h.remote.updates) != 1 {
		t.Fatalf("expected create+update, got %d creates %d updates", len(h.remote.creates), len(h.remote.updates))
	}
	if h.remote.creates[0].doc.Rows[0].Cells[0].Value != "a" ||
		h.remote.updates[0].doc.Rows[0].Cells[0].Value != "b" {
		t.Error("backlog replayed out of order")
	}
	if h.sched.LastError() != nil {
		t.Errorf("drain-only pass left an error: %v", h.sched.LastError())
	}
}

func TestOfflineQueueDropsOldest(t *testing.T) {
	h := newHarness(t)
	if err := h.sched.Enable(); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	h.net.online = false

	for _, v := range []string{"a", "b", "c", "d", "e"} {
		h.grid = gridWithValue(v)
		h.sched.MarkDirty()
		h.sched.Tick(ctx)
	}
	if h.sched.PendingCount() != 3 {
		t.Fatalf("expected queue bounded at 3, got %d", h.sched.PendingCount())
	}

	h.net.online = true
	h.sched.MarkDirty()
	h.sched.Tick(ctx)

	// Oldest two were dropped; c is the create.
	if len(h.remote.creates) != 1 || h.remote.creates[0].doc.Rows[0].Cells[0].Value != "c" {
		t.Errorf("unexpected create: %+v", h.remote.creates)
	}
}

func TestDrainStopsAtFirstFailure(t *testing.T) {
	h := newHarness(t)
	if err := h.sched.Enable(); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	h.net.online = false

	for _, v := range []string{"a", "b"} {
		h.grid = gridWithValue(v)
		h.sched.MarkDirty()
		h.sched.Tick(ctx)
	}

	h.net.online = true
	h.remote.failWith = types.E(types.KindBackendUnavailable, "down")
	h.sched.MarkDirty()
	h.sched.Tick(ctx)

	if h.sched.PendingCount() != 2 {
		t.Errorf("failed drain should keep the queue, got %d", h.sched.PendingCount())
	}
	if h.sched.LastError() == nil {
		t.Error("drain failure not surfaced")
	}

	h.remote.failWith = nil
	h.sched.MarkDirty()
	h.sched.Tick(ctx)
	if h.sched.PendingCount() != 0 {
		t.Errorf("queue not drained after recovery: %d left", h.sched.PendingCount())
	}
	if h.sched.LastError() != nil {
		t.Errorf("error not cleared by successful save: %v", h.sched.LastError())
	}
}

func TestRateLimitedTickDefersSilently(t *testing.T) {
	h := newHarness(t)
	if err := h.sched.Enable(); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	h.remote.failWith = types.E(types.KindRateLimited, "slow down")
	h.sched.MarkDirty()
	h.sched.Tick(ctx)

	if h.sched.LastError() != nil {
		t.Errorf("rate limit should defer silently, got %v", h.sched.LastError())
	}
	if !h.sched.Dirty() {
		t.Error("dirty flag should survive a deferred save")
	}
	if h.sched.PendingCount() != 0 {
		t.Error("rate limited save must not queue")
	}

	h.remote.failWith = nil
	h.sched.Tick(ctx)
	if len(h.remote.creates) != 1 {
		t.Errorf("deferred save never retried: %d creates", len(h.remote.creates))
	}
}

func TestSaveNowReportsRateLimit(t *testing.T) {
	h := newHarness(t)
	h.remote.failWith = types.E(types.KindRateLimited, "slow down")

	if err := h.sched.SaveNow(context.Background()); !types.IsKind(err, types.KindRateLimited) {
		t.Errorf("manual save should report the limit, got %v", err)
	}
}

func TestSaveNowWorksWhileDisabled(t *testing.T) {
	h := newHarness(t)

	if err := h.sched.SaveNow(context.Background()); err != nil {
		t.Fatalf("manual save failed: %v", err)
	}
	if len(h.remote.creates) != 1 {
		t.Errorf("manual save did not reach the remote: %d creates", len(h.remote.creates))
	}
}

func TestEnableRequiresAuth(t *testing.T) {
	clock := testutil.FixedClock()
	signedIn := false
	sched := New(&fakeRemote{}, &fakeNet{online: true}, nil, func() *document.TableDocument {
		return gridWithValue("v1")
	}, clock, Config{Authenticated: func() bool { return signedIn }})
	sched.SetName("Worksheet")

	if err := sched.Enable(); !types.IsKind(err, types.KindUnauthenticated) {
		t.Errorf("expected unauthenticated, got %v", err)
	}
	signedIn = true
	if err := sched.Enable(); err != nil {
		t.Errorf("enable while signed in failed: %v", err)
	}
}

func TestAuthLossDisablesScheduler(t *testing.T) {
	h := newHarness(t)
	if err := h.sched.Enable(); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	// Session expired between ticks; the remote rejects the push.
	h.remote.failWith = types.E(types.KindUnauthenticated, "session expired")
	h.sched.MarkDirty()
	h.sched.Tick(ctx)

	if h.sched.Enabled() {
		t.Error("scheduler still enabled after auth loss")
	}
	if !types.IsKind(h.sched.LastError(), types.KindUnauthenticated) {
		t.Errorf("expected unauthenticated in LastError, got %v", h.sched.LastError())
	}
	if !h.sched.Dirty() {
		t.Error("unsaved changes must stay dirty for after sign-in")
	}
}

func TestStoreRemoteEndToEnd(t *testing.T) {
	clock := testutil.FixedClock()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := db.AutoMigrate(&models.FileRecord{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	s := store.New(db, clock, store.Config{})
	owner := store.Principal{UserID: "00000000-0000-0000-0000-00000000000a", Email: "alice@example.com", EmailVerified: true}
	remote := &StoreRemote{Store: s, Principal: owner}

	grid := gridWithValue("v1")
	cache := localcache.New(localcache.NewMemoryStorage(), clock, localcache.Config{})
	sched := New(remote, &fakeNet{online: true}, cache, func() *document.TableDocument {
		return grid.Clone()
	}, clock, Config{})
	sched.SetName("Worksheet")
	if err := sched.Enable(); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	sched.MarkDirty()
	sched.Tick(ctx)
	if sched.FileID() == "" || sched.Version() != 1 {
		t.Fatalf("create not tracked: id=%q version=%d err=%v", sched.FileID(), sched.Version(), sched.LastError())
	}

	grid = gridWithValue("v2")
	sched.MarkDirty()
	sched.Tick(ctx)
	if sched.Version() != 2 {
		t.Fatalf("update not tracked: version=%d err=%v", sched.Version(), sched.LastError())
	}

	rec, err := s.Read(ctx, owner, sched.FileID())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	doc, err := rec.Document()
	if err != nil {
		t.Fatalf("Document decode failed: %v", err)
	}
	if rec.Version != 2 || doc.Rows[0].Cells[0].Value != "v2" {
		t.Errorf("stored state wrong: version=%d value=%q", rec.Version, doc.Rows[0].Cells[0].Value)
	}
}

func TestConflictSurfacesAndStaysDirty(t *testing.T) {
	h := newHarness(t)
	if err := h.sched.Enable(); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	h.sched.MarkDirty()
	h.sched.Tick(ctx)

	// Another writer advanced the remote version.
	h.remote.version = 5
	h.grid = gridWithValue("v2")
	h.sched.MarkDirty()
	h.sched.Tick(ctx)

	if !types.IsKind(h.sched.LastError(), types.KindConflict) {
		t.Errorf("expected conflict in LastError, got %v", h.sched.LastError())
	}
	if !h.sched.Dirty() {
		t.Error("conflicting save must leave the grid dirty")
	}
}
