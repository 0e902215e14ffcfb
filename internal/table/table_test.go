package table

import (
	"reflect"
	"testing"
	"time"

	"github.com/localnerve/tabledit/internal/document"
	"github.com/localnerve/tabledit/internal/testutil"
	"github.com/localnerve/tabledit/internal/types"
)

func sampleDoc() *document.TableDocument {
	return &document.TableDocument{
		Headers: []document.HeaderRecord{
			{Text: "ID", BackgroundColor: "#111827", Color: "#F9FAFB"},
			{Text: "Name"},
			{Text: "Status"},
		},
		Rows: []document.RowRecord{
			{Cells: []document.CellRecord{
				{Value: "1", Readonly: true},
				{Value: "Ada"},
				{Value: "active", Color: "#16A34A"},
			}},
			{Cells: []document.CellRecord{
				{Value: "2", Readonly: true},
				{Value: "Grace"},
				{Value: "paused"},
			}, Styles: &document.RowStyles{BackgroundColor: "#FEF9C3"}},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	clock := testutil.FixedClock()
	m := New(clock)

	src := sampleDoc()
	if err := m.Load(src); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	snap := m.Snapshot()

	if !reflect.DeepEqual(snap.Headers, src.Headers) {
		t.Errorf("headers changed:\n got %+v\nwant %+v", snap.Headers, src.Headers)
	}
	if !reflect.DeepEqual(snap.Rows, src.Rows) {
		t.Errorf("rows changed:\n got %+v\nwant %+v", snap.Rows, src.Rows)
	}

	// Load the snapshot into a second model and compare again, ignoring the
	// recomputed metadata timestamps.
	m2 := New(clock)
	if err := m2.Load(snap); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	snap2 := m2.Snapshot()
	if !reflect.DeepEqual(snap2.Headers, snap.Headers) || !reflect.DeepEqual(snap2.Rows, snap.Rows) {
		t.Error("second round trip not stable")
	}
}

func TestSnapshotMetadata(t *testing.T) {
	clock := testutil.FixedClock()
	m := New(clock)
	if err := m.Load(sampleDoc()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	clock.Advance(90 * time.Second)
	snap := m.Snapshot()

	if snap.Metadata.RowCount != 2 || snap.Metadata.ColumnCount != 3 {
		t.Errorf("derived counts wrong: %+v", snap.Metadata)
	}
	if !snap.Metadata.LastModified.Equal(clock.Now()) {
		t.Errorf("lastModified not recomputed: %v", snap.Metadata.LastModified)
	}
	if snap.Metadata.Source != "tabledit" || snap.Metadata.Version != document.SchemaVersion {
		t.Errorf("source/version wrong: %+v", snap.Metadata)
	}
}

func TestSnapshotEmptyGrid(t *testing.T) {
	m := New(testutil.FixedClock())
	snap := m.Snapshot()

	if snap.Headers == nil || snap.Rows == nil {
		t.Fatal("empty grid must serialize to empty, non-nil slices")
	}
	if len(snap.Headers) != 0 || len(snap.Rows) != 0 {
		t.Errorf("expected empty document, got %d headers %d rows", len(snap.Headers), len(snap.Rows))
	}
	if err := snap.Validate(); err != nil {
		t.Errorf("empty snapshot should validate: %v", err)
	}
}

func TestSnapshotRepairsRaggedRows(t *testing.T) {
	m := New(testutil.FixedClock())
	m.SetHeaders([]document.HeaderRecord{{Text: "A"}, {Text: "B"}})
	m.AppendRow([]document.CellRecord{{Value: "only"}})
	m.AppendRow([]document.CellRecord{{Value: "1"}, {Value: "2"}, {Value: "extra"}})

	snap := m.Snapshot()

	for i, row := range snap.Rows {
		if len(row.Cells) != 2 {
			t.Errorf("row %d has %d cells, want 2", i, len(row.Cells))
		}
	}
	if snap.Rows[0].Cells[1].Value != "" {
		t.Errorf("pad cell not empty: %q", snap.Rows[0].Cells[1].Value)
	}
}

func TestLoadRejectsPartialDocuments(t *testing.T) {
	m := New(testutil.FixedClock())

	if err := m.Load(nil); !types.IsKind(err, types.KindInvalidDocument) {
		t.Errorf("nil document: expected invalid_document, got %v", err)
	}
	if err := m.Load(&document.TableDocument{Rows: []document.RowRecord{}}); !types.IsKind(err, types.KindInvalidDocument) {
		t.Errorf("missing headers: expected invalid_document, got %v", err)
	}
	if err := m.Load(&document.TableDocument{Headers: []document.HeaderRecord{}}); !types.IsKind(err, types.KindInvalidDocument) {
		t.Errorf("missing rows: expected invalid_document, got %v", err)
	}
	if err := m.Load(&document.TableDocument{Headers: []document.HeaderRecord{}, Rows: []document.RowRecord{}}); err != nil {
		t.Errorf("empty table should load: %v", err)
	}
}

func TestLoadReplacesExistingContent(t *testing.T) {
	m := New(testutil.FixedClock())
	if err := m.Load(sampleDoc()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	replacement := &document.TableDocument{
		Headers: []document.HeaderRecord{{Text: "Only"}},
		Rows:    []document.RowRecord{{Cells: []document.CellRecord{{Value: "x"}}}},
	}
	if err := m.Load(replacement); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	if m.ColumnCount() != 1 || m.RowCount() != 1 {
		t.Errorf("old content leaked: %d cols %d rows", m.ColumnCount(), m.RowCount())
	}
}

func TestSetCellHonorsReadonly(t *testing.T) {
	m := New(testutil.FixedClock())
	if err := m.Load(sampleDoc()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := m.SetCell(0, 0, "hacked"); !types.IsKind(err, types.KindForbidden) {
		t.Errorf("readonly cell edit: expected forbidden, got %v", err)
	}
	if err := m.SetCell(0, 1, "Lovelace"); err != nil {
		t.Fatalf("editable cell rejected: %v", err)
	}

	cell, err := m.Cell(0, 1)
	if err != nil || cell.Value != "Lovelace" {
		t.Errorf("edit not applied: %+v %v", cell, err)
	}
}

func TestColorizeRowAndClear(t *testing.T) {
	m := New(testutil.FixedClock())
	if err := m.Load(sampleDoc()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := m.ColorizeRow(0, "#000", "#FFF"); err != nil {
		t.Fatalf("ColorizeRow failed: %v", err)
	}
	snap := m.Snapshot()
	if snap.Rows[0].Styles == nil || snap.Rows[0].Styles.BackgroundColor != "#000" {
		t.Errorf("row styles not serialized: %+v", snap.Rows[0].Styles)
	}

	if err := m.ColorizeRow(0, "", ""); err != nil {
		t.Fatalf("clearing row styles failed: %v", err)
	}
	if snap := m.Snapshot(); snap.Rows[0].Styles != nil {
		t.Error("cleared row styles still serialized")
	}

	m.Clear()
	if m.RowCount() != 0 || m.ColumnCount() != 0 {
		t.Error("Clear left content behind")
	}
}

func TestSetHeadersResizesRows(t *testing.T) {
	m := New(testutil.FixedClock())
	m.SetHeaders([]document.HeaderRecord{{Text: "A"}, {Text: "B"}, {Text: "C"}})
	m.AppendRow([]document.CellRecord{{Value: "1"}, {Value: "2"}, {Value: "3"}})

	m.SetHeaders([]document.HeaderRecord{{Text: "A"}, {Text: "B"}})
	snap := m.Snapshot()
	if len(snap.Rows[0].Cells) != 2 {
		t.Errorf("rows not truncated with headers: %d", len(snap.Rows[0].Cells))
	}

	m.SetHeaders([]document.HeaderRecord{{Text: "A"}, {Text: "B"}, {Text: "C"}, {Text: "D"}})
	snap = m.Snapshot()
	if len(snap.Rows[0].Cells) != 4 {
		t.Errorf("rows not padded with headers: %d", len(snap.Rows[0].Cells))
	}
}
