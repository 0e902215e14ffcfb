package document

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/localnerve/tabledit/internal/types"
)

func sampleDocument() *TableDocument {
	return &TableDocument{
		Headers: []HeaderRecord{
			{Text: "ID", BackgroundColor: "#1F2937", Color: "#FFFFFF"},
			{Text: "Name"},
		},
		Rows: []RowRecord{
			{Cells: []CellRecord{
				{Value: "1", Readonly: true},
				{Value: "Ada", BackgroundColor: "#FEF3C7"},
			}},
			{Cells: []CellRecord{
				{Value: "2", Readonly: true},
				{Value: "Grace"},
			}, Styles: &RowStyles{BackgroundColor: "#DBEAFE"}},
		},
	}
}

func TestValidate(t *testing.T) {
	doc := sampleDocument()
	if err := doc.Validate(); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}

	empty := &TableDocument{Headers: []HeaderRecord{}, Rows: []RowRecord{}}
	if err := empty.Validate(); err != nil {
		t.Errorf("empty table should be valid: %v", err)
	}

	noHeaders := &TableDocument{Rows: []RowRecord{}}
	if err := noHeaders.Validate(); !types.IsKind(err, types.KindInvalidDocument) {
		t.Errorf("missing headers: expected invalid_document, got %v", err)
	}

	noRows := &TableDocument{Headers: []HeaderRecord{}}
	if err := noRows.Validate(); !types.IsKind(err, types.KindInvalidDocument) {
		t.Errorf("missing rows: expected invalid_document, got %v", err)
	}

	ragged := sampleDocument()
	ragged.Rows[0].Cells = ragged.Rows[0].Cells[:1]
	if err := ragged.Validate(); !types.IsKind(err, types.KindInvalidDocument) {
		t.Errorf("ragged row: expected invalid_document, got %v", err)
	}
}

func TestNormalizePadsAndTruncates(t *testing.T) {
	doc := &TableDocument{
		Headers: []HeaderRecord{{Text: "A"}, {Text: "B"}},
		Rows: []RowRecord{
			{Cells: []CellRecord{{Value: "short"}}},
			{Cells: []CellRecord{{Value: "x"}, {Value: "y"}, {Value: "extra"}}},
		},
	}

	doc.Normalize()

	if len(doc.Rows[0].Cells) != 2 {
		t.Fatalf("short row not padded: %d cells", len(doc.Rows[0].Cells))
	}
	if doc.Rows[0].Cells[1].Value != "" {
		t.Errorf("pad cell should be empty, got %q", doc.Rows[0].Cells[1].Value)
	}
	if len(doc.Rows[1].Cells) != 2 {
		t.Fatalf("long row not truncated: %d cells", len(doc.Rows[1].Cells))
	}
	if err := doc.Validate(); err != nil {
		t.Errorf("normalized document should validate: %v", err)
	}
}

func TestStamp(t *testing.T) {
	doc := sampleDocument()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	now := created.Add(48 * time.Hour)

	doc.Stamp(created, now, "grid")

	if doc.Metadata.RowCount != 2 || doc.Metadata.ColumnCount != 2 {
		t.Errorf("unexpected counts: %+v", doc.Metadata)
	}
	if !doc.Metadata.CreatedAt.Equal(created) || !doc.Metadata.LastModified.Equal(now) {
		t.Errorf("unexpected timestamps: %+v", doc.Metadata)
	}
	if doc.Metadata.Version != SchemaVersion || doc.Metadata.Source != "grid" {
		t.Errorf("unexpected version/source: %+v", doc.Metadata)
	}

	// Zero createdAt falls back to now.
	doc.Stamp(time.Time{}, now, "grid")
	if !doc.Metadata.CreatedAt.Equal(now) {
		t.Errorf("zero createdAt should become now, got %v", doc.Metadata.CreatedAt)
	}
}

func TestCloneIsDeep(t *testing.T) {
	doc := sampleDocument()
	clone := doc.Clone()

	clone.Rows[0].Cells[1].Value = "changed"
	clone.Rows[1].Styles.BackgroundColor = "#000000"

	if doc.Rows[0].Cells[1].Value == "changed" {
		t.Error("clone shares cell storage with original")
	}
	if doc.Rows[1].Styles.BackgroundColor == "#000000" {
		t.Error("clone shares row styles with original")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	doc := sampleDocument()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	payload, err := Export("Quarterly", doc, now)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.Contains(string(payload), ExportFormatV1) {
		t.Error("payload missing export format tag")
	}

	env, err := Import(payload)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if env.Name != "Quarterly" {
		t.Errorf("name lost: %q", env.Name)
	}
	if len(env.Data.Headers) != 2 || len(env.Data.Rows) != 2 {
		t.Errorf("shape lost: %d headers, %d rows", len(env.Data.Headers), len(env.Data.Rows))
	}
	if env.Data.Rows[0].Cells[0].Value != "1" || !env.Data.Rows[0].Cells[0].Readonly {
		t.Errorf("cell attributes lost: %+v", env.Data.Rows[0].Cells[0])
	}
}

func TestImportRejectsForeignPayloads(t *testing.T) {
	cases := map[string]string{
		"no tag":      `{"name":"x","data":{"headers":[],"rows":[]}}`,
		"foreign tag": `{"exportFormat":"other-json-v9","name":"x","data":{"headers":[],"rows":[]}}`,
		"no data":     `{"exportFormat":"tabledit-json-v1","name":"x"}`,
		"not json":    `<html>`,
	}
	for name, payload := range cases {
		if _, err := Import([]byte(payload)); !types.IsKind(err, types.KindInvalidDocument) {
			t.Errorf("%s: expected invalid_document, got %v", name, err)
		}
	}
}

func TestImportAcceptsFutureMinorFormats(t *testing.T) {
	payload := `{"exportFormat":"tabledit-json-v2","name":"x","data":{"headers":[],"rows":[]}}`
	if _, err := Import([]byte(payload)); err != nil {
		t.Errorf("prefix-matched format should import: %v", err)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	doc := sampleDocument()

	data, err := WriteCSV(doc)
	if err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	back, err := ReadCSV(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	if len(back.Headers) != 2 || back.Headers[1].Text != "Name" {
		t.Errorf("headers lost: %+v", back.Headers)
	}
	if len(back.Rows) != 2 || back.Rows[1].Cells[1].Value != "Grace" {
		t.Errorf("values lost: %+v", back.Rows)
	}
	if !back.Rows[0].Cells[0].Readonly {
		t.Error("first column should import readonly")
	}
}

func TestReadCSVRejectsEmptyPayload(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("")); !types.IsKind(err, types.KindInvalidDocument) {
		t.Errorf("expected invalid_document, got %v", err)
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	doc := sampleDocument()

	data, err := WriteXLSX(doc)
	if err != nil {
		t.Fatalf("WriteXLSX failed: %v", err)
	}

	back, err := ReadXLSX(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadXLSX failed: %v", err)
	}

	if len(back.Headers) != 2 || back.Headers[0].Text != "ID" {
		t.Errorf("headers lost: %+v", back.Headers)
	}
	if len(back.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(back.Rows))
	}
	if back.Rows[0].Cells[1].Value != "Ada" || back.Rows[1].Cells[1].Value != "Grace" {
		t.Errorf("values lost: %+v", back.Rows)
	}
	if !back.Rows[0].Cells[0].Readonly {
		t.Error("first column should import readonly")
	}
	if err := back.Validate(); err != nil {
		t.Errorf("imported workbook should validate: %v", err)
	}
}

func TestReadXLSXRejectsGarbage(t *testing.T) {
	if _, err := ReadXLSX(strings.NewReader("not a workbook")); !types.IsKind(err, types.KindInvalidDocument) {
		t.Errorf("expected invalid_document, got %v", err)
	}
}
