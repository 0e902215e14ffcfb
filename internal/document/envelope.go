package document

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/localnerve/tabledit/internal/types"
)

// ExportFormatPrefix identifies tabledit JSON exports across schema revisions.
const ExportFormatPrefix = "tabledit-json-"

// ExportFormatV1 is the current export format tag.
const ExportFormatV1 = "tabledit-json-v1"

// ExportEnvelope wraps a TableDocument for file export and re-import.
type ExportEnvelope struct {
	ExportFormat string         `json:"exportFormat"`
	Name         string         `json:"name"`
	Data         *TableDocument `json:"data"`
	ExportedAt   time.Time      `json:"exportedAt"`
	Version      string         `json:"version"`
}

// Export serializes a document into the v1 envelope.
func Export(name string, doc *TableDocument, now time.Time) ([]byte, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	env := ExportEnvelope{
		ExportFormat: ExportFormatV1,
		Name:         name,
		Data:         doc,
		ExportedAt:   now.UTC(),
		Version:      SchemaVersion,
	}
	return json.MarshalIndent(env, "", "  ")
}

// Import parses an exported payload. Payloads lacking a recognized
// exportFormat prefix are rejected before any content inspection.
func Import(payload []byte) (*ExportEnvelope, error) {
	var env ExportEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, types.Wrap(types.KindInvalidDocument, err, "payload is not valid JSON")
	}
	if !strings.HasPrefix(env.ExportFormat, ExportFormatPrefix) {
		return nil, types.E(types.KindInvalidDocument,
			"unrecognized export format %q", env.ExportFormat)
	}
	if env.Data == nil {
		return nil, types.E(types.KindInvalidDocument, "export payload has no data")
	}
	if err := env.Data.Normalize().Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}
