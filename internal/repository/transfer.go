package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"teamfee/internal/core"
)

// ExportFilename is the suggested name for exported documents.
const ExportFilename = "team-fee-data.json"

// ErrInvalidDocument is returned when an import document is not a JSON object.
var ErrInvalidDocument = errors.New("invalid import document")

// Document is the import/export file format.
type Document struct {
	Teams  []core.Team   `json:"teams"`
	People []core.Person `json:"people"`
}

// ParseDocument decodes an import document. A teams or people field that is
// not an array is read as empty, and array elements that do not decode as an
// object are skipped. Anything that is not a JSON object is rejected.
func ParseDocument(data []byte) (Document, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if fields == nil {
		return Document{}, fmt.Errorf("%w: not an object", ErrInvalidDocument)
	}
	return Document{
		Teams:  decodeList[core.Team](fields["teams"]),
		People: decodeList[core.Person](fields["people"]),
	}, nil
}

func decodeList[T any](raw json.RawMessage) []T {
	out := []T{}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return out
	}
	for _, item := range items {
		if !bytes.HasPrefix(bytes.TrimSpace(item), []byte("{")) {
			continue
		}
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Export returns the current teams and people as an indented document.
func (r *Repository) Export() ([]byte, error) {
	state, _ := r.Snapshot()
	b, err := json.MarshalIndent(Document{Teams: state.Teams, People: state.People}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return b, nil
}

// WriteExport writes Export to w.
func (r *Repository) WriteExport(w io.Writer) error {
	b, err := r.Export()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// Import replaces all teams and people with the document's contents. A
// document that fails to parse leaves the state untouched.
func (r *Repository) Import(ctx context.Context, data []byte) (Document, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		slog.WarnContext(ctx, "Rejected import document", "error", err, "bytes", len(data))
		return Document{}, err
	}
	if err := r.Replace(ctx, doc.Teams, doc.People); err != nil {
		return Document{}, fmt.Errorf("replace state: %w", err)
	}
	slog.InfoContext(ctx, "Imported document", "teams", len(doc.Teams), "people", len(doc.People))
	return doc, nil
}
