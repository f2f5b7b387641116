package core

// convert.go moves reports between dtaselect values and their stored forms:
// pgtype values for report metadata, and JSON for schemas and row cells.
//
// A row's cells are stored as a JSON array holding each cell's report
// rendering, or null for a cell a short row left unfilled. Renderings parse
// back to the identical value, so a stored report exports byte for byte.

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/filterframes/internal/dtaselect"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgUUID converts a string to pgtype.UUID.
// Returns invalid if the string is empty or not a valid UUID.
func ToPgUUID(s string) pgtype.UUID {
	if s == "" {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

// PgUUIDToString converts a pgtype.UUID to its string representation.
// Returns empty string if the UUID is invalid.
func PgUUIDToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// ToPgTimestamptz converts a time to pgtype.Timestamptz. The zero time is
// invalid.
func ToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

// EncodeCells renders a row's cells as a JSON array.
func EncodeCells(row dtaselect.Row) ([]byte, error) {
	out := make([]*string, len(row.Cells))
	for i, c := range row.Cells {
		if c.Valid {
			s := c.Format()
			out[i] = &s
		}
	}
	return json.Marshal(out)
}

// DecodeCells parses a JSON cell array against the table's fields.
func DecodeCells(fields []dtaselect.Field, data []byte) ([]dtaselect.Value, error) {
	var raw []*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode cells: %w", err)
	}
	if len(raw) != len(fields) {
		return nil, fmt.Errorf("decode cells: got %d cells for %d columns", len(raw), len(fields))
	}

	cells := make([]dtaselect.Value, len(raw))
	for i, s := range raw {
		f := fields[i]
		if s == nil {
			cells[i] = dtaselect.NullValue(f.Kind)
			continue
		}
		v, ok := dtaselect.ParseValue(*s, f.Kind)
		if !ok {
			return nil, &dtaselect.CoercionError{Column: f.Name, Row: -1, Value: *s, Kind: f.Kind}
		}
		cells[i] = v
	}
	return cells, nil
}

// EncodeSchema renders a table's fields as JSON.
func EncodeSchema(s dtaselect.Schema) ([]byte, error) {
	return json.Marshal(s.Fields)
}

// DecodeSchema parses fields written by EncodeSchema.
func DecodeSchema(data []byte) (dtaselect.Schema, error) {
	var fields []dtaselect.Field
	if err := json.Unmarshal(data, &fields); err != nil {
		return dtaselect.Schema{}, fmt.Errorf("decode schema: %w", err)
	}
	return dtaselect.NewSchemaFrom(fields), nil
}
