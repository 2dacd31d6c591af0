package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dshills/colstore/internal/naming"
	"github.com/dshills/colstore/pkg/types"
)

// timeLayout is the fixed-width ISO-8601 form used for all stored dates.
// Fixed width keeps lexicographic and chronological order identical, which
// the time-range and cursor predicates rely on.
const timeLayout = "2006-01-02T15:04:05.000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func tableFor(collection string) string {
	return naming.ToTableName(collection)
}

// encodeValue converts a logical field value to its physical column value
func encodeValue(f *types.SchemaField, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Type {
	case types.FieldBoolean:
		switch b := v.(type) {
		case bool:
			if b {
				return int64(1), nil
			}
			return int64(0), nil
		case int64:
			return b, nil
		case float64:
			return int64(b), nil
		}
		return nil, fmt.Errorf("field %s: cannot encode %T as boolean", f.Name, v)
	case types.FieldNumber:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
		return nil, fmt.Errorf("field %s: cannot encode %T as number", f.Name, v)
	case types.FieldDate:
		switch d := v.(type) {
		case time.Time:
			return formatTime(d), nil
		case string:
			// Accept already-serialized dates, normalized to the fixed layout
			t, err := parseTime(d)
			if err != nil {
				return nil, fmt.Errorf("field %s: invalid date %q: %w", f.Name, d, err)
			}
			return formatTime(t), nil
		}
		return nil, fmt.Errorf("field %s: cannot encode %T as date", f.Name, v)
	case types.FieldJSON:
		if raw, ok := v.(json.RawMessage); ok {
			return string(raw), nil
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		return string(data), nil
	case types.FieldUUID, types.FieldString:
		switch s := v.(type) {
		case string:
			return s, nil
		case []byte:
			return string(s), nil
		}
		return nil, fmt.Errorf("field %s: cannot encode %T as %s", f.Name, v, f.Type)
	}
	return nil, fmt.Errorf("field %s: unsupported type %q", f.Name, f.Type)
}

// decodeValue coerces a physical column value back to its logical type.
// JSON parse failures are explicit errors naming the field; they are never
// silently nulled.
func decodeValue(collection string, f *types.SchemaField, recordID string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Type {
	case types.FieldBoolean:
		switch b := v.(type) {
		case int64:
			return b != 0, nil
		case bool:
			return b, nil
		}
		return nil, decodeErr(collection, f.Name, recordID, fmt.Sprintf("unexpected boolean representation %T", v))
	case types.FieldNumber:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		}
		return nil, decodeErr(collection, f.Name, recordID, fmt.Sprintf("unexpected number representation %T", v))
	case types.FieldDate:
		s, ok := textValue(v)
		if !ok {
			return nil, decodeErr(collection, f.Name, recordID, fmt.Sprintf("unexpected date representation %T", v))
		}
		t, err := parseTime(s)
		if err != nil {
			return nil, decodeErr(collection, f.Name, recordID, err.Error())
		}
		return t, nil
	case types.FieldJSON:
		s, ok := textValue(v)
		if !ok {
			return nil, decodeErr(collection, f.Name, recordID, fmt.Sprintf("unexpected json representation %T", v))
		}
		var out any
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, decodeErr(collection, f.Name, recordID, err.Error())
		}
		return out, nil
	case types.FieldUUID, types.FieldString:
		s, ok := textValue(v)
		if !ok {
			return nil, decodeErr(collection, f.Name, recordID, fmt.Sprintf("unexpected text representation %T", v))
		}
		return s, nil
	}
	return nil, decodeErr(collection, f.Name, recordID, fmt.Sprintf("unsupported field type %q", f.Type))
}

func textValue(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return "", false
}

func decodeErr(collection, field, recordID, detail string) error {
	return fmt.Errorf("decode %s.%s (record %s): %s", collection, field, recordID, detail)
}

// decodeRecord maps a physical row back into the record envelope.
// The record id is duplicated into Data for entity-object compatibility,
// and CreatedAt is always the stored value.
func decodeRecord(collection string, schema *types.CollectionSchema, row map[string]any) (*types.Record, error) {
	id, ok := textValue(row["id"])
	if !ok {
		return nil, fmt.Errorf("decode %s: row has no id", collection)
	}

	rec := &types.Record{
		ID:         id,
		Collection: collection,
		Data:       map[string]any{"id": id},
	}

	if s, ok := textValue(row["created_at"]); ok {
		t, err := parseTime(s)
		if err != nil {
			return nil, decodeErr(collection, "createdAt", id, err.Error())
		}
		rec.Metadata.CreatedAt = t
	}
	if s, ok := textValue(row["updated_at"]); ok {
		t, err := parseTime(s)
		if err != nil {
			return nil, decodeErr(collection, "updatedAt", id, err.Error())
		}
		rec.Metadata.UpdatedAt = t
	}
	switch ver := row["version"].(type) {
	case int64:
		rec.Metadata.Version = ver
	case float64:
		rec.Metadata.Version = int64(ver)
	}

	for i := range schema.Fields {
		f := &schema.Fields[i]
		col := naming.ToColumn(f.Name)
		raw, present := row[col]
		if !present {
			continue
		}
		val, err := decodeValue(collection, f, id, raw)
		if err != nil {
			return nil, err
		}
		rec.Data[f.Name] = val
	}
	return rec, nil
}
