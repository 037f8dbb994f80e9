package models

import (
	"encoding/json"
	"fmt"
)

// Record представляет единицу синхронизируемого состояния документа.
// Кроме "id" и "typeName" содержимое непрозрачно для слоя синхронизации.
// После прохождения через JSON все числа в записи имеют тип float64.
type Record map[string]any

// Имена служебных полей записи
const (
	FieldID       = "id"
	FieldTypeName = "typeName"
)

// Типы записей, которые различает слой синхронизации
const (
	TypeShape            = "shape"
	TypeInstancePresence = "instance_presence"
	TypeDocument         = "document"
	TypePage             = "page"
)

// ID returns the record id or an empty string.
func (r Record) ID() string {
	id, _ := r[FieldID].(string)
	return id
}

// TypeName returns the record discriminant or an empty string.
func (r Record) TypeName() string {
	typeName, _ := r[FieldTypeName].(string)
	return typeName
}

// Validate checks that the record can be used as a log value.
func (r Record) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if r.ID() == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRecord)
	}
	if r.TypeName() == "" {
		return fmt.Errorf("%w: record %s has no typeName", ErrInvalidRecord, r.ID())
	}
	return nil
}

// Clone создает глубокую копию записи
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return cloneMap(r)
}

// Equal compares two records structurally. Numbers are compared by value
// regardless of their Go type, so a record built in code equals its JSON round-trip.
func (r Record) Equal(other Record) bool {
	if (r == nil) != (other == nil) {
		return false
	}
	return valuesEqual(map[string]any(r), map[string]any(other))
}

// DecodeRecord parses a JSON object into a Record.
func DecodeRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return r, nil
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Record:
		return Record(cloneMap(t))
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case json.RawMessage:
		out := make(json.RawMessage, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}

// ValuesEqual compares two record values structurally, numbers by value.
func ValuesEqual(a, b any) bool {
	return valuesEqual(a, b)
}

func valuesEqual(a, b any) bool {
	if an, ok := ToFloat(a); ok {
		bn, ok := ToFloat(b)
		return ok && an == bn
	}

	switch at := a.(type) {
	case Record:
		return valuesEqual(map[string]any(at), b)
	case map[string]any:
		var bm map[string]any
		switch bt := b.(type) {
		case Record:
			bm = bt
		case map[string]any:
			bm = bt
		default:
			return false
		}
		if len(at) != len(bm) {
			return false
		}
		for k, av := range at {
			bv, ok := bm[k]
			if !ok || !valuesEqual(av, bv) {
				return false
			}
		}
		return true
	case []any:
		bs, ok := b.([]any)
		if !ok || len(at) != len(bs) {
			return false
		}
		for i := range at {
			if !valuesEqual(at[i], bs[i]) {
				return false
			}
		}
		return true
	case []string:
		bs, ok := b.([]string)
		if !ok || len(at) != len(bs) {
			return false
		}
		for i := range at {
			if at[i] != bs[i] {
				return false
			}
		}
		return true
	case string:
		bs, ok := b.(string)
		return ok && at == bs
	case bool:
		bb, ok := b.(bool)
		return ok && at == bb
	case nil:
		return b == nil
	default:
		return fmt.Sprint(a) == fmt.Sprint(b)
	}
}

// ToFloat converts any Go or JSON number to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
