// Package model holds the records and screen definitions shared by the
// gateway, the list controller and the front ends.
package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Placeholders shown for optional fields the backend left out.
const (
	PlaceholderUnknown     = "unknown"
	PlaceholderUnavailable = "unavailable"
)

// Record is one entity row as returned by the backend. Every JSON field is
// kept in Fields; ID mirrors the "_id" field.
type Record struct {
	ID     string
	Fields map[string]any
}

// NewRecord builds a record from an id and a field map. The map is copied.
func NewRecord(id string, fields map[string]any) Record {
	r := Record{ID: id, Fields: make(map[string]any, len(fields)+1)}
	for k, v := range fields {
		r.Fields[k] = v
	}
	r.Fields["_id"] = id
	return r
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("record is not an object")
	}
	r.Fields = fields
	r.ID = stringify(fields["_id"])
	return nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.flat())
}

// MarshalYAML writes the record as the same flat document as JSON.
func (r Record) MarshalYAML() (any, error) {
	return r.flat(), nil
}

func (r Record) flat() map[string]any {
	out := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		out[k] = v
	}
	if r.ID != "" {
		out["_id"] = r.ID
	}
	return out
}

// Value returns the raw value of field. Dotted paths walk nested objects,
// so "office.name" reads {"office": {"name": ...}}.
func (r Record) Value(field string) (any, bool) {
	if field == "_id" || field == "id" {
		return r.ID, r.ID != ""
	}
	if v, ok := r.Fields[field]; ok {
		return v, true
	}
	parts := strings.Split(field, ".")
	if len(parts) < 2 {
		return nil, false
	}
	var cur any = r.Fields
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[p]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the field as text, or "" when absent.
func (r Record) String(field string) string {
	v, ok := r.Value(field)
	if !ok {
		return ""
	}
	return stringify(v)
}

// Display returns the field as text with the render-time placeholder for
// missing or blank values.
func (r Record) Display(field string) string {
	if s := strings.TrimSpace(r.String(field)); s != "" {
		return s
	}
	if field == "phone" {
		return PlaceholderUnavailable
	}
	return PlaceholderUnknown
}

func (r Record) Name() string   { return r.String("name") }
func (r Record) Email() string  { return r.String("email") }
func (r Record) Phone() string  { return r.String("phone") }
func (r Record) City() string   { return r.String("city") }
func (r Record) State() string  { return r.String("state") }
func (r Record) Status() string { return r.String("status") }

// Matches reports whether term occurs case-insensitively in any of fields.
// Only the empty term matches every record; whitespace is significant.
func (r Record) Matches(term string, fields []string) bool {
	term = strings.ToLower(term)
	if term == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(r.String(f)), term) {
			return true
		}
	}
	return false
}

// Keys returns the record's top-level field names in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IDs returns the identifiers of records in order.
func IDs(records []Record) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case map[string]any:
		// Nested objects usually carry a display name.
		if name, ok := t["name"]; ok {
			return stringify(name)
		}
		b, _ := json.Marshal(t)
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
