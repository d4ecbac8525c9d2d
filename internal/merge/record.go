package merge

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"karmasri/internal/provenance"
)

// Values holds one record's field values keyed by field name.
type Values map[string]any

func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, x := range v {
		out[k] = x
	}
	return out
}

// String returns the field as trimmed text, "" when missing.
func (v Values) String(field string) string {
	return Text(v[field])
}

// LocalRecord is one database row with its fields grouped by storage tag.
type LocalRecord struct {
	ID     string
	Fields map[provenance.Tag]Values
}

// Flatten resolves each field to a single value and tag. When a field is
// claimed by several tags the strongest in provenance.TagPrecedence wins.
func (r LocalRecord) Flatten() (Values, map[string]provenance.Source) {
	values := make(Values)
	sources := make(map[string]provenance.Source)
	for _, tag := range provenance.TagPrecedence {
		for field, v := range r.Fields[tag] {
			if _, seen := values[field]; seen {
				continue
			}
			values[field] = v
			sources[field] = provenance.FromTag(tag)
		}
	}
	return values, sources
}

// DisplayRecord is the merged, provenance-annotated record the profile
// screens edit.
type DisplayRecord struct {
	ID           string
	Values       Values
	FieldSources map[string]provenance.Source
	IsSaved      bool
	// Status is a derived sub-state, e.g. the spouse status.
	Status string
}

// Source summarises FieldSources.
func (r DisplayRecord) Source() provenance.RecordSource {
	return provenance.Summarize(r.FieldSources)
}

// FieldSource returns the tag of field, UNKNOWN when the field is absent.
func (r DisplayRecord) FieldSource(field string) provenance.Source {
	if s, ok := r.FieldSources[field]; ok {
		return s
	}
	return provenance.Unknown
}

func (r DisplayRecord) Clone() DisplayRecord {
	out := r
	out.Values = r.Values.Clone()
	out.FieldSources = make(map[string]provenance.Source, len(r.FieldSources))
	for k, s := range r.FieldSources {
		out.FieldSources[k] = s
	}
	return out
}

// MarshalJSON flattens the values next to the bookkeeping keys.
func (r DisplayRecord) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Values)+5)
	for k, v := range r.Values {
		m[k] = v
	}
	m["id"] = r.ID
	m["fieldSources"] = r.FieldSources
	m["isSaved"] = r.IsSaved
	m["_source"] = r.Source()
	if r.Status != "" {
		m["status"] = r.Status
	}
	return json.Marshal(m)
}

// IsEmpty reports whether v carries no value: nil, blank text, or an
// empty list.
func IsEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	default:
		return false
	}
}

// Text renders a JSON-decoded value as trimmed text.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
