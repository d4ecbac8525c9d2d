package merge

import (
	"encoding/json"
	"fmt"
	"strconv"

	"karmasri/internal/provenance"
)

// Encode renders rec in the officer_data wire shape:
// {"<id field>": n, "fields": {"<TAG>": {...}}}.
func (e Entity) Encode(rec LocalRecord) map[string]any {
	fields := make(map[string]any, len(rec.Fields))
	for tag, v := range rec.Fields {
		if len(v) == 0 {
			continue
		}
		fields[string(tag)] = map[string]any(v.Clone())
	}

	var id any = rec.ID
	if n, err := strconv.ParseInt(rec.ID, 10, 64); err == nil {
		id = n
	}
	return map[string]any{e.IDField: id, "fields": fields}
}

// Decode parses one officer_data entry. The id may arrive as a JSON number
// or a string; unknown tags collapse into UNKNOWN.
func (e Entity) Decode(raw map[string]any) (LocalRecord, error) {
	rec := LocalRecord{Fields: make(map[provenance.Tag]Values)}

	id := Text(raw[e.IDField])
	if id == "" {
		return rec, fmt.Errorf("decode %s record: missing %s", e.Name, e.IDField)
	}
	rec.ID = id

	fields, _ := raw["fields"].(map[string]any)
	for tag, v := range fields {
		obj, ok := v.(map[string]any)
		if !ok {
			return rec, fmt.Errorf("decode %s record %s: fields[%s] is not an object", e.Name, id, tag)
		}
		t := provenance.ParseTag(tag)
		dst := rec.Fields[t]
		if dst == nil {
			dst = make(Values, len(obj))
			rec.Fields[t] = dst
		}
		for field, x := range obj {
			dst[field] = x
		}
	}
	return rec, nil
}

// DecodeAll decodes a list of officer_data entries.
func (e Entity) DecodeAll(raw []map[string]any) ([]LocalRecord, error) {
	out := make([]LocalRecord, 0, len(raw))
	for _, r := range raw {
		rec, err := e.Decode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// DecodeJSON decodes a single record from a response body.
func (e Entity) DecodeJSON(b []byte) (LocalRecord, error) {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return LocalRecord{}, fmt.Errorf("decode %s record: %w", e.Name, err)
	}
	return e.Decode(raw)
}
