package form

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"karmasri/internal/documents"
	"karmasri/internal/merge"
	"karmasri/internal/provenance"
	"karmasri/pkg/models"
)

var (
	ErrUnknownField  = errors.New("unknown field")
	ErrFieldDisabled = errors.New("field is not editable")
)

// Session is one edit pass over a record: the record as loaded, the working
// values and the fields touched so far.
type Session struct {
	Policy  Policy
	Record  merge.DisplayRecord
	Current merge.Values
	Edits   EditSet
}

// NewSession starts editing rec. Use a zero DisplayRecord for a new entry.
func NewSession(p Policy, rec merge.DisplayRecord) *Session {
	if rec.Values == nil {
		rec.Values = merge.Values{}
	}
	if rec.FieldSources == nil {
		rec.FieldSources = map[string]provenance.Source{}
	}
	return &Session{
		Policy:  p,
		Record:  rec,
		Current: rec.Values.Clone(),
		Edits:   EditSet{},
	}
}

// Decide reports the disablement decision for field in this session.
func (s *Session) Decide(field string) Decision {
	return s.Policy.Decide(s.Record, field, s.Edits)
}

// Set edits field. Disabled fields are refused.
func (s *Session) Set(field string, v any) error {
	if !s.Policy.Entity.HasField(field) {
		return fmt.Errorf("%s: %w", field, ErrUnknownField)
	}
	if !s.Decide(field).Editable {
		return fmt.Errorf("%s: %w", field, ErrFieldDisabled)
	}
	s.Current[field] = v
	s.Edits.Mark(field)
	return nil
}

// AttachDocuments appends ids to the documents field. The documents field
// is read-only in forms; attachments are its only editor.
func (s *Session) AttachDocuments(ids ...string) {
	s.Current["documents"] = documents.Append(merge.Text(s.Current["documents"]), ids...)
	s.Edits.Mark("documents")
}

// DetachDocument removes id from the documents field.
func (s *Session) DetachDocument(id string) {
	s.Current["documents"] = documents.Remove(merge.Text(s.Current["documents"]), id)
	s.Edits.Mark("documents")
}

// Payload partitions the session into the save payload.
func (s *Session) Payload() models.SavePayload {
	return s.Policy.Partition(s.Record, s.Current, s.Edits)
}

// Partition routes each field of the record to spark_data, user_data, or
// neither. SPARK-sourced fields that are locked and untouched are re-sent
// as spark_data; touched or already USER-sourced fields go to user_data.
func (p Policy) Partition(rec merge.DisplayRecord, current merge.Values, edits EditSet) models.SavePayload {
	out := models.SavePayload{SparkData: map[string]any{}, UserData: map[string]any{}}

	for _, field := range candidates(p.Entity, rec.Values, current) {
		src := rec.FieldSource(field)
		d := p.Decide(rec, field, edits)

		var dst map[string]any
		switch {
		case src == provenance.Spark && !d.Editable && !edits.Has(field):
			dst = out.SparkData
		case edits.Has(field) || src == provenance.User:
			dst = out.UserData
		default:
			continue
		}

		raw, ok := current[field]
		if !ok {
			raw = rec.Values[field]
		}
		if v, ok := coerce(p.Kind(field), raw); ok {
			dst[field] = v
		} else if p.Kind(field) == KindDocuments && edits.Has(field) {
			// detaching the last document clears the stored list
			dst[field] = ""
		}
	}
	return out
}

// candidates returns entity fields present on either side, sorted.
func candidates(e merge.Entity, a, b merge.Values) []string {
	var out []string
	for _, f := range e.Fields {
		_, inA := a[f]
		_, inB := b[f]
		if inA || inB {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

func coerce(k Kind, v any) (any, bool) {
	switch k {
	case KindInt:
		switch x := v.(type) {
		case int:
			return x, true
		case int64:
			return int(x), true
		case float64:
			if x == float64(int(x)) {
				return int(x), true
			}
			return nil, false
		}
		n, err := strconv.Atoi(merge.Text(v))
		if err != nil {
			return nil, false
		}
		return n, true
	case KindBool:
		switch x := v.(type) {
		case bool:
			return x, true
		case string:
			switch strings.ToLower(strings.TrimSpace(x)) {
			case "true":
				return true, true
			case "false":
				return false, true
			}
		}
		return nil, false
	case KindDocuments:
		s := documents.Normalize(merge.Text(v))
		return s, s != ""
	default:
		s := merge.Text(v)
		return s, s != ""
	}
}
