// Package merge reconciles SPARK projections with locally stored profile
// records and tracks the origin of every field.
package merge

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"karmasri/internal/provenance"
)

// Entity parameterizes Merge for one profile sub-entity.
type Entity struct {
	Name string
	// IDField is the JSON key carrying the database id.
	IDField string
	// Fields lists every storable field.
	Fields []string
	// Rename maps SPARK field names onto local ones.
	Rename map[string]string
	// Expand turns one SPARK object into zero or more records, after Rename.
	// Nil means one record per object.
	Expand func(Values) []Values
	// Key builds the composite match key; "" never matches.
	Key func(Values) string
	// Derive fills derived values and sub-states. Optional.
	Derive func(*DisplayRecord)
}

// Outcome counts what Merge did with its input.
type Outcome struct {
	Matched     int
	Placeholder int
	LocalOnly   int
}

// Merge builds the display list for one entity. External records are
// matched in order against local records not yet claimed, first match wins.
// The output lists external records (matched or placeholder) in input order,
// then the unmatched local records in input order.
func Merge(e Entity, external []Values, local []LocalRecord) []DisplayRecord {
	out, _ := MergeWithOutcome(e, external, local)
	return out
}

func MergeWithOutcome(e Entity, external []Values, local []LocalRecord) ([]DisplayRecord, Outcome) {
	var outcome Outcome

	projected := e.Project(external)
	flat := make([]Values, len(local))
	srcs := make([]map[string]provenance.Source, len(local))
	keys := make([]string, len(local))
	for i, rec := range local {
		flat[i], srcs[i] = rec.Flatten()
		keys[i] = e.key(flat[i])
	}
	claimed := make([]bool, len(local))

	out := make([]DisplayRecord, 0, len(projected)+len(local))
	for i, ext := range projected {
		match := -1
		if k := e.key(ext); k != "" {
			for j := range local {
				if !claimed[j] && keys[j] == k {
					match = j
					break
				}
			}
		}

		var rec DisplayRecord
		if match >= 0 {
			claimed[match] = true
			rec = combine(local[match].ID, flat[match], srcs[match], ext)
			outcome.Matched++
		} else {
			rec = placeholder(i, ext)
			outcome.Placeholder++
		}
		e.derive(&rec)
		out = append(out, rec)
	}

	for j := range local {
		if claimed[j] {
			continue
		}
		rec := DisplayRecord{
			ID:           local[j].ID,
			Values:       flat[j].Clone(),
			FieldSources: copySources(srcs[j]),
			IsSaved:      true,
		}
		e.derive(&rec)
		out = append(out, rec)
		outcome.LocalOnly++
	}
	return out, outcome
}

// FromLocal converts a single stored record, as returned by a save.
func FromLocal(e Entity, rec LocalRecord) DisplayRecord {
	values, sources := rec.Flatten()
	out := DisplayRecord{ID: rec.ID, Values: values, FieldSources: sources, IsSaved: true}
	e.derive(&out)
	return out
}

// Reconcile replaces prev with the server's saved record. Fields the
// response does not carry keep their previous value and tag.
func Reconcile(e Entity, prev DisplayRecord, saved LocalRecord) DisplayRecord {
	out := FromLocal(e, saved)
	for field, v := range prev.Values {
		if _, ok := out.Values[field]; ok {
			continue
		}
		out.Values[field] = v
		out.FieldSources[field] = prev.FieldSource(field)
	}
	e.derive(&out)
	return out
}

// PlaceholderID is the synthetic id of the i-th unmatched SPARK record.
func PlaceholderID(i int) string {
	return fmt.Sprintf("spark_%d", i)
}

// IsPlaceholderID reports whether id was produced by PlaceholderID.
func IsPlaceholderID(id string) bool {
	return strings.HasPrefix(id, "spark_")
}

// Project applies Rename and Expand to raw SPARK objects.
func (e Entity) Project(external []Values) []Values {
	out := make([]Values, 0, len(external))
	for _, raw := range external {
		renamed := make(Values, len(raw))
		for k, v := range raw {
			if to, ok := e.Rename[k]; ok {
				k = to
			}
			renamed[k] = v
		}
		if e.Expand == nil {
			out = append(out, renamed)
			continue
		}
		out = append(out, e.Expand(renamed)...)
	}
	return out
}

func (e Entity) key(v Values) string {
	if e.Key == nil {
		return ""
	}
	return e.Key(v)
}

func (e Entity) derive(r *DisplayRecord) {
	if e.Derive != nil {
		e.Derive(r)
	}
}

// combine overlays SPARK values onto the fields the local record leaves empty.
func combine(id string, local Values, sources map[string]provenance.Source, ext Values) DisplayRecord {
	rec := DisplayRecord{
		ID:           id,
		Values:       local.Clone(),
		FieldSources: copySources(sources),
		IsSaved:      true,
	}
	for field, v := range ext {
		if IsEmpty(v) || !IsEmpty(rec.Values[field]) {
			continue
		}
		rec.Values[field] = v
		rec.FieldSources[field] = provenance.Spark
	}
	return rec
}

func placeholder(i int, ext Values) DisplayRecord {
	rec := DisplayRecord{
		ID:           PlaceholderID(i),
		Values:       make(Values, len(ext)),
		FieldSources: make(map[string]provenance.Source, len(ext)),
	}
	for field, v := range ext {
		if IsEmpty(v) {
			continue
		}
		rec.Values[field] = v
		rec.FieldSources[field] = provenance.Spark
	}
	return rec
}

func copySources(in map[string]provenance.Source) map[string]provenance.Source {
	out := make(map[string]provenance.Source, len(in))
	for k, s := range in {
		out[k] = s
	}
	return out
}

// Fold lower-cases, trims and NFKC-normalizes s and collapses inner
// whitespace, for use in match keys.
func Fold(s string) string {
	s = norm.NFKC.String(strings.ToLower(strings.TrimSpace(s)))
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// JoinKey joins folded parts with "|".
func JoinKey(parts ...string) string {
	return strings.Join(parts, "|")
}
