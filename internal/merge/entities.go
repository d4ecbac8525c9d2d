package merge

import (
	"sort"

	"karmasri/internal/dates"
	"karmasri/internal/status"
)

// Relationship types of a dependent.
const (
	Father = "Father"
	Mother = "Mother"
	Spouse = "Spouse"
	Child  = "Child"
)

// Child sub-classifications and the gender each implies.
var ChildTypes = map[string]string{
	"son":           "Male",
	"daughter":      "Female",
	"step-son":      "Male",
	"step-daughter": "Female",
}

var Training = Entity{
	Name:    "training",
	IDField: "ais_training_id",
	Fields: []string{
		"subject", "institute_name", "training_from", "training_to",
		"training_type_id", "location", "sponsored_by", "documents",
	},
	Rename: map[string]string{
		"from_date":    "training_from",
		"to_date":      "training_to",
		"conducted_by": "institute_name",
	},
	Key: func(v Values) string {
		return JoinKey(Fold(v.String("subject")), Fold(v.String("institute_name")), dates.Normalize(v.String("training_from")))
	},
}

var Education = Entity{
	Name:    "education",
	IDField: "ais_education_id",
	Fields: []string{
		"qualification_name", "subject", "institute", "year_of_passing",
		"grade", "documents",
	},
	Rename: map[string]string{
		"qualification": "qualification_name",
		"university":    "institute",
		"year":          "year_of_passing",
	},
	Key: func(v Values) string {
		q := Fold(v.String("qualification_name"))
		if q == "" {
			return ""
		}
		return JoinKey(q, Fold(v.String("subject")), Fold(v.String("institute")))
	},
}

var Dependents = Entity{
	Name:    "dependents",
	IDField: "ais_dependent_id",
	Fields: []string{
		"relationship_type", "name", "dob", "gender", "child_type",
		"is_alive", "death_date", "divorce_date", "marriage_date",
		"removing_reason", "occupation", "documents",
	},
	Expand: expandDependents,
	Key: func(v Values) string {
		rel := v.String("relationship_type")
		switch rel {
		case Father, Mother, Spouse:
			return rel
		case Child:
			name := Fold(v.String("name"))
			if name == "" {
				return ""
			}
			return JoinKey(rel, name, dates.Normalize(v.String("dob")))
		default:
			return ""
		}
	},
	Derive: deriveDependent,
}

// SPARK carries parents and spouse as one flat object.
var sparkRelations = []struct{ field, rel string }{
	{"father_name", Father},
	{"mother_name", Mother},
	{"spouse_name", Spouse},
}

func expandDependents(v Values) []Values {
	var out []Values
	for _, r := range sparkRelations {
		name := v.String(r.field)
		if name == "" {
			continue
		}
		out = append(out, Values{"relationship_type": r.rel, "name": name})
	}
	return out
}

func deriveDependent(r *DisplayRecord) {
	switch r.Values.String("relationship_type") {
	case Spouse:
		r.Status = status.Spouse(r.Values)
	case Child:
		ct := r.Values.String("child_type")
		gender, ok := ChildTypes[ct]
		if ok && IsEmpty(r.Values["gender"]) {
			r.Values["gender"] = gender
			r.FieldSources["gender"] = r.FieldSource("child_type")
		}
	}
}

var entities = map[string]Entity{
	Training.Name:   Training,
	Education.Name:  Education,
	Dependents.Name: Dependents,
}

// Lookup returns the entity registered under name.
func Lookup(name string) (Entity, bool) {
	e, ok := entities[name]
	return e, ok
}

// Names lists the registered entity names in sorted order.
func Names() []string {
	out := make([]string, 0, len(entities))
	for n := range entities {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// HasField reports whether field is storable for e.
func (e Entity) HasField(field string) bool {
	for _, f := range e.Fields {
		if f == field {
			return true
		}
	}
	return false
}
