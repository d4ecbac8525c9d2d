// Package form decides which profile fields an officer may edit and splits
// an edited record into the spark_data/user_data save payload.
package form

import (
	"fmt"

	"karmasri/internal/merge"
	"karmasri/internal/provenance"
)

// Kind selects how a field value is coerced for the payload.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
	KindDocuments
)

// Policy carries the per-entity field lists that drive Decide.
type Policy struct {
	Entity merge.Entity
	// Disabled fields never render as editable.
	Disabled []string
	// GADControlled fields lock once pre-filled.
	GADControlled []string
	// Kinds defaults to KindString.
	Kinds map[string]Kind
}

// Rule identifies which of the ordered disablement rules decided a field.
type Rule int

const (
	RuleAlwaysDisabled Rule = iota + 1
	RuleEditedThisSession
	RuleUserSourced
	RuleSparkPrefilled
	RuleGADPrefilled
	RuleDefault
)

func (r Rule) String() string {
	switch r {
	case RuleAlwaysDisabled:
		return "always-disabled"
	case RuleEditedThisSession:
		return "edited-this-session"
	case RuleUserSourced:
		return "user-sourced"
	case RuleSparkPrefilled:
		return "spark-prefilled"
	case RuleGADPrefilled:
		return "gad-prefilled"
	case RuleDefault:
		return "default"
	default:
		return fmt.Sprintf("rule(%d)", int(r))
	}
}

// Decision is the outcome of Decide.
type Decision struct {
	Rule     Rule
	Editable bool
}

// EditSet is the set of fields touched in the current session.
type EditSet map[string]struct{}

func (e EditSet) Mark(field string) { e[field] = struct{}{} }

func (e EditSet) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Decide applies the disablement rules in order; the first that matches
// wins. rec is the record as loaded, before any edits.
func (p Policy) Decide(rec merge.DisplayRecord, field string, edits EditSet) Decision {
	if contains(p.Disabled, field) {
		return Decision{Rule: RuleAlwaysDisabled}
	}
	if edits.Has(field) {
		return Decision{Rule: RuleEditedThisSession, Editable: true}
	}
	prefilled := !merge.IsEmpty(rec.Values[field])

	switch src := rec.FieldSource(field); src {
	case provenance.User:
		return Decision{Rule: RuleUserSourced, Editable: true}
	case provenance.Spark:
		if prefilled {
			return Decision{Rule: RuleSparkPrefilled}
		}
	case provenance.GAD, provenance.Unknown:
	default:
		panic(fmt.Sprintf("form: unhandled provenance source %q", src))
	}

	if prefilled && contains(p.GADControlled, field) {
		return Decision{Rule: RuleGADPrefilled}
	}
	return Decision{Rule: RuleDefault, Editable: true}
}

// Kind returns the coercion kind of field.
func (p Policy) Kind(field string) Kind {
	if k, ok := p.Kinds[field]; ok {
		return k
	}
	return KindString
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

var policies = map[string]Policy{
	merge.Training.Name: {
		Entity:        merge.Training,
		Disabled:      []string{"documents"},
		GADControlled: []string{"training_type_id", "sponsored_by"},
		Kinds: map[string]Kind{
			"training_type_id": KindInt,
			"documents":        KindDocuments,
		},
	},
	merge.Education.Name: {
		Entity:        merge.Education,
		Disabled:      []string{"documents"},
		GADControlled: []string{"year_of_passing", "grade"},
		Kinds: map[string]Kind{
			"year_of_passing": KindInt,
			"documents":       KindDocuments,
		},
	},
	merge.Dependents.Name: {
		Entity:        merge.Dependents,
		Disabled:      []string{"documents"},
		GADControlled: []string{"removing_reason", "divorce_date", "death_date"},
		Kinds: map[string]Kind{
			"is_alive":  KindBool,
			"documents": KindDocuments,
		},
	},
}

// PolicyFor returns the policy of the named entity.
func PolicyFor(entity string) (Policy, bool) {
	p, ok := policies[entity]
	return p, ok
}
