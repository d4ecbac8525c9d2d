// Package provenance names where a profile field's current value came from.
//
// Two vocabularies exist: the storage tags written next to every field in the
// database, and the display-level sources the profile screens reason about.
package provenance

import (
	"encoding/json"
	"fmt"
)

// Source is the display-level origin of a field value.
type Source string

const (
	Spark   Source = "SPARK"
	User    Source = "USER"
	GAD     Source = "GAD"
	Unknown Source = "UNKNOWN"
)

// Sources lists every Source value.
var Sources = []Source{Spark, User, GAD, Unknown}

func (s Source) Valid() bool {
	switch s {
	case Spark, User, GAD, Unknown:
		return true
	}
	return false
}

func (s *Source) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode source: %w", err)
	}
	v := Source(raw)
	if !v.Valid() {
		return fmt.Errorf("unknown source %q", raw)
	}
	*s = v
	return nil
}

// Tag is the storage-level source key used in a record's fields map.
type Tag string

const (
	TagSpark      Tag = "DB_SPARK_API"
	TagAISOfficer Tag = "AIS_OFFICER"
	TagGADOfficer Tag = "GAD_OFFICER"
	TagUnknown    Tag = "UNKNOWN"
)

// TagPrecedence orders tags from strongest to weakest claim on a field.
var TagPrecedence = []Tag{TagGADOfficer, TagAISOfficer, TagSpark, TagUnknown}

// ParseTag maps unrecognised spellings to TagUnknown.
func ParseTag(s string) Tag {
	switch Tag(s) {
	case TagSpark, TagAISOfficer, TagGADOfficer:
		return Tag(s)
	}
	return TagUnknown
}

func (t *Tag) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode tag: %w", err)
	}
	*t = ParseTag(raw)
	return nil
}

// UnmarshalText lets Tag be a JSON object key.
func (t *Tag) UnmarshalText(b []byte) error {
	*t = ParseTag(string(b))
	return nil
}

// FromTag converts a storage tag to its display source.
func FromTag(t Tag) Source {
	switch t {
	case TagAISOfficer:
		return User
	case TagSpark:
		return Spark
	case TagGADOfficer:
		return GAD
	default:
		return Unknown
	}
}

// ToTag is the inverse of FromTag.
func ToTag(s Source) Tag {
	switch s {
	case User:
		return TagAISOfficer
	case Spark:
		return TagSpark
	case GAD:
		return TagGADOfficer
	default:
		return TagUnknown
	}
}

// RecordSource summarises the sources of all fields of one record.
type RecordSource string

const (
	RecordSpark RecordSource = "SPARK"
	RecordUser  RecordSource = "USER"
	RecordMixed RecordSource = "MIXED"
)

// Summarize returns SPARK when every field is SPARK-sourced, USER when every
// field is USER-sourced and MIXED otherwise, including for an empty map.
func Summarize(fieldSources map[string]Source) RecordSource {
	if len(fieldSources) == 0 {
		return RecordMixed
	}
	allSpark, allUser := true, true
	for _, s := range fieldSources {
		if s != Spark {
			allSpark = false
		}
		if s != User {
			allUser = false
		}
	}
	switch {
	case allSpark:
		return RecordSpark
	case allUser:
		return RecordUser
	default:
		return RecordMixed
	}
}

// TagFor is the tag written for fields an account of the given role edits.
func TagFor(role string) Tag {
	if role == "gad" {
		return TagGADOfficer
	}
	return TagAISOfficer
}
