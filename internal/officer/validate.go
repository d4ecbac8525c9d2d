package officer

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"karmasri/internal/dates"
	"karmasri/internal/merge"
)

// ValidationError maps field names to messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, f := range names {
		parts = append(parts, f+" "+e.Fields[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("date", validateDate)
	_ = validate.RegisterValidation("integer", validateInteger)
	_ = validate.RegisterValidation("flag", validateFlag)
}

func validateDate(fl validator.FieldLevel) bool {
	f := fl.Field()
	return f.Kind() == reflect.String && dates.Normalize(f.String()) != ""
}

func validateInteger(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	case reflect.Float32, reflect.Float64:
		v := f.Float()
		return v == math.Trunc(v)
	case reflect.String:
		_, err := strconv.Atoi(strings.TrimSpace(f.String()))
		return err == nil
	}
	return false
}

func validateFlag(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch f.Kind() {
	case reflect.Bool:
		return true
	case reflect.String:
		s := strings.ToLower(strings.TrimSpace(f.String()))
		return s == "true" || s == "false"
	}
	return false
}

type fieldRule struct {
	required bool
	rule     string
}

var dateFields = map[string]bool{
	"training_from": true,
	"training_to":   true,
	"dob":           true,
	"death_date":    true,
	"divorce_date":  true,
	"marriage_date": true,
}

var rules = map[string]map[string]fieldRule{
	merge.Training.Name: {
		"subject":          {required: true, rule: "max=200"},
		"institute_name":   {required: true, rule: "max=200"},
		"training_from":    {required: true, rule: "date"},
		"training_to":      {rule: "date"},
		"training_type_id": {rule: "integer"},
		"location":         {rule: "max=200"},
		"sponsored_by":     {rule: "max=200"},
		"documents":        {rule: "max=2000"},
	},
	merge.Education.Name: {
		"qualification_name": {required: true, rule: "max=200"},
		"subject":            {rule: "max=200"},
		"institute":          {rule: "max=200"},
		"year_of_passing":    {rule: "integer"},
		"grade":              {rule: "max=20"},
		"documents":          {rule: "max=2000"},
	},
	merge.Dependents.Name: {
		"relationship_type": {required: true, rule: "oneof=Father Mother Spouse Child"},
		"name":              {required: true, rule: "max=200"},
		"dob":               {rule: "date"},
		"gender":            {rule: "oneof=Male Female Other"},
		"child_type":        {rule: "oneof=son daughter step-son step-daughter"},
		"is_alive":          {rule: "flag"},
		"death_date":        {rule: "date"},
		"divorce_date":      {rule: "date"},
		"marriage_date":     {rule: "date"},
		"removing_reason":   {rule: "max=50"},
		"occupation":        {rule: "max=200"},
		"documents":         {rule: "max=2000"},
	},
}

// Validate checks the combined payload values of one write. On create every
// required field must be present; on update only the fields sent are
// checked, and required ones may not be cleared.
func Validate(e merge.Entity, values map[string]any, create bool) error {
	fieldRules, ok := rules[e.Name]
	if !ok {
		return fmt.Errorf("validate: %w", ErrUnknownEntity)
	}

	bad := map[string]string{}
	for field := range values {
		if !e.HasField(field) {
			bad[field] = "is not a field of " + e.Name
		}
	}

	data := make(map[string]any, len(values))
	constraints := make(map[string]any, len(fieldRules))
	for field, fr := range fieldRules {
		v, present := values[field]
		if !present && !(create && fr.required) {
			continue
		}
		if msg := checkType(fr.rule, v); msg != "" {
			bad[field] = msg
			continue
		}
		data[field] = v

		tag := "omitempty," + fr.rule
		if fr.required {
			tag = "required," + fr.rule
		}
		constraints[field] = tag
	}

	for field, err := range validate.ValidateMap(data, constraints) {
		bad[field] = message(err)
	}

	if e.Name == merge.Training.Name {
		from, okFrom := dates.Parse(merge.Text(values["training_from"]))
		to, okTo := dates.Parse(merge.Text(values["training_to"]))
		if okFrom && okTo && to.Before(from) {
			if _, seen := bad["training_to"]; !seen {
				bad["training_to"] = "must not precede training_from"
			}
		}
	}
	if v := merge.Text(values["child_type"]); v != "" {
		if rel := merge.Text(values["relationship_type"]); rel != "" && rel != merge.Child {
			bad["child_type"] = "only applies to Child"
		}
	}

	if len(bad) > 0 {
		return &ValidationError{Fields: bad}
	}
	return nil
}

// checkType rejects JSON shapes the rule cannot evaluate. validator panics
// when a string rule meets a bool or an object.
func checkType(rule string, v any) string {
	switch v.(type) {
	case nil, string:
		return ""
	case float64:
		if rule == "integer" {
			return ""
		}
	case bool:
		if rule == "flag" {
			return ""
		}
	}
	switch rule {
	case "integer":
		return "must be a whole number"
	case "flag":
		return "must be true or false"
	default:
		return "must be text"
	}
}

func message(err any) string {
	var verrs validator.ValidationErrors
	e, ok := err.(error)
	if !ok || !errors.As(e, &verrs) || len(verrs) == 0 {
		return "is invalid"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return "is required"
	case "date":
		return "must be a date"
	case "integer":
		return "must be a whole number"
	case "flag":
		return "must be true or false"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag()
	}
}

// normalizeValue rewrites date fields to the canonical layout.
func normalizeValue(field string, v any) any {
	if dateFields[field] {
		if s, ok := v.(string); ok {
			if n := dates.Normalize(s); n != "" {
				return n
			}
		}
	}
	return v
}
