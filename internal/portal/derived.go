package portal

import (
	"time"

	"karmasri/internal/merge"
	"karmasri/internal/status"
)

// Label is a computed, read-only value shown next to a record.
type Label struct {
	Name  string
	Value string
}

// Derived returns the labels the profile screens compute for rec.
func Derived(entity string, rec merge.DisplayRecord, today time.Time) []Label {
	v := rec.Values
	switch entity {
	case merge.Training.Name:
		from, to := v.String("training_from"), v.String("training_to")
		return []Label{
			{"status", status.Training(from, to, today)},
			{"duration", status.Duration(from, to)},
		}
	case merge.Dependents.Name:
		var out []Label
		if dob := v.String("dob"); dob != "" {
			out = append(out, Label{"age", status.AgeLabel(dob, today)})
		}
		if rec.Status != "" {
			out = append(out, Label{"spouse_status", rec.Status})
		}
		return out
	default:
		return nil
	}
}
