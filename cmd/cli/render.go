package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"karmasri/internal/merge"
	"karmasri/internal/portal"
	"karmasri/internal/provenance"
)

// Styled text only ever goes in the last column so escape codes do not
// skew the tabwriter widths.
type styles struct {
	muted   lipgloss.Style
	derived lipgloss.Style
	source  map[provenance.Source]lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		muted:   r.NewStyle().Foreground(lipgloss.Color("#2C4A54")),
		derived: r.NewStyle().Foreground(lipgloss.Color("#20B9B4")),
		source: map[provenance.Source]lipgloss.Style{
			provenance.Spark: r.NewStyle().Foreground(lipgloss.Color("#2CD7C7")),
			provenance.User:  r.NewStyle().Foreground(lipgloss.Color("#F4D03F")),
			provenance.GAD:   r.NewStyle().Foreground(lipgloss.Color("#E74C3C")),
		},
	}
}

func (s styles) sourceLabel(src provenance.Source) string {
	if st, ok := s.source[src]; ok {
		return st.Render(string(src))
	}
	return s.muted.Render(string(src))
}

// render prints one block per record: the record header, then every
// non-empty field with its source, then the computed labels.
func render(w io.Writer, entity string, recs []merge.DisplayRecord, today time.Time) error {
	e, ok := merge.Lookup(entity)
	if !ok {
		return fmt.Errorf("unknown entity %q", entity)
	}
	if len(recs) == 0 {
		_, err := fmt.Fprintf(w, "no %s records\n", entity)
		return err
	}

	st := newStyles(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, rec := range recs {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		state := "saved"
		if !rec.IsSaved {
			state = "not saved"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", rec.ID, rec.Source(), st.muted.Render(state))
		for _, f := range e.Fields {
			v := merge.Text(rec.Values[f])
			if v == "" {
				continue
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", f, v, st.sourceLabel(rec.FieldSource(f)))
		}
		for _, l := range portal.Derived(entity, rec, today) {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", l.Name, l.Value, st.derived.Render("computed"))
		}
	}
	return tw.Flush()
}

// parseSet splits a --set argument of the form field=value. Empty values
// are never saved, so they are refused here rather than dropped silently.
func parseSet(arg string) (string, string, error) {
	field, value, ok := strings.Cut(arg, "=")
	field, value = strings.TrimSpace(field), strings.TrimSpace(value)
	if !ok || field == "" {
		return "", "", fmt.Errorf("--set %q: want field=value", arg)
	}
	if value == "" {
		return "", "", fmt.Errorf("--set %q: empty values are not saved", arg)
	}
	return field, value, nil
}

func findRecord(recs []merge.DisplayRecord, id string) (merge.DisplayRecord, bool) {
	for _, r := range recs {
		if r.ID == id {
			return r, true
		}
	}
	return merge.DisplayRecord{}, false
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
