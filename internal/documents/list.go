// Package documents handles the comma-joined document id lists stored on
// training and dependent records, and uploading the files behind them.
package documents

import "strings"

// Split returns the trimmed, non-empty ids in list.
func Split(list string) []string {
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Normalize rewrites list without stray whitespace or empty entries.
func Normalize(list string) string {
	return strings.Join(Split(list), ",")
}

// Append adds ids to the end of list.
func Append(list string, ids ...string) string {
	all := Split(list)
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			all = append(all, id)
		}
	}
	return strings.Join(all, ",")
}

// Remove drops every entry equal to id.
func Remove(list, id string) string {
	id = strings.TrimSpace(id)
	all := Split(list)
	out := all[:0]
	for _, x := range all {
		if x != id {
			out = append(out, x)
		}
	}
	return strings.Join(out, ",")
}

// Contains reports whether id is in list.
func Contains(list, id string) bool {
	id = strings.TrimSpace(id)
	for _, x := range Split(list) {
		if x == id {
			return true
		}
	}
	return false
}
