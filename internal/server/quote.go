package server

import "strings"

// splitCSVQuery flattens one or more comma-separated query values into a
// single deduplicated-by-position list, trimming whitespace and dropping
// empties.
func splitCSVQuery(values []string) []string {
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		parts := strings.Split(v, ",")
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
