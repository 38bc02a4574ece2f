// Package migrations carries the schema files compiled into the binary.
package migrations

import (
	_ "embed"
	"strings"
)

//go:embed 001_init.sql
var MySQL string

//go:embed clickhouse/001_query_events.sql
var ClickHouse string

// Statements splits a schema file on ";" and drops empty and comment-only
// chunks. The ClickHouse driver runs one statement per Exec.
func Statements(schema string) []string {
	var out []string
	for _, chunk := range strings.Split(schema, ";") {
		var lines []string
		for _, l := range strings.Split(chunk, "\n") {
			if t := strings.TrimSpace(l); t != "" && !strings.HasPrefix(t, "--") {
				lines = append(lines, l)
			}
		}
		if len(lines) > 0 {
			out = append(out, strings.TrimSpace(strings.Join(lines, "\n")))
		}
	}
	return out
}
