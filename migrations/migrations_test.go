package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatements(t *testing.T) {
	got := Statements("-- header\nCREATE TABLE a (id INT);\n\n  -- only a comment\n;\nCREATE TABLE b (\n  id INT -- pk\n);\n")
	require.Len(t, got, 2)
	assert.Equal(t, "CREATE TABLE a (id INT)", got[0])
	assert.True(t, strings.HasPrefix(got[1], "CREATE TABLE b ("))
}

func TestEmbeddedSchemas(t *testing.T) {
	mysql := Statements(MySQL)
	for _, table := range []string{
		"admin_users", "officers", "rate_plans", "apis", "plan_apis", "credit_transactions",
		"queries", "manual_requests", "officer_registrations", "notifications", "outbox",
	} {
		found := false
		for _, s := range mysql {
			if strings.Contains(s, "CREATE TABLE "+table+" ") {
				found = true
			}
		}
		assert.True(t, found, table)
	}

	ch := Statements(ClickHouse)
	require.Len(t, ch, 2)
	assert.Contains(t, ch[1], "ReplacingMergeTree")
}
