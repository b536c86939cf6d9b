package repo

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// schemaColumns parses the base migration and returns table -> column set.
func schemaColumns(t *testing.T) map[string]map[string]bool {
	t.Helper()
	ddl, err := os.ReadFile("../migrate/sql/0001_base_schema.sql")
	require.NoError(t, err)

	tables := map[string]map[string]bool{}
	tableRe := regexp.MustCompile(`(?s)CREATE TABLE (\w+) \((.*?)\);`)
	for _, m := range tableRe.FindAllStringSubmatch(string(ddl), -1) {
		cols := map[string]bool{}
		for _, line := range strings.Split(m[2], "\n") {
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			switch fields[0] {
			case "PRIMARY", "UNIQUE", "CHECK", "CONSTRAINT", "FOREIGN":
				continue
			}
			cols[fields[0]] = true
		}
		tables[m[1]] = cols
	}
	return tables
}

// The profile projection joins profiles, roles and gerencias; every column
// it references has to exist in the migrated schema or the auth paths fail
// at runtime with an undefined-column error.
func TestProfileQueryColumnsMatchSchema(t *testing.T) {
	tables := schemaColumns(t)
	aliases := map[string]string{"p": "profiles", "r": "roles", "g": "gerencias"}

	referenced := append([]string{}, profileColumns...)
	referenced = append(referenced, "p.password_hash")

	refRe := regexp.MustCompile(`\b([prg])\.([a-z_]+)`)
	for _, expr := range referenced {
		for _, m := range refRe.FindAllStringSubmatch(expr, -1) {
			table := aliases[m[1]]
			require.Contains(t, tables, table)
			require.True(t, tables[table][m[2]],
				"%s references %s.%s which the schema does not define", expr, table, m[2])
		}
	}
}
