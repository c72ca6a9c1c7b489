package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations_Paired(t *testing.T) {
	entries, err := fs.ReadDir(files, "sql")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file %s", name)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestEmbeddedMigrations_UniquePeriodPerMonth(t *testing.T) {
	data, err := fs.ReadFile(files, "sql/000001_init.up.sql")
	require.NoError(t, err)

	schema := string(data)
	assert.Contains(t, schema, "UNIQUE (group_id, year, month)")
	assert.Contains(t, schema, "CHECK (outstanding_balance >= 0)")
	assert.Contains(t, schema, "NUMERIC(14,2)")
}
