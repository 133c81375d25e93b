package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresFiles_Ordered(t *testing.T) {
	files, err := PostgresFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"001_assessments.sql", "002_health_patterns.sql"}, files)
}

func TestPostgresFiles_Idempotent(t *testing.T) {
	files, err := PostgresFiles()
	require.NoError(t, err)

	for _, file := range files {
		data, err := fs.ReadFile(PostgresFS, "postgres/"+file)
		require.NoError(t, err)
		for _, stmt := range strings.Split(string(data), ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			assert.Contains(t, stmt, "IF NOT EXISTS", "%s: %s", file, stmt)
		}
	}
}
