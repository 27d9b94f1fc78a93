package auth_test

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirableedge/go-auth"
)

func TestUpMigrations(t *testing.T) {
	scripts, err := auth.UpMigrations()
	require.NoError(t, err)
	require.Len(t, scripts, 1)

	assert.Contains(t, scripts[0], "CREATE TABLE IF NOT EXISTS users")
}

func TestGetMigrationsFS(t *testing.T) {
	entries, err := fs.ReadDir(auth.GetMigrationsFS(), "data/sql/migrations")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"0001_create_users.up.sql", "0001_create_users.down.sql"}, names)
}
