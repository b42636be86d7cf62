package testhelpers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardfolio-inc/cardfolio-engine/pkg/database"
)

func TestGetTestDBSchema(t *testing.T) {
	testDB := GetTestDB(t)
	ctx := context.Background()

	for _, table := range []string{"events", "contacts", "business_cards"} {
		var exists bool
		err := testDB.DB.Pool.QueryRow(ctx,
			"SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)",
			table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "migrations should create table %s", table)
	}
}

func TestScopedContextSetsUser(t *testing.T) {
	testDB := GetTestDB(t)

	ctx, cleanup := ScopedContext(t, testDB.DB, "scope-check-user")
	defer cleanup()

	scope, ok := database.GetUserScope(ctx)
	require.True(t, ok)

	var current string
	err := scope.Conn.QueryRow(ctx, "SELECT current_setting('app.current_user_id')").Scan(&current)
	require.NoError(t, err)
	assert.Equal(t, "scope-check-user", current)
}
