package psql

import (
	"context"
	"path/filepath"
	"testing"

	"scout/scout/sources/psql/dao"
	"scout/scout/utils/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(context.Background(), sqlite.Open(filepath.Join(t.TempDir(), "scout.db")))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestWebKnowledgeDAO(t *testing.T) {
	db := openTestDB(t)
	d := dao.NewWebKnowledgeDAO(db.DB)
	ctx := logging.WithTraceID(context.Background(), "session-1")

	require.NoError(t, d.StoreResult(ctx, "what is go", "Go is a language", "https://go.dev/"))
	require.NoError(t, d.StoreResult(ctx, "what is go", "It has goroutines", "https://go.dev/tour"))
	require.NoError(t, d.StoreResult(context.Background(), "other", "unrelated", "https://x.test/"))

	items, err := d.ListByIntent(context.Background(), "what is go")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.NotEqual(t, items[0].ID, items[1].ID)
	assert.Equal(t, "session-1", items[0].SessionID)
	assert.ElementsMatch(t, []string{"https://go.dev/", "https://go.dev/tour"},
		[]string{items[0].SourceURL, items[1].SourceURL})

	bySession, err := d.ListBySession(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Len(t, bySession, 2)

	n, err := d.DeleteBySession(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestUserDAO(t *testing.T) {
	db := openTestDB(t)
	d := dao.NewUserDAO(db.DB)
	ctx := context.Background()

	u, err := d.GetUserByUsername(ctx, "ada")
	require.NoError(t, err)
	assert.Nil(t, u)

	created, err := d.CreateUser(ctx, "ada", "ada@example.com", nil)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	u, err = d.GetUserByUsername(ctx, "ada")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, created.ID, u.ID)
}
