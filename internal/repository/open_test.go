package repository

import (
	"path/filepath"
	"testing"

	"github.com/atinyakov/GophTodo/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	store, conn, err := Open(db.Memory, "", "", 0)
	require.NoError(t, err)
	assert.Nil(t, conn)
	assert.IsType(t, &MemoryRecordRepository{}, store)

	store, conn, err = Open(db.SQLite, "", filepath.Join(t.TempDir(), "todo.db"), 0)
	require.NoError(t, err)
	require.NotNil(t, conn)
	defer conn.Close()
	assert.IsType(t, &SQLRecordRepository{}, store)

	_, _, err = Open(db.Driver("mongo"), "", "", 0)
	assert.ErrorContains(t, err, "unknown store driver")
}
