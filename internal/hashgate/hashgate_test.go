package hashgate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temirov/llm-prompter/internal/fsops"
	"github.com/temirov/llm-prompter/internal/hashgate"
)

func TestHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", hashgate.Hash(""))
	assert.Len(t, hashgate.Hash("SELECT 1"), 64)
	assert.NotEqual(t, hashgate.Hash("SELECT 1"), hashgate.Hash("SELECT 2"))
}

func TestGateLifecycle(t *testing.T) {
	store := fsops.NewMem()
	gate := hashgate.Gate{Store: store, Dir: "/hash"}

	first, err := gate.Check("views/a.sql", "SELECT 1")
	require.NoError(t, err)
	assert.True(t, first.Process, "no stored hash means process")

	require.NoError(t, gate.Commit("views/a.sql", first.CurrentHash))
	stored, err := store.ReadText("/hash/views/a.sql.hash")
	require.NoError(t, err)
	assert.Equal(t, first.CurrentHash, stored)

	unchanged, err := gate.Check("views/a.sql", "SELECT 1")
	require.NoError(t, err)
	assert.False(t, unchanged.Process, "unchanged payload must be skipped")
	assert.True(t, store.FileExists("/hash/views/a.sql.hash"))

	changed, err := gate.Check("views/a.sql", "SELECT 2")
	require.NoError(t, err)
	assert.True(t, changed.Process)
	assert.False(t, store.FileExists("/hash/views/a.sql.hash"), "stale hash must be deleted before processing")
}

func TestGateForceReprocessesAndDropsStoredHash(t *testing.T) {
	store := fsops.NewMem()
	gate := hashgate.Gate{Store: store, Dir: "/hash"}
	require.NoError(t, gate.Commit("a.sql", hashgate.Hash("SELECT 1")))

	gate.Force = true
	decision, err := gate.Check("a.sql", "SELECT 1")
	require.NoError(t, err)
	assert.True(t, decision.Process)
	assert.False(t, store.FileExists("/hash/a.sql.hash"))
}

func TestDisabledGate(t *testing.T) {
	store := fsops.NewMem()
	gate := hashgate.Gate{Store: store}

	decision, err := gate.Check("a.sql", "SELECT 1")
	require.NoError(t, err)
	assert.True(t, decision.Process)
	assert.Equal(t, hashgate.Hash("SELECT 1"), decision.CurrentHash)
	require.NoError(t, gate.Commit("a.sql", decision.CurrentHash))

	files, err := store.ListFiles("/")
	require.NoError(t, err)
	assert.Empty(t, files)
}
