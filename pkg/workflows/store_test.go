package workflows

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestCreateAndLoad(t *testing.T) {
	store := newTestStore(t)

	wf, err := store.Create()
	require.NoError(t, err)
	assert.NotEmpty(t, wf.ID)
	assert.Contains(t, wf.Name, "New Workflow")

	loaded, err := store.Load(wf.ID)
	require.NoError(t, err)
	assert.Equal(t, wf.ID, loaded.ID)
	assert.Empty(t, loaded.Nodes)
}

func TestSaveRoundTripsGraph(t *testing.T) {
	store := newTestStore(t)

	wf, err := store.Create()
	require.NoError(t, err)

	wf.Nodes = []json.RawMessage{json.RawMessage(`{"id":"n1","type":"text","position":{"x":0,"y":0}}`)}
	wf.Edges = []json.RawMessage{json.RawMessage(`{"id":"e1","source":"n1","target":"n2"}`)}
	require.NoError(t, store.Save(wf))

	loaded, err := store.Load(wf.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Nodes, 1)
	assert.JSONEq(t, `{"id":"n1","type":"text","position":{"x":0,"y":0}}`, string(loaded.Nodes[0]))
	require.Len(t, loaded.Edges, 1)
}

func TestSaveRejectsMissingID(t *testing.T) {
	store := newTestStore(t)
	err := store.Save(&Workflow{Name: "no id"})
	assert.Error(t, err)
}

func TestListSortsByUpdatedAt(t *testing.T) {
	store := newTestStore(t)

	a, err := store.Create()
	require.NoError(t, err)
	b, err := store.Create()
	require.NoError(t, err)

	// Push a ahead of b.
	a.UpdatedAt = time.Now().UTC().Add(time.Hour)
	require.NoError(t, store.writeLocked(a))

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)
}

func TestRename(t *testing.T) {
	store := newTestStore(t)

	wf, err := store.Create()
	require.NoError(t, err)

	require.NoError(t, store.Rename(wf.ID, "My Pipeline"))

	loaded, err := store.Load(wf.ID)
	require.NoError(t, err)
	assert.Equal(t, "My Pipeline", loaded.Name)

	assert.Error(t, store.Rename(wf.ID, "   "))
	assert.Error(t, store.Rename("missing", "x"))
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)

	wf, err := store.Create()
	require.NoError(t, err)

	require.NoError(t, store.Delete(wf.ID))
	_, err = store.Load(wf.ID)
	assert.Error(t, err)

	assert.Error(t, store.Delete(wf.ID))
}

func TestIDIsSanitizedForPath(t *testing.T) {
	store := newTestStore(t)

	wf := &Workflow{ID: "../escape", Name: "evil"}
	require.NoError(t, store.Save(wf))

	// The file must land inside the store directory.
	got := store.path("../escape")
	assert.Equal(t, store.dir, filepath.Dir(got))
}
