package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestSaveAndGet(t *testing.T) {
	store := newTestStore(t)

	cred := Credential{ID: "cred-1", Name: "Slack webhook", Value: "https://hooks.slack.com/abc", Type: "webhook"}
	require.NoError(t, store.Save(cred))

	got, err := store.Get("cred-1")
	require.NoError(t, err)
	assert.Equal(t, cred, *got)
}

func TestSaveRejectsMissingID(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.Save(Credential{Name: "no id"}))
}

func TestSaveUsesRestrictivePermissions(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(Credential{ID: "secret", Name: "n", Value: "v"}))

	info, err := os.Stat(store.path("secret"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestListSortsByName(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(Credential{ID: "b", Name: "zeta"}))
	require.NoError(t, store.Save(Credential{ID: "a", Name: "alpha"}))

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "zeta", list[1].Name)
}

func TestListSkipsMalformed(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(Credential{ID: "good", Name: "good"}))
	require.NoError(t, os.WriteFile(filepath.Join(store.dir, "broken.json"), []byte("{nope"), 0644))

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "good", list[0].ID)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(Credential{ID: "x", Name: "x"}))

	require.NoError(t, store.Delete("x"))
	_, err := store.Get("x")
	assert.Error(t, err)
	assert.Error(t, store.Delete("x"))
}

func TestIDSanitizedForPath(t *testing.T) {
	store := newTestStore(t)
	got := store.path("../../etc/passwd")
	assert.Equal(t, store.dir, filepath.Dir(got))
}
