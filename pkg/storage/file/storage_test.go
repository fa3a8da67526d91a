package file

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noder-app/noder/pkg/storage/repository"
)

func TestNewFileStorageRequiresPath(t *testing.T) {
	_, err := NewFileStorage("")
	assert.Error(t, err)
}

func TestWorkflowRepositoryRoundTrip(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, fs.Connect(context.Background()))
	defer fs.Close()

	ctx := context.Background()
	repo := fs.Workflows()

	wf, err := repo.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.Rename(ctx, wf.ID, "renamed"))

	loaded, err := repo.Load(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", loaded.Name)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, wf.ID))
	_, err = repo.Load(ctx, wf.ID)
	assert.Error(t, err)
}

func TestCredentialRepositoryRoundTrip(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	repo := fs.Credentials()

	cred := repository.Credential{ID: "c1", Name: "api", Value: "secret", Type: "api_key"}
	require.NoError(t, repo.Save(ctx, cred))

	got, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, cred, *got)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, "c1"))
	_, err = repo.Get(ctx, "c1")
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStorage(dir)
	require.NoError(t, err)
	assert.NoError(t, fs.Ping(context.Background()))
}
