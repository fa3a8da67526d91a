package updater

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUpdater(t *testing.T, handler http.Handler) *Updater {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	u := New("noder-app/noder", t.TempDir())
	u.http.SetBaseURL(server.URL)
	return u
}

func TestCheckForUpdate(t *testing.T) {
	u := newTestUpdater(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/noder-app/noder/releases/latest", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"tag_name":"v1.2.0","name":"1.2.0","assets":[]}`)
	}))

	release, hasUpdate, err := u.CheckForUpdate(context.Background(), "1.1.0")
	require.NoError(t, err)
	assert.True(t, hasUpdate)
	assert.Equal(t, "v1.2.0", release.TagName)

	_, hasUpdate, err = u.CheckForUpdate(context.Background(), "v1.2.0")
	require.NoError(t, err)
	assert.False(t, hasUpdate)
}

func TestCheckForUpdateNoRepo(t *testing.T) {
	u := New("", t.TempDir())
	_, _, err := u.CheckForUpdate(context.Background(), "1.0.0")
	assert.Error(t, err)
}

func TestSelectAssetFor(t *testing.T) {
	release := &Release{
		TagName: "v1.2.0",
		Assets: []Asset{
			{Name: "noder_1.2.0_x64.msi"},
			{Name: "noder_1.2.0_aarch64.dmg"},
			{Name: "noder_1.2.0_x86_64.AppImage"},
		},
	}

	tests := []struct {
		goos, goarch string
		want         string
	}{
		{"windows", "amd64", "noder_1.2.0_x64.msi"},
		{"darwin", "arm64", "noder_1.2.0_aarch64.dmg"},
		{"linux", "amd64", "noder_1.2.0_x86_64.AppImage"},
	}
	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			asset, err := selectAssetFor(release, tt.goos, tt.goarch)
			require.NoError(t, err)
			assert.Equal(t, tt.want, asset.Name)
		})
	}

	_, err := selectAssetFor(&Release{TagName: "v9"}, "windows", "amd64")
	assert.Error(t, err)
}

func TestDownloadSanitizesAssetName(t *testing.T) {
	var assetServer *httptest.Server
	assetServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload"))
	}))
	t.Cleanup(assetServer.Close)

	dataDir := t.TempDir()
	u := New("noder-app/noder", dataDir)

	path, err := u.Download(context.Background(), &Asset{
		Name:               "../../evil.msi",
		BrowserDownloadURL: assetServer.URL + "/evil.msi",
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dataDir, "updates"), filepath.Dir(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestPowershellQuote(t *testing.T) {
	assert.Equal(t, "'plain'", powershellQuote("plain"))
	assert.Equal(t, "'it''s here'", powershellQuote("it's here"))
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "'plain'", shellQuote("plain"))
	assert.Equal(t, `'it'\''s here'`, shellQuote("it's here"))
}

func TestBuildWindowsScript(t *testing.T) {
	script := buildWindowsScript(`C:\Users\o'brien\update.msi`, 1234)

	assert.Contains(t, script, "Wait-Process -Id 1234")
	assert.Contains(t, script, "msiexec.exe")
	// The quote in the path must be doubled, never closing the literal.
	assert.Contains(t, script, `'C:\Users\o''brien\update.msi'`)
}

func TestBuildDarwinScript(t *testing.T) {
	script := buildDarwinScript("/tmp/updates/noder.zip", 4321)

	assert.True(t, strings.HasPrefix(script, "#!/bin/bash"))
	assert.Contains(t, script, "while kill -0 4321")
	assert.Contains(t, script, "ditto -x -k '/tmp/updates/noder.zip'")
	assert.Contains(t, script, "rm -f")

	dmg := buildDarwinScript("/tmp/updates/noder.dmg", 4321)
	assert.Contains(t, dmg, "open '/tmp/updates/noder.dmg'")
	assert.NotContains(t, dmg, "rm -f")
}
