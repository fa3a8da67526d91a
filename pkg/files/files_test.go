package files

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, string, string) {
	t.Helper()
	downloads := t.TempDir()
	data := t.TempDir()
	return NewService(downloads, data, func() string { return "r8_key" }), downloads, data
}

func TestResolveDestinationDefault(t *testing.T) {
	svc, downloads, _ := newTestService(t)

	dir, err := svc.resolveDestination("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(downloads, "noder"), dir)
}

func TestResolveDestinationRelative(t *testing.T) {
	svc, downloads, _ := newTestService(t)

	dir, err := svc.resolveDestination("projects/../../../etc")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dir, filepath.Join(downloads, "noder")))
}

func TestResolveDestinationAbsolute(t *testing.T) {
	svc, downloads, data := newTestService(t)

	dir, err := svc.resolveDestination(filepath.Join(downloads, "sub"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(downloads, "sub"), dir)

	_, err = svc.resolveDestination(filepath.Join(data, "exports"))
	assert.NoError(t, err)

	_, err = svc.resolveDestination("/etc")
	assert.Error(t, err)

	// A sibling whose name shares the root's prefix is still outside.
	_, err = svc.resolveDestination(downloads + "-evil")
	assert.Error(t, err)
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()

	first := uniquePath(dir, "out.png")
	assert.Equal(t, filepath.Join(dir, "out.png"), first)
	require.NoError(t, os.WriteFile(first, nil, 0644))

	second := uniquePath(dir, "out.png")
	assert.Equal(t, filepath.Join(dir, "out_1.png"), second)
	require.NoError(t, os.WriteFile(second, nil, 0644))

	third := uniquePath(dir, "out.png")
	assert.Equal(t, filepath.Join(dir, "out_2.png"), third)
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image-bytes"))
	}))
	t.Cleanup(server.Close)

	svc, downloads, _ := newTestService(t)

	path, err := svc.Download(context.Background(), server.URL+"/out.png", "out.png", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(downloads, "noder", "out.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))
}

func TestDownloadErrorRemovesPartialFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	svc, downloads, _ := newTestService(t)

	_, err := svc.Download(context.Background(), server.URL+"/gone.png", "gone.png", "")
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(downloads, "noder", "gone.png"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestReadAsDataURL(t *testing.T) {
	svc, _, data := newTestService(t)

	path := filepath.Join(data, "pixel.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 0x50}, 0644))

	dataURL, err := svc.ReadAsDataURL(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dataURL, "data:image/png;base64,"))

	_, err = svc.ReadAsDataURL(filepath.Join(data, "missing.png"))
	assert.Error(t, err)
}

func TestSaveUploaded(t *testing.T) {
	svc, _, data := newTestService(t)

	first, err := svc.SaveUploaded([]byte("a"), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(data, "uploads", "doc.pdf"), first)

	second, err := svc.SaveUploaded([]byte("b"), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(data, "uploads", "doc_1.pdf"), second)
}

func TestMimeByExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".png", "image/png"},
		{".JPG", "image/jpeg"},
		{".mp4", "video/mp4"},
		{".wav", "audio/wav"},
		{".bin", "application/octet-stream"},
		{"", "application/octet-stream"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mimeByExtension(tt.ext), tt.ext)
	}
}
