// Package files handles node outputs on disk: downloading generated media,
// re-reading local files as data URLs and storing user uploads.
package files

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/noder-app/noder/pkg/logger"
	"github.com/noder-app/noder/pkg/sanitize"
)

// Service confines all writes to the user's Downloads folder or the
// application data directory.
type Service struct {
	downloadsDir string
	dataDir      string
	replicateKey func() string
	http         *resty.Client
}

// NewService builds a file service. replicateKey is consulted per request
// so key rotations apply immediately; it may be nil.
func NewService(downloadsDir, dataDir string, replicateKey func() string) *Service {
	if replicateKey == nil {
		replicateKey = func() string { return "" }
	}
	return &Service{
		downloadsDir: downloadsDir,
		dataDir:      dataDir,
		replicateKey: replicateKey,
		http:         resty.New(),
	}
}

// DefaultDownloadsDir resolves the user's Downloads folder.
func DefaultDownloadsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Downloads"), nil
}

// resolveDestination validates destFolder against the allowed roots. An
// empty folder lands in Downloads/noder.
func (s *Service) resolveDestination(destFolder string) (string, error) {
	if strings.TrimSpace(destFolder) == "" {
		return filepath.Join(s.downloadsDir, "noder"), nil
	}

	if !filepath.IsAbs(destFolder) {
		// Relative destinations are rebuilt from sanitized segments under
		// the default folder.
		return filepath.Join(s.downloadsDir, "noder", sanitize.RelativePath(destFolder)), nil
	}

	cleaned := filepath.Clean(destFolder)
	for _, root := range []string{s.downloadsDir, s.dataDir} {
		if root == "" {
			continue
		}
		if cleaned == root || strings.HasPrefix(cleaned, root+string(filepath.Separator)) {
			return cleaned, nil
		}
	}
	return "", fmt.Errorf("destination %q is outside the allowed folders", destFolder)
}

// uniquePath appends _1, _2, ... to the stem until the name is free.
func uniquePath(dir, filename string) string {
	safe := sanitize.Filename(filename)
	candidate := filepath.Join(dir, safe)
	if _, err := os.Stat(candidate); os.IsNotExist(err) {
		return candidate
	}

	ext := filepath.Ext(safe)
	stem := strings.TrimSuffix(safe, ext)
	for i := 1; ; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// Download fetches rawURL and writes it under destFolder, returning the
// saved path. Requests to the Replicate API carry the stored token so
// short-lived output URLs keep working.
func (s *Service) Download(ctx context.Context, rawURL, filename, destFolder string) (string, error) {
	dir, err := s.resolveDestination(destFolder)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	req := s.http.R().SetContext(ctx)
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Host == "api.replicate.com" {
		if key := s.replicateKey(); key != "" {
			req.SetHeader("Authorization", "Token "+key)
		}
	}

	dest := uniquePath(dir, filename)
	resp, err := req.SetOutput(dest).Get(rawURL)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	if resp.IsError() {
		os.Remove(dest)
		return "", fmt.Errorf("download failed: %s", resp.Status())
	}

	logger.InfoCF("files", "File saved", map[string]interface{}{"path": dest})
	return dest, nil
}

// ReadAsDataURL loads a local file and returns it as a base64 data URL for
// the frontend. The MIME type derives from the extension.
func (s *Service) ReadAsDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	mime := mimeByExtension(filepath.Ext(path))
	encoded := base64.StdEncoding.EncodeToString(data)
	return "data:" + mime + ";base64," + encoded, nil
}

// SaveUploaded stores user-provided bytes under the app data directory,
// never overwriting an existing file.
func (s *Service) SaveUploaded(content []byte, filename string) (string, error) {
	dir := filepath.Join(s.dataDir, "uploads")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	dest := uniquePath(dir, filename)
	if err := os.WriteFile(dest, content, 0644); err != nil {
		return "", err
	}
	return dest, nil
}

func mimeByExtension(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "svg":
		return "image/svg+xml"
	case "mp4":
		return "video/mp4"
	case "webm":
		return "video/webm"
	case "mov":
		return "video/quicktime"
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	case "ogg":
		return "audio/ogg"
	case "pdf":
		return "application/pdf"
	case "txt":
		return "text/plain"
	case "json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
