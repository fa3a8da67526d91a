// Package updater checks GitHub releases for new versions, downloads the
// platform asset and hands installation off to a detached script so the
// running binary can be replaced.
package updater

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/noder-app/noder/pkg/logger"
	"github.com/noder-app/noder/pkg/sanitize"
)

const githubAPIBase = "https://api.github.com"

// Release is the subset of the GitHub release payload the updater needs.
type Release struct {
	TagName string  `json:"tag_name"`
	Name    string  `json:"name"`
	Body    string  `json:"body"`
	Assets  []Asset `json:"assets"`
}

type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

type Updater struct {
	repo    string // "owner/name"
	dataDir string
	http    *resty.Client
}

func New(repo, dataDir string) *Updater {
	return &Updater{
		repo:    repo,
		dataDir: dataDir,
		http: resty.New().
			SetBaseURL(githubAPIBase).
			SetHeader("Accept", "application/vnd.github+json"),
	}
}

// CheckForUpdate fetches the latest release and reports whether its version
// differs from currentVersion. Tags compare with the "v" prefix stripped.
func (u *Updater) CheckForUpdate(ctx context.Context, currentVersion string) (*Release, bool, error) {
	if strings.TrimSpace(u.repo) == "" {
		return nil, false, fmt.Errorf("update repo not configured")
	}

	var release Release
	resp, err := u.http.R().
		SetContext(ctx).
		SetResult(&release).
		Get("/repos/" + u.repo + "/releases/latest")
	if err != nil {
		return nil, false, fmt.Errorf("fetch latest release: %w", err)
	}
	if resp.IsError() {
		return nil, false, fmt.Errorf("fetch latest release: %s", resp.Status())
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	current := strings.TrimPrefix(currentVersion, "v")
	return &release, latest != "" && latest != current, nil
}

// SelectAsset picks the release asset for the current platform.
func (u *Updater) SelectAsset(release *Release) (*Asset, error) {
	return selectAssetFor(release, runtime.GOOS, runtime.GOARCH)
}

func selectAssetFor(release *Release, goos, goarch string) (*Asset, error) {
	if release == nil {
		return nil, fmt.Errorf("no release")
	}

	var suffixes []string
	switch goos {
	case "windows":
		suffixes = []string{".msi", ".exe"}
	case "darwin":
		suffixes = []string{".dmg", ".zip", ".tar.gz"}
	default:
		suffixes = []string{".AppImage", ".deb", ".tar.gz"}
	}

	archHints := []string{goarch}
	if goarch == "amd64" {
		archHints = append(archHints, "x64", "x86_64")
	}
	if goarch == "arm64" {
		archHints = append(archHints, "aarch64")
	}

	// Prefer an arch-matched asset, fall back to any suffix match.
	for _, suffix := range suffixes {
		for _, asset := range release.Assets {
			lower := strings.ToLower(asset.Name)
			if !strings.HasSuffix(lower, suffix) && !strings.HasSuffix(lower, strings.ToLower(suffix)) {
				continue
			}
			for _, hint := range archHints {
				if strings.Contains(lower, hint) {
					a := asset
					return &a, nil
				}
			}
		}
	}
	for _, suffix := range suffixes {
		for _, asset := range release.Assets {
			if strings.HasSuffix(strings.ToLower(asset.Name), strings.ToLower(suffix)) {
				a := asset
				return &a, nil
			}
		}
	}
	return nil, fmt.Errorf("no asset for %s/%s in release %s", goos, goarch, release.TagName)
}

// Download fetches the asset into the updates directory and returns its path.
// The stored filename is sanitized so the asset name cannot escape it.
func (u *Updater) Download(ctx context.Context, asset *Asset) (string, error) {
	if asset == nil {
		return "", fmt.Errorf("no asset")
	}

	dir := filepath.Join(u.dataDir, "updates")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	dest := filepath.Join(dir, sanitize.Filename(asset.Name))
	resp, err := u.http.R().
		SetContext(ctx).
		SetOutput(dest).
		Get(asset.BrowserDownloadURL)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", asset.Name, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("download %s: %s", asset.Name, resp.Status())
	}

	logger.InfoCF("updater", "Update downloaded", map[string]interface{}{
		"asset": asset.Name,
		"path":  dest,
	})
	return dest, nil
}
