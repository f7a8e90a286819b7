// Package media implements the Download Executor: given one URL, produce
// the full set of downloaded media files or fail. Direct image links are
// fetched over HTTP; everything else goes through yt-dlp.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"whatswizard/internal/adapters/ytdlp"
	"whatswizard/internal/classify"
	"whatswizard/internal/core/domain"
)

// PageFetcher resolves and downloads a media page. Satisfied by
// *ytdlp.Client.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL, dir string) ([]string, error)
}

// Executor is the concrete ports.Downloader.
type Executor struct {
	fetcher  PageFetcher
	client   *http.Client
	mediaDir string
}

// NewExecutor builds an Executor writing into mediaDir.
func NewExecutor(fetcher PageFetcher, mediaDir string) *Executor {
	return &Executor{
		fetcher: fetcher,
		client: &http.Client{
			Timeout: 30 * time.Minute, // videos can be large
		},
		mediaDir: mediaDir,
	}
}

// NewDefaultExecutor wires the yt-dlp binary at binaryPath.
func NewDefaultExecutor(binaryPath, mediaDir string) *Executor {
	return NewExecutor(ytdlp.NewClient(binaryPath), mediaDir)
}

// Download fetches all media behind rawURL. All-or-nothing: any failure
// fails the whole call and leaves no items behind.
func (e *Executor) Download(ctx context.Context, rawURL string) ([]domain.DownloadItem, error) {
	if err := os.MkdirAll(e.mediaDir, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}

	platform := domain.PlatformUnknown
	if m, ok := classify.Classify(rawURL); ok {
		platform = m.Platform
		rawURL = m.URL
	}

	target := classify.FixThumbnail(rawURL)
	if isDirectImage(target) {
		item, err := e.fetchImage(ctx, target, platform)
		if err != nil {
			return nil, err
		}
		return []domain.DownloadItem{item}, nil
	}

	paths, err := e.fetcher.Fetch(ctx, target, e.mediaDir)
	if err != nil {
		return nil, err
	}
	items := make([]domain.DownloadItem, 0, len(paths))
	for _, p := range paths {
		items = append(items, domain.DownloadItem{
			Platform:  platform,
			Path:      p,
			MediaType: mediaTypeFor(p),
		})
	}
	return items, nil
}

func (e *Executor) fetchImage(ctx context.Context, imageURL string, platform domain.Platform) (domain.DownloadItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return domain.DownloadItem{}, fmt.Errorf("build image request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return domain.DownloadItem{}, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.DownloadItem{}, fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}

	dest := filepath.Join(e.mediaDir, uuid.NewString()+extensionFor(imageURL))
	f, err := os.Create(dest)
	if err != nil {
		return domain.DownloadItem{}, fmt.Errorf("create image file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(dest)
		return domain.DownloadItem{}, fmt.Errorf("write image file: %w", err)
	}
	return domain.DownloadItem{Platform: platform, Path: dest, MediaType: "image"}, nil
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true,
}

func isDirectImage(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return imageExtensions[strings.ToLower(path.Ext(u.Path))]
}

func extensionFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".jpg"
	}
	if ext := strings.ToLower(path.Ext(u.Path)); ext != "" {
		return ext
	}
	return ".jpg"
}

func mediaTypeFor(filePath string) string {
	if imageExtensions[strings.ToLower(filepath.Ext(filePath))] {
		return "image"
	}
	return "video"
}
