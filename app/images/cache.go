package images

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Cache downloads remote event images into a local directory. Filenames are
// derived from the source URL, so repeated materialization of the same URL is
// idempotent and safe to run from parallel buckets.
type Cache struct {
	dir        string
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

func NewCache(dir string, httpClient *http.Client, userAgent string) *Cache {
	return &Cache{
		dir:        dir,
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    30 * time.Second,
	}
}

// Materialize fetches the remote image once and returns the local path. An
// already cached URL is returned without a network round trip. On failure the
// caller keeps the remote URL and loses perceptual dedup for that record only.
func (c *Cache) Materialize(ctx context.Context, remoteURL string) (string, error) {
	if remoteURL == "" {
		return "", fmt.Errorf("empty image URL")
	}

	localPath := filepath.Join(c.dir, c.fileName(remoteURL))
	if _, err := os.Stat(localPath); err == nil {
		return localPath, nil
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}

	data, err := c.fetch(ctx, remoteURL)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	slog.Debug("Image cached", "url", remoteURL, "path", localPath)
	return localPath, nil
}

func (c *Cache) fetch(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}

	return data, nil
}

// fileName keys the cache by URL hash, preserving the remote extension when
// it looks like an image extension.
func (c *Cache) fileName(url string) string {
	sum := sha256.Sum256([]byte(url))
	name := hex.EncodeToString(sum[:])

	ext := strings.ToLower(path.Ext(strings.SplitN(url, "?", 2)[0]))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return name + ext
	default:
		return name + ".jpg"
	}
}
