// Package fetch resolves import sources to local archive files, downloading
// http(s) URLs to a temporary file first.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"
)

const (
	// DefaultMaxBytes caps a single download.
	DefaultMaxBytes = 512 << 20
	userAgent       = "yomidb-cli"
)

// ErrTooLarge is returned when a download exceeds Fetcher.MaxBytes.
var ErrTooLarge = errors.New("download exceeds size limit")

// Fetcher downloads remote archives.
type Fetcher struct {
	Client   *http.Client
	MaxBytes int64
	// Dir receives downloaded files. Empty means os.TempDir().
	Dir string
	// Logger is used for informational messages. nil means slog.Default().
	Logger *slog.Logger
}

// New returns a Fetcher with a bounded HTTP client.
func New() *Fetcher {
	return &Fetcher{
		Client:   &http.Client{Timeout: 10 * time.Minute},
		MaxBytes: DefaultMaxBytes,
	}
}

// IsURL reports whether src names an http or https resource.
func IsURL(src string) bool {
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Resolve returns a local path for src. Plain paths are returned as is.
// URLs are downloaded and the returned cleanup removes the file again; it
// is never nil.
func (f *Fetcher) Resolve(ctx context.Context, src string) (string, func(), error) {
	if !IsURL(src) {
		return src, func() {}, nil
	}
	path, err := f.download(ctx, src)
	if err != nil {
		return "", func() {}, fmt.Errorf("fetch %s: %w", src, err)
	}
	return path, func() { os.Remove(path) }, nil
}

func (f *Fetcher) download(ctx context.Context, src string) (string, error) {
	log := f.Logger
	if log == nil {
		log = slog.Default()
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	log.Info("downloading archive", "url", src)
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: %s", resp.Status)
	}
	if f.MaxBytes > 0 && resp.ContentLength > f.MaxBytes {
		return "", ErrTooLarge
	}

	out, err := os.CreateTemp(f.Dir, "yomidb-*.zip")
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	body := io.Reader(resp.Body)
	if f.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, f.MaxBytes+1)
	}
	n, err := io.Copy(out, body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && f.MaxBytes > 0 && n > f.MaxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(out.Name())
		return "", err
	}
	log.Debug("download complete", "url", src, "bytes", n, "path", out.Name())
	return out.Name(), nil
}
