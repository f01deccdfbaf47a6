// Package artifact fetches finished clips and records where they came from.
package artifact

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/maauso/klingclip/internal/failure"
	"github.com/maauso/klingclip/internal/storage"
)

// DefaultDownloadTimeout bounds a single artifact download.
const DefaultDownloadTimeout = 300 * time.Second

// ErrStoreRequired is returned when no output store is provided.
var ErrStoreRequired = fmt.Errorf("%w: artifact: output store is required", failure.ErrConfiguration)

// File describes a downloaded artifact on local disk.
type File struct {
	Name string
	Path string
	Size int64
}

// Retriever downloads artifacts into an output store.
type Retriever struct {
	store      storage.Storage
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// Option is a function that configures a Retriever.
type Option func(*Retriever)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(r *Retriever) {
		r.httpClient = hc
	}
}

// WithTimeout sets the download timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Retriever) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Retriever) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRetriever creates a Retriever that writes into store.
func NewRetriever(store storage.Storage, opts ...Option) (*Retriever, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	r := &Retriever{
		store:      store,
		httpClient: &http.Client{},
		timeout:    DefaultDownloadTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Download fetches url without authentication and saves the body as name.
// Every failure, including a failed local write, is reported as failure.ErrDownload.
// A failed download never leaves a partial file under name.
func (r *Retriever) Download(ctx context.Context, url, name string) (File, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return File{}, fmt.Errorf("%w: create request: %w", failure.ErrDownload, err)
	}

	r.logger.Info("downloading artifact", slog.String("name", name))

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return File{}, fmt.Errorf("%w: fetch %s: %w", failure.ErrDownload, name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		r.logger.Error("artifact download rejected",
			slog.String("name", name),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return File{}, &failure.StatusError{
			Kind:       failure.ErrDownload,
			Op:         "GET artifact " + name,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	path, size, err := r.store.Save(ctx, name, resp.Body)
	if err != nil {
		return File{}, fmt.Errorf("%w: %w", failure.ErrDownload, err)
	}

	r.logger.Info("artifact downloaded",
		slog.String("path", path),
		slog.String("size", formatMB(size)),
		slog.Duration("took", time.Since(start)),
	)

	return File{Name: name, Path: path, Size: size}, nil
}

func formatMB(n int64) string {
	return fmt.Sprintf("%.2fMB", float64(n)/(1024*1024))
}
