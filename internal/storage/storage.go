// Package storage keeps finished clips and their sidecars in the output
// directory and can optionally publish them to an S3 bucket.
package storage

import (
	"context"
	"io"
)

// Storage defines where generated files end up.
type Storage interface {
	// Dir returns the output directory.
	Dir() string

	// Path returns the final location of name inside the output directory.
	Path(name string) string

	// Save writes data to name atomically: a reader of Path(name) sees either
	// the previous content or the complete new content, never a partial file.
	Save(ctx context.Context, name string, data io.Reader) (path string, size int64, err error)

	// Publish copies a saved file to remote storage and returns its URL.
	// Returns ErrRemoteNotConfigured if no remote is configured.
	Publish(ctx context.Context, name string) (url string, err error)
}
