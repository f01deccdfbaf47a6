package clip

import "context"

// Repository keeps clips for the lifetime of one run.
type Repository interface {
	// Save stores a clip, replacing any previous version with the same ID.
	Save(ctx context.Context, c *Clip) error

	// List returns all clips ordered by clip number.
	List(ctx context.Context) ([]*Clip, error)
}
