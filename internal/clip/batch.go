package clip

import (
	"context"
	"log/slog"
	"time"

	"github.com/maauso/klingclip/internal/clock"
)

// DefaultCooldown is the pause between two consecutive clips.
const DefaultCooldown = 15 * time.Second

// Generator produces one clip.
type Generator interface {
	GenerateClip(ctx context.Context, item Item) (*Clip, error)
}

// Result is the outcome of one batch item.
type Result struct {
	Item Item
	Clip *Clip
	Err  error
}

// Summary tallies a batch run. Skipped counts items never started because
// the context was cancelled.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Results   []Result
}

// OK reports whether every item succeeded.
func (s Summary) OK() bool {
	return s.Succeeded == s.Total
}

// Batch runs items one at a time. A failed item does not stop the batch.
type Batch struct {
	gen      Generator
	clock    clock.Clock
	cooldown time.Duration
	logger   *slog.Logger
}

// BatchOption is a function that configures a Batch.
type BatchOption func(*Batch)

// WithCooldown sets the pause between items. Zero disables it.
func WithCooldown(d time.Duration) BatchOption {
	return func(b *Batch) {
		if d >= 0 {
			b.cooldown = d
		}
	}
}

// WithBatchClock sets the clock used for the cooldown.
func WithBatchClock(clk clock.Clock) BatchOption {
	return func(b *Batch) {
		b.clock = clk
	}
}

// WithBatchLogger sets the logger.
func WithBatchLogger(l *slog.Logger) BatchOption {
	return func(b *Batch) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBatch creates a sequential batch runner.
func NewBatch(gen Generator, opts ...BatchOption) *Batch {
	b := &Batch{
		gen:      gen,
		clock:    clock.Real{},
		cooldown: DefaultCooldown,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run generates every item in order, sleeping the cooldown between items
// but not after the last one. Cancelling ctx stops the batch; items not yet
// started are counted as skipped.
func (b *Batch) Run(ctx context.Context, items []Item) Summary {
	sum := Summary{Total: len(items), Results: make([]Result, 0, len(items))}

	for i, item := range items {
		if ctx.Err() != nil {
			sum.Skipped = len(items) - i
			break
		}

		b.logger.Info("processing item",
			slog.Int("position", i+1),
			slog.Int("total", len(items)),
			slog.Int("clip", item.ClipNumber),
		)

		cl, err := b.gen.GenerateClip(ctx, item)
		sum.Results = append(sum.Results, Result{Item: item, Clip: cl, Err: err})
		if err != nil {
			sum.Failed++
		} else {
			sum.Succeeded++
		}

		if i == len(items)-1 || b.cooldown == 0 {
			continue
		}
		b.logger.Info("cooling down before next item", slog.Duration("wait", b.cooldown))
		if err := b.clock.Sleep(ctx, b.cooldown); err != nil {
			sum.Skipped = len(items) - i - 1
			break
		}
	}

	b.logger.Info("batch finished",
		slog.Int("total", sum.Total),
		slog.Int("succeeded", sum.Succeeded),
		slog.Int("failed", sum.Failed),
		slog.Int("skipped", sum.Skipped),
	)

	return sum
}
