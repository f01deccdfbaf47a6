package clip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/maauso/klingclip/internal/artifact"
	"github.com/maauso/klingclip/internal/failure"
	"github.com/maauso/klingclip/internal/kling"
	"github.com/maauso/klingclip/internal/prompt"
	"github.com/maauso/klingclip/internal/storage"
)

// ErrInvalidClipNumber is returned for clip numbers below 1.
var ErrInvalidClipNumber = fmt.Errorf("%w: clip number must be at least 1", failure.ErrConfiguration)

// Submitter sends a generation job.
type Submitter interface {
	Submit(ctx context.Context, in kling.SubmitInput) (jobID string, err error)
}

// Waiter blocks until a job reaches a terminal status.
type Waiter interface {
	WaitForCompletion(ctx context.Context, jobID string, maxWaitMinutes int) (kling.ArtifactRef, error)
}

// Downloader fetches a finished artifact into the output store.
type Downloader interface {
	Download(ctx context.Context, url, name string) (artifact.File, error)
}

// Settings are the per-run generation parameters shared by every clip.
type Settings struct {
	Mode            kling.Mode
	DurationSeconds int
	AspectRatio     string
	MaxWaitMinutes  int
	BasePrompt      string
	// Model and APIHost are recorded in the provenance sidecar.
	Model   string
	APIHost string
}

// Item is one clip to generate.
type Item struct {
	ImagePath    string
	ClipNumber   int
	MotionPrompt string
}

// Controller turns one image into one downloaded clip with its provenance record.
type Controller struct {
	submitter  Submitter
	waiter     Waiter
	downloader Downloader
	store      storage.Storage
	repo       Repository
	settings   Settings
	logger     *slog.Logger
}

// ControllerOption is a function that configures a Controller.
type ControllerOption func(*Controller)

// WithRepository sets where clip state is tracked.
func WithRepository(r Repository) ControllerOption {
	return func(c *Controller) {
		if r != nil {
			c.repo = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController wires the lifecycle stages together.
func NewController(
	submitter Submitter,
	waiter Waiter,
	downloader Downloader,
	store storage.Storage,
	settings Settings,
	opts ...ControllerOption,
) *Controller {
	c := &Controller{
		submitter:  submitter,
		waiter:     waiter,
		downloader: downloader,
		store:      store,
		repo:       NewMemoryRepository(),
		settings:   settings,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Repository returns the clip store used by the controller.
func (c *Controller) Repository() Repository {
	return c.repo
}

// Generate runs one clip end to end and returns the local artifact path.
// Any stage failure stops the remaining stages; nothing is retried.
func (c *Controller) Generate(ctx context.Context, imagePath string, clipNumber int, motionPrompt string) (string, error) {
	cl, err := c.GenerateClip(ctx, Item{ImagePath: imagePath, ClipNumber: clipNumber, MotionPrompt: motionPrompt})
	if err != nil {
		return "", err
	}
	return cl.VideoPath, nil
}

// GenerateClip is Generate returning the full clip record. The record is
// returned on failure too, in its FAILED or TIMED_OUT state.
func (c *Controller) GenerateClip(ctx context.Context, item Item) (*Clip, error) {
	if item.ClipNumber < 1 {
		return nil, ErrInvalidClipNumber
	}

	cl := New(item.ClipNumber, item.ImagePath, item.MotionPrompt)
	logger := c.logger.With(
		slog.String("clip_id", cl.ID),
		slog.Int("clip", item.ClipNumber),
		slog.String("image", filepath.Base(item.ImagePath)),
	)
	c.save(ctx, cl, logger)

	fullPrompt := prompt.Merge(item.MotionPrompt, c.settings.BasePrompt)
	logger.Info("generating clip", slog.String("prompt", fullPrompt))

	jobID, err := c.submitter.Submit(ctx, kling.SubmitInput{
		ImagePath:       item.ImagePath,
		Prompt:          fullPrompt,
		Mode:            c.settings.Mode,
		DurationSeconds: c.settings.DurationSeconds,
		AspectRatio:     c.settings.AspectRatio,
	})
	if err != nil {
		return c.fail(ctx, cl, logger, "submit", err)
	}
	checkTransition(logger, StatusSubmitted, cl.Submitted(fullPrompt, jobID))
	c.save(ctx, cl, logger)
	logger = logger.With(slog.String("job_id", jobID))

	ref, err := c.waiter.WaitForCompletion(ctx, jobID, c.settings.MaxWaitMinutes)
	if err != nil {
		return c.fail(ctx, cl, logger, "wait", err)
	}
	checkTransition(logger, StatusDownloading, cl.Downloading(ref.URL))
	c.save(ctx, cl, logger)

	videoName := artifact.VideoName(item.ClipNumber)
	file, err := c.downloader.Download(ctx, ref.URL, videoName)
	if err != nil {
		logger.Error("artifact lost locally, retry by hand with the URL",
			slog.String("url", ref.URL),
		)
		return c.fail(ctx, cl, logger, "download", err)
	}

	provenancePath, err := artifact.WriteProvenance(ctx, c.store, artifact.Provenance{
		ClipNumber:      item.ClipNumber,
		SourceImage:     filepath.Base(item.ImagePath),
		JobID:           jobID,
		Prompt:          fullPrompt,
		Model:           c.settings.Model,
		Mode:            string(c.settings.Mode),
		AspectRatio:     c.settings.AspectRatio,
		DurationSeconds: c.settings.DurationSeconds,
		APIHost:         c.settings.APIHost,
	})
	if err != nil {
		logger.Error("video kept without provenance", slog.String("path", file.Path))
		return c.fail(ctx, cl, logger, "provenance", err)
	}

	c.publish(ctx, cl, logger, videoName, artifact.ProvenanceName(item.ClipNumber))

	checkTransition(logger, StatusCompleted, cl.Complete(file.Path, provenancePath))
	c.save(ctx, cl, logger)

	logger.Info("clip completed",
		slog.String("path", file.Path),
		slog.Int64("bytes", file.Size),
	)

	return cl, nil
}

// publish uploads the video and its sidecar when remote storage is configured.
// A failure here is recorded on the clip and does not fail it.
func (c *Controller) publish(ctx context.Context, cl *Clip, logger *slog.Logger, videoName, provenanceName string) {
	url, err := c.store.Publish(ctx, videoName)
	if errors.Is(err, storage.ErrRemoteNotConfigured) {
		return
	}
	if err == nil {
		_, err = c.store.Publish(ctx, provenanceName)
	}
	if err != nil {
		logger.Error("publish failed, local copy kept", slog.String("error", err.Error()))
		cl.SetPublished(url, err.Error())
		return
	}

	logger.Info("clip published", slog.String("url", url))
	cl.SetPublished(url, "")
}

func (c *Controller) fail(ctx context.Context, cl *Clip, logger *slog.Logger, stage string, err error) (*Clip, error) {
	if errors.Is(err, failure.ErrTimeout) {
		checkTransition(logger, StatusTimedOut, cl.Timeout(err.Error()))
	} else {
		checkTransition(logger, StatusFailed, cl.Fail(err.Error()))
	}
	c.save(ctx, cl, logger)

	logger.Error("clip failed",
		slog.String("stage", stage),
		slog.String("status", string(cl.GetStatus())),
		slog.String("kind", kindName(err)),
		slog.String("error", err.Error()),
	)

	return cl, fmt.Errorf("clip %02d: %s: %w", cl.Number, stage, err)
}

// checkTransition logs a state change the clip rejected. The stage outcome stands.
func checkTransition(logger *slog.Logger, to Status, err error) {
	if err != nil {
		logger.Warn("clip state change rejected",
			slog.String("to", string(to)),
			slog.String("error", err.Error()),
		)
	}
}

func kindName(err error) string {
	if k := failure.Kind(err); k != nil {
		return k.Error()
	}
	return "unknown"
}

func (c *Controller) save(ctx context.Context, cl *Clip, logger *slog.Logger) {
	if err := c.repo.Save(ctx, cl); err != nil {
		logger.Warn("failed to record clip state", slog.String("error", err.Error()))
	}
}
