// Package bootstrap wires configuration into the clip generation pipeline.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/maauso/klingclip/internal/artifact"
	"github.com/maauso/klingclip/internal/auth"
	"github.com/maauso/klingclip/internal/clip"
	"github.com/maauso/klingclip/internal/config"
	"github.com/maauso/klingclip/internal/kling"
	"github.com/maauso/klingclip/internal/prompt"
	"github.com/maauso/klingclip/internal/storage"
)

// Dependencies holds all initialized components for one run.
type Dependencies struct {
	Minter     *auth.Minter
	Client     *kling.HTTPClient
	Poller     *kling.Poller
	Store      storage.Storage
	Retriever  *artifact.Retriever
	Controller *clip.Controller
	Batch      *clip.Batch
}

// NewMinter builds the token minter from the configured key pair.
func NewMinter(cfg *config.Config) (*auth.Minter, error) {
	return auth.NewMinter(auth.Keys{
		AccessID: cfg.KlingAccessKey,
		Secret:   cfg.KlingSecretKey,
	})
}

// NewDependencies validates cfg and creates every component.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	minter, err := NewMinter(cfg)
	if err != nil {
		return nil, err
	}

	settings, err := clipSettings(cfg)
	if err != nil {
		return nil, err
	}

	defaults := kling.StandardDefaults()
	defaults.ModelName = cfg.KlingModel

	client, err := kling.NewClient(minter,
		kling.WithBaseURL(cfg.KlingBaseURL),
		kling.WithDefaults(defaults),
		kling.WithRateLimiter(newRateLimiter(cfg)),
		kling.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create Kling client: %w", err)
	}

	poller := kling.NewPoller(client,
		kling.WithPollInterval(cfg.PollInterval),
		kling.WithRegistrationWait(cfg.RegistrationWait),
		kling.WithPollLogger(logger),
	)

	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	retriever, err := artifact.NewRetriever(store, artifact.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	controller := clip.NewController(client, poller, retriever, store, settings,
		clip.WithLogger(logger),
	)

	batch := clip.NewBatch(controller,
		clip.WithCooldown(cfg.ClipCooldown),
		clip.WithBatchLogger(logger),
	)

	return &Dependencies{
		Minter:     minter,
		Client:     client,
		Poller:     poller,
		Store:      store,
		Retriever:  retriever,
		Controller: controller,
		Batch:      batch,
	}, nil
}

// clipSettings maps the configured generation parameters onto clip.Settings.
func clipSettings(cfg *config.Config) (clip.Settings, error) {
	mode, err := kling.ParseMode(cfg.KlingMode)
	if err != nil {
		return clip.Settings{}, err
	}

	return clip.Settings{
		Mode:            mode,
		DurationSeconds: cfg.KlingDuration,
		AspectRatio:     cfg.KlingAspectRatio,
		MaxWaitMinutes:  cfg.MaxWaitMinutes,
		BasePrompt:      prompt.Base,
		Model:           cfg.KlingModel,
		APIHost:         cfg.APIHost(),
	}, nil
}

// newRateLimiter paces API calls; a zero interval disables pacing.
func newRateLimiter(cfg *config.Config) *rate.Limiter {
	if cfg.APIRateInterval <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(cfg.APIRateInterval), cfg.APIRateBurst)
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Prefix:          cfg.S3Prefix,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(ctx, cfg.OutputDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 publishing configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("prefix", cfg.S3Prefix),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("output_dir", cfg.OutputDir),
	)
	return localStore, nil
}
