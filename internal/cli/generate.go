package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maauso/klingclip/internal/bootstrap"
	"github.com/maauso/klingclip/internal/catalog"
	"github.com/maauso/klingclip/internal/clip"
	"github.com/maauso/klingclip/internal/prompt"
)

type generateOptions struct {
	pick      int
	first     int
	all       bool
	motion    string
	custom    string
	imagesDir string
	start     int
}

func newGenerateCommand(global *globalOptions) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one clip per selected image",
		Long: `Select images with exactly one of --pick, --first or --all. Clips are generated
one at a time, numbered after the highest clip already in the output directory.

Movement presets: ` + strings.Join(prompt.Movements(), ", "),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, global, opts)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.pick, "pick", 0, "generate from the Nth image (1-based)")
	f.IntVar(&opts.first, "first", 0, "generate from the first N images")
	f.BoolVar(&opts.all, "all", false, "generate from every image")
	f.StringVar(&opts.motion, "motion", prompt.DefaultMovement, "camera movement preset")
	f.StringVar(&opts.custom, "prompt", "", "custom motion prompt, replaces --motion")
	f.StringVar(&opts.imagesDir, "images", "", "images directory (default from IMAGES_DIR)")
	f.IntVar(&opts.start, "start", 0, "first clip number (default: next free number)")
	cmd.MarkFlagsMutuallyExclusive("pick", "first", "all")
	cmd.MarkFlagsOneRequired("pick", "first", "all")

	return cmd
}

func runGenerate(cmd *cobra.Command, global *globalOptions, opts *generateOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, logger, err := loadConfig(cmd, global)
	if err != nil {
		return err
	}
	if opts.imagesDir != "" {
		cfg.ImagesDir = opts.imagesDir
	}

	if cmd.Flags().Changed("start") && opts.start < 1 {
		return fmt.Errorf("%w: --start must be at least 1, got %d", clip.ErrInvalidClipNumber, opts.start)
	}

	motion := strings.TrimSpace(opts.custom)
	if motion == "" {
		if motion, err = prompt.Movement(opts.motion); err != nil {
			return err
		}
	}

	images, err := catalog.ListImages(cfg.ImagesDir)
	if err != nil {
		return err
	}
	selected, err := catalog.Select(images, catalog.Selection{Pick: opts.pick, First: opts.first, All: opts.all})
	if err != nil {
		return err
	}

	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}

	start := opts.start
	if !cmd.Flags().Changed("start") {
		if start, err = catalog.NextClipNumberIn(deps.Store.Dir()); err != nil {
			return err
		}
	}

	items := make([]clip.Item, len(selected))
	for i, img := range selected {
		items[i] = clip.Item{ImagePath: img, ClipNumber: start + i, MotionPrompt: motion}
	}

	logger.Info("starting generation",
		slog.Int("images", len(items)),
		slog.Int("first_clip", start),
		slog.String("motion", motion),
	)

	sum := deps.Batch.Run(ctx, items)

	// The repository holds every clip the batch started, in its final state.
	clips, err := deps.Controller.Repository().List(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}
	writeReport(out, clips)

	_, _ = fmt.Fprintf(out, "\nSucceeded: %d\nFailed:    %d\n", sum.Succeeded, sum.Failed)
	if sum.Skipped > 0 {
		_, _ = fmt.Fprintf(out, "Skipped:   %d\n", sum.Skipped)
	}
	_, _ = fmt.Fprintf(out, "Total:     %d\n", sum.Total)

	if !sum.OK() {
		return errReported
	}
	return nil
}

// writeReport prints one line per clip plus the details needed to recover it by hand.
func writeReport(out io.Writer, clips []*clip.Clip) {
	for _, cl := range clips {
		name := filepath.Base(cl.ImagePath)
		switch cl.Status {
		case clip.StatusCompleted:
			_, _ = fmt.Fprintf(out, "[OK] Clip %02d (%s): %s\n", cl.Number, name, cl.VideoPath)
			if cl.PublishedURL != "" {
				_, _ = fmt.Fprintf(out, "     published: %s\n", cl.PublishedURL)
			}
			if cl.PublishError != "" {
				_, _ = fmt.Fprintf(out, "     publish failed: %s\n", cl.PublishError)
			}
			continue
		case clip.StatusTimedOut:
			_, _ = fmt.Fprintf(out, "[X] Clip %02d (%s) timed out: %s\n", cl.Number, name, cl.Error)
		default:
			_, _ = fmt.Fprintf(out, "[X] Clip %02d (%s) failed: %s\n", cl.Number, name, cl.Error)
		}
		if cl.JobID != "" {
			_, _ = fmt.Fprintf(out, "     job: %s\n", cl.JobID)
		}
		if cl.ArtifactURL != "" {
			_, _ = fmt.Fprintf(out, "     artifact: %s\n", cl.ArtifactURL)
		}
	}
}
