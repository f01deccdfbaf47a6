// Package cli implements the klingclip command line: generate, token and check.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/maauso/klingclip/internal/config"
)

// globalOptions are flags shared by every command.
type globalOptions struct {
	envFile string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "klingclip",
		Short: "Turn still images into short video clips with the Kling API",
		Long: `klingclip submits images to the Kling image-to-video API, waits for each job,
and stores clip_NN.mp4 plus a clip_NN_config.txt provenance record in the output directory.

Configuration comes from the environment and an optional .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "dotenv file to read before the environment")

	root.AddCommand(
		newGenerateCommand(opts),
		newTokenCommand(opts),
		newCheckCommand(opts),
	)

	return root
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
		}
		return 1
	}
	return 0
}

// errReported marks failures whose details were already printed.
var errReported = errors.New("failures reported above")

// loadConfig reads configuration and installs the configured logger as default.
func loadConfig(cmd *cobra.Command, opts *globalOptions) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return nil, nil, err
	}

	logger := cfg.NewLogger(cmd.ErrOrStderr())
	slog.SetDefault(logger)
	logger.Debug("configuration loaded",
		slog.String("command", cmd.Name()),
		slog.String("config", cfg.String()),
	)
	return cfg, logger, nil
}
