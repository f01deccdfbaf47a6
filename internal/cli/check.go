package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/maauso/klingclip/internal/bootstrap"
	"github.com/maauso/klingclip/internal/catalog"
	"github.com/maauso/klingclip/internal/config"
	"github.com/maauso/klingclip/internal/storage"
)

// checkResult is one line of the check report.
type checkResult struct {
	ok      bool
	message string
}

func (r checkResult) String() string {
	if r.ok {
		return "[OK] " + r.message
	}
	return "[X] " + r.message
}

func newCheckCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify credentials, directories and token minting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(cmd, global)
			if err != nil {
				return err
			}

			results := runChecks(cmd, cfg)

			out := cmd.OutOrStdout()
			failed := 0
			for _, r := range results {
				_, _ = fmt.Fprintln(out, r)
				if !r.ok {
					failed++
				}
			}

			if failed > 0 {
				_, _ = fmt.Fprintf(out, "\n%d problem(s) found\n", failed)
				return errReported
			}
			_, _ = fmt.Fprintln(out, "\nAll checks passed")
			return nil
		},
	}
}

func runChecks(cmd *cobra.Command, cfg *config.Config) []checkResult {
	var results []checkResult
	add := func(ok bool, format string, args ...any) {
		results = append(results, checkResult{ok: ok, message: fmt.Sprintf(format, args...)})
	}

	credentials := true
	for _, kv := range []struct{ name, value string }{
		{"KLING_ACCESS_KEY", cfg.KlingAccessKey},
		{"KLING_SECRET_KEY", cfg.KlingSecretKey},
	} {
		if strings.TrimSpace(kv.value) == "" {
			add(false, "%s is not set", kv.name)
			credentials = false
			continue
		}
		add(true, "%s set: %s", kv.name, config.Mask(kv.value))
	}

	if credentials {
		if err := cfg.Validate(); err != nil {
			add(false, "settings invalid: %v", err)
		} else {
			add(true, "settings valid (%s, %s, %ds, %s)", cfg.KlingModel, cfg.KlingMode, cfg.KlingDuration, cfg.KlingAspectRatio)
		}
	}

	if images, err := catalog.ListImages(cfg.ImagesDir); err != nil {
		add(false, "images directory %s not readable", cfg.ImagesDir)
	} else {
		add(len(images) > 0, "images directory %s has %d image(s)", cfg.ImagesDir, len(images))
	}

	if err := checkWritable(cmd, cfg.OutputDir); err != nil {
		add(false, "output directory %s not writable: %v", cfg.OutputDir, err)
	} else {
		add(true, "output directory %s writable", cfg.OutputDir)
	}

	if credentials {
		minter, err := bootstrap.NewMinter(cfg)
		if err == nil {
			_, err = minter.Mint(time.Now())
		}
		if err != nil {
			add(false, "token minting failed: %v", err)
		} else {
			add(true, "token minting works")
		}
	}

	return results
}

func checkWritable(cmd *cobra.Command, dir string) error {
	store, err := storage.NewLocalStorage(dir)
	if err != nil {
		return err
	}
	path, _, err := store.Save(cmd.Context(), "klingclip_write_check.tmp", strings.NewReader("ok"))
	if err != nil {
		return err
	}
	return os.Remove(path)
}
