package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/maauso/klingclip/internal/bootstrap"
)

func newTokenCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for manual API calls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(cmd, global)
			if err != nil {
				return err
			}

			minter, err := bootstrap.NewMinter(cfg)
			if err != nil {
				return err
			}

			tok, err := minter.Mint(time.Now())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, tok.Value)
			_, _ = fmt.Fprintf(out, "\nAuthorization: %s\n", tok.BearerHeader())
			_, _ = fmt.Fprintf(out, "Domain:        %s\n", cfg.KlingBaseURL)
			_, _ = fmt.Fprintf(out, "Valid from:    %s\n", tok.NotBefore.Format(time.RFC3339))
			_, _ = fmt.Fprintf(out, "Expires at:    %s\n", tok.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
}
