package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evercode/routegen/internal/server"
)

func newStartAPICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "start-api",
		Aliases: []string{"serve"},
		Short:   "Serve the routing document over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			return server.Run(cmd.Context(), cfg)
		},
	}
}

func newReloadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Ask a running server to reload its inventory (SIGHUP)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Server.PidFile == "" {
				return fmt.Errorf("server.pid_file is not set")
			}
			if err := server.SendReload(cfg.Server.PidFile); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "reload signal sent")
			return err
		},
	}
}
