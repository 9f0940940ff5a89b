// Package cli wires the routegen command tree.
package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evercode/routegen/pkg/config"
)

type rootOptions struct {
	cfgPath   string
	inventory string
}

// load reads the app config and applies the --inventory override.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.cfgPath)
	if err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(o.inventory); v != "" {
		cfg.Inventory.File = v
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "routegen",
		Short:         "Translate a server inventory into a Traefik HTTP provider document",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.cfgPath, "config", "c", os.Getenv("ROUTEGEN_CONFIG"), "app config yaml path (optional)")
	pf.StringVarP(&opts.inventory, "inventory", "i", "", "inventory file path (overrides inventory.file)")

	cmd.AddCommand(
		newStartAPICmd(opts),
		newValidateCmd(opts),
		newRenderCmd(opts),
		newNotifyCmd(opts),
		newReloadCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return newRootCmd().Execute()
}
