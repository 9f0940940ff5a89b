package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evercode/routegen/pkg/inventory"
	"github.com/evercode/routegen/pkg/routing"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var portsOnly bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the inventory for port conflicts and service names shared across servers",
		Long: `Resolve the inventory and check it.

Two services on one server may not share a port. A service name may not be
used on more than one server, since only one router per name can exist.
Pass --ports-only to skip the service name check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			model, err := inventory.LoadFile(cfg.Inventory.File, cfg.InventoryFormat())
			if err != nil {
				return err
			}
			check := routing.Validate
			if portsOnly {
				check = routing.ValidatePorts
			}
			if err := check(model); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n",
				okStyle.Render("Configuration is valid"),
				dimStyle.Render(fmt.Sprintf("(%d servers, %d services)", len(model), model.ServiceCount())))
			return err
		},
	}
	cmd.Flags().BoolVar(&portsOnly, "ports-only", false, "only check per-server port conflicts")
	return cmd
}
