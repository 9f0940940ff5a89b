package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evercode/routegen/pkg/config"
	"github.com/evercode/routegen/pkg/inventory"
	"github.com/evercode/routegen/pkg/routing"
)

type renderOptions struct {
	summary      bool
	skipValidate bool
}

func newRenderCmd(opts *rootOptions) *cobra.Command {
	var ro renderOptions
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the routing document for the inventory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			doc, err := renderInventory(cfg, ro.skipValidate)
			if err != nil {
				return err
			}
			if ro.summary {
				return writeSummary(cmd.OutOrStdout(), doc)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		},
	}
	fs := cmd.Flags()
	fs.BoolVar(&ro.summary, "summary", false, "print a router summary instead of JSON")
	fs.BoolVar(&ro.skipValidate, "skip-validate", false, "render even when ports conflict")
	return cmd
}

func renderInventory(cfg *config.Config, skipValidate bool) (routing.Document, error) {
	model, err := inventory.LoadFile(cfg.Inventory.File, cfg.InventoryFormat())
	if err != nil {
		return routing.Document{}, err
	}
	if !skipValidate {
		if err := routing.Validate(model); err != nil {
			return routing.Document{}, err
		}
	}
	return routing.Render(model, cfg.RoutingParams()), nil
}

func writeSummary(w io.Writer, doc routing.Document) error {
	names := doc.RouterNames()
	if _, err := fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%d routers", len(names)))); err != nil {
		return err
	}
	for _, name := range names {
		r := doc.HTTP.Routers[name]
		var targets []string
		for _, t := range doc.HTTP.Services[r.Service].LoadBalancer.Servers {
			targets = append(targets, t.URL)
		}
		line := fmt.Sprintf("%s  %s -> %s", nameStyle.Render(name), r.Rule, targetStyle.Render(strings.Join(targets, ",")))
		if len(r.Middlewares) > 0 {
			line += " " + dimStyle.Render("["+strings.Join(r.Middlewares, ",")+"]")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
