package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/evercode/routegen/pkg/httpclient"
	"github.com/evercode/routegen/pkg/notify"
)

func newNotifyCmd(opts *rootOptions) *cobra.Command {
	return newNotifyCmdWithDoer(opts, nil)
}

func newNotifyCmdWithDoer(opts *rootOptions, doer httpclient.HTTPDoer) *cobra.Command {
	var skipValidate bool
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Publish the current routing document to the webhook once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Notify.WebhookURL == "" {
				return fmt.Errorf("notify.webhook_url is not set")
			}
			doc, err := renderInventory(cfg, skipValidate)
			if err != nil {
				return err
			}
			n, err := notify.New(notify.Options{
				URL:            cfg.Notify.WebhookURL,
				Username:       cfg.Notify.Username,
				AttachFile:     cfg.Notify.AttachFile,
				AttachmentName: cfg.Notify.AttachmentName,
				Timeout:        time.Duration(cfg.Notify.TimeoutMs) * time.Millisecond,
			}, doer)
			if err != nil {
				return err
			}
			if err := n.PublishDocument(cmd.Context(), doc); err != nil {
				return fmt.Errorf("publish: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("Published"), dimStyle.Render(fmt.Sprintf("%d routers", len(doc.HTTP.Routers))))
			return err
		},
	}
	cmd.Flags().BoolVar(&skipValidate, "skip-validate", false, "publish even when ports conflict")
	return cmd
}
