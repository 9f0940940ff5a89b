package server

import (
	"context"
	"log"
	"time"

	"github.com/evercode/routegen/pkg/config"
	"github.com/evercode/routegen/pkg/httpclient"
	"github.com/evercode/routegen/pkg/notify"
)

type publisher struct {
	n       *notify.Notifier
	timeout time.Duration
	metrics *metrics
}

// newPublisher returns nil when no webhook is configured.
func newPublisher(cfg *config.Config, m *metrics, doer httpclient.HTTPDoer) (*publisher, error) {
	if cfg.Notify.WebhookURL == "" {
		return nil, nil
	}
	timeout := time.Duration(cfg.Notify.TimeoutMs) * time.Millisecond
	n, err := notify.New(notify.Options{
		URL:            cfg.Notify.WebhookURL,
		Username:       cfg.Notify.Username,
		AttachFile:     cfg.Notify.AttachFile,
		AttachmentName: cfg.Notify.AttachmentName,
		Timeout:        timeout,
	}, doer)
	if err != nil {
		return nil, err
	}
	return &publisher{n: n, timeout: timeout, metrics: m}, nil
}

// publish sends snap and logs the outcome. Failures never propagate.
func (p *publisher) publish(ctx context.Context, snap *Snapshot, trigger string) {
	if p == nil || snap == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.n.PublishDocument(ctx, snap.Document)
	if p.metrics != nil {
		p.metrics.webhook.WithLabelValues(resultLabel(err)).Inc()
	}
	if err != nil {
		log.Printf("[routegen] webhook publish failed (%s): snapshot=%s err=%v", trigger, snap.ID, err)
		return
	}
	log.Printf("[routegen] webhook publish ok (%s): snapshot=%s", trigger, snap.ID)
}
