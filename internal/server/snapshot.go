package server

import (
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/evercode/routegen/pkg/config"
	"github.com/evercode/routegen/pkg/inventory"
	"github.com/evercode/routegen/pkg/routing"
)

// Snapshot is one resolved and rendered view of the inventory. It is never
// modified after BuildSnapshot returns; reloads publish a new one.
type Snapshot struct {
	ID       string
	Model    inventory.Model
	Document routing.Document
	LoadedAt time.Time
}

// BuildSnapshot loads the inventory named by cfg, validates it when
// cfg.ValidateOnStart is set, and renders the routing document.
func BuildSnapshot(cfg *config.Config) (*Snapshot, error) {
	model, err := inventory.LoadFile(cfg.Inventory.File, cfg.InventoryFormat())
	if err != nil {
		return nil, fmt.Errorf("load inventory %q: %w", cfg.Inventory.File, err)
	}
	if cfg.ValidateOnStart() {
		if err := routing.Validate(model); err != nil {
			return nil, fmt.Errorf("validate inventory %q: %w", cfg.Inventory.File, err)
		}
	}
	return &Snapshot{
		ID:       uuid.NewString(),
		Model:    model,
		Document: routing.Render(model, cfg.RoutingParams()),
		LoadedAt: time.Now(),
	}, nil
}

type state struct {
	snap atomic.Pointer[Snapshot]
}

func (s *state) Snapshot() *Snapshot {
	return s.snap.Load()
}

func (s *state) Store(snap *Snapshot) {
	s.snap.Store(snap)
}

func logModel(prefix string, model inventory.Model) {
	for _, srv := range model {
		names := make([]string, 0, len(srv.Services))
		for _, svc := range srv.Services {
			names = append(names, fmt.Sprintf("%s:%d", svc.Name, svc.Port))
		}
		log.Printf("%s server=%s ip=%s services=[%s]", prefix, srv.Name, srv.IP, strings.Join(names, " "))
	}
}
