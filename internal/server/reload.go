package server

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/evercode/routegen/pkg/config"
)

type reloader struct {
	cfg     *config.Config
	st      *state
	metrics *metrics

	// onSwap runs after a new snapshot is published.
	onSwap func(*Snapshot)

	mu sync.Mutex
}

// reload rebuilds the snapshot. On failure the current snapshot stays in
// place.
func (r *reloader) reload(trigger string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := BuildSnapshot(r.cfg)
	if r.metrics != nil {
		r.metrics.reloads.WithLabelValues(resultLabel(err)).Inc()
	}
	if err != nil {
		log.Printf("[routegen] reload failed (%s): %v", trigger, err)
		return err
	}
	r.st.Store(snap)
	r.metrics.observeSnapshot(snap)
	log.Printf("[routegen] reload ok (%s): inventory=%q snapshot=%s routers=%d",
		trigger, r.cfg.Inventory.File, snap.ID, len(snap.Document.HTTP.Routers))
	if r.cfg.Logging.Debug() {
		logModel("[routegen] debug", snap.Model)
	}
	if r.onSwap != nil {
		r.onSwap(snap)
	}
	return nil
}

func (r *reloader) installSignalHandler(ctx context.Context) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGHUP)
	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				_ = r.reload("signal")
			}
		}
	}()
}

// installAutoReload watches the inventory file's directory so editors that
// replace the file via rename are still picked up.
func (r *reloader) installAutoReload() (io.Closer, error) {
	if !r.cfg.Inventory.AutoReload.Enabled {
		return nil, nil
	}
	target, err := filepath.Abs(r.cfg.Inventory.File)
	if err != nil {
		return nil, err
	}
	debounce := time.Duration(r.cfg.Inventory.AutoReload.DebounceMs) * time.Millisecond

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)
		var (
			timer  *time.Timer
			timerC <-chan time.Time
		)
		resetTimer := func() {
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
				return
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)
			timerC = timer.C
		}

		for {
			select {
			case <-stopCh:
				if timer != nil {
					timer.Stop()
				}
				return
			case <-timerC:
				timerC = nil
				_ = r.reload("watch")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[routegen] inventory watcher error: %v", err)
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if shouldTriggerInventoryReload(evt, target) {
					resetTimer()
				}
			}
		}
	}()

	log.Printf("[routegen] inventory auto-reload enabled: file=%q debounce_ms=%d", target, r.cfg.Inventory.AutoReload.DebounceMs)
	return closerFunc(func() error {
		close(stopCh)
		_ = watcher.Close()
		<-doneCh
		return nil
	}), nil
}

func shouldTriggerInventoryReload(evt fsnotify.Event, target string) bool {
	if evt.Name == "" {
		return false
	}
	if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return false
	}
	name, err := filepath.Abs(evt.Name)
	if err != nil {
		return false
	}
	return name == target
}

type closerFunc func() error

func (c closerFunc) Close() error { return c() }
