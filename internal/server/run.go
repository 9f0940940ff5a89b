package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/evercode/routegen/internal/logx"
	"github.com/evercode/routegen/pkg/config"
	"github.com/evercode/routegen/pkg/notify"
)

const shutdownTimeout = 5 * time.Second

// Run resolves the inventory, serves the routing document and blocks until
// ctx is cancelled or the process receives SIGINT/SIGTERM. A malformed
// inventory fails startup.
func Run(ctx context.Context, cfg *config.Config) error {
	snap, err := BuildSnapshot(cfg)
	if err != nil {
		return err
	}
	st := &state{}
	st.Store(snap)
	m := newMetrics()
	m.observeSnapshot(snap)
	log.Printf("[routegen] inventory loaded: file=%q snapshot=%s servers=%d routers=%d",
		cfg.Inventory.File, snap.ID, len(snap.Model), len(snap.Document.HTTP.Routers))
	if cfg.Logging.Debug() {
		logModel("[routegen] debug", snap.Model)
	}

	accessLogger, accessClose, accessColor, err := openAccessLogger(cfg)
	if err != nil {
		return fmt.Errorf("init access log: %w", err)
	}
	if accessClose != nil {
		defer func() { _ = accessClose.Close() }()
	}
	accessFormat, err := logx.ResolveAccessLogFormat(cfg.Logging.AccessLogFormat, cfg.Logging.AccessLogFormatPreset)
	if err != nil {
		return fmt.Errorf("resolve access log format: %w", err)
	}
	accessFormatter, err := logx.CompileAccessLogFormat(accessFormat)
	if err != nil {
		return fmt.Errorf("compile access_log_format: %w", err)
	}

	pidCleanup, err := writePIDFile(cfg)
	if err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	if pidCleanup != nil {
		defer func() { _ = pidCleanup.Close() }()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pub, err := newPublisher(cfg, m, nil)
	if err != nil {
		return fmt.Errorf("init webhook: %w", err)
	}
	if pub != nil {
		go pub.publish(ctx, snap, "startup")
		if spec := strings.TrimSpace(cfg.Notify.Schedule); spec != "" {
			stopSchedule, err := notify.Schedule(spec, func() { pub.publish(ctx, st.Snapshot(), "schedule") })
			if err != nil {
				return err
			}
			defer stopSchedule()
		}
	}

	rl := &reloader{cfg: cfg, st: st, metrics: m}
	if pub != nil && cfg.Notify.OnReload {
		rl.onSwap = func(s *Snapshot) { go pub.publish(ctx, s, "reload") }
	}
	rl.installSignalHandler(ctx)
	autoReloadClose, err := rl.installAutoReload()
	if err != nil {
		return fmt.Errorf("init inventory auto reload: %w", err)
	}
	if autoReloadClose != nil {
		defer func() { _ = autoReloadClose.Close() }()
	}

	engine := NewRouter(cfg, st, m, accessLogger, accessColor, "", accessFormatter)
	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutMs) * time.Millisecond,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Printf("[routegen] listening on %s (document at %s)", cfg.Server.Listen, DocumentPath)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("run: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Printf("[routegen] shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func openAccessLogger(cfg *config.Config) (*log.Logger, io.Closer, bool, error) {
	if cfg == nil || !cfg.Logging.AccessLog {
		return nil, nil, false, nil
	}

	path := strings.TrimSpace(cfg.Logging.AccessLogPath)
	if path == "" {
		return log.New(os.Stdout, "", 0), nil, logx.ColorEnabled(), nil
	}

	dir := filepath.Dir(path)
	if strings.TrimSpace(dir) != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, false, err
		}
	}
	// #nosec G304 -- access_log_path comes from trusted config/env.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, false, err
	}
	return log.New(f, "", 0), f, false, nil
}

func writePIDFile(cfg *config.Config) (io.Closer, error) {
	if cfg == nil {
		return nil, nil
	}
	path := strings.TrimSpace(cfg.Server.PidFile)
	if path == "" {
		return nil, nil
	}
	dir := filepath.Dir(path)
	if strings.TrimSpace(dir) != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, err
		}
	}

	tmp := path + ".tmp"
	pid := strconv.Itoa(os.Getpid()) + "\n"
	// #nosec G304 -- pid_file comes from trusted config/env.
	if err := os.WriteFile(tmp, []byte(pid), 0o600); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return nil, err
	}
	return closerFunc(func() error { return os.Remove(path) }), nil
}

// ReadPIDFile returns the pid recorded by a running server.
func ReadPIDFile(path string) (int, error) {
	// #nosec G304 -- pid file path comes from trusted config/env.
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read pid file %q: %w", path, err)
	}
	pidStr := strings.TrimSpace(string(b))
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %q: %q", path, pidStr)
	}
	return pid, nil
}

// SendReload asks the server whose pid is in path to reload its inventory.
func SendReload(path string) error {
	pid, err := ReadPIDFile(path)
	if err != nil {
		return err
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process pid=%d: %w", pid, err)
	}
	if err := p.Signal(syscall.SIGHUP); err != nil {
		return fmt.Errorf("send SIGHUP pid=%d: %w", pid, err)
	}
	return nil
}
