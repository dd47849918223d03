package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/buildhub/contract-reconciler/constants"
	"github.com/buildhub/contract-reconciler/internal/repository"
)

// Handler processes one newly arrived contract file. The contract is
// already marked processing in the ledger when the handler runs.
type Handler func(ctx context.Context, contractID int64, path string) error

// Config for a directory watcher.
type Config struct {
	Dir         string
	Debounce    time.Duration // write-stability window before dispatch
	InitialScan bool          // emit files already present at start
}

// Watcher monitors a directory for new contract PDFs and hands each
// unseen filename to the handler exactly once. It is an explicit owned
// resource: construct, Start, and Stop when done. Multiple independent
// watchers can coexist.
type Watcher struct {
	cfg       Config
	contracts repository.ContractRepository
	handler   Handler
	logger    *slog.Logger

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	timers   map[string]*time.Timer
	started  bool
	stopped  bool
	cancel   context.CancelFunc
	loopDone chan struct{}
	handlers sync.WaitGroup
}

func NewWatcher(cfg Config, contracts repository.ContractRepository, handler Handler, logger *slog.Logger) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, errors.New("watch dir is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 2 * time.Second
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		cfg:       cfg,
		contracts: contracts,
		handler:   handler,
		logger:    logger,
		timers:    map[string]*time.Timer{},
	}, nil
}

// Start begins watching. The watch loop runs until Stop or ctx
// cancellation; handler failures are logged and never kill the loop.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return errors.New("watcher already started")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(w.cfg.Dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", w.cfg.Dir, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.fsw = fsw
	w.cancel = cancel
	w.loopDone = make(chan struct{})
	w.started = true

	go w.loop(ctx)

	if w.cfg.InitialScan {
		go w.scanExisting(ctx)
	}

	w.logger.Info("watcher.started", "dir", w.cfg.Dir, "debounce_ms", w.cfg.Debounce.Milliseconds())
	return nil
}

// Stop shuts the watcher down and waits for in-flight handlers. It is
// safe to call on a watcher that was never started, and to call twice.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.started || w.stopped {
		w.stopped = true
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	cancel := w.cancel
	fsw := w.fsw
	done := w.loopDone
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()

	cancel()
	err := fsw.Close()
	<-done
	w.handlers.Wait()
	w.logger.Info("watcher.stopped", "dir", w.cfg.Dir)
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.loopDone)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !eligible(e.Name) {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.bump(ctx, e.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher.error", "error", err)
		}
	}
}

// bump resets the stability timer for path. A file is treated as arrived
// only after a full debounce window with no further writes, so partially
// written uploads are not dispatched.
func (w *Watcher) bump(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.cfg.Debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		stopped := w.stopped
		w.mu.Unlock()
		if stopped {
			return
		}
		w.dispatch(ctx, path)
	})
}

func (w *Watcher) scanExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		w.logger.Error("watcher.scan.failed", "dir", w.cfg.Dir, "error", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.cfg.Dir, entry.Name())
		if eligible(path) {
			w.bump(ctx, path)
		}
	}
}

// dispatch runs the dedup gate and hands the file to the handler. The
// ledger row is marked processing before the handler is invoked so a
// crash mid-handler cannot cause a re-dispatch on restart.
func (w *Watcher) dispatch(ctx context.Context, path string) {
	processed, err := w.contracts.IsProcessed(ctx, path)
	if err != nil {
		w.logger.Error("watcher.dedup_check.failed", "path", path, "error", err)
		return
	}
	if processed {
		w.logger.Debug("watcher.skip.duplicate", "path", path)
		return
	}

	contractID, err := w.contracts.MarkProcessed(ctx, path, constants.ContractProcessing)
	if err != nil {
		w.logger.Error("watcher.mark.failed", "path", path, "error", err)
		return
	}
	w.logger.Info("watcher.dispatch", "path", path, "contract_id", contractID)

	w.handlers.Add(1)
	go func() {
		defer w.handlers.Done()
		defer func() {
			if r := recover(); r != nil {
				w.logger.Error("watcher.handler.panic", "path", path, "panic", r)
			}
		}()
		if err := w.handler(ctx, contractID, path); err != nil {
			w.logger.Error("watcher.handler.failed",
				"path", path,
				"contract_id", contractID,
				"error", err,
			)
		}
	}()
}

// eligible filters to non-hidden files with a .pdf extension,
// case-insensitively.
func eligible(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := constants.NormalizeExt(filepath.Ext(base))
	_, ok := constants.AllowedExtensions[ext]
	return ok
}
