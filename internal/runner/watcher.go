package runner

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lucasilverentand/repo-agents/internal/githubapi"
	"github.com/lucasilverentand/repo-agents/internal/lock"
	"github.com/lucasilverentand/repo-agents/internal/logging"
	"github.com/lucasilverentand/repo-agents/internal/model"
)

// WatcherConfig configures local watch mode: a directory of delivery files
// (one webhook-style JSON payload each, named "<event>-<anything>.json") is
// validated against every agent definition as files land.
type WatcherConfig struct {
	EventsDir         string
	AgentsDir         string
	StatePath         string
	RescanIntervalSec int
	ServerURL         string
}

// Watcher tails the events directory with fsnotify plus a periodic rescan:
// fsnotify for latency, the ticker for events missed while busy.
type Watcher struct {
	cfg    WatcherConfig
	runner *Runner
	logger *logging.Logger

	agents   []*model.AgentDefinition
	fileLock *lock.FileLock
	agentMu  *lock.MutexMap
	watcher  *fsnotify.Watcher
	ticker   *time.Ticker

	mu        sync.Mutex
	processed map[string]bool

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	shutdown sync.Once
}

func NewWatcher(cfg WatcherConfig, r *Runner, logger *logging.Logger) *Watcher {
	interval := cfg.RescanIntervalSec
	if interval <= 0 {
		interval = 10
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		cfg:       cfg,
		runner:    r,
		logger:    logger,
		fileLock:  lock.NewFileLock(cfg.StatePath + ".lock"),
		agentMu:   lock.NewMutexMap(),
		ticker:    time.NewTicker(time.Duration(interval) * time.Second),
		processed: make(map[string]bool),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Run blocks until SIGINT/SIGTERM or Stop.
func (w *Watcher) Run() error {
	if w.cfg.StatePath != "" {
		if err := w.fileLock.TryLock(); err != nil {
			return fmt.Errorf("watcher lock: %w", err)
		}
	}
	w.logger.Infof("watcher starting pid=%d events_dir=%s", os.Getpid(), w.cfg.EventsDir)

	if err := w.loadAgents(); err != nil {
		w.cleanup()
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.cleanup()
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w.watcher = fw

	if err := os.MkdirAll(w.cfg.EventsDir, 0755); err != nil {
		w.cleanup()
		return fmt.Errorf("ensure events dir: %w", err)
	}
	if err := fw.Add(w.cfg.EventsDir); err != nil {
		w.cleanup()
		return fmt.Errorf("watch %s: %w", w.cfg.EventsDir, err)
	}

	w.wg.Add(2)
	go w.fsnotifyLoop()
	go w.tickerLoop()

	w.scan()
	w.logger.Infof("watcher ready agents=%d", len(w.agents))

	w.waitSignals()
	return nil
}

func (w *Watcher) loadAgents() error {
	entries, err := os.ReadDir(w.cfg.AgentsDir)
	if err != nil {
		return fmt.Errorf("read agents dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		def, err := model.LoadAgentDefinition(filepath.Join(w.cfg.AgentsDir, e.Name()))
		if err != nil {
			// One broken definition must not take the watcher down.
			w.logger.Errorf("watcher agent_load_failed file=%s err=%v", e.Name(), err)
			continue
		}
		w.agents = append(w.agents, def)
	}
	if len(w.agents) == 0 {
		return fmt.Errorf("no agent definitions in %s", w.cfg.AgentsDir)
	}
	return nil
}

func (w *Watcher) fsnotifyLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.logger.Debugf("watcher fsnotify op=%s file=%s", event.Op, event.Name)
				w.handleFile(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("watcher fsnotify_error err=%v", err)
		}
	}
}

func (w *Watcher) tickerLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.ticker.C:
			w.logger.Debugf("watcher periodic_scan")
			w.scan()
		}
	}
}

func (w *Watcher) scan() {
	entries, err := os.ReadDir(w.cfg.EventsDir)
	if err != nil {
		w.logger.Errorf("watcher scan_failed err=%v", err)
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			w.handleFile(filepath.Join(w.cfg.EventsDir, e.Name()))
		}
	}
}

func (w *Watcher) handleFile(path string) {
	if !strings.HasSuffix(path, ".json") {
		return
	}

	w.mu.Lock()
	if w.processed[path] {
		w.mu.Unlock()
		return
	}
	w.processed[path] = true
	w.mu.Unlock()

	eventName := eventNameFromFile(path)
	payload, err := githubapi.LoadEventPayload(path)
	if err != nil {
		w.logger.Errorf("watcher delivery_unreadable file=%s err=%v", path, err)
		return
	}

	vctx, err := w.deliveryContext(eventName, path, payload)
	if err != nil {
		w.logger.Errorf("watcher delivery_invalid file=%s err=%v", path, err)
		return
	}

	for _, def := range w.agents {
		// One runner invocation per agent; the per-agent mutex keeps a
		// single writer on the shared dedup state.
		w.agentMu.Lock(def.Name)
		report, err := w.runner.Run(w.ctx, def, vctx)
		w.agentMu.Unlock(def.Name)

		switch {
		case err != nil:
			w.logger.Errorf("watcher run_failed agent=%s delivery=%s err=%v", def.Name, filepath.Base(path), err)
		case report.Deduplicated:
			w.logger.Infof("watcher run_deduplicated agent=%s delivery=%s", def.Name, filepath.Base(path))
		case !report.Result.Allowed:
			w.logger.Infof("watcher run_denied agent=%s delivery=%s check=%s", def.Name, filepath.Base(path), report.Result.FailingCheck)
		default:
			w.logger.Infof("watcher run_complete agent=%s delivery=%s", def.Name, filepath.Base(path))
		}
	}

	done := path + ".done"
	if err := os.Rename(path, done); err != nil {
		w.logger.Warnf("watcher archive_failed file=%s err=%v", path, err)
	}
}

// deliveryContext reconstructs a ValidationContext from a delivery file. The
// actor comes from the payload's sender, the repository from its full_name;
// the delivery id stands in for a workflow run id.
func (w *Watcher) deliveryContext(eventName, path string, payload *githubapi.EventPayload) (model.ValidationContext, error) {
	if payload.Sender == nil || payload.Sender.Login == "" {
		return model.ValidationContext{}, fmt.Errorf("delivery has no sender")
	}
	if payload.Repository == nil || payload.Repository.FullName == "" {
		return model.ValidationContext{}, fmt.Errorf("delivery has no repository")
	}
	repo, err := model.ParseRepository(payload.Repository.FullName)
	if err != nil {
		return model.ValidationContext{}, err
	}

	id, err := model.GenerateDeliveryID()
	if err != nil {
		return model.ValidationContext{}, err
	}
	ts, _ := model.ParseDeliveryTimestamp(id)

	return model.ValidationContext{
		Actor:      payload.Sender.Login,
		Repository: repo,
		EventName:  eventName,
		EventPath:  path,
		RunID:      ts.Unix(),
		ServerURL:  w.cfg.ServerURL,
	}, nil
}

// eventNameFromFile maps "issues-1234.json" to "issues".
func eventNameFromFile(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), ".json")
	if i := strings.IndexByte(base, '-'); i > 0 {
		return base[:i]
	}
	return base
}

func (w *Watcher) waitSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		w.logger.Infof("watcher signal=%s shutting down", sig)
	case <-w.ctx.Done():
	}
	w.Stop()
}

// Stop shuts the watcher down gracefully; safe to call more than once.
func (w *Watcher) Stop() {
	w.shutdown.Do(func() {
		w.cancel()
		w.cleanup()
		w.wg.Wait()
		w.logger.Infof("watcher stopped")
	})
}

func (w *Watcher) cleanup() {
	w.ticker.Stop()
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
	if err := w.fileLock.Unlock(); err != nil {
		w.logger.Warnf("watcher unlock_failed err=%v", err)
	}
}
