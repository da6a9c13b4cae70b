package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/daytrack/internal/config"
)

// ReloadFunc applies a freshly loaded configuration.
type ReloadFunc func(ctx context.Context, cfg *config.Config) error

// ConfigWatcher monitors the configuration file and reloads it on change.
type ConfigWatcher struct {
	configPath   string
	reload       ReloadFunc
	watcher      *fsnotify.Watcher
	mu           sync.Mutex
	reloadMu     sync.Mutex // held for a whole reload; Stop takes it before mu
	stopChan     chan struct{}
	reloadChan   chan struct{}
	debounceTime time.Duration

	lastReload time.Time
	lastErr    error
}

// NewConfigWatcher creates a watcher for configPath.
func NewConfigWatcher(configPath string, reload ReloadFunc) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	return &ConfigWatcher{
		configPath:   absPath,
		reload:       reload,
		watcher:      watcher,
		stopChan:     make(chan struct{}),
		reloadChan:   make(chan struct{}, 1),
		debounceTime: 2 * time.Second,
	}, nil
}

func (cw *ConfigWatcher) Name() string           { return "config_watcher" }
func (cw *ConfigWatcher) Dependencies() []string { return []string{"scheduler"} }

// Start begins monitoring the configuration file.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	// Watch the directory: editors replace the file rather than write it in place.
	configDir := filepath.Dir(cw.configPath)
	if err := cw.watcher.Add(configDir); err != nil {
		return fmt.Errorf("failed to watch config directory %s: %w", configDir, err)
	}

	slog.Info("Starting configuration watcher", "config_path", cw.configPath)

	// The loops outlive the start context.
	loopCtx := context.WithoutCancel(ctx)
	go cw.watchLoop(loopCtx)
	go cw.reloadLoop(loopCtx)
	return nil
}

// Stop stops the configuration watcher. It waits for a reload in progress;
// no reload is applied after it returns.
func (cw *ConfigWatcher) Stop(_ context.Context) error {
	cw.reloadMu.Lock()
	defer cw.reloadMu.Unlock()
	cw.mu.Lock()
	defer cw.mu.Unlock()

	slog.Info("Stopping configuration watcher")
	select {
	case <-cw.stopChan:
		return nil
	default:
		close(cw.stopChan)
	}
	return cw.watcher.Close()
}

func (cw *ConfigWatcher) stopped() bool {
	select {
	case <-cw.stopChan:
		return true
	default:
		return false
	}
}

// Health reports the outcome of the last reload.
func (cw *ConfigWatcher) Health() HealthCheck {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	check := HealthCheck{Name: cw.Name(), Status: HealthStatusHealthy, LastChecked: time.Now()}
	if cw.lastErr != nil {
		check.Status = HealthStatusDegraded
		check.Message = fmt.Sprintf("last reload failed: %v", cw.lastErr)
	} else if !cw.lastReload.IsZero() {
		check.Message = "reloaded at " + cw.lastReload.Format(time.RFC3339)
	}
	return check
}

func (cw *ConfigWatcher) watchLoop(ctx context.Context) {
	configFile := filepath.Base(cw.configPath)

	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.stopChan:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create), event.Has(fsnotify.Rename):
				slog.Debug("Config file change detected", "file", event.Name, "op", event.Op.String())
				cw.triggerReload()
			case event.Has(fsnotify.Remove):
				slog.Warn("Config file removed", "file", event.Name)
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", "error", err)
		}
	}
}

// reloadLoop debounces bursts of change events into one reload.
func (cw *ConfigWatcher) reloadLoop(ctx context.Context) {
	var reloadTimer *time.Timer
	stopTimer := func() {
		if reloadTimer != nil {
			reloadTimer.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			return
		case <-cw.stopChan:
			stopTimer()
			return
		case <-cw.reloadChan:
			stopTimer()
			reloadTimer = time.AfterFunc(cw.debounceTime, func() {
				if err := cw.performReload(ctx); err != nil {
					slog.Error("Failed to reload configuration", "error", err)
				}
			})
		}
	}
}

func (cw *ConfigWatcher) triggerReload() {
	select {
	case cw.reloadChan <- struct{}{}:
	default:
	}
}

// performReload loads, validates and applies the configuration file. An
// invalid file leaves the running configuration in place. A debounce timer
// that fires after Stop does nothing.
func (cw *ConfigWatcher) performReload(ctx context.Context) error {
	cw.reloadMu.Lock()
	defer cw.reloadMu.Unlock()
	if cw.stopped() {
		slog.Debug("Skipping reload, configuration watcher stopped")
		return nil
	}

	slog.Info("Reloading configuration", "config_path", cw.configPath)

	newConfig, err := config.Load(cw.configPath)
	if err == nil {
		err = cw.reload(ctx, newConfig)
	}

	cw.mu.Lock()
	cw.lastErr = err
	if err == nil {
		cw.lastReload = time.Now()
	}
	cw.mu.Unlock()

	if err != nil {
		return err
	}
	slog.Info("Configuration reloaded successfully")
	return nil
}
