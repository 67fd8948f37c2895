package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Watcher re-reads the config file when it changes and passes each valid
// revision to subscribers. Only settings that are safe to change at runtime
// are expected to be applied by subscribers: log level and rate limits.
type Watcher struct {
	v      *viper.Viper
	logger *zap.Logger

	mu          sync.Mutex
	subscribers []func(*Config)
	started     bool
}

// NewWatcher prepares a watcher over the same sources Load reads
func NewWatcher(configPath string, logger *zap.Logger) (*Watcher, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	return &Watcher{v: v, logger: logger.Named("config-watcher")}, nil
}

// Subscribe registers fn to receive every reloaded configuration
func (w *Watcher) Subscribe(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subscribers = append(w.subscribers, fn)
}

// Start begins watching. It reports false when there is no config file to
// watch, in which case only defaults and environment are in effect.
func (w *Watcher) Start() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return true
	}
	file := w.v.ConfigFileUsed()
	if file == "" {
		w.logger.Debug("No config file in use, not watching")
		return false
	}

	w.v.OnConfigChange(w.onChange)
	w.v.WatchConfig()
	w.started = true
	w.logger.Info("Watching config file", zap.String("file", file))
	return true
}

func (w *Watcher) onChange(e fsnotify.Event) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	w.reload(e.Name)
}

func (w *Watcher) reload(name string) {
	cfg, err := decode(w.v)
	if err != nil {
		w.logger.Warn("Ignoring invalid config change", zap.String("file", name), zap.Error(err))
		return
	}

	w.mu.Lock()
	subscribers := append([]func(*Config){}, w.subscribers...)
	w.mu.Unlock()

	w.logger.Info("Config reloaded", zap.String("file", name))
	for _, fn := range subscribers {
		fn(cfg)
	}
}
