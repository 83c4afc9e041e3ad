package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/HandsomeHarry/companion-cube/internal/logging"
	"github.com/HandsomeHarry/companion-cube/internal/pattern"
	"github.com/HandsomeHarry/companion-cube/internal/state"
	"github.com/HandsomeHarry/companion-cube/internal/types"
)

var log = logging.For("config")

// SourceKind selects which event-source backend feeds the engine.
type SourceKind string

const (
	SourceTracker SourceKind = "external-tracker" // ActivityWatch-compatible HTTP API
	SourceNative  SourceKind = "native"           // local process sampler
)

// Cooldowns holds the per-state minimum gap between interventions.
// A zero duration for flow is interpreted as "suppressed entirely".
type Cooldowns struct {
	Working time.Duration `yaml:"working"`
	Nudge   time.Duration `yaml:"nudge"`
}

// Config is the engine configuration, loaded from a YAML file with
// environment-variable overrides.
type Config struct {
	Source           SourceKind         `yaml:"source"`
	ActivityWatchURL string             `yaml:"activitywatch_url"`
	PollInterval     time.Duration      `yaml:"poll_interval"`
	Mode             string             `yaml:"mode"`
	DeviceEnabled    bool               `yaml:"device_enabled"`
	DeviceURL        string             `yaml:"device_url"`
	OllamaURL        string             `yaml:"ollama_url"`
	OllamaModel      string             `yaml:"ollama_model"`
	StatePath        string             `yaml:"state_path"`
	LogLevel         string             `yaml:"log_level"`
	CollectData      bool               `yaml:"collect_data"` // consent flag for persisting records
	BufferCapacity   int                `yaml:"buffer_capacity"`
	ReanalyzeEvery   time.Duration      `yaml:"reanalyze_every"`
	Thresholds       state.Thresholds   `yaml:"thresholds"`
	Stuck            pattern.Thresholds `yaml:"stuck"`
	Cooldowns        Cooldowns          `yaml:"cooldowns"`
}

// Default returns the configuration the engine runs with when no file or
// overrides are present.
func Default() Config {
	return Config{
		Source:           SourceTracker,
		ActivityWatchURL: "http://localhost:5600",
		PollInterval:     60 * time.Second,
		Mode:             string(types.ModeCoach),
		DeviceEnabled:    false,
		DeviceURL:        "ws://localhost:8321/device",
		OllamaURL:        "http://localhost:11434",
		OllamaModel:      "cas/mistral-7b-instruct-v0.3",
		StatePath:        "state",
		LogLevel:         "info",
		CollectData:      true,
		BufferCapacity:   100,
		ReanalyzeEvery:   5 * time.Minute,
		Thresholds:       state.DefaultThresholds(),
		Stuck:            pattern.DefaultThresholds(),
		Cooldowns: Cooldowns{
			Working: 15 * time.Minute,
			Nudge:   5 * time.Minute,
		},
	}
}

// Load reads the YAML file at path (if it exists), applies environment
// overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			log.Infof("no config file at %s, using defaults", path)
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("COMPANION_SOURCE"); v != "" {
		cfg.Source = SourceKind(v)
	}
	if v := os.Getenv("ACTIVITYWATCH_URL"); v != "" {
		cfg.ActivityWatchURL = v
	}
	if v := os.Getenv("COMPANION_MODE"); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		cfg.OllamaURL = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		cfg.OllamaModel = v
	}
	if v := os.Getenv("STATE_PATH"); v != "" {
		cfg.StatePath = v
	}
	if v := os.Getenv("DEVICE_URL"); v != "" {
		cfg.DeviceURL = v
		cfg.DeviceEnabled = true
	}
	if v := os.Getenv("POLL_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PollInterval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// Validate rejects configurations the engine cannot run with. This is the one
// error class that aborts startup instead of degrading at runtime.
func (c Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", c.PollInterval)
	}
	if c.ReanalyzeEvery <= 0 {
		return fmt.Errorf("reanalyze_every must be positive, got %v", c.ReanalyzeEvery)
	}
	if c.BufferCapacity <= 0 {
		return fmt.Errorf("buffer_capacity must be positive, got %d", c.BufferCapacity)
	}
	if _, ok := types.ParseMode(c.Mode); !ok {
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	switch c.Source {
	case SourceTracker, SourceNative:
	default:
		return fmt.Errorf("unknown source kind %q", c.Source)
	}
	return nil
}

// CompanionMode returns the parsed mode. Validate guarantees it parses.
func (c Config) CompanionMode() types.CompanionMode {
	mode, _ := types.ParseMode(c.Mode)
	return mode
}

// Watcher re-reads the config file when the external settings GUI rewrites it
// and hands the validated result to a callback. Invalid rewrites are logged
// and ignored; the engine keeps its last good configuration.
type Watcher struct {
	path     string
	onChange func(Config)

	mu      sync.Mutex
	fw      *fsnotify.Watcher
	stopped bool
}

// NewWatcher creates a config file watcher. The callback runs on the watcher
// goroutine; it must not block.
func NewWatcher(path string, onChange func(Config)) *Watcher {
	return &Watcher{path: path, onChange: onChange}
}

// Start begins watching. Missing files are tolerated: the watch is placed on
// the directory so a later create is still seen.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.mu.Lock()
	w.fw = fw
	w.mu.Unlock()

	go w.loop(fw)
	log.Infof("watching %s for settings changes", w.path)
	return nil
}

// Stop ends the watch.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fw != nil && !w.stopped {
		w.fw.Close()
		w.stopped = true
	}
}

func (w *Watcher) loop(fw *fsnotify.Watcher) {
	// Editors often emit bursts of writes; debounce before reloading.
	var pending <-chan time.Time
	for {
		select {
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(500 * time.Millisecond)
		case <-pending:
			pending = nil
			cfg, err := Load(w.path)
			if err != nil {
				log.Warnf("ignoring invalid settings rewrite: %v", err)
				continue
			}
			w.onChange(cfg)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			log.Warnf("watch error: %v", err)
		}
	}
}
