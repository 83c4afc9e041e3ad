package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/HandsomeHarry/companion-cube/internal/buffer"
	"github.com/HandsomeHarry/companion-cube/internal/config"
	"github.com/HandsomeHarry/companion-cube/internal/device"
	"github.com/HandsomeHarry/companion-cube/internal/llm"
	"github.com/HandsomeHarry/companion-cube/internal/logging"
	"github.com/HandsomeHarry/companion-cube/internal/notify"
	"github.com/HandsomeHarry/companion-cube/internal/scheduler"
	"github.com/HandsomeHarry/companion-cube/internal/source"
	"github.com/HandsomeHarry/companion-cube/internal/store"
)

var log = logging.For("main")

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	mode := flag.String("mode", "", "override companion mode (study_buddy, coach, ghost, weekend)")
	flag.Parse()

	// Load .env file (optional - won't error if missing)
	if err := godotenv.Load(); err == nil {
		log.Info("loaded .env file")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *mode != "" {
		cfg.Mode = *mode
		if err := cfg.Validate(); err != nil {
			log.Fatalf("config: %v", err)
		}
	}
	logging.SetLevel(cfg.LogLevel)

	log.Infof("companion-cube starting (mode=%s, source=%s)", cfg.Mode, cfg.Source)

	if err := os.MkdirAll(cfg.StatePath, 0755); err != nil {
		log.Fatalf("create state dir: %v", err)
	}

	// Event source: either an ActivityWatch-compatible tracker or the
	// built-in process sampler.
	var src source.Source
	switch cfg.Source {
	case config.SourceNative:
		src = source.NewNative()
	default:
		src = source.NewActivityWatch(cfg.ActivityWatchURL)
	}
	adapter := source.NewAdapter(src)

	opts := scheduler.Options{
		Fetcher:  adapter,
		Notifier: notify.NewConsole(),
	}

	if cfg.CollectData {
		db, err := store.Open(cfg.StatePath)
		if err != nil {
			log.Fatalf("open store: %v", err)
		}
		defer db.Close()
		opts.Store = db
	} else {
		log.Info("data collection disabled; nothing will be persisted")
	}

	if cfg.OllamaURL != "" {
		opts.Generator = llm.NewClient(cfg.OllamaURL, cfg.OllamaModel)
	}

	var cube *device.Cube
	if cfg.DeviceEnabled {
		cube = device.New(cfg.DeviceURL)
		opts.Device = cube
	}

	recent := buffer.New(cfg.BufferCapacity)
	sched, err := scheduler.New(cfg, recent, opts)
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	if err := sched.Start(); err != nil {
		log.Fatalf("start scheduler: %v", err)
	}

	// Settings changes (mode switches, device toggle) apply without restart.
	watcher := config.NewWatcher(*configPath, sched.ApplyConfig)
	if err := watcher.Start(); err != nil {
		log.Warnf("config watch: %v", err)
	}

	fmt.Println("Companion running. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	watcher.Stop()
	sched.Stop()
	if cube != nil {
		cube.Close()
	}
	log.Info("goodbye")
}
