package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/HandsomeHarry/companion-cube/internal/config"
	"github.com/HandsomeHarry/companion-cube/internal/llm"
	"github.com/HandsomeHarry/companion-cube/internal/source"
	"github.com/HandsomeHarry/companion-cube/internal/types"
)

// companion-check probes the companion's external collaborators and reports
// what a full run would find: tracker reachability, which event buckets are
// available per category, and the LLM's model list.
func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	failed := false
	failed = !checkSource(ctx, cfg) || failed
	failed = !checkLLM(ctx, cfg) || failed

	if failed {
		os.Exit(1)
	}
}

func checkSource(ctx context.Context, cfg config.Config) bool {
	var src source.Source
	switch cfg.Source {
	case config.SourceNative:
		src = source.NewNative()
	default:
		src = source.NewActivityWatch(cfg.ActivityWatchURL)
	}

	if err := src.CheckConnection(ctx); err != nil {
		fmt.Printf("event source (%s): UNREACHABLE (%v)\n", cfg.Source, err)
		return false
	}
	fmt.Printf("event source (%s): ok\n", cfg.Source)

	resolver := source.NewResolver(src)
	for _, cat := range []types.EventCategory{types.CategoryWindow, types.CategoryIdle, types.CategoryWeb} {
		bucket := resolver.Active(ctx, cat)
		if bucket == nil {
			fmt.Printf("  %-6s bucket: none\n", cat)
			continue
		}
		fmt.Printf("  %-6s bucket: %s (last updated %s)\n", cat, bucket.ID, bucket.LastUpdated.Format(time.RFC3339))
	}
	return true
}

func checkLLM(ctx context.Context, cfg config.Config) bool {
	if cfg.OllamaURL == "" {
		fmt.Println("llm: disabled")
		return true
	}

	client := llm.NewClient(cfg.OllamaURL, cfg.OllamaModel)
	models, err := client.CheckConnection(ctx)
	if err != nil {
		fmt.Printf("llm (%s): UNREACHABLE (%v)\n", cfg.OllamaURL, err)
		fmt.Println("  interventions will fall back to canned suggestions")
		return true // the engine runs without it
	}

	fmt.Printf("llm (%s): ok, %d models\n", cfg.OllamaURL, len(models))
	for _, m := range models {
		marker := " "
		if m == cfg.OllamaModel {
			marker = "*"
		}
		fmt.Printf("  %s %s\n", marker, m)
	}
	return true
}
