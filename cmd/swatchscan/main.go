// Command swatchscan resolves selected-swatch associations for every
// product image on a live page and prints one JSON line per result.
//
// Usage:
//
//	swatchscan -url https://shop.example/dresses             # scan one page
//	swatchscan -url ... -config swatchscan.yaml              # tuned engine config
//	swatchscan -url ... -db events.db                        # persist diagnostics
//	swatchscan -url ... -remote ws://chrome:9222/...         # reuse a remote Chrome
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/swatchmatch/associate"
	"github.com/hazyhaar/swatchmatch/diag"
	"github.com/hazyhaar/swatchmatch/pagetree"
	"github.com/hazyhaar/swatchmatch/rodtree"
	"github.com/hazyhaar/swatchmatch/sink"
)

// scanResult is the JSON line printed per image.
type scanResult struct {
	Image    *diag.ElementInfo `json:"image"`
	Swatch   *diag.ElementInfo `json:"swatch"`
	Tier     int               `json:"tier"`
	Distance *float64          `json:"distance,omitempty"`
}

func main() {
	pageURL := flag.String("url", "", "page to scan (required)")
	configPath := flag.String("config", "", "path to engine YAML config")
	remoteURL := flag.String("remote", "", "WebSocket URL of a remote Chrome (default: launch locally)")
	noStealth := flag.Bool("no-stealth", false, "disable stealth page setup")
	dbPath := flag.String("db", "", "SQLite file for diagnostic event persistence")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *pageURL == "" {
		fmt.Fprintln(os.Stderr, "swatchscan: -url is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *pageURL, *configPath, *remoteURL, !*noStealth, *dbPath); err != nil {
		logger.Error("swatchscan failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, pageURL, configPath, remoteURL string, useStealth bool, dbPath string) error {
	cfg := associate.Config{}
	if configPath != "" {
		loaded, err := associate.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = *loaded
	}

	sinks := []sink.Sink{sink.NewSlog(logger)}
	if dbPath != "" {
		store, err := sink.OpenStore(dbPath, pageURL)
		if err != nil {
			return err
		}
		defer store.Close()
		logger.Info("recording diagnostics", "db", dbPath, "scan_id", store.ScanID())
		sinks = append(sinks, store)
	}
	cfg.OnEvent = sink.NewRouter(logger, sinks...).Func(ctx)

	browser, err := rodtree.Launch(rodtree.Config{
		RemoteURL: remoteURL,
		Stealth:   useStealth,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer browser.Close()

	root, err := browser.Capture(ctx, pageURL)
	if err != nil {
		return err
	}

	images := associate.PageImages(root)
	logger.Info("page captured", "url", pageURL, "images", len(images))

	results := associate.ResolveAll(images, cfg)

	snap := pagetree.NewSnapshot()
	enc := json.NewEncoder(os.Stdout)
	resolved := 0
	for _, r := range results {
		out := scanResult{
			Image:  diag.Describe(snap, r.Image),
			Swatch: diag.Describe(snap, r.Swatch),
			Tier:   r.Tier,
		}
		if r.HasDistance {
			out.Distance = diag.Dist(r.Distance)
		}
		if r.Swatch != nil {
			resolved++
		}
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	}
	logger.Info("scan complete", "images", len(images), "resolved", resolved)
	return nil
}
