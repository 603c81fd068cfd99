package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/tailored-agentic-units/persist/service"
	"github.com/tailored-agentic-units/persist/storage"
)

const usage = `Usage: persistd <command> [flags]

Commands:
  serve     Serve the token API and /metrics
  migrate   Copy record namespaces from another storage location
  config    Print the effective configuration

Run "persistd <command> -h" for command flags.`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "serve":
		err = runServe(ctx, args)
	case "migrate":
		err = runMigrate(ctx, args)
	case "config":
		err = runConfig(args)
	case "-h", "-help", "--help", "help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", cmd, usage)
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("persistd %s: %v", os.Args[1], err)
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var (
		configFile = fs.String("config", "", "Path to YAML config file (defaults and environment when empty)")
		listen     = fs.String("listen", "", "Listen address (overrides config)")
		verbose    = fs.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	fs.Parse(args)

	cfg, err := service.LoadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}

	logger := newLogger(*verbose)
	svc, err := service.New(ctx, cfg, service.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	return svc.Serve(ctx)
}

func runMigrate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	var (
		configFile = fs.String("config", "", "Path to YAML config file for the destination")
		fromConfig = fs.String("from-config", "", "Path to YAML config file whose storage section is the source (environment ignored)")
		fromPath   = fs.String("from-path", "", "Local directory to use as the source")
		namespaces = fs.String("namespaces", strings.Join(service.DefaultMigrateNamespaces, ","), "Comma-separated namespaces to copy")
		verbose    = fs.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	fs.Parse(args)

	if (*fromConfig == "") == (*fromPath == "") {
		return fmt.Errorf("exactly one of -from-config or -from-path is required")
	}

	cfg, err := service.LoadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	srcCfg := storage.Config{Type: storage.TypeLocal, BasePath: *fromPath}
	if *fromConfig != "" {
		loaded, err := service.LoadSourceConfig(*fromConfig)
		if err != nil {
			return fmt.Errorf("failed to load source config: %w", err)
		}
		srcCfg = *loaded
	}

	src, err := storage.New(ctx, &srcCfg)
	if err != nil {
		return fmt.Errorf("failed to open source storage: %w", err)
	}

	cfg.DisableMetrics = true
	svc, err := service.New(ctx, cfg, service.WithLogger(newLogger(*verbose)))
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	var list []string
	for _, ns := range strings.Split(*namespaces, ",") {
		if ns = strings.TrimSpace(ns); ns != "" {
			list = append(list, ns)
		}
	}

	counts, err := svc.Migrate(ctx, src, list...)

	names := make([]string, 0, len(counts))
	for ns := range counts {
		names = append(names, ns)
	}
	sort.Strings(names)
	for _, ns := range names {
		fmt.Printf("%s: %d records\n", ns, counts[ns])
	}
	return err
}

func runConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to YAML config file (defaults and environment when empty)")
	fs.Parse(args)

	cfg, err := service.LoadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return cfg.WriteYAML(os.Stdout)
}
