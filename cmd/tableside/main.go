package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tableside/internal/common/config"
	"tableside/internal/common/logger"
	"tableside/internal/gateway"
	"tableside/internal/remote"
	"tableside/internal/server"
	"tableside/internal/store"
	"tableside/internal/stream"
)

func main() {
	mode := flag.String("mode", "", "backend | pos")
	cfgPath := flag.String("config", "", "path to config.yaml")
	port := flag.Int("port", 0, "backend: override http port")
	flag.Parse()

	lg := logger.New("bootstrap")
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	path := *cfgPath
	if path == "" {
		var err error
		if path, err = config.FindConfig(); err != nil {
			fmt.Fprintln(os.Stderr, "no config.yaml found; pass --config")
			os.Exit(2)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		lg.Error("config_load_failed", err, map[string]any{"path": path})
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	switch *mode {
	case "backend":
		lg.Info("service_started", map[string]any{"service": "backend", "port": cfg.Server.Port})
		if err := server.Run(ctx, cfg, logger.New("backend")); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	case "pos":
		if err := runPOS(ctx, cfg); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "--mode is required: backend | pos")
		os.Exit(2)
	}
}

// runPOS wires a gateway the way a UI embedding this package would, then
// prints the resolved mode and the current table map. Useful as a smoke
// check against a running backend.
func runPOS(ctx context.Context, cfg config.App) error {
	lg := logger.New("pos")
	rc := remote.NewHTTP(cfg.Backend.BaseURL, cfg.Backend.Token, cfg.Backend.Timeout())
	sc := stream.New(cfg.Backend.BaseURL+cfg.Stream.Path, cfg.Backend.Token, lg)

	g := gateway.New(gateway.ConfigFromApp(cfg), rc, sc, store.New(), lg)
	defer g.Close()

	tables, err := g.ListTables(ctx)
	if err != nil {
		return err
	}
	lg.Info("tables_loaded", map[string]any{"mode": string(g.Mode()), "count": len(tables)})
	for _, t := range tables {
		fmt.Printf("table %2d  cap=%d  %s\n", t.Number, t.Capacity, t.Status)
	}
	return nil
}
