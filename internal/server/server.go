// Package server is the POS backend the gateway's remote mode talks to:
// REST resources for orders, tables and customers, plus the kitchen push
// stream. It runs against an in-memory repository by default and Postgres
// when configured.
package server

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"tableside/internal/common/config"
	"tableside/internal/common/httpx"
	"tableside/internal/common/logger"
	"tableside/internal/domain"
)

func Run(ctx context.Context, cfg config.App, lg *logger.Logger) error {
	var repo Repository
	if cfg.Server.Database.Host != "" {
		pg, err := ConnectPostgres(ctx, cfg.Server.Database)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()
		repo = pg
		lg.Info("repository_ready", map[string]any{"kind": "postgres"})
	} else {
		repo = NewMemoryRepository()
		lg.Info("repository_ready", map[string]any{"kind": "memory"})
	}
	if err := SeedTables(ctx, repo, cfg.Server.SeedTables); err != nil {
		return fmt.Errorf("seed tables: %w", err)
	}

	var bridge *Bridge
	if cfg.Server.Rabbit.Enabled {
		b, err := DialBridge(cfg.Server.Rabbit)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer b.Close()
		bridge = b
		lg.Info("bridge_ready", map[string]any{"exchange": cfg.Server.Rabbit.Exchange})
	}

	hub := NewHub()
	emit := func(ev domain.StreamEvent) {
		hub.Broadcast(ev)
		if bridge != nil {
			if err := bridge.Publish(ctx, ev); err != nil {
				lg.Error("bridge_publish_failed", err, map[string]any{"event": string(ev.Type)})
			}
		}
	}

	svc := NewService(repo, emit)
	h := NewHandler(svc, hub, lg, cfg.Server.Token)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	lg.Info("server_listening", map[string]any{"addr": addr})
	return httpx.New(addr, h.Router()).Run(ctx)
}

// SeedTables makes sure tables 1..n exist. Inserts are idempotent on the
// table number, so restarting against Postgres does not duplicate rows.
func SeedTables(ctx context.Context, repo Repository, n int) error {
	for i := 1; i <= n; i++ {
		if _, err := repo.FindTableByNumber(ctx, i); err == nil {
			continue
		}
		t := domain.Table{
			ID:       uuid.NewString(),
			Number:   i,
			Capacity: 4,
			Status:   domain.TableFree,
		}
		if err := repo.InsertTable(ctx, t); err != nil {
			return err
		}
	}
	return nil
}
