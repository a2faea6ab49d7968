package main

import (
	"context"
	"log"
	"time"

	"interntrack-backend/internal/bootstrap"
	"interntrack-backend/internal/shared/config"
	"interntrack-backend/internal/shared/server"
	"interntrack-backend/internal/shared/telemetry"
	"interntrack-backend/internal/shared/tracing"
)

func main() {
	cfg := config.Load()
	telemetry.Init(cfg.Env)
	defer telemetry.Sync()

	shutdownTracing := tracing.Init(context.Background(), cfg.Env)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer app.Close()

	addr := server.Addr(cfg.Port)
	telemetry.Info("api.starting", map[string]any{
		"addr":         addr,
		"env":          cfg.Env,
		"blob_store":   cfg.BlobStoreType,
		"record_store": cfg.RecordStoreType,
		"extractor":    cfg.Extractor,
	})

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
