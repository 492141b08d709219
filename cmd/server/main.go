package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ayushkr19/charades-backend/internal/config"
	"github.com/ayushkr19/charades-backend/internal/game"
	"github.com/ayushkr19/charades-backend/internal/httpapi"
	"github.com/ayushkr19/charades-backend/internal/hub"
	"github.com/ayushkr19/charades-backend/internal/session"
	"github.com/ayushkr19/charades-backend/internal/store"
	"github.com/ayushkr19/charades-backend/internal/ws"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	if err := store.Migrate(db); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := store.NewConnectionRegistry(db)
	games := store.NewGameStore(db)
	directory := store.NewDirectory(db)
	transport := ws.NewOutboxTransport()

	go store.NewSweeper(db, cfg.SweepInterval, log).Run(ctx)

	h := hub.NewHub(ctx, hub.Deps{
		Registry:  registry,
		Games:     games,
		Names:     directory,
		Transport: transport,
		Config: session.Config{
			Prompts:       game.DefaultPrompts,
			RoundDuration: cfg.RoundDuration,
			FallbackGrace: cfg.FallbackGrace,
		},
		Log: log,
	})

	// Join-token verification lives with the conferencing provider;
	// its verdict is consumed through ws.Authorizer. AllowAll stands in
	// until that collaborator is deployed alongside this service.
	handler := httpapi.SetupRoutes(h, transport, ws.AllowAll{}, directory, log)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: handler}
	go func() {
		<-ctx.Done()
		h.Inbox() <- hub.ShutdownHub{}
		_ = srv.Shutdown(context.Background())
	}()

	log.Info("listening", zap.String("addr", cfg.ListenAddr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("serve", zap.Error(err))
	}
}
