package main

import (
	"context"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/fenpix/internal/app"
	"github.com/park285/fenpix/internal/bot"
	appcfg "github.com/park285/fenpix/internal/config"
	"github.com/park285/fenpix/internal/irisfast"
	"github.com/park285/fenpix/internal/msgcat"
	"github.com/park285/fenpix/internal/obslog"
	"github.com/park285/fenpix/internal/server"
	"go.uber.org/zap"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	deps, err := app.New(ctx, cfg, "http", logger)
	cancel()
	if err != nil {
		logger.Fatal("init error", zap.Error(err))
	}
	defer deps.Close()

	opts := []server.Option{
		server.WithDefaultUpscale(cfg.DefaultUpscale),
		server.WithLogger(logger),
	}
	if deps.Archive != nil {
		opts = append(opts, server.WithHistory(deps.Archive))
	}
	srv := server.New(deps.Service, opts...)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(cfg.ListenAddr) }()

	// Chat bridge is optional: without IRIS_WS_URL only HTTP is served.
	var ws *irisfast.WebSocket
	if cfg.IrisWSURL != "" {
		client := irisfast.NewClient(cfg.IrisBaseURL, irisfast.WithHeaderProvider(cfg.IrisHeaders), irisfast.WithRetry(3))
		ws = irisfast.NewWebSocket(cfg.IrisWSURL, 5, logger)
		ws.SetHeaderProvider(cfg.IrisHeaders)
		ws.OnStateChange(func(state irisfast.WebSocketState) {
			logger.Info("ws_state", zap.Stringer("state", state))
		})

		egress, err := irisfast.NewEgress(cfg.EgressMode, client, ws, logger)
		if err != nil {
			logger.Fatal("egress error", zap.Error(err))
		}
		var overrides fs.FS
		if cfg.MessagesDir != "" {
			overrides = os.DirFS(cfg.MessagesDir)
		}
		msgs, err := msgcat.New(overrides)
		if err != nil {
			logger.Fatal("message catalog error", zap.Error(err))
		}
		handler := bot.New(deps.Service, egress, bot.Config{
			Prefix:         cfg.BotPrefix,
			AllowedRooms:   cfg.AllowedRooms,
			DefaultUpscale: cfg.DefaultUpscale,
			Messages:       msgs,
		}, logger)
		ws.OnMessage(handler.OnMessage)

		cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := ws.Connect(cctx); err != nil {
			// reconnect keeps trying in the background
			logger.Warn("ws connect error", zap.Error(err))
		}
		ccancel()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("http server stopped", zap.Error(err))
		}
	}

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	if ws != nil {
		_ = ws.Close(sctx)
	}
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}
