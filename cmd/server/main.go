package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hivelog/internal/app"
	"hivelog/internal/config"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	config.ConfigureLogging(cfg)
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logrus.Fatal(err)
	}
	defer a.Close()

	if err := a.Migrate(); err != nil {
		logrus.Fatalf("failed to migrate database: %v", err)
	}
	logrus.Info("database migration completed")

	// 异步分数服务
	a.Scores.Start(ctx)

	executor := a.Executor()
	if err := executor.Start(); err != nil {
		logrus.Fatal(err)
	}
	defer executor.Stop()

	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}).Handler(a.Router())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Infof("hivelog server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("server shutdown failed")
	}
}
