package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sadikur-dev/mailreward/internal/config"
	"github.com/sadikur-dev/mailreward/internal/handlers"
	"github.com/sadikur-dev/mailreward/internal/ledger"
	"github.com/sadikur-dev/mailreward/internal/storage"
	"github.com/sadikur-dev/mailreward/internal/validator"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.NewPostgresStorage(ctx, cfg.DatabaseURI, log)
	if err != nil {
		log.Fatalf("failed to initialize storage: %v", err)
	}
	defer db.Close()

	emailValidator := validator.New(log)
	if cfg.DisposableDomainsFile != "" {
		if err := emailValidator.LoadDisposableFile(cfg.DisposableDomainsFile); err != nil {
			log.Warnf("failed to load disposable domain list: %v", err)
		}
	}
	if cfg.DisposableDomainsURL != "" {
		go emailValidator.RefreshDisposable(ctx, cfg.DisposableDomainsURL)
	}

	service := ledger.NewService(db, emailValidator, log, cfg.AdminLogin)

	api := handlers.NewAPI(db, service, log, cfg.JWTSecret)
	router := handlers.NewRouter(api)

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()
	log.Infof("server started on %s", cfg.RunAddress)

	<-ctx.Done()

	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server shutdown failed: %+v", err)
	}

	log.Info("server exited properly")
}
