package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"rideapp/app/rideflow"
	"rideapp/app/session"
	"rideapp/backend/rest"
	"rideapp/config"
	"rideapp/pkg/logger"
	"rideapp/service"
)

func main() {
	// 1. Load Config
	cfg := config.Load()

	// 2. Initialize Logger
	log := logger.New(cfg.ServiceName, cfg.LoggerLevel)

	// 3. Initialize Backend Client
	be, err := rest.New(cfg, log)
	if err != nil {
		log.Error("Failed to initialize backend client", logger.Error(err))
		os.Exit(1)
	}
	defer be.Close()

	// 4. Services and Controllers
	svc := service.New(be, log)

	sessionCtrl := session.New(cfg, be, log)
	loc := &profileLocator{svc: svc, ident: sessionCtrl}
	rideCtrl := rideflow.New(cfg, be, loc, sessionCtrl, &logNotifier{log: log}, sessionCtrl, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	sessionCtrl.Start(ctx)
	rideCtrl.Start(ctx)
	defer sessionCtrl.Stop()
	defer rideCtrl.Stop()

	// A recovery deep link carries a credential to exchange; the
	// resulting PASSWORD_RECOVERY event forces the reset screen.
	if token := session.RecoveryToken(cfg.LaunchURL); token != "" {
		go func() {
			if err := sessionCtrl.ExchangeRecoveryToken(ctx, token); err != nil {
				log.Error("recovery exchange failed", logger.Error(err))
			}
		}()
	}

	// 5. Debug endpoint: health + metrics
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.AppPort),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("debug endpoint listening", logger.Int("port", cfg.AppPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	log.Info("rideapp client core running")

	if err := g.Wait(); err != nil {
		log.Error("shutdown error", logger.Error(err))
		os.Exit(1)
	}
	log.Info("stopped")
}
