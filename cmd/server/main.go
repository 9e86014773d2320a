package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/config"
	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/credential"
	"antigravity2api-go/internal/logging"
	tracing "antigravity2api-go/internal/monitoring/tracing"
	srv "antigravity2api-go/internal/server"
	"antigravity2api-go/internal/upstream"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	cfgMgr, err := config.NewManager(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	cfg := cfgMgr.Get()
	if *debug {
		cfg.Security.Debug = true
	}

	if err := logging.Setup(cfg); err != nil {
		log.WithError(err).Fatal("failed to configure logging")
	}
	log.Infof("Starting antigravity2api-go %s (config: %s)", constants.GetFullVersion(), *configPath)

	traceShutdown, err := tracing.Init(context.Background())
	if err != nil {
		log.WithError(err).Warn("failed to initialize tracing")
	}
	if traceShutdown != nil {
		defer func() {
			if err := traceShutdown(context.Background()); err != nil {
				log.WithError(err).Warn("failed to shutdown tracing")
			}
		}()
	}

	source := credential.NewFileSource(cfg.Security.AuthDir)
	accounts, err := source.Load()
	if err != nil {
		log.WithError(err).Warn("failed to load accounts")
	}
	if len(accounts) == 0 {
		log.Warnf("no accounts found under %s; requests will fail until accounts are added", cfg.Security.AuthDir)
	} else {
		log.Infof("loaded %d account(s) from %s", len(accounts), cfg.Security.AuthDir)
	}

	refresher := credential.NewRefresher(source.Save)
	pool := credential.NewManager(accounts, refresher,
		credential.WithQuotaCeiling(cfgMgr.QuotaCeiling))

	client := upstream.NewClient(cfgMgr.Proxy())
	cfgMgr.OnReload(func(next *config.Config) {
		client.UpdateProxy(next.Upstream.Proxy)
	})
	cfgMgr.Watch()
	defer cfgMgr.Stop()

	engine := srv.BuildEngine(srv.Dependencies{
		Config:   cfgMgr,
		Pool:     pool,
		Upstream: client,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{Addr: addr, Handler: engine}

	go func() {
		log.Infof("API listening on %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("http server: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("Shutdown signal received")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), constants.ServerShutdownTimeout)
	defer cancelShutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
	log.Info("Server stopped")
}
