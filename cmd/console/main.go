package main

import (
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"CatalogConsole/internal/catalog"
	"CatalogConsole/internal/config"
	"CatalogConsole/internal/console"
	"CatalogConsole/internal/pipeline"
	"CatalogConsole/internal/session"
	"CatalogConsole/pkg/kit"
)

func main() {
	cfg := config.Load()

	log := kit.NewLogger("console", cfg.Server.Env)
	defer func() { _ = log.Sync() }()

	var db *sql.DB
	openDB := func() *sql.DB {
		if db != nil {
			return db
		}
		var err error
		db, err = sql.Open("pgx", cfg.Catalog.DatabaseURL)
		if err != nil {
			log.Fatal("open database", zap.Error(err))
		}
		return db
	}

	storage := openStorage(cfg, log)
	tokens := session.NewTokenMaker(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	var dir session.Directory
	switch cfg.Session.Directory {
	case "memory":
		dir = session.NewMemDirectory()
	case "postgres":
		dir = session.NewPostgresDirectory(openDB())
	}

	navigate := func(route string) {
		log.Info("navigate requested", zap.String("route", route))
	}

	sessions := session.New(session.Options{
		Storage:   storage,
		Tokens:    tokens,
		Directory: dir,
		Navigate:  navigate,
		Log:       log.Named("session"),
	})

	gauge := pipeline.NewGauge()
	apiClient := pipeline.NewClient(cfg.API.Timeout, &pipeline.Transport{
		Session:  sessions,
		Gauge:    gauge,
		Marker:   cfg.API.Marker,
		Navigate: navigate,
		Log:      log.Named("pipeline"),
	})

	var backend catalog.Backend
	switch cfg.Catalog.Backend {
	case "postgres":
		backend = catalog.NewPostgresBackend(openDB())
	case "remote":
		backend = catalog.NewRemoteBackend(cfg.API.BaseURL, apiClient)
	}

	store := catalog.NewStore(catalog.Options{Backend: backend, Log: log.Named("catalog")})

	h := console.NewHandler(
		&session.Server{Log: log, Store: sessions},
		&catalog.Server{Log: log, Store: store},
		console.Deps{
			Log:            log,
			Service:        "console",
			Tokens:         tokens,
			Registry:       prometheus.NewRegistry(),
			MetricsEnabled: cfg.Metrics.Enabled,
			MetricsToken:   cfg.Metrics.Token,
		},
	)

	if err := kit.RunHTTPServer(cfg.Server.Addr, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func openStorage(cfg *config.Config, log *zap.Logger) session.KV {
	if cfg.Session.StoragePath == "" {
		return session.NewMemKV()
	}
	kv, err := session.OpenFileKV(cfg.Session.StoragePath)
	if err != nil {
		log.Fatal("open session storage", zap.Error(err), zap.String("path", cfg.Session.StoragePath))
	}
	return kv
}
