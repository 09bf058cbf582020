// Command formmaster runs the Form Master Pro API server: field discovery
// over the connected database, form-compatibility checks, form templates,
// profiles, and document uploads.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/formmaster/pro/internal/config"
	"github.com/formmaster/pro/internal/database"
	"github.com/formmaster/pro/internal/database/mysql"
	"github.com/formmaster/pro/internal/database/postgres"
	"github.com/formmaster/pro/internal/documents"
	"github.com/formmaster/pro/internal/fields"
	"github.com/formmaster/pro/internal/filestore/minio"
	"github.com/formmaster/pro/internal/forms"
	"github.com/formmaster/pro/internal/logger"
	"github.com/formmaster/pro/internal/metrics"
	"github.com/formmaster/pro/internal/profile"
	"github.com/formmaster/pro/internal/rbac"
	"github.com/formmaster/pro/internal/schema"
	"github.com/formmaster/pro/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("invalid configuration: " + err.Error())
	}

	log := logger.New(&cfg.Logger)
	logger.SetGlobal(log)

	if err := run(cfg, log); err != nil {
		log.Fatal(err.Error())
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	var db database.DB
	var err error
	switch cfg.Database.Driver {
	case database.DriverMySQL:
		db, err = mysql.New(ctx, &cfg.Database)
	default:
		db, err = postgres.New(ctx, &cfg.Database)
	}
	if err != nil {
		return err
	}
	defer db.Close()
	log.Infof("connected to %s database", cfg.Database.Driver)

	// Object storage
	store, err := minio.New(ctx, &cfg.Filestore)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.EnsureBucket(ctx, cfg.Filestore.Bucket); err != nil {
		return err
	}
	log.Infof("document bucket %q ready", cfg.Filestore.Bucket)

	// Services
	promReg := prometheus.NewRegistry()
	monitor := metrics.NewMonitor(metrics.DefaultBufferSize, promReg)

	discovery := schema.New(db)
	catalog := fields.NewCatalogWithTTL(discovery, log, cfg.Cache.TTL)
	checker := fields.NewChecker(discovery, log)
	templates := forms.NewStore(db)
	profiles := profile.NewService(db, catalog, log)
	docs := documents.NewService(db, store, cfg.Filestore.Bucket, log)

	srv := server.New(cfg, server.Dependencies{
		DB:           db,
		Catalog:      catalog,
		Checker:      checker,
		Templates:    templates,
		Profiles:     profiles,
		Documents:    docs,
		Registry:     rbac.DefaultRegistry(),
		Monitor:      monitor,
		PromRegistry: promReg,
	}, log)

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
