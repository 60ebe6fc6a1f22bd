// Package server wires configuration, storage, the Google Drive provider and
// the HTTP API together and runs them until the process is signaled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/penter405/brainsync/internal/common"
	"github.com/penter405/brainsync/internal/cryptox"
	"github.com/penter405/brainsync/internal/logging"
	"github.com/penter405/brainsync/internal/server/auth"
	"github.com/penter405/brainsync/internal/server/config"
	"github.com/penter405/brainsync/internal/server/drive"
	"github.com/penter405/brainsync/internal/server/httpapi"
	"github.com/penter405/brainsync/internal/server/metrics"
	"github.com/penter405/brainsync/internal/server/reconciler"
	"github.com/penter405/brainsync/internal/server/repositories/audit"
	"github.com/penter405/brainsync/internal/server/repositories/repomanager"
	"github.com/penter405/brainsync/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	reconciler *reconciler.Reconciler
	httpServer *httpapi.HTTPServer
}

func NewApp(ctx context.Context, c *config.Config) (_ *App, err error) {
	logger := logging.NewJSONLogger(os.Stdout, c.Debug)

	secrets, err := c.Secrets()
	if err != nil {
		return nil, err
	}
	vault, err := cryptox.NewVault(secrets.EncryptionKey)
	// The cipher keeps its own expanded key.
	common.WipeByteArray(secrets.EncryptionKey)
	if err != nil {
		return nil, err
	}
	sessions, err := auth.NewSessionCodec(secrets.SessionSecret, c.SessionMaxAge)
	if err != nil {
		return nil, err
	}
	states, err := auth.NewStateSigner(secrets.SessionSecret, c.StateMaxAge)
	if err != nil {
		return nil, err
	}

	db, rm, err := openStorageFn(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	defer func() {
		if err != nil && db != nil {
			db.Close()
		}
	}()

	mirrors, err := auditMirrors(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("audit mirror init error: %w", err)
	}

	provider := drive.NewProvider(drive.ProviderConfig{
		ClientID:     c.GoogleClientID,
		ClientSecret: c.GoogleClientSecret,
		RedirectURL:  c.GoogleRedirectURI,
		Endpoints:    drive.GoogleEndpoints(),
	}, logger)

	recon := reconciler.New(vault, rm.Identities(db), logger, c.ReconcileTimeout)
	recorder := services.NewAuditRecorder(db, rm, logger, mirrors...)
	as := services.NewAuthService(db, rm, provider, vault, sessions, states, recorder, logger)
	ss := services.NewSyncService(db, rm, vault, services.NewDriveOpener(provider), recon, recorder, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(reg); err != nil {
		return nil, err
	}

	hs := httpapi.NewHTTPServer(httpapi.Options{
		Address:       c.EndpointAddrHTTP,
		AllowedOrigin: c.AllowedOrigin(),
		FrontendURL:   c.FrontendURL,
		Production:    c.Production,
		Gatherer:      reg,
	}, logger, as, ss, sessions, c.StateMaxAge)

	return &App{config: c, logger: logger, db: db, reconciler: recon, httpServer: hs}, nil
}

// Seams for tests.
var (
	openStorageFn = openStorage
	newS3Client   = audit.NewS3Client
)

// openStorage returns a nil *sql.DB for the in-memory backend.
func openStorage(ctx context.Context, c *config.Config) (*sql.DB, repomanager.RepositoryManager, error) {
	if c.DatabaseDSN == repomanager.MemoryDSN {
		return nil, repomanager.NewInMemoryRepositoryManager(), nil
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, rm, nil
}

func auditMirrors(ctx context.Context, c *config.Config) ([]audit.Repository, error) {
	if c.AuditS3Bucket == "" {
		return nil, nil
	}
	client, err := newS3Client(ctx, audit.S3Options{
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
	})
	if err != nil {
		return nil, err
	}
	return []audit.Repository{audit.NewS3Repository(client, c.AuditS3Bucket)}, nil
}

// Run serves until SIGINT, SIGTERM or SIGQUIT, then waits for queued
// credential writes before closing the database.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.httpServer.Run(gctx)
	})

	err := g.Wait()
	app.reconciler.Wait()

	if app.db != nil {
		if cerr := app.db.Close(); cerr != nil {
			app.logger.Error(ctx, "closing database failed", "error", cerr)
		}
	}

	app.logger.Info(ctx, "App stopped")
	return err
}
