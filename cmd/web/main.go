// cmd/web/main.go
//
// Formaly – HTTP entry point.
//
// Start-up sequence
// -----------------
//
//  1. Start the daily rotating logger (tees to console when running in a
//     TTY or when log.tee is set).
//
//  2. Load configuration.  A Vault client is built first only when some
//     value references `vault:`.
//
//  3. Open the MySQL pool and apply every component's migrations.
//
//  4. Build the shared services: store, preset registry (loaded once in
//     the background), public form service with its definition cache, the
//     form token signer, and the optional GeoLite2 reader.
//
//  5. Build the root router:
//
//     • request id, access log, panic recovery
//     • HTTPS redirect (http.force_https) and security headers
//     • respondent metadata (requestinfo.Enrich)
//     • /metrics, operational modules (exact paths), then components
//
//  6. Serve until SIGINT/SIGTERM, then drain in-flight requests.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanizio/formaly/internal/component"
	"github.com/yanizio/formaly/internal/config"
	"github.com/yanizio/formaly/internal/database"
	"github.com/yanizio/formaly/internal/fieldtype"
	"github.com/yanizio/formaly/internal/form"
	"github.com/yanizio/formaly/internal/logger"
	"github.com/yanizio/formaly/internal/middleware"
	"github.com/yanizio/formaly/internal/module"
	"github.com/yanizio/formaly/internal/publicform"
	"github.com/yanizio/formaly/internal/requestinfo"
	"github.com/yanizio/formaly/internal/server"
	"github.com/yanizio/formaly/internal/store"
	"github.com/yanizio/formaly/internal/vault"

	_ "github.com/yanizio/formaly/components/forms"
	_ "github.com/yanizio/formaly/components/public"
	_ "github.com/yanizio/formaly/modules/debug"
)

// connLifetime caps how long a pooled MySQL connection is reused.
const connLifetime = 30 * time.Minute

// services hands the shared handles to components during Init.
type services struct {
	db       *sqlx.DB
	cfg      *config.Config
	store    *store.Store
	registry *fieldtype.Registry
	public   *publicform.Service
	csrf     *form.CSRF
}

func (s *services) GetDB() *sqlx.DB                  { return s.db }
func (s *services) GetConfig() *config.Config        { return s.cfg }
func (s *services) GetStore() *store.Store           { return s.store }
func (s *services) GetRegistry() *fieldtype.Registry { return s.registry }
func (s *services) GetPublic() *publicform.Service   { return s.public }
func (s *services) GetCSRF() *form.CSRF              { return s.csrf }

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootDir, _ := os.Getwd()
	if r := os.Getenv("FORMALY_ROOT"); r != "" {
		rootDir = r
	}
	logOut, err := logger.New(rootDir, runningInTTY() || os.Getenv("FORMALY_LOG__TEE") == "true")
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer func() { _ = logOut.Sync() }()

	//
	// ── 1.  Configuration ───────────────────────────────────────────────
	//
	var secrets config.SecretResolver
	if config.NeedsVault() {
		vc, err := vault.New(ctx)
		if err != nil {
			logOut.Fatalw("vault client", "err", err)
		}
		secrets = vc
	}
	cfg, err := config.Load(ctx, secrets)
	if err != nil {
		logOut.Fatalw("load config", "err", err)
	}

	//
	// ── 2.  Database ────────────────────────────────────────────────────
	//
	db, err := database.OpenWithOptions(ctx, database.BuildDSN(cfg.Database.DSN, cfg.Database.Password), database.Options{
		MaxOpenConns:    cfg.Database.MaxOpen,
		MaxIdleConns:    cfg.Database.MaxIdle,
		ConnMaxLifetime: connLifetime,
	})
	if err != nil {
		logOut.Fatalw("connect database", "err", err)
	}
	defer db.Close()
	logOut.Infow("database online")

	if err := component.Migrate(ctx, db); err != nil {
		logOut.Fatalw("migrate", "err", err)
	}

	//
	// ── 3.  Shared services ─────────────────────────────────────────────
	//
	var src fieldtype.Source
	if cfg.Registry.SourceURL != "" {
		src = fieldtype.NewHTTPSource(cfg.Registry.SourceURL, cfg.Registry.Timeout)
	}
	registry := fieldtype.NewRegistry(src)
	go registry.Load(logger.WithContext(ctx, logOut))

	st := store.New(db)
	svc := &services{
		db:       db,
		cfg:      cfg,
		store:    st,
		registry: registry,
		public:   publicform.New(st, cfg.Forms.CacheSize, cfg.Forms.CacheTTL),
		csrf:     form.NewCSRF(cfg.Forms.CSRFKey),
	}

	geo, err := requestinfo.OpenGeo(cfg.Geo.DBPath)
	if err != nil {
		logOut.Warnw("geo database unavailable, continuing without it", "path", cfg.Geo.DBPath, "err", err)
	}
	defer func() { _ = geo.Close() }()

	components, err := component.Boot(svc)
	if err != nil {
		logOut.Fatalw("boot components", "err", err)
	}

	//
	// ── 4.  Root router ─────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS))
	r.Use(middleware.Security)
	r.Use(requestinfo.Enrich(locator(geo)))

	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/*", module.Dispatch(components))

	//
	// ── 5.  Serve ───────────────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP, r)
	if err := server.Run(logger.WithContext(ctx, logOut), srv); err != nil {
		logOut.Fatalw("http server", "err", err)
	}
	logOut.Infow("shut down cleanly")
}

// locator keeps a nil *GeoDB from becoming a non-nil interface.
func locator(g *requestinfo.GeoDB) requestinfo.GeoLocator {
	if g == nil {
		return nil
	}
	return g
}
