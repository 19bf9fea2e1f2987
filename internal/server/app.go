// Package server assembles the application from its configuration and runs
// the HTTP server until the process is told to stop.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/yelpcamp/internal/logging"
	"github.com/dmitrijs2005/yelpcamp/internal/server/config"
	"github.com/dmitrijs2005/yelpcamp/internal/server/geocode"
	"github.com/dmitrijs2005/yelpcamp/internal/server/images"
	"github.com/dmitrijs2005/yelpcamp/internal/server/metrics"
	"github.com/dmitrijs2005/yelpcamp/internal/server/models"
	"github.com/dmitrijs2005/yelpcamp/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/yelpcamp/internal/server/sanitize"
	"github.com/dmitrijs2005/yelpcamp/internal/server/secure"
	"github.com/dmitrijs2005/yelpcamp/internal/server/services"
	"github.com/dmitrijs2005/yelpcamp/internal/server/session"
	"github.com/dmitrijs2005/yelpcamp/internal/server/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const sessionSweepInterval = time.Minute

// defaultLocation is used for every campground when no geocoder token is
// configured.
var defaultLocation = models.NewPoint(-113.1331, 47.0202)

// App is the process-scoped set of collaborators. Everything a component
// needs is handed to it here; nothing is looked up globally.
type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	closers  []io.Closer
	memStore *session.MemoryStore
	server   *web.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.IsProduction())

	db, err := repomanager.OpenDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app := &App{config: c, logger: logger, db: db, closers: []io.Closer{db}}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	host, err := images.NewS3Host(ctx, images.S3Config{
		RootUser:     c.S3RootUser,
		RootPassword: c.S3RootPassword,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		PublicURL:    c.S3PublicURL,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("image host init error: %w", err)
	}

	users := services.NewUserService(db, rm)
	campgrounds := services.NewCampgroundService(db, rm, app.geocoder(), host, logger)
	reviews := services.NewReviewService(db, rm)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	store, ready := app.sessionStore(ctx)
	sessions := session.NewManager(store, users, session.Options{
		TTL:        c.SessionTTL,
		TouchAfter: c.SessionTouchAfter,
		Secure:     c.IsProduction(),
		Secret:     []byte(c.SecretKey),
		OnOutcome:  m.SessionOutcome,
	}, logger)

	renderer, err := web.NewTemplateRenderer()
	if err != nil {
		app.Close()
		return nil, err
	}

	policy := secure.NewPolicy(secure.Options{
		ImageOrigins: imageOrigins(c.S3PublicURL),
		Production:   c.IsProduction(),
	})

	app.server = web.NewServer(web.Options{
		Address:     c.EndpointAddrHTTP,
		Production:  c.IsProduction(),
		CSRFEnabled: c.CSRFEnabled,
		SecretKey:   c.SecretKey,
		MapboxToken: c.GeocoderToken,
	}, web.Deps{
		Logger:      logger,
		Users:       users,
		Campgrounds: campgrounds,
		Reviews:     reviews,
		Sessions:    sessions,
		Stages: web.Stages{
			Sanitizer: sanitize.New(logger),
			Security:  policy.Stage(),
		},
		Renderer: renderer,
		Metrics:  m,
		Gatherer: registry,
		Ready: func(ctx context.Context) error {
			return errors.Join(db.PingContext(ctx), ready(ctx))
		},
	})

	return app, nil
}

func (app *App) geocoder() geocode.Geocoder {
	if app.config.GeocoderToken == "" {
		app.logger.Warn(context.Background(), "no geocoder token configured, using a fixed location")
		return geocode.Static{Point: defaultLocation}
	}
	return geocode.NewMapboxClient(app.config.GeocoderBaseURL, app.config.GeocoderToken)
}

// sessionStore picks Redis when an address is configured and the
// in-memory store otherwise. The second result is a readiness check.
func (app *App) sessionStore(ctx context.Context) (session.Store, func(context.Context) error) {
	if app.config.RedisAddr == "" {
		app.logger.Warn(ctx, "no redis address configured, sessions are kept in memory")
		app.memStore = session.NewMemoryStore()
		return app.memStore, func(context.Context) error { return nil }
	}

	client := redis.NewClient(&redis.Options{
		Addr:     app.config.RedisAddr,
		Password: app.config.RedisPassword,
		DB:       app.config.RedisDB,
	})
	app.closers = append(app.closers, client)

	return session.NewRedisStore(client, session.WithPrefix("sess:")), func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

func imageOrigins(publicURL string) []string {
	if publicURL == "" {
		return nil
	}
	return []string{strings.TrimSuffix(publicURL, "/") + "/"}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "mode", app.config.Mode)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.memStore != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.memStore.Cleanup(ctx, sessionSweepInterval)
		}()
	}

	wg.Wait()

	app.Close()
	app.logger.Info(context.Background(), "App stopped")
}

// Close releases the database and session store connections.
func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Error(context.Background(), "closing resource", "error", err)
		}
	}
	app.closers = nil
}
