package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/db"
	"github.com/danielhkuo/quickly-elect/election"
	"github.com/danielhkuo/quickly-elect/middleware"
	"github.com/danielhkuo/quickly-elect/ratelimit"
	"github.com/danielhkuo/quickly-elect/router"
)

func main() {
	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to the database
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	if err := db.Migrate(ctx, dbConn); err != nil {
		slog.Error("schema migration failed", "error", err)
		os.Exit(1)
	}
	version, err := db.SchemaVersion(ctx, dbConn)
	if err != nil {
		slog.Error("schema version lookup failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType, "version", version)

	limiter, closeLimiter, err := newLimiter(ctx, cfg)
	if err != nil {
		slog.Error("rate limiter setup failed", "error", err)
		os.Exit(1)
	}
	defer closeLimiter()

	if cfg.SeedFile != "" {
		if err := seedPositions(ctx, dbConn, cfg, limiter); err != nil {
			slog.Error("seeding positions failed", "file", cfg.SeedFile, "error", err)
			os.Exit(1)
		}
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		slog.Error("upload directory unavailable", "dir", cfg.UploadDir, "error", err)
		os.Exit(1)
	}

	// Create router
	mux := router.NewRouter(dbConn, cfg, limiter)

	// Create server
	server := http.Server{
		Handler:           middleware.CORS(mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed")
	}
}

// setupLogging installs the default slog handler: text, or JSON when
// LOG_FORMAT=json.
func setupLogging(cfg cliparse.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if os.Getenv("LOG_FORMAT") == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// newLimiter returns the ballot rate limiter, backed by Redis when a URL is
// configured and by process memory otherwise.
func newLimiter(ctx context.Context, cfg cliparse.Config) (*ratelimit.Limiter, func(), error) {
	if cfg.RedisURL == "" {
		slog.Info("Rate limiting in process memory", "limit", cfg.RateLimit, "window", cfg.RateWindow)
		return ratelimit.New(ratelimit.NewMemoryStore(), cfg.RateLimit, cfg.RateWindow), func() {}, nil
	}

	client, err := ratelimit.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("Rate limiting in redis", "limit", cfg.RateLimit, "window", cfg.RateWindow)
	store := ratelimit.NewRedisStore(client, "quickly-elect:ratelimit:")
	return ratelimit.New(store, cfg.RateLimit, cfg.RateWindow), func() { client.Close() }, nil
}

// seedPositions applies the seed file when no position exists yet.
func seedPositions(ctx context.Context, conn *sql.DB, cfg cliparse.Config, limiter *ratelimit.Limiter) error {
	seed, err := election.LoadSeedFile(cfg.SeedFile)
	if err != nil {
		return err
	}

	store := election.New(conn, election.OptionsFromConfig(cfg, limiter))
	applied, err := store.SeedIfEmpty(ctx, seed)
	if err != nil {
		return err
	}
	if applied {
		slog.Info("Seeded positions", "file", cfg.SeedFile, "positions", len(seed.Positions))
	} else {
		slog.Info("Positions already present; seed file skipped", "file", cfg.SeedFile)
	}
	return nil
}
