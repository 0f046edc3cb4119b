package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/danielhkuo/quickly-elect/auth"
)

// Database types
const (
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	SQLitePath   string

	SecretKey  string
	AdminToken string

	RedisURL  string
	UploadDir string

	// Peers allowed to set X-Forwarded-For and X-Real-IP
	TrustedProxies []netip.Prefix

	TokenFormat   string
	VoterIDPrefix string

	RateLimit  int
	RateWindow time.Duration

	SeedFile string
	LogLevel string
}

// ParseFlags validates flags and fills the rest from the environment.
// A .env file in the working directory is loaded first when present;
// variables already set in the process environment win over it.
func ParseFlags(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	var cfg Config
	var trustedProxies string

	fs := flag.NewFlagSet("quickly-elect", flag.ContinueOnError)

	// Network and storage (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "PostgreSQL URL (empty uses the embedded SQLite store)")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.SQLitePath, "sqlite-path", "", "Embedded SQLite file")
	fs.StringVar(&cfg.RedisURL, "redis-url", "", "Redis URL for the shared rate-limit store")
	fs.StringVar(&cfg.UploadDir, "upload-dir", "", "Directory for candidate photos")
	fs.StringVar(&trustedProxies, "trusted-proxies", "", "Comma-separated proxy IPs or CIDRs whose forwarding headers are honored")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.SecretKey, "secret-key", "", "Secret key (prefer env)")
	fs.StringVar(&cfg.AdminToken, "admin-token", "", "Admin bearer token (prefer env)")

	// Election behaviour
	fs.StringVar(&cfg.TokenFormat, "token-format", "", "Voting token format (numeric or alphanumeric)")
	fs.StringVar(&cfg.VoterIDPrefix, "voter-id-prefix", "", "Prefix for generated voter IDs")
	fs.IntVar(&cfg.RateLimit, "rate-limit", 0, "Vote attempts allowed per window and IP")
	fs.DurationVar(&cfg.RateWindow, "rate-window", 0, "Rate-limit window")
	fs.StringVar(&cfg.SeedFile, "seed", "", "YAML file with positions and candidates")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}

	stringFromEnv(&cfg.DatabaseURL, "DATABASE_URL", "")
	stringFromEnv(&cfg.SQLitePath, "SQLITE_PATH", "instance/voting.db")
	stringFromEnv(&cfg.RedisURL, "REDIS_URL", "")
	stringFromEnv(&cfg.UploadDir, "UPLOAD_DIR", "instance/uploads")
	stringFromEnv(&cfg.TokenFormat, "TOKEN_FORMAT", auth.FormatNumeric)
	stringFromEnv(&cfg.VoterIDPrefix, "VOTER_ID_PREFIX", "VTR")
	stringFromEnv(&cfg.SeedFile, "SEED_FILE", "")
	stringFromEnv(&cfg.LogLevel, "LOG_LEVEL", "info")
	stringFromEnv(&trustedProxies, "TRUSTED_PROXIES", "")

	proxies, err := ParseTrustedProxies(trustedProxies)
	if err != nil {
		return Config{}, err
	}
	cfg.TrustedProxies = proxies

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
	}
	if cfg.DatabaseType == "" {
		cfg.DatabaseType = inferDatabaseType(cfg.DatabaseURL)
	}
	if cfg.DatabaseType != DatabasePostgres && cfg.DatabaseType != DatabaseSQLite {
		return Config{}, fmt.Errorf("unknown database type %q", cfg.DatabaseType)
	}
	if cfg.DatabaseType == DatabasePostgres && cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required for postgres (use -d or DATABASE_URL env)")
	}

	if cfg.RateLimit == 0 {
		if s := os.Getenv("RATE_LIMIT"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return Config{}, errors.New("invalid RATE_LIMIT env variable")
			}
			cfg.RateLimit = n
		} else {
			cfg.RateLimit = 10
		}
	}
	if cfg.RateWindow == 0 {
		if s := os.Getenv("RATE_WINDOW"); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil || d <= 0 {
				return Config{}, errors.New("invalid RATE_WINDOW env variable")
			}
			cfg.RateWindow = d
		} else {
			cfg.RateWindow = 5 * time.Minute
		}
	}

	if !auth.IsValidFormat(cfg.TokenFormat) {
		return Config{}, fmt.Errorf("TOKEN_FORMAT must be %q or %q", auth.FormatNumeric, auth.FormatAlphanumeric)
	}
	if err := auth.ValidateVoterID(cfg.VoterIDPrefix + "001"); err != nil {
		return Config{}, fmt.Errorf("VOTER_ID_PREFIX %q does not produce valid voter IDs", cfg.VoterIDPrefix)
	}

	// Secrets - MUST be provided
	stringFromEnv(&cfg.SecretKey, "SECRET_KEY", "")
	if cfg.SecretKey == "" {
		return Config{}, errors.New("SECRET_KEY required")
	}

	stringFromEnv(&cfg.AdminToken, "ADMIN_TOKEN", "")
	if cfg.AdminToken == "" {
		return Config{}, errors.New("ADMIN_TOKEN required")
	}

	return cfg, nil
}

// SlogLevel maps the configured level name to a slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// ParseTrustedProxies reads a comma-separated list of IP addresses and CIDR
// ranges. A bare address becomes a single-host prefix.
func ParseTrustedProxies(list string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", item, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", item, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func stringFromEnv(dst *string, key, fallback string) {
	if *dst != "" {
		return
	}
	if v := os.Getenv(key); v != "" {
		*dst = v
		return
	}
	*dst = fallback
}

func inferDatabaseType(url string) string {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return DatabasePostgres
	}
	if url != "" && strings.Contains(url, "host=") {
		return DatabasePostgres
	}
	return DatabaseSQLite
}
