package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ustbills/internal/domain"
)

// Server captures the process-level configuration.
type Server struct {
	Addr          string
	DBPath        string
	JWTSigningKey string

	// AdminPrincipals seeds the guard set at startup.
	AdminPrincipals []domain.Principal

	// PlatformAccount is the ckBTC account deposits must target; BurnSink
	// receives OUSG on redemption.
	PlatformAccount domain.Principal
	BurnSink        domain.Principal

	// StrictKYCDeposits requires full verification for ckBTC deposits.
	StrictKYCDeposits bool
	// FallbackBTCPrice is the degraded-mode USD/BTC price.
	FallbackBTCPrice float64
	// StaticBTCPrice, when set, replaces the external oracle entirely.
	StaticBTCPrice float64

	// External collaborator endpoints.
	CkBTCLedgerURL string
	OUSGLedgerURL  string
	RateOracleURL  string
	// FileStoreURL enables registration notices to the document store.
	FileStoreURL string

	// RedisURL enables the shared rate cache when non-empty.
	RedisURL     string
	RateCacheTTL time.Duration

	ReconcileInterval  time.Duration
	ReconcileThreshold time.Duration
}

// FromEnv builds a Server config from environment variables so main stays
// lean. A local .env file is honored when present.
func FromEnv() Server {
	_ = godotenv.Load()

	cfg := Server{
		Addr:               envOr("USTBILLS_ADDR", ":8080"),
		DBPath:             envOr("USTBILLS_DB_PATH", "ustbills.db"),
		JWTSigningKey:      envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PlatformAccount:    domain.Principal(envOr("PLATFORM_ACCOUNT", "ustbills-platform")),
		BurnSink:           domain.Principal(envOr("OUSG_BURN_SINK", "ustbills-burn-sink")),
		StrictKYCDeposits:  os.Getenv("STRICT_KYC_DEPOSITS") != "false",
		FallbackBTCPrice:   envFloat("FALLBACK_BTC_PRICE", 100_000.0),
		StaticBTCPrice:     envFloat("STATIC_BTC_PRICE", 0),
		CkBTCLedgerURL:     envOr("CKBTC_LEDGER_URL", "http://localhost:9091"),
		OUSGLedgerURL:      envOr("OUSG_LEDGER_URL", "http://localhost:9092"),
		RateOracleURL:      os.Getenv("RATE_ORACLE_URL"),
		FileStoreURL:       os.Getenv("FILE_STORE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		RateCacheTTL:       envDuration("RATE_CACHE_TTL", 5*time.Minute),
		ReconcileInterval:  envDuration("RECONCILE_INTERVAL", time.Minute),
		ReconcileThreshold: envDuration("RECONCILE_THRESHOLD", 30*time.Minute),
	}
	for _, p := range strings.Split(os.Getenv("ADMIN_PRINCIPALS"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			cfg.AdminPrincipals = append(cfg.AdminPrincipals, domain.Principal(p))
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
