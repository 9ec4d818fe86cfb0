package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults for the registration workflow. Overridable via environment.
var (
	VerificationTokenTTL = 24 * time.Hour
	RegistrationTTL      = 7 * 24 * time.Hour
	SweepInterval        = 1 * time.Hour
	MaxUploadBytes       = int64(10 << 20) // 10 MiB
)

// FreeEmailDomains is the default deny-list of consumer email providers.
// Company registrations must come from a company domain.
var FreeEmailDomains = []string{
	"gmail.com",
	"googlemail.com",
	"yahoo.com",
	"hotmail.com",
	"outlook.com",
	"live.com",
	"aol.com",
	"gmx.de",
	"gmx.net",
	"web.de",
	"icloud.com",
	"proton.me",
	"protonmail.com",
}

// Server captures process level configuration.
type Server struct {
	Addr            string
	DatabaseURL     string
	KafkaBrokers    string
	DevMode         bool
	TokenTTL        time.Duration
	RegistrationTTL time.Duration
	SweepInterval   time.Duration
	MaxUploadBytes  int64
	DeniedDomains   []string
	Redis           RedisConfig
	RiskServiceURL  string

	// DocumentURLSecret signs reviewer download links; empty disables them.
	DocumentURLSecret string
	// DocumentBaseURL is the externally reachable download endpoint.
	DocumentBaseURL string
	// VaultKey is the base64-encoded 32-byte key for bank-detail encryption.
	// Empty falls back to a pass-through vault in dev mode only.
	VaultKey string
}

// RedisConfig captures Redis connection settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("JOBSTREAM_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	cfg := Server{
		Addr:            addr,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		KafkaBrokers:    os.Getenv("KAFKA_BROKERS"),
		DevMode:         os.Getenv("DEV_MODE") == "true",
		TokenTTL:        VerificationTokenTTL,
		RegistrationTTL: RegistrationTTL,
		SweepInterval:   SweepInterval,
		MaxUploadBytes:  MaxUploadBytes,
		DeniedDomains:   FreeEmailDomains,
		RiskServiceURL:  os.Getenv("RISK_SERVICE_URL"),

		DocumentURLSecret: os.Getenv("DOCUMENT_URL_SECRET"),
		DocumentBaseURL:   os.Getenv("DOCUMENT_BASE_URL"),
		VaultKey:          os.Getenv("VAULT_KEY"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}

	if v := os.Getenv("VERIFICATION_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.TokenTTL = d
		}
	}
	if v := os.Getenv("REGISTRATION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RegistrationTTL = d
		}
	}
	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SweepInterval = d
		}
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("DENIED_EMAIL_DOMAINS"); v != "" {
		cfg.DeniedDomains = splitAndTrim(v)
	}

	return cfg
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.ToLower(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
