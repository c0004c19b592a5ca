package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string

	// AuthSecret signs access tokens. Loaded from the environment at startup,
	// never embedded in source.
	AuthSecret string

	// AttemptGraceSeconds is added to a quiz's duration before the server
	// treats an in-progress attempt as overdue.
	AttemptGraceSeconds int

	// ExpirySweepSpec is a cron expression for the overdue-attempt sweep.
	ExpirySweepSpec string

	CORSOrigins []string

	LogLevel string
}

// FromEnv builds the runtime configuration. A .env file is honored in
// development; real deployments set the environment directly.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}

	secret := os.Getenv("AUTH_HMAC_SECRET")
	if secret == "" {
		if mode == ModeOnline {
			return Config{}, errors.New("AUTH_HMAC_SECRET is required in online mode")
		}
		secret = "studymesh-dev-only"
	}

	return Config{
		Mode:                mode,
		HTTPAddr:            envOr("HTTP_ADDR", ":8080"),
		DBDriver:            envOr("DB_DRIVER", "sqlite"),
		DBDSN:               envOr("DB_DSN", ""),
		AuthSecret:          secret,
		AttemptGraceSeconds: envInt("ATTEMPT_GRACE_SECONDS", 30),
		ExpirySweepSpec:     envOr("EXPIRY_SWEEP_SPEC", "@every 1m"),
		CORSOrigins:         csvOr("CORS_ORIGINS", "http://localhost:3000"),
		LogLevel:            envOr("LOG_LEVEL", "info"),
	}, nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
