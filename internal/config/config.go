// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	LogLevel       string

	HTTPAddr           string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	CORSAllowedOrigins []string

	DatabaseURL string

	// InternalJobToken guards the internal job endpoints. Empty disables
	// them entirely.
	InternalJobToken string

	PprofEnabled bool
	PprofAddr    string

	UptraceEnabled bool
	UptraceDSN     string

	PyroscopeEnabled       bool
	PyroscopeServerAddress string

	APIFootballEnabled     bool
	APIFootballBaseURL     string
	APIFootballKey         string
	APIFootballTimeout     time.Duration
	APIFootballMinInterval time.Duration
	SquadCacheTTL          time.Duration

	CircuitEnabled          bool
	CircuitFailureThreshold int
	CircuitOpenTimeout      time.Duration
	CircuitHalfOpenMaxReq   int

	PollEnabled    bool
	PollInterval   time.Duration
	PollMaxWorkers int
}

func Load() (Config, error) {
	cfg := Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		ServiceName:    getEnv("SERVICE_NAME", "draft-league"),
		ServiceVersion: getEnv("SERVICE_VERSION", "dev"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		InternalJobToken: getEnv("INTERNAL_JOB_TOKEN", ""),

		PprofAddr: getEnv("PPROF_ADDR", ":6060"),

		UptraceDSN: getEnv("UPTRACE_DSN", ""),

		PyroscopeServerAddress: getEnv("PYROSCOPE_SERVER_ADDRESS", ""),

		APIFootballBaseURL: getEnv("API_FOOTBALL_BASE_URL", "https://v3.football.api-sports.io"),
		APIFootballKey:     getEnv("API_FOOTBALL_KEY", ""),
	}

	if origins := getEnv("CORS_ALLOWED_ORIGINS", "*"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
			}
		}
	}

	var err error
	if cfg.ReadTimeout, err = getDuration("HTTP_READ_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.WriteTimeout, err = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}

	if cfg.PprofEnabled, err = getBool("PPROF_ENABLED", false); err != nil {
		return Config{}, err
	}
	if cfg.UptraceEnabled, err = getBool("UPTRACE_ENABLED", false); err != nil {
		return Config{}, err
	}
	if cfg.PyroscopeEnabled, err = getBool("PYROSCOPE_ENABLED", false); err != nil {
		return Config{}, err
	}

	if cfg.APIFootballEnabled, err = getBool("API_FOOTBALL_ENABLED", false); err != nil {
		return Config{}, err
	}
	if cfg.APIFootballTimeout, err = getDuration("API_FOOTBALL_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.APIFootballMinInterval, err = getDuration("API_FOOTBALL_MIN_INTERVAL", 6*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.SquadCacheTTL, err = getDuration("SQUAD_CACHE_TTL", 12*time.Hour); err != nil {
		return Config{}, err
	}

	if cfg.CircuitEnabled, err = getBool("CIRCUIT_BREAKER_ENABLED", true); err != nil {
		return Config{}, err
	}
	if cfg.CircuitFailureThreshold, err = getInt("CIRCUIT_BREAKER_FAILURE_THRESHOLD", 5); err != nil {
		return Config{}, err
	}
	if cfg.CircuitOpenTimeout, err = getDuration("CIRCUIT_BREAKER_OPEN_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.CircuitHalfOpenMaxReq, err = getInt("CIRCUIT_BREAKER_HALF_OPEN_MAX_REQUESTS", 2); err != nil {
		return Config{}, err
	}

	if cfg.PollEnabled, err = getBool("POLL_ENABLED", false); err != nil {
		return Config{}, err
	}
	if cfg.PollInterval, err = getDuration("POLL_INTERVAL", time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.PollMaxWorkers, err = getInt("POLL_MAX_WORKERS", 1); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.APIFootballEnabled && c.APIFootballKey == "" {
		return fmt.Errorf("API_FOOTBALL_KEY is required when API_FOOTBALL_ENABLED is true")
	}
	if c.PollEnabled && !c.APIFootballEnabled {
		return fmt.Errorf("POLL_ENABLED requires API_FOOTBALL_ENABLED")
	}
	if c.UptraceEnabled && c.UptraceDSN == "" {
		return fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED is true")
	}
	if c.PyroscopeEnabled && c.PyroscopeServerAddress == "" {
		return fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED is true")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func getInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}
