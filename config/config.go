package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

type Config struct {
	ServiceName string
	LoggerLevel string

	AppPort int

	BackendURL     string
	BackendAnonKey string
	RefreshToken   string

	// LaunchURL is the URL the app was opened with; password-recovery
	// deep links carry a type=recovery marker in the query or fragment.
	LaunchURL string

	SessionTimeout    time.Duration
	RecoveryTimeout   time.Duration
	GeoTimeout        time.Duration
	RealtimeHeartbeat time.Duration
}

func Load() Config {
	_ = godotenv.Load(".env")

	cfg := Config{}

	cfg.ServiceName = cast.ToString(getOrReturnDefault("SERVICE_NAME", "rideapp"))
	cfg.LoggerLevel = cast.ToString(getOrReturnDefault("LOGGER_LEVEL", "debug"))
	cfg.AppPort = cast.ToInt(getOrReturnDefault("APP_PORT", 8080))

	cfg.BackendURL = cast.ToString(getOrReturnDefault("BACKEND_URL", "http://localhost:54321"))
	cfg.BackendAnonKey = cast.ToString(getOrReturnDefault("BACKEND_ANON_KEY", ""))
	cfg.RefreshToken = cast.ToString(getOrReturnDefault("BACKEND_REFRESH_TOKEN", ""))

	cfg.LaunchURL = cast.ToString(getOrReturnDefault("LAUNCH_URL", ""))

	cfg.SessionTimeout = cast.ToDuration(getOrReturnDefault("SESSION_TIMEOUT", "6s"))
	cfg.RecoveryTimeout = cast.ToDuration(getOrReturnDefault("RECOVERY_TIMEOUT", "8s"))
	cfg.GeoTimeout = cast.ToDuration(getOrReturnDefault("GEO_TIMEOUT", "5s"))
	cfg.RealtimeHeartbeat = cast.ToDuration(getOrReturnDefault("REALTIME_HEARTBEAT", "25s"))

	return cfg
}

func getOrReturnDefault(key string, defaultValue interface{}) interface{} {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}
