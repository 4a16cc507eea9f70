// README: Config loader with .env support and env defaults for HTTP, stores, GPS and journey settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends accepted by FAREBOX_STORE.
const (
	StoreFirebase = "firebase"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type GPSConfig struct {
	Device      string
	MaxAttempts int
	RetryDelay  time.Duration
}

type JourneyConfig struct {
	MinCharge   int64
	TapDebounce time.Duration
}

type Config struct {
	HTTP struct {
		Addr string
	}
	Store string
	DB    struct {
		DSN string
	}
	Redis struct {
		Addr string
	}
	NATS struct {
		URL     string
		Subject string
	}
	Firebase struct {
		CredentialsFile string
		DatabaseURL     string
		RootPath        string
	}
	Reader struct {
		Device  string
		Timeout time.Duration
	}
	GPS      GPSConfig
	Journey  JourneyConfig
	AdminIDs []string
}

func Load() (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	cfg.HTTP.Addr = envOrDefault("FAREBOX_HTTP_ADDR", ":8080")
	cfg.Store = strings.ToLower(envOrDefault("FAREBOX_STORE", StoreFirebase))
	cfg.DB.DSN = envOrDefault("FAREBOX_DB_DSN", "")
	cfg.Redis.Addr = envOrDefault("FAREBOX_REDIS_ADDR", "")
	cfg.NATS.URL = envOrDefault("FAREBOX_NATS_URL", "")
	cfg.NATS.Subject = envOrDefault("FAREBOX_NATS_SUBJECT", "farebox.journeys")
	cfg.Firebase.CredentialsFile = envOrDefault("FAREBOX_FIREBASE_CREDENTIALS", "")
	cfg.Firebase.DatabaseURL = envOrDefault("FAREBOX_FIREBASE_DB_URL", "")
	cfg.Firebase.RootPath = envOrDefault("FAREBOX_FIREBASE_PATH", "rfid_data")
	cfg.Reader.Device = envOrDefault("FAREBOX_READER_DEVICE", "")
	cfg.Reader.Timeout = envOrDefaultDuration("FAREBOX_READER_TIMEOUT", 30*time.Second)
	cfg.GPS.Device = envOrDefault("FAREBOX_GPS_DEVICE", "/dev/ttyUSB0")
	cfg.GPS.MaxAttempts = envOrDefaultInt("FAREBOX_GPS_MAX_ATTEMPTS", 10)
	cfg.GPS.RetryDelay = envOrDefaultDuration("FAREBOX_GPS_RETRY_DELAY", 2*time.Second)
	cfg.Journey.MinCharge = int64(envOrDefaultInt("FAREBOX_MIN_CHARGE", 5))
	cfg.Journey.TapDebounce = envOrDefaultDuration("FAREBOX_TAP_DEBOUNCE", 3*time.Second)
	cfg.AdminIDs = envList("FAREBOX_ADMIN_IDS")

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store {
	case StoreFirebase:
		if c.Firebase.CredentialsFile == "" {
			return fmt.Errorf("FAREBOX_FIREBASE_CREDENTIALS is required for store %q", c.Store)
		}
	case StorePostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("FAREBOX_DB_DSN is required for store %q", c.Store)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("invalid FAREBOX_STORE: %q", c.Store)
	}
	if c.GPS.MaxAttempts <= 0 {
		return fmt.Errorf("invalid FAREBOX_GPS_MAX_ATTEMPTS: %d", c.GPS.MaxAttempts)
	}
	if c.GPS.RetryDelay < 0 {
		return fmt.Errorf("invalid FAREBOX_GPS_RETRY_DELAY: %s", c.GPS.RetryDelay)
	}
	if c.Journey.MinCharge < 0 {
		return fmt.Errorf("invalid FAREBOX_MIN_CHARGE: %d", c.Journey.MinCharge)
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// envOrDefaultDuration accepts Go durations ("2s", "500ms") or bare seconds.
func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(n * float64(time.Second))
	}
	return def
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
