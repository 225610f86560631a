// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverPostgres     = "postgres"
	DriverGormPostgres = "gorm-postgres"
	DriverSQLite       = "sqlite"
	DriverMongo        = "mongo"
)

// Confirmation policies.
const (
	PolicyDirect = "direct"
	PolicyManual = "manual"
)

// MidtransCurrency is the only currency the payment gateway settles in.
const MidtransCurrency = "IDR"

// Auth providers.
const (
	AuthJWT    = "jwt"
	AuthGoogle = "google"
)

// DB holds PostgreSQL connection settings.
type DB struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds a libpq-compatible connection string.
func (c DB) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Config is the full runtime configuration.
type Config struct {
	Port       string
	CORSOrigin string

	StoreDriver string
	DB          DB
	SQLitePath  string
	MongoURI    string
	MongoDB     string

	AuthProvider   string
	JWTSecret      string
	JWTIssuer      string
	GoogleClientID string

	MidtransServerKey  string
	MidtransProduction bool
	Currency           string
	SuccessURL         string
	CancelURL          string
	ConfirmationPolicy string
	FallbackTxnID      bool
	UpstreamTimeout    time.Duration

	RecountCron      string
	TelegramBotToken string
}

// Load reads .env (if present) and the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] no .env file, using process environment")
	}

	return Config{
		Port:       getEnv("PORT", "8080"),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:5173"),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
		DB: DB{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "medicamp"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		SQLitePath: getEnv("SQLITE_PATH", "medicamp.db"),
		MongoURI:   getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:    getEnv("MONGO_DB", "medicamp"),

		AuthProvider:   strings.ToLower(getEnv("AUTH_PROVIDER", AuthJWT)),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTIssuer:      os.Getenv("JWT_ISSUER"),
		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),

		MidtransServerKey:  os.Getenv("MIDTRANS_SERVER_KEY"),
		MidtransProduction: getBool("MIDTRANS_PRODUCTION", false),
		Currency:           strings.ToUpper(getEnv("PAYMENT_CURRENCY", "IDR")),
		SuccessURL:         getEnv("PAYMENT_SUCCESS_URL", "http://localhost:5173/payment/success"),
		CancelURL:          getEnv("PAYMENT_CANCEL_URL", "http://localhost:5173/payment/cancel"),
		ConfirmationPolicy: strings.ToLower(getEnv("CONFIRMATION_POLICY", PolicyDirect)),
		FallbackTxnID:      getBool("PAYMENT_FALLBACK_TXN", true),
		UpstreamTimeout:    getDuration("UPSTREAM_TIMEOUT", 10*time.Second),

		RecountCron:      os.Getenv("RECOUNT_CRON"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres, DriverGormPostgres, DriverSQLite, DriverMongo:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.ConfirmationPolicy {
	case PolicyDirect, PolicyManual:
	default:
		return fmt.Errorf("unknown CONFIRMATION_POLICY %q", c.ConfirmationPolicy)
	}
	switch c.AuthProvider {
	case AuthJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required for AUTH_PROVIDER=jwt")
		}
	case AuthGoogle:
		if c.GoogleClientID == "" {
			return fmt.Errorf("GOOGLE_CLIENT_ID is required for AUTH_PROVIDER=google")
		}
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	// Midtrans charges whole rupiah only.
	if c.Currency != MidtransCurrency {
		return fmt.Errorf("PAYMENT_CURRENCY must be %s for the Midtrans gateway, got %q", MidtransCurrency, c.Currency)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] %s=%q is not a bool, using %v", key, v, fallback)
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] %s=%q is not a duration, using %s", key, v, fallback)
		return fallback
	}
	return d
}
