package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/sensor-dashboard/internal/telemetry"
)

// Field describes one channel field and the route alias it is served under.
type Field struct {
	Key   telemetry.FieldKey
	Kind  string // sensor family, e.g. "dht"
	Name  string // measured quantity, e.g. "temp"
	Title string
}

// Slug returns the route alias, e.g. "dht/temp".
func (f Field) Slug() string {
	return f.Kind + "/" + f.Name
}

// DefaultFields is the channel layout of the deployed sensor board.
var DefaultFields = []Field{
	{Key: 1, Kind: "dht", Name: "temp", Title: "DHT temperature"},
	{Key: 2, Kind: "dht", Name: "humidity", Title: "DHT humidity"},
	{Key: 3, Kind: "bh", Name: "luminosity", Title: "BH luminosity"},
	{Key: 4, Kind: "bmp", Name: "pressure", Title: "BMP pressure"},
	{Key: 5, Kind: "ds", Name: "heater-temp", Title: "DS heater temperature"},
	{Key: 6, Kind: "ds", Name: "temp", Title: "DS temperature"},
	{Key: 7, Kind: "pir", Name: "movement", Title: "PIR movement"},
	{Key: 8, Kind: "bmp", Name: "temp", Title: "BMP temperature"},
}

// Fields is the configured field table.
type Fields []Field

// Titles returns the display names indexed by field.
func (fs Fields) Titles() telemetry.FieldTitles {
	var t telemetry.FieldTitles
	for _, f := range fs {
		if f.Key.Valid() {
			t[f.Key-1] = f.Title
		}
	}
	return t
}

// BySlug resolves a route alias such as "bmp/temp".
func (fs Fields) BySlug(kind, name string) (Field, bool) {
	for _, f := range fs {
		if strings.EqualFold(f.Kind, kind) && strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

type AppConfig struct {
	Port string

	// Upstream channel API.
	ThingSpeakURL     string
	ThingSpeakChannel string
	ThingSpeakAPIKey  string
	ThingSpeakResults int
	HTTPTimeout       time.Duration

	// Store.
	DBDriver string // "sqlite", "postgres" or "memory"
	DBPath   string
	DBDSN    string
	// StoreQueryLimit bounds the rows read when serving from the store.
	StoreQueryLimit int
	// ExportLimit bounds the rows written by the CSV export (0 = unlimited).
	ExportLimit int

	// SyncInterval controls the background cache refresh; 0 disables it.
	SyncInterval time.Duration

	JWTSecret string
	JWTTTL    time.Duration
	// CookieSecure marks the auth cookie Secure; enable behind TLS.
	CookieSecure bool

	LogLevel string

	Fields Fields
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")

	cfg.ThingSpeakURL = getenvDefault("THINGSPEAK_API", "https://api.thingspeak.com")
	cfg.ThingSpeakChannel = getenvDefault("THINGSPEAK_CHANNEL", "202842")
	cfg.ThingSpeakAPIKey = os.Getenv("THINGSPEAK_API_KEY")
	cfg.ThingSpeakResults = getenvInt("THINGSPEAK_RESULTS", 8000)

	timeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.DBDriver = strings.ToLower(getenvDefault("DB_DRIVER", "sqlite"))
	switch cfg.DBDriver {
	case "sqlite", "postgres", "memory":
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q: want sqlite, postgres or memory", cfg.DBDriver)
	}
	cfg.DBPath = getenvDefault("DB_PATH", "database.db")
	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDriver == "postgres" && cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required when DB_DRIVER=postgres")
	}

	cfg.StoreQueryLimit = getenvInt("STORE_QUERY_LIMIT", 8000)
	cfg.ExportLimit = getenvInt("EXPORT_LIMIT", 0)

	interval, err := time.ParseDuration(getenvDefault("SYNC_INTERVAL", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_INTERVAL: %w", err)
	}
	cfg.SyncInterval = interval

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	ttl, err := time.ParseDuration(getenvDefault("JWT_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	cfg.JWTTTL = ttl

	cfg.CookieSecure, _ = strconv.ParseBool(getenvDefault("COOKIE_SECURE", "false"))

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")

	cfg.Fields = loadFields()

	return cfg, nil
}

// loadFields applies FIELDn_TITLE overrides to the default table.
func loadFields() Fields {
	fields := make(Fields, len(DefaultFields))
	copy(fields, DefaultFields)
	for i := range fields {
		key := fmt.Sprintf("FIELD%d_TITLE", int(fields[i].Key))
		fields[i].Title = getenvDefault(key, fields[i].Title)
	}
	return fields
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
