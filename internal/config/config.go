package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// JWTConfig defines the issuer/secret pair used to verify bearer tokens.
type JWTConfig struct {
	Issuer   string
	Audience string
	Secret   []byte
}

// Collections names every MongoDB collection the service touches.
type Collections struct {
	Cafes        string
	Reviews      string
	Users        string
	Follows      string
	Institutions string
}

// PlacesConfig selects and tunes the place-search provider.
type PlacesConfig struct {
	Provider       string
	GoogleAPIKey   string
	GoogleEndpoint string
	OverpassURL    string
	Timeout        time.Duration
	RadiusTiers    []int
	MaxAttempts    int
	Backoff        time.Duration
}

// CloudinaryConfig holds photo storage credentials. Empty values disable uploads.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

// Enabled reports whether every credential is present.
func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// Config holds runtime configuration shared across the application.
type Config struct {
	Addr             string
	MongoURI         string
	MongoDatabase    string
	Timeout          time.Duration
	Collections      Collections
	JWT              JWTConfig
	AdminSubjects    []string
	AllowedOrigins   []string
	Places           PlacesConfig
	Cloudinary       CloudinaryConfig
	InstitutionsFile string
	ReviewRateLimit  int
	ReviewRateWindow time.Duration
	LiveDebounce     time.Duration
	LogLevel         string
}

// Load reads an optional .env file and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}

	secret := strings.TrimSpace(os.Getenv("AUTH_JWT_SECRET"))
	if secret == "" {
		return Config{}, errors.New("AUTH_JWT_SECRET must be configured")
	}

	provider := strings.ToLower(envOrDefault("PLACES_PROVIDER", "overpass"))
	if provider != "google" && provider != "overpass" && provider != "none" {
		return Config{}, fmt.Errorf("PLACES_PROVIDER must be google, overpass or none, got %q", provider)
	}
	googleKey := strings.TrimSpace(os.Getenv("GOOGLE_PLACES_API_KEY"))
	if provider == "google" && googleKey == "" {
		return Config{}, errors.New("GOOGLE_PLACES_API_KEY must be configured when PLACES_PROVIDER=google")
	}

	tiers, err := parseIntList("PLACES_RADIUS_TIERS", []int{1500, 3000})
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Addr:          envOrDefault("HTTP_ADDR", ":8080"),
		MongoURI:      envOrDefault("MONGO_URI", "mongodb://mongo:27017"),
		MongoDatabase: envOrDefault("MONGO_DB", "beanscene"),
		Timeout:       durationOrDefault("MONGO_CONNECT_TIMEOUT", 10*time.Second),
		Collections: Collections{
			Cafes:        envOrDefault("CAFE_COLLECTION", "cafes"),
			Reviews:      envOrDefault("REVIEW_COLLECTION", "reviews"),
			Users:        envOrDefault("USER_COLLECTION", "users"),
			Follows:      envOrDefault("FOLLOW_COLLECTION", "follows"),
			Institutions: envOrDefault("INSTITUTION_COLLECTION", "institutions"),
		},
		JWT: JWTConfig{
			Issuer:   strings.TrimSpace(os.Getenv("AUTH_JWT_ISSUER")),
			Audience: strings.TrimSpace(os.Getenv("AUTH_JWT_AUDIENCE")),
			Secret:   []byte(secret),
		},
		AdminSubjects:  parseList("ADMIN_SUBJECTS", nil),
		AllowedOrigins: parseList("API_ALLOWED_ORIGINS", []string{"*"}),
		Places: PlacesConfig{
			Provider:       provider,
			GoogleAPIKey:   googleKey,
			GoogleEndpoint: strings.TrimSpace(os.Getenv("GOOGLE_PLACES_ENDPOINT")),
			OverpassURL:    strings.TrimSpace(os.Getenv("OVERPASS_ENDPOINT")),
			Timeout:        durationOrDefault("PLACES_TIMEOUT", 10*time.Second),
			RadiusTiers:    tiers,
			MaxAttempts:    intOrDefault("PLACES_MAX_ATTEMPTS", 3),
			Backoff:        durationOrDefault("PLACES_BACKOFF", 500*time.Millisecond),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: strings.TrimSpace(os.Getenv("CLOUDINARY_CLOUD_NAME")),
			APIKey:    strings.TrimSpace(os.Getenv("CLOUDINARY_API_KEY")),
			APISecret: strings.TrimSpace(os.Getenv("CLOUDINARY_API_SECRET")),
		},
		InstitutionsFile: strings.TrimSpace(os.Getenv("INSTITUTIONS_FILE")),
		ReviewRateLimit:  intOrDefault("REVIEW_RATE_LIMIT", 10),
		ReviewRateWindow: durationOrDefault("REVIEW_RATE_WINDOW", 60*time.Minute),
		LiveDebounce:     durationOrDefault("LIVE_DEBOUNCE", 300*time.Millisecond),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
	}
	return cfg, nil
}

// NewLogger builds the production zap logger at the configured level.
func NewLogger(level string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.Named("beanscene-api"), nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) time.Duration {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func intOrDefault(key string, fallback int) int {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func parseList(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}

	if len(values) == 0 {
		return fallback
	}
	return values
}

func parseIntList(key string, fallback []int) ([]int, error) {
	raw := parseList(key, nil)
	if len(raw) == 0 {
		return fallback, nil
	}
	values := make([]int, 0, len(raw))
	for _, item := range raw {
		n, err := strconv.Atoi(item)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%s: %q is not a positive integer", key, item)
		}
		values = append(values, n)
	}
	return values, nil
}
