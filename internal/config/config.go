package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	MongoURI            string
	PostgresURI         string
	RedisURI            string
	EncryptionKey       string
	Port                string
	FrontendURL         string
	AllowedOrigins      []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	Host                string // Raw HOST env (e.g. https://api.civicquest.app)
	AllowedHost         string // Hostname only, production only
	Environment         string // ENV: production, development, etc.

	GeminiAPIKey string
	GeminiModel  string
	PlacesAPIKey string

	// CompletionDelay is the wait before a ready achievement completes itself.
	CompletionDelay time.Duration
	ProfileCacheTTL time.Duration
	LogLevel        string
	// TrustProxy keys rate limits on X-Forwarded-For from private peers.
	TrustProxy bool
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))
	host := getEnv("HOST", "http://localhost:8080")

	// The host check only runs in production.
	var allowedHost string
	if env == "production" {
		allowedHost = hostname(host)
	}

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, key := range []string{"FRONTEND_URL", "FRONTEND_URL_2", "FRONTEND_URL_3"} {
			def := ""
			if key == "FRONTEND_URL" {
				def = "http://localhost:3000"
			}
			if u := strings.TrimSpace(getEnv(key, def)); u != "" {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}
	// An API host like api.civicquest.app also admits the web app on the
	// parent domain.
	for _, origin := range parentOrigins(hostname(host)) {
		if !containsOrigin(allowedOrigins, origin) {
			allowedOrigins = append(allowedOrigins, origin)
		}
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	return &Config{
		MongoURI:            getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/civicquest")),
		PostgresURI:         getEnv("POSTGRES_URI", "postgres://localhost:5432/civicquest?sslmode=disable"),
		RedisURI:            getEnv("REDIS_URI", "redis://localhost:6379/0"),
		EncryptionKey:       getEnv("ENCRYPTION_KEY", ""),
		Host:                host,
		AllowedHost:         allowedHost,
		Environment:         env,
		Port:                getEnv("PORT", "8080"),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:3000"),
		AllowedOrigins:      allowedOrigins,
		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		PlacesAPIKey:        getEnv("PLACES_API_KEY", ""),
		CompletionDelay:     getDuration("COMPLETION_DELAY", time.Second),
		ProfileCacheTTL:     getDuration("PROFILE_CACHE_TTL", 10*time.Minute),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "info")),
		TrustProxy:          getBool("TRUST_PROXY", false),
	}
}

// hostname strips scheme, path and port: "https://api.x.app:443/v1" is
// "api.x.app".
func hostname(raw string) string {
	h := strings.TrimSpace(raw)
	for _, prefix := range []string{"https://", "http://"} {
		h = strings.TrimPrefix(h, prefix)
	}
	if i := strings.IndexAny(h, "/:"); i != -1 {
		h = h[:i]
	}
	return h
}

func parentOrigins(host string) []string {
	if host == "" || host == "localhost" {
		return nil
	}
	parts := strings.Split(host, ".")
	if len(parts) < 3 {
		return nil
	}
	domain := strings.Join(parts[1:], ".")
	return []string{"https://" + domain, "https://www." + domain}
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration accepts Go durations ("1500ms") or bare seconds ("2").
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return defaultValue
	}
	return v
}
