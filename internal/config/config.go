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

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	IGDB     IGDBConfig
	Discover DiscoverConfig
	OAuth2   OAuth2Config
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host              string
	Port              string
	JWTSecret         string
	JWTTTL            time.Duration
	GinMode           string
	APIBasePath       string
	EnableHealthCheck bool
	CORSOrigins       []string
	Debug             bool
	LogLevel          string
	AdminUserIDs      []string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

// RedisConfig holds Redis-related configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// IGDBConfig holds the upstream catalog credentials and endpoints.
// IGDB authenticates through Twitch's client-credentials flow.
type IGDBConfig struct {
	ClientID       string
	ClientSecret   string
	TokenURL       string
	APIURL         string
	RequestTimeout time.Duration
}

// DiscoverConfig holds discovery feed configuration
type DiscoverConfig struct {
	PageSize        int
	CatalogCacheTTL time.Duration
	ShuffleDisabled bool
}

// OAuth2Config holds the login provider configuration.
// Login is optional; when ClientID is empty the login routes are not mounted.
type OAuth2Config struct {
	Provider     string
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthURL     string
	TokenURL    string
	UserInfoURL string
	Scopes      []string

	// User info field mappings
	UserIDField     string
	UserEmailField  string
	UserNameField   string
	UserAvatarField string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file from multiple possible locations
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("Loaded environment variables from: %s", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Println("No .env file found, using environment variables and defaults")
	}

	config := FromEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// FromEnv builds a Config from the current environment without validating it
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              getEnv("SERVER_HOST", "0.0.0.0"),
			Port:              getEnv("SERVER_PORT", "3000"),
			JWTSecret:         getEnv("JWT_SECRET", "dev-secret-change-me"),
			JWTTTL:            getEnvDuration("JWT_TTL", 30*24*time.Hour),
			GinMode:           getEnv("GIN_MODE", "release"),
			APIBasePath:       getEnv("API_BASE_PATH", "/api"),
			EnableHealthCheck: getEnvBool("ENABLE_HEALTH_CHECK", true),
			CORSOrigins:       getEnvSlice("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
			Debug:             getEnvBool("DEBUG", false),
			LogLevel:          getEnv("LOG_LEVEL", "info"),
			AdminUserIDs:      getEnvSlice("ADMIN_USER_IDS", nil),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "gorm"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "gameboxr"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		IGDB: IGDBConfig{
			ClientID:       getEnv("TWITCH_CLIENT_ID", ""),
			ClientSecret:   getEnv("TWITCH_CLIENT_SECRET", ""),
			TokenURL:       getEnv("IGDB_TOKEN_URL", "https://id.twitch.tv/oauth2/token"),
			APIURL:         strings.TrimRight(getEnv("IGDB_API_URL", "https://api.igdb.com/v4"), "/"),
			RequestTimeout: getEnvDuration("IGDB_REQUEST_TIMEOUT", 15*time.Second),
		},
		Discover: DiscoverConfig{
			PageSize:        getEnvInt("DISCOVER_PAGE_SIZE", 40),
			CatalogCacheTTL: getEnvDuration("CATALOG_CACHE_TTL", 0),
			ShuffleDisabled: getEnvBool("DISCOVER_SHUFFLE_DISABLED", false),
		},
		OAuth2: OAuth2Config{
			Provider:     getEnv("OAUTH2_PROVIDER", "custom"),
			ClientID:     getEnv("OAUTH2_CLIENT_ID", ""),
			ClientSecret: getEnv("OAUTH2_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("OAUTH2_REDIRECT_URL", "http://localhost:3000/auth/callback"),

			AuthURL:     getEnv("OAUTH2_AUTH_URL", ""),
			TokenURL:    getEnv("OAUTH2_TOKEN_URL", ""),
			UserInfoURL: getEnv("OAUTH2_USERINFO_URL", ""),
			Scopes:      getEnvSlice("OAUTH2_SCOPES", []string{"openid", "profile", "email"}),

			UserIDField:     getEnv("OAUTH2_USER_ID_FIELD", "id"),
			UserEmailField:  getEnv("OAUTH2_USER_EMAIL_FIELD", "email"),
			UserNameField:   getEnv("OAUTH2_USER_NAME_FIELD", "name"),
			UserAvatarField: getEnv("OAUTH2_USER_AVATAR_FIELD", "avatar"),
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.JWTSecret == "" || c.Server.JWTSecret == "dev-secret-change-me" {
		return fmt.Errorf("JWT_SECRET must be set to a secure value")
	}

	if c.IGDB.ClientID == "" || c.IGDB.ClientSecret == "" {
		return fmt.Errorf("TWITCH_CLIENT_ID and TWITCH_CLIENT_SECRET must be set")
	}

	if c.Database.Host == "" || c.Database.Name == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration is incomplete")
	}

	switch c.Database.Driver {
	case "gorm", "pq":
	default:
		return fmt.Errorf("unknown DB_DRIVER %q (want gorm or pq)", c.Database.Driver)
	}

	if c.Discover.PageSize < 1 || c.Discover.PageSize > 500 {
		return fmt.Errorf("DISCOVER_PAGE_SIZE must be between 1 and 500")
	}

	return nil
}

// LoginEnabled reports whether the OAuth2 login provider is configured
func (c *Config) LoginEnabled() bool {
	return c.OAuth2.ClientID != "" && c.OAuth2.ClientSecret != ""
}

// GetDatabaseURL returns the database connection URL
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.Name, c.Database.SSLMode)
}

// GetRedisAddress returns the Redis host:port address
func (c *Config) GetRedisAddress() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// GetServerAddress returns the server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("90s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
