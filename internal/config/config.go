package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName             string
	AppVersion          string
	Environment         string
	HTTPAddr            string
	AppOrigin           string
	AuthCookieSecure    bool
	HTTPShutdownSeconds int

	Admin     AdminCredentials
	Turnstile TurnstileConfig
	Google    GoogleOAuthConfig

	DBType     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	RedisAddr     string
	RedisPassword string

	LogLevel string

	BootstrapOwnerEmail    string
	BootstrapOwnerPassword string
}

// AdminCredentials is the operator-configured admin login pair. It is
// injected into the session issuer rather than read from the environment
// at call time.
type AdminCredentials struct {
	Email    string
	Password string
}

func (a AdminCredentials) Configured() bool {
	return strings.TrimSpace(a.Email) != "" && strings.TrimSpace(a.Password) != ""
}

// TurnstileConfig carries the server-held secret for the bot-verification
// service and the endpoint to call.
type TurnstileConfig struct {
	Secret    string
	VerifyURL string
}

// GoogleOAuthConfig configures the federated sign-in path.
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
}

func (g GoogleOAuthConfig) Enabled() bool {
	return strings.TrimSpace(g.ClientID) != "" && strings.TrimSpace(g.ClientSecret) != ""
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	return Config{
		AppName:             getenv("APP_SERVICE", "studio"),
		AppVersion:          getenv("APP_VERSION", "0.1.0"),
		Environment:         environment,
		HTTPAddr:            getenv("HTTP_ADDR", ":8080"),
		AppOrigin:           strings.TrimRight(getenv("APP_ORIGIN", "http://localhost:8080"), "/"),
		AuthCookieSecure:    authCookieSecure,
		HTTPShutdownSeconds: getenvInt("HTTP_SHUTDOWN_SECONDS", 10),
		Admin: AdminCredentials{
			Email:    strings.TrimSpace(getenv("ADMIN_EMAIL", "")),
			Password: getenv("ADMIN_PASSWORD", ""),
		},
		Turnstile: TurnstileConfig{
			Secret:    strings.TrimSpace(getenv("TURNSTILE_SECRET_KEY", "")),
			VerifyURL: getenv("TURNSTILE_VERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify"),
		},
		Google: GoogleOAuthConfig{
			ClientID:     strings.TrimSpace(getenv("GOOGLE_CLIENT_ID", "")),
			ClientSecret: strings.TrimSpace(getenv("GOOGLE_CLIENT_SECRET", "")),
			RedirectURI:  getenv("GOOGLE_REDIRECT_URI", ""),
			AuthURL:      getenv("GOOGLE_AUTH_URL", "https://accounts.google.com/o/oauth2/v2/auth"),
			TokenURL:     getenv("GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token"),
			UserInfoURL:  getenv("GOOGLE_USERINFO_URL", "https://openidconnect.googleapis.com/v1/userinfo"),
		},
		DBType:                 getenv("DATABASE_TYPE", "postgres"),
		DBHost:                 getenv("DATABASE_HOST", "localhost"),
		DBPort:                 getenv("DATABASE_PORT", "5432"),
		DBName:                 getenv("DATABASE_NAME", "studio"),
		DBUser:                 getenv("DATABASE_USER", "postgres"),
		DBPassword:             getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:              getenv("DATABASE_SSLMODE", "disable"),
		RedisAddr:              strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:          getenv("REDIS_PASSWORD", ""),
		LogLevel:               getenv("LOG_LEVEL", "info"),
		BootstrapOwnerEmail:    strings.TrimSpace(getenv("BOOTSTRAP_OWNER_EMAIL", "")),
		BootstrapOwnerPassword: getenv("BOOTSTRAP_OWNER_PASSWORD", ""),
	}
}

// Validate fails closed on missing security-sensitive configuration.
// A production deploy without the bot-verification secret or the admin
// credential pair must refuse to start rather than silently accept logins.
func (c Config) Validate() error {
	if c.Environment != "production" {
		return nil
	}
	if c.Turnstile.Secret == "" {
		return errors.New("TURNSTILE_SECRET_KEY is required in production")
	}
	if !c.Admin.Configured() {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD are required in production")
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
