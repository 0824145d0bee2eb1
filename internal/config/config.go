package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For splitting list values

	"github.com/joho/godotenv" // For loading .env files
)

// PayPal API hosts per mode
const (
	PayPalSandboxURL = "https://api-m.sandbox.paypal.com"
	PayPalLiveURL    = "https://api-m.paypal.com"
)

// Config holds the application configuration
type Config struct {
	AppPort    string // Application port
	DBDriver   string // Database driver: mysql or postgres
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	JWTSecret  string // JWT secret key
	RedisAddr  string // Redis server address
	RedisPass  string // Redis password
	RedisDB    int    // Redis database number
	IsProd     bool   // Is production environment

	PayPalMode         string // sandbox or live
	PayPalClientID     string // OAuth2 client id
	PayPalClientSecret string // OAuth2 client secret
	PayPalBaseURL      string // API base, derived from mode unless overridden
	PayPalCurrency     string // Currency for checkout orders
	PayPalHomeURL      string // home_url sent with catalog products

	StripeSecretKey  string // Stripe secret key
	StripeBaseURL    string // Stripe API base
	StripeSuccessURL string // Checkout success redirect
	StripeCancelURL  string // Checkout cancel redirect

	SiteURL       string   // Public storefront URL, used in reset links
	UploadDir     string   // Local directory for item images
	PublicBaseURL string   // Public URL of this server, used for absolute image URLs
	S3Bucket      string   // Optional S3 bucket for item images
	CORSOrigins   []string // Allowed CORS origins
	SetupToken    string   // Token guarding the bootstrap endpoint
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	cfg := &Config{
		AppPort:    getEnv("APP_PORT", "8080"),     // Application port
		DBDriver:   getEnv("DB_DRIVER", "mysql"),   // Database driver
		DBUser:     os.Getenv("DB_USER"),           // Database user
		DBPassword: os.Getenv("DB_PASSWORD"),       // Database password
		DBHost:     os.Getenv("DB_HOST"),           // Database host
		DBPort:     os.Getenv("DB_PORT"),           // Database port
		DBName:     os.Getenv("DB_NAME"),           // Database name
		JWTSecret:  os.Getenv("JWT_SECRET"),        // JWT secret key
		RedisAddr:  os.Getenv("REDIS_ADDR"),        // Redis server address
		RedisPass:  os.Getenv("REDIS_PASS"),        // Redis password
		RedisDB:    redisDB,                        // Redis database number
		IsProd:     os.Getenv("IS_PROD") == "true", // Is production environment

		PayPalMode:         getEnv("PAYPAL_MODE", "sandbox"),
		PayPalClientID:     os.Getenv("PAYPAL_CLIENT_ID"),
		PayPalClientSecret: os.Getenv("PAYPAL_CLIENT_SECRET"),
		PayPalBaseURL:      os.Getenv("PAYPAL_API_BASE"),
		PayPalCurrency:     getEnv("PAYPAL_CURRENCY", "USD"),
		PayPalHomeURL:      os.Getenv("PAYPAL_HOME_URL"),

		StripeSecretKey:  os.Getenv("STRIPE_SECRET_KEY"),
		StripeBaseURL:    getEnv("STRIPE_API_BASE", "https://api.stripe.com"),
		StripeSuccessURL: getEnv("STRIPE_SUCCESS_URL", "https://themiracle.love/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
		StripeCancelURL:  getEnv("STRIPE_CANCEL_URL", "https://themiracle.love/checkout/cancel"),

		SiteURL:       strings.TrimRight(getEnv("SITE_URL", "https://themiracle.love"), "/"),
		UploadDir:     getEnv("UPLOAD_DIR", "./public/uploads"),
		PublicBaseURL: strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		S3Bucket:      os.Getenv("S3_BUCKET"),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		SetupToken:    os.Getenv("SETUP_TOKEN"),
	}
	if cfg.PayPalHomeURL == "" {
		cfg.PayPalHomeURL = cfg.SiteURL // Products link back to the storefront
	}
	// Live credentials switch the API host unless an explicit base is given
	if cfg.PayPalBaseURL == "" {
		cfg.PayPalBaseURL = PayPalSandboxURL
		if cfg.PayPalMode == "live" {
			cfg.PayPalBaseURL = PayPalLiveURL
		}
	}
	return cfg
}

// DSN builds the data source name for the configured driver
func (c *Config) DSN() string {
	if c.DBDriver == "postgres" {
		return "host=" + c.DBHost + " user=" + c.DBUser + " password=" + c.DBPassword +
			" dbname=" + c.DBName + " port=" + c.DBPort + " sslmode=disable"
	}
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
