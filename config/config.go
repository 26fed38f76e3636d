package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// MinSecretKeyLength is the minimum required length for the token signing key in production
	MinSecretKeyLength = 32

	// EncryptionKeyLength is the decoded size of ENCRYPTION_KEY (AES-256)
	EncryptionKeyLength = 32

	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Scope policies for users whose scope attribute is empty
const (
	UnsetScopeClosed = "closed"
	UnsetScopeOpen   = "open"
)

// Scope denial rendering modes
const (
	ScopeDenialNotFound  = "not_found"
	ScopeDenialForbidden = "forbidden"
)

// Fixed development-only values. Never accepted in production.
const (
	devSecretKey        = "dev-insecure-secret-key-change-me"
	devEncryptionSeed   = "dev-only-insecure-encryption-key"
	DefaultAllowedExts  = ".pdf,.csv,.xlsx,.xls,.jpg,.jpeg,.png,.txt,.doc,.docx,.zip,.mp3,.mp4"
	defaultAllowOrigins = "http://localhost:3000,http://localhost:8080"
)

type Config struct {
	ServerHost  string
	ServerPort  string
	Environment string

	// Database
	DBDriver       string // sqlite, libsql, postgres
	DBPath         string
	DatabaseURL    string
	TursoURL       string
	TursoAuthToken string

	// Security
	SecretKey        string
	EncryptionKey    string // base64, 32 bytes decoded
	TokenExpiry      time.Duration
	AllowedOrigins   []string
	UnsetScopePolicy string
	ScopeDenialMode  string
	LoginRatePerMin  int

	// Evidence
	UploadDir         string
	MaxUploadSizeMB   int64
	AllowedExtensions []string

	// Email (Resend)
	ResendAPIKey    string
	EmailFrom       string
	EmailFromName   string
	EmailTestMode   bool // When true, emails are logged to console instead of sent
	AlertRecipients []string

	// Cloudflare R2 / S3 compatible storage
	R2AccountID       string
	R2Endpoint        string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string

	// Tools
	GeoLookupURL     string
	GeoLookupTimeout time.Duration

	MetricsEnabled bool
	MetricsAddr    string // separate listener, loopback unless overridden
}

// Load reads configuration from the environment. Missing secrets are fatal in
// production; development falls back to fixed insecure values with a warning.
func Load() *Config {
	// Load .env file (ignore error if not present - use system env vars)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		ServerHost:        getEnv("SERVER_HOST", "0.0.0.0"),
		ServerPort:        getEnv("SERVER_PORT", "8000"),
		Environment:       getEnv("ENVIRONMENT", EnvDevelopment),
		DBDriver:          strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBPath:            getEnv("DB_PATH", "db/cyber_cases.db"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		TursoURL:          os.Getenv("TURSO_DATABASE_URL"),
		TursoAuthToken:    os.Getenv("TURSO_AUTH_TOKEN"),
		SecretKey:         os.Getenv("SECRET_KEY"),
		EncryptionKey:     os.Getenv("ENCRYPTION_KEY"),
		TokenExpiry:       time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		AllowedOrigins:    splitList(os.Getenv("ALLOWED_ORIGINS")),
		UnsetScopePolicy:  strings.ToLower(getEnv("UNSET_SCOPE_POLICY", UnsetScopeClosed)),
		ScopeDenialMode:   strings.ToLower(getEnv("SCOPE_DENIAL_MODE", ScopeDenialNotFound)),
		LoginRatePerMin:   getEnvInt("LOGIN_RATE_PER_MINUTE", 5),
		UploadDir:         getEnv("UPLOAD_DIR", "uploads/evidence"),
		MaxUploadSizeMB:   int64(getEnvInt("MAX_FILE_SIZE_MB", 50)),
		AllowedExtensions: normalizeExtensions(getEnv("ALLOWED_EXTENSIONS", DefaultAllowedExts)),
		ResendAPIKey:      os.Getenv("RESEND_API_KEY"),
		EmailFrom:         getEnv("EMAIL_FROM", "alerts@cybercell.local"),
		EmailFromName:     getEnv("EMAIL_FROM_NAME", "Cyber Cell Case System"),
		EmailTestMode:     getEnvBool("EMAIL_TEST_MODE", true), // Default true for safety
		AlertRecipients:   splitList(os.Getenv("ALERT_RECIPIENTS")),
		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2Endpoint:        os.Getenv("R2_ENDPOINT"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		GeoLookupURL:      getEnv("GEO_LOOKUP_URL", "http://ip-api.com/json/%s?fields=status,message,country,city,isp,org,as,mobile,proxy,query,lat,lon"),
		GeoLookupTimeout:  time.Duration(getEnvInt("GEO_LOOKUP_TIMEOUT_SECONDS", 5)) * time.Second,
		MetricsEnabled:    getEnvBool("METRICS_ENABLED", true),
		MetricsAddr:       getEnv("METRICS_ADDR", "127.0.0.1:9090"),
	}

	if err := cfg.Validate(); err != nil {
		if cfg.IsProduction() {
			log.Fatalf("[CRITICAL] %v", err)
		}
		log.Printf("[WARNING] %v", err)
	}
	cfg.applyDevelopmentDefaults()

	return cfg
}

// IsProduction reports whether the process runs with production guarantees
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// MaxUploadBytes is the evidence size ceiling in bytes
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadSizeMB * 1024 * 1024
}

// Validate checks security-relevant settings. In production every secret is
// required; the returned error joins every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.IsProduction() {
		if c.SecretKey == "" {
			errs = append(errs, errors.New("SECRET_KEY environment variable is required in production"))
		} else if len(c.SecretKey) < MinSecretKeyLength || isInsecureDefault(c.SecretKey) {
			errs = append(errs, fmt.Errorf("SECRET_KEY must be at least %d characters and not a known default. Generate with: openssl rand -base64 32", MinSecretKeyLength))
		}
		if c.EncryptionKey == "" {
			errs = append(errs, errors.New("ENCRYPTION_KEY environment variable is required in production"))
		}
		if len(c.AllowedOrigins) == 0 {
			errs = append(errs, errors.New("ALLOWED_ORIGINS environment variable is required in production"))
		}
		if os.Getenv("MAX_FILE_SIZE_MB") == "" {
			errs = append(errs, errors.New("MAX_FILE_SIZE_MB environment variable is required in production"))
		}
		if os.Getenv("ALLOWED_EXTENSIONS") == "" {
			errs = append(errs, errors.New("ALLOWED_EXTENSIONS environment variable is required in production"))
		}
	}

	if c.EncryptionKey != "" {
		if _, err := DecodeEncryptionKey(c.EncryptionKey); err != nil {
			errs = append(errs, err)
		}
	}

	switch c.UnsetScopePolicy {
	case UnsetScopeClosed, UnsetScopeOpen:
	default:
		errs = append(errs, fmt.Errorf("UNSET_SCOPE_POLICY must be %q or %q, got %q", UnsetScopeClosed, UnsetScopeOpen, c.UnsetScopePolicy))
	}

	switch c.ScopeDenialMode {
	case ScopeDenialNotFound, ScopeDenialForbidden:
	default:
		errs = append(errs, fmt.Errorf("SCOPE_DENIAL_MODE must be %q or %q, got %q", ScopeDenialNotFound, ScopeDenialForbidden, c.ScopeDenialMode))
	}

	if c.MaxUploadSizeMB <= 0 {
		errs = append(errs, errors.New("MAX_FILE_SIZE_MB must be positive"))
	}

	switch c.DBDriver {
	case "sqlite", "libsql", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite, libsql or postgres, got %q", c.DBDriver))
	}

	return errors.Join(errs...)
}

// applyDevelopmentDefaults fills secrets left empty outside production with
// fixed, publicly known values.
func (c *Config) applyDevelopmentDefaults() {
	if c.IsProduction() {
		return
	}

	if c.SecretKey == "" {
		c.SecretKey = devSecretKey
		log.Println("[WARNING] ================================================================")
		log.Println("[WARNING] SECRET_KEY not set. Using an INSECURE development signing key.")
		log.Println("[WARNING] Tokens issued by this process can be forged. Never deploy like this.")
		log.Println("[WARNING] ================================================================")
	}
	if c.EncryptionKey == "" {
		c.EncryptionKey = base64.StdEncoding.EncodeToString([]byte(devEncryptionSeed))
		log.Println("[WARNING] ================================================================")
		log.Println("[WARNING] ENCRYPTION_KEY not set. Evidence is encrypted with a PUBLIC development key.")
		log.Println("[WARNING] Generate a real key with: openssl rand -base64 32")
		log.Println("[WARNING] ================================================================")
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = splitList(defaultAllowOrigins)
		log.Printf("[WARNING] ALLOWED_ORIGINS not set. Using development origins: %v", c.AllowedOrigins)
	}
	if c.UnsetScopePolicy == UnsetScopeOpen {
		log.Println("[WARNING] UNSET_SCOPE_POLICY=open: users without a unit assignment see every case in their tier")
	}
}

// DecodeEncryptionKey decodes and length-checks a base64 AES-256 key
func DecodeEncryptionKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY is not valid base64: %w", err)
	}
	if len(key) != EncryptionKeyLength {
		return nil, fmt.Errorf("ENCRYPTION_KEY must decode to %d bytes (got %d)", EncryptionKeyLength, len(key))
	}
	return key, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Printf("Using default value for %s: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("[WARNING] Invalid integer for %s (%q), using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept common boolean representations
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// normalizeExtensions lowercases entries and makes sure each starts with a dot
func normalizeExtensions(value string) []string {
	var out []string
	for _, ext := range splitList(value) {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

func isInsecureDefault(secret string) bool {
	insecureDefaults := []string{
		devSecretKey,
		"change-me",
		"secret",
		"development",
		"test",
	}
	for _, insecure := range insecureDefaults {
		if strings.EqualFold(secret, insecure) {
			return true
		}
	}
	return false
}

// GenerateSecureSecret generates a cryptographically secure random secret
// suitable for SECRET_KEY or ENCRYPTION_KEY
func GenerateSecureSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		log.Printf("[WARNING] Failed to generate secure secret: %v", err)
		return ""
	}
	return base64.StdEncoding.EncodeToString(bytes)
}
