// Package config loads the server configuration.
//
// Sources, later ones winning:
//  1. built-in defaults
//  2. a YAML file named by CONFIG_FILE, if set
//  3. environment variables (a .env file in the working directory is loaded
//     into the environment first)
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/sakif/captionly/internal/auth"
	"github.com/sakif/captionly/internal/caption"
	"github.com/sakif/captionly/internal/caption/gemini"
	"github.com/sakif/captionly/internal/imagestore/imagekit"
)

const (
	EnvProduction = "production"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"

	ImageStoreImageKit = "imagekit"
	ImageStoreLocal    = "local"

	DefaultMaxUploadBytes = 10 << 20
)

type Config struct {
	Env      string `yaml:"env"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	DBDriver      string `yaml:"db_driver"`
	DBPath        string `yaml:"db_path"`
	DatabaseURL   string `yaml:"database_url"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`

	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`

	GeminiAPIKey       string `yaml:"gemini_api_key"`
	GeminiModel        string `yaml:"gemini_model"`
	CaptionInstruction string `yaml:"caption_instruction"`
	CaptionPrompt      string `yaml:"caption_prompt"`

	ImageStore           string `yaml:"image_store"`
	ImageKitPrivateKey   string `yaml:"imagekit_private_key"`
	ImageKitPublicKey    string `yaml:"imagekit_public_key"`
	ImageKitURLEndpoint  string `yaml:"imagekit_url_endpoint"`
	ImageKitUploadPrefix string `yaml:"imagekit_upload_prefix"`
	ImageKitFolder       string `yaml:"imagekit_folder"`
	UploadDir            string `yaml:"upload_dir"`
	PublicBaseURL        string `yaml:"public_base_url"`
	MaxUploadBytes       int64  `yaml:"max_upload_bytes"`

	AllowedOrigins []string `yaml:"allowed_origins"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	StaticDir      string        `yaml:"static_dir"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Env:                "development",
		Port:               3000,
		LogLevel:           "info",
		DBDriver:           DriverSQLite,
		DBPath:             "data/captionly.db",
		MongoDatabase:      "captionly",
		TokenTTL:           auth.DefaultTokenTTL,
		BcryptCost:         auth.DefaultCost,
		GeminiModel:        gemini.DefaultModel,
		CaptionInstruction: caption.DefaultInstruction,
		CaptionPrompt:      caption.DefaultPrompt,
		ImageStore:         ImageStoreImageKit,
		ImageKitFolder:     imagekit.DefaultFolder,
		UploadDir:          "data/uploads",
		PublicBaseURL:      "http://localhost:3000",
		MaxUploadBytes:     DefaultMaxUploadBytes,
		AllowedOrigins:     []string{"http://localhost:5173"},
		RequestTimeout:     60 * time.Second,
	}
}

// Load builds the configuration from defaults, CONFIG_FILE and the
// environment, then validates it.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: loading .env: %w", err)
	}

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current values.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not an integer", key, v))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %q is not a duration", key, v))
				return
			}
			*dst = d
		}
	}

	str("APP_ENV", &c.Env)
	num("PORT", &c.Port)
	str("LOG_LEVEL", &c.LogLevel)

	str("DB_DRIVER", &c.DBDriver)
	str("DB_PATH", &c.DBPath)
	str("DATABASE_URL", &c.DatabaseURL)
	str("MONGO_URI", &c.MongoURI)
	str("MONGO_DATABASE", &c.MongoDatabase)

	str("JWT_SECRET", &c.JWTSecret)
	dur("TOKEN_TTL", &c.TokenTTL)
	num("BCRYPT_COST", &c.BcryptCost)

	str("GEMINI_API_KEY", &c.GeminiAPIKey)
	str("GEMINI_MODEL", &c.GeminiModel)
	str("CAPTION_INSTRUCTION", &c.CaptionInstruction)
	str("CAPTION_PROMPT", &c.CaptionPrompt)

	str("IMAGE_STORE", &c.ImageStore)
	str("IMAGEKIT_PRIVATE_KEY", &c.ImageKitPrivateKey)
	str("IMAGEKIT_PUBLIC_KEY", &c.ImageKitPublicKey)
	str("IMAGEKIT_URL_ENDPOINT", &c.ImageKitURLEndpoint)
	str("IMAGEKIT_UPLOAD_PREFIX", &c.ImageKitUploadPrefix)
	str("IMAGEKIT_FOLDER", &c.ImageKitFolder)
	str("UPLOAD_DIR", &c.UploadDir)
	str("PUBLIC_BASE_URL", &c.PublicBaseURL)
	if v, ok := lookup("MAX_UPLOAD_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MAX_UPLOAD_BYTES: %q is not an integer", v))
		} else {
			c.MaxUploadBytes = n
		}
	}

	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(v)
	}

	str("REDIS_ADDR", &c.RedisAddr)
	str("REDIS_PASSWORD", &c.RedisPassword)
	num("REDIS_DB", &c.RedisDB)

	str("STATIC_DIR", &c.StaticDir)
	dur("REQUEST_TIMEOUT", &c.RequestTimeout)

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// splitList parses a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Port < 1 || c.Port > 65535 {
		add("port %d out of range", c.Port)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		add("%v", err)
	}

	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			add("db_path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			add("database_url is required for the postgres driver")
		}
	case DriverMongo:
		if c.MongoURI == "" {
			add("mongo_uri is required for the mongo driver")
		}
		if c.MongoDatabase == "" {
			add("mongo_database is required for the mongo driver")
		}
	default:
		add("unknown db_driver %q (want sqlite, postgres or mongo)", c.DBDriver)
	}

	if len(c.JWTSecret) < 16 {
		add("jwt_secret must be at least 16 characters")
	}
	if c.TokenTTL <= 0 {
		add("token_ttl must be positive")
	}
	if c.BcryptCost != 0 && (c.BcryptCost < 4 || c.BcryptCost > 31) {
		add("bcrypt_cost %d out of range 4-31", c.BcryptCost)
	}

	if c.GeminiAPIKey == "" {
		add("gemini_api_key is required")
	}

	switch c.ImageStore {
	case ImageStoreImageKit:
		if c.ImageKitPrivateKey == "" {
			add("imagekit_private_key is required for the imagekit image store")
		}
	case ImageStoreLocal:
		if c.UploadDir == "" {
			add("upload_dir is required for the local image store")
		}
	default:
		add("unknown image_store %q (want imagekit or local)", c.ImageStore)
	}
	if c.MaxUploadBytes <= 0 {
		add("max_upload_bytes must be positive")
	}

	for _, o := range c.AllowedOrigins {
		if o == "*" {
			add("allowed_origins must list explicit origins, not *")
		}
	}

	if c.RequestTimeout <= 0 {
		add("request_timeout must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// IsProduction reports whether cookies must be marked Secure.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// SlogLevel returns the configured log level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log_level %q", s)
	}
	return l, nil
}
