package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the file read when POSTCRAFT_CONFIG is unset.
const ConfigPath = "config.yaml"

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	StoreBackend string `yaml:"storeBackend"`
	DatabaseURL  string `yaml:"databaseURL"`

	GenerationProvider string `yaml:"generationProvider"`
	GenerationBaseURL  string `yaml:"generationBaseURL"`
	GenerationAPIKey   string `yaml:"generationApiKey"`
	GenerationModel    string `yaml:"generationModel"`
	ProviderTimeout    string `yaml:"providerTimeout"`

	DefaultUsername  string `yaml:"defaultUsername"`
	DefaultPassword  string `yaml:"defaultPassword"`
	SkipTemplateSeed bool   `yaml:"skipTemplateSeed"`

	MaxImages         int      `yaml:"maxImages"`
	MaxImageBytes     int64    `yaml:"maxImageBytes"`
	AllowedImageTypes []string `yaml:"allowedImageTypes"`
	CORSOrigins       []string `yaml:"corsOrigins"`
	TrustedProxyCIDRs []string `yaml:"trustedProxyCidrs"`

	RedisAddr                  string `yaml:"redisAddr"`
	RedisPassword              string `yaml:"redisPassword"`
	GenerateRateLimitPerMinute int    `yaml:"generateRateLimitPerMinute"`
}

// PathFromEnv returns POSTCRAFT_CONFIG, falling back to ConfigPath.
func PathFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("POSTCRAFT_CONFIG")); v != "" {
		return v
	}
	return ConfigPath
}

// Load reads config from path (defaults to config.yaml), applies environment
// overrides and defaults, then validates.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString("POSTCRAFT_PORT", &cfg.Port)
	setString("POSTCRAFT_LOG_LEVEL", &cfg.LogLevel)
	setString("POSTCRAFT_STORE_BACKEND", &cfg.StoreBackend)
	setString("DATABASE_URL", &cfg.DatabaseURL)
	setString("POSTCRAFT_GENERATION_PROVIDER", &cfg.GenerationProvider)
	setString("POSTCRAFT_GENERATION_BASE_URL", &cfg.GenerationBaseURL)
	setString("GEMINI_API_KEY", &cfg.GenerationAPIKey)
	setString("POSTCRAFT_GENERATION_API_KEY", &cfg.GenerationAPIKey)
	setString("POSTCRAFT_GENERATION_MODEL", &cfg.GenerationModel)
	setString("POSTCRAFT_PROVIDER_TIMEOUT", &cfg.ProviderTimeout)
	setString("POSTCRAFT_DEFAULT_USERNAME", &cfg.DefaultUsername)
	setString("POSTCRAFT_DEFAULT_PASSWORD", &cfg.DefaultPassword)
	setString("REDIS_ADDR", &cfg.RedisAddr)
	setString("REDIS_PASSWORD", &cfg.RedisPassword)

	if v := os.Getenv("POSTCRAFT_MAX_IMAGE_BYTES"); v != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			cfg.MaxImageBytes = n
		}
	}
	if v := os.Getenv("POSTCRAFT_GENERATE_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.GenerateRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("POSTCRAFT_ALLOWED_IMAGE_TYPES"); v != "" {
		cfg.AllowedImageTypes = splitCSV(v)
	}
	if v := os.Getenv("POSTCRAFT_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitCSV(v)
	}
	if v := os.Getenv("POSTCRAFT_TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
}

func applyDefaults(cfg *FileConfig) {
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = StoreMemory
	}
	cfg.GenerationProvider = strings.ToLower(strings.TrimSpace(cfg.GenerationProvider))
	if cfg.GenerationProvider == "" {
		cfg.GenerationProvider = "gemini"
	}
	if strings.TrimSpace(cfg.ProviderTimeout) == "" {
		cfg.ProviderTimeout = "120s"
	}
	if strings.TrimSpace(cfg.DefaultUsername) == "" {
		cfg.DefaultUsername = "demo"
	}
	if cfg.MaxImages == 0 {
		cfg.MaxImages = 5
	}
	if cfg.MaxImageBytes == 0 {
		cfg.MaxImageBytes = 10 << 20
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	switch cfg.StoreBackend {
	case StoreMemory:
	case StorePostgres:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return errors.New("config: databaseURL is required when storeBackend is postgres")
		}
	default:
		return fmt.Errorf("config: unknown storeBackend %q (memory or postgres)", cfg.StoreBackend)
	}
	if strings.TrimSpace(cfg.GenerationModel) == "" {
		return errors.New("config: generationModel is required (set in config.yaml or POSTCRAFT_GENERATION_MODEL)")
	}
	switch cfg.GenerationProvider {
	case "gemini":
		if strings.TrimSpace(cfg.GenerationAPIKey) == "" {
			return errors.New("config: generationApiKey is required for gemini (or GEMINI_API_KEY)")
		}
	case "ollama", "openai", "openai-compat":
	default:
		return fmt.Errorf("config: unknown generationProvider %q", cfg.GenerationProvider)
	}
	if _, err := ParseProviderTimeout(cfg.ProviderTimeout); err != nil {
		return err
	}
	if cfg.DefaultPassword == "" {
		return errors.New("config: defaultPassword is required (set in config.yaml or POSTCRAFT_DEFAULT_PASSWORD)")
	}
	if cfg.MaxImages < 0 || cfg.MaxImageBytes < 0 {
		return errors.New("config: image limits must be >= 0")
	}
	if cfg.GenerateRateLimitPerMinute < 0 {
		return errors.New("config: generateRateLimitPerMinute must be >= 0")
	}
	if cfg.GenerateRateLimitPerMinute > 0 && strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required when generateRateLimitPerMinute is set")
	}
	return nil
}

// ParseProviderTimeout parses the upstream call timeout.
func ParseProviderTimeout(raw string) (time.Duration, error) {
	dur, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid providerTimeout duration: %w", err)
	}
	if dur <= 0 {
		return 0, errors.New("invalid providerTimeout duration: must be positive")
	}
	return dur, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
