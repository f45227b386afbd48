package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Planner  PlannerConfig
	AI       AIConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PlannerConfig bounds the combinatorial enumerator. MaxCombinations caps
// the Cartesian search space (bounded latency over exhaustiveness),
// MaxPlansPerCall caps how many plans a single generation call returns.
type PlannerConfig struct {
	MaxCombinations int
	MaxPlansPerCall int
}

// AIConfig governs the smart-generate gateway: model endpoint, the
// primary/fallback model pair, the per-caller cooldown window and the
// response cache retention. CacheTTL of zero means entries never expire
// here; eviction is an external retention concern.
type AIConfig struct {
	Enabled        bool
	BaseURL        string
	APIKey         string
	PrimaryModel   string
	FallbackModel  string
	RequestTimeout time.Duration
	Cooldown       time.Duration
	CacheTTL       time.Duration
	MaxVariants    int
	DefaultCredits int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Planner = PlannerConfig{
		MaxCombinations: v.GetInt("PLANNER_MAX_COMBINATIONS"),
		MaxPlansPerCall: v.GetInt("PLANNER_MAX_PLANS"),
	}

	cfg.AI = AIConfig{
		Enabled:        v.GetBool("ENABLE_AI_PLANNER"),
		BaseURL:        v.GetString("AI_BASE_URL"),
		APIKey:         v.GetString("AI_API_KEY"),
		PrimaryModel:   v.GetString("AI_PRIMARY_MODEL"),
		FallbackModel:  v.GetString("AI_FALLBACK_MODEL"),
		RequestTimeout: parseDuration(v.GetString("AI_REQUEST_TIMEOUT"), 60*time.Second),
		Cooldown:       parseDuration(v.GetString("AI_COOLDOWN"), 30*time.Second),
		CacheTTL:       parseDuration(v.GetString("AI_CACHE_TTL"), 0),
		MaxVariants:    v.GetInt("AI_MAX_VARIANTS"),
		DefaultCredits: v.GetInt("AI_DEFAULT_CREDITS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "krs_planner")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "krs-planner-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PLANNER_MAX_COMBINATIONS", 5000)
	v.SetDefault("PLANNER_MAX_PLANS", 6)

	v.SetDefault("ENABLE_AI_PLANNER", false)
	v.SetDefault("AI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("AI_API_KEY", "")
	v.SetDefault("AI_PRIMARY_MODEL", "gpt-4o")
	v.SetDefault("AI_FALLBACK_MODEL", "gpt-4o-mini")
	v.SetDefault("AI_REQUEST_TIMEOUT", "60s")
	v.SetDefault("AI_COOLDOWN", "30s")
	v.SetDefault("AI_CACHE_TTL", "0s")
	v.SetDefault("AI_MAX_VARIANTS", 3)
	v.SetDefault("AI_DEFAULT_CREDITS", 10)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
