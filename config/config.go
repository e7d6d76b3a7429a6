package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the STEM chat service.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Guides    GuidesConfig    `mapstructure:"guides"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Databases DatabasesConfig `mapstructure:"databases"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Listen    string `mapstructure:"listen"`
	Debug     bool   `mapstructure:"debug"`
	LogLevel  string `mapstructure:"log_level"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// GuidesConfig controls teaching-guide loading and chunking.
type GuidesConfig struct {
	Dir         string `mapstructure:"dir"`
	MaxChunkLen int    `mapstructure:"max_chunk_len"`
}

// RetrievalConfig controls the relevance index. Floor and Limit preserve the
// observed behaviour of the retrieval pipeline; there is no documented
// justification for alternate values.
type RetrievalConfig struct {
	Floor float64 `mapstructure:"floor"`
	Limit int     `mapstructure:"limit"`
}

// ProvidersConfig contains external text-generation provider settings.
type ProvidersConfig struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig configures the Gemini REST client.
type GeminiConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	Model         string        `mapstructure:"model"`
	FallbackModel string        `mapstructure:"fallback_model"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// DatabasesConfig groups storage backends.
type DatabasesConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains the analytics store connection settings.
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds a postgres connection string from either the raw URL or the
// individual fields. Empty when postgres is not configured.
func (p PostgresConfig) DSN() string {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL
	}
	if p.Host == "" || p.DBName == "" {
		return ""
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// RedisConfig contains snapshot cache settings.
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Pass string `mapstructure:"pass"`
	DB   int    `mapstructure:"db"`
}

// Addr returns host:port, or empty when redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" || r.Port == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

// AdminConfig holds dashboard credentials and token lifetime.
type AdminConfig struct {
	Username     string        `mapstructure:"username"`
	PasswordHash string        `mapstructure:"password_hash"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
}

// AnalyticsConfig controls the snapshot cache refresh.
type AnalyticsConfig struct {
	SnapshotCron string        `mapstructure:"snapshot_cron"`
	SnapshotTTL  time.Duration `mapstructure:"snapshot_ttl"`
}

// LoadConfig loads config from the given file, or from the usual lookup
// paths when path is empty. Environment variables prefixed with STEMCHAT_
// override file values.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("general.listen", ":5001")
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("guides.dir", "knowledge")
	viper.SetDefault("guides.max_chunk_len", 1200)
	viper.SetDefault("retrieval.floor", 0.1)
	viper.SetDefault("retrieval.limit", 3)
	viper.SetDefault("providers.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("providers.gemini.fallback_model", "gemini-2.5-flash")
	viper.SetDefault("providers.gemini.timeout", time.Minute)
	viper.SetDefault("admin.username", "admin")
	viper.SetDefault("admin.token_ttl", 8*time.Hour)
	viper.SetDefault("analytics.snapshot_cron", "@hourly")
	viper.SetDefault("analytics.snapshot_ttl", 30*time.Second)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join("..", "config"))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("STEMCHAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Running without a config file is fine: defaults plus env cover it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	return &config
}
