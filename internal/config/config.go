package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

const (
	DefaultConfigPath      = "config.toml"
	DefaultHTTPAddr        = ":8080"
	DefaultJWTExpiresIn    = "24h"
	DefaultStoreDriver     = "postgres"
	DefaultPGHost          = "127.0.0.1"
	DefaultPGPort          = 5432
	DefaultPGUser          = "postgres"
	DefaultPGDatabase      = "microscan"
	DefaultPGSSLMode       = "disable"
	DefaultMongoURI        = "mongodb://127.0.0.1:27017"
	DefaultMongoDatabase   = "microscan"
	DefaultOpenAIModel     = "gpt-5-nano"
	DefaultReasoningEffort = "low"
	DefaultMaxOutputTokens = 4096
	DefaultMediaMaxBytes   = 20 << 20
)

type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	Store    StoreConfig    `toml:"store"`
	Postgres PostgresConfig `toml:"postgres"`
	Mongo    MongoConfig    `toml:"mongo"`
	OpenAI   OpenAIConfig   `toml:"openai"`
	Media    MediaConfig    `toml:"media"`
	Chat     ChatConfig     `toml:"chat"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
}

type StoreConfig struct {
	Driver string `toml:"driver"`
}

type PostgresConfig struct {
	// DSN takes precedence over the individual connection fields.
	DSN      string `toml:"dsn"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// ConnString returns a postgres:// URL usable by pgx and golang-migrate.
func (c PostgresConfig) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + strconv.Itoa(c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}

type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

type OpenAIConfig struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	Model           string `toml:"model"`
	ReasoningEffort string `toml:"reasoning_effort"`
	MaxOutputTokens int64  `toml:"max_output_tokens"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

func (c OpenAIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type MediaConfig struct {
	FetchTimeoutSeconds int   `toml:"fetch_timeout_seconds"`
	MaxBytes            int64 `toml:"max_bytes"`
}

func (c MediaConfig) FetchTimeout() time.Duration {
	if c.FetchTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

type ChatConfig struct {
	SystemPromptFile string `toml:"system_prompt_file"`
	// SystemPrompt is only set from the environment.
	SystemPrompt string `toml:"-"`
}

// envOverrides holds secrets that may be supplied by the environment instead of the file.
type envOverrides struct {
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	JWTSecret    string `envconfig:"JWT_SECRET"`
	PostgresDSN  string `envconfig:"POSTGRES_DSN"`
	MongoURI     string `envconfig:"MONGODB_URI"`
	SystemPrompt string `envconfig:"IMAGE_ANALYZE_PROMPT"`
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Store: StoreConfig{
			Driver: DefaultStoreDriver,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Mongo: MongoConfig{
			URI:      DefaultMongoURI,
			Database: DefaultMongoDatabase,
		},
		OpenAI: OpenAIConfig{
			Model:           DefaultOpenAIModel,
			ReasoningEffort: DefaultReasoningEffort,
			MaxOutputTokens: DefaultMaxOutputTokens,
			TimeoutSeconds:  120,
		},
		Media: MediaConfig{
			FetchTimeoutSeconds: 30,
			MaxBytes:            DefaultMediaMaxBytes,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
	} else if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("process environment: %w", err)
	}
	if env.OpenAIAPIKey != "" {
		cfg.OpenAI.APIKey = env.OpenAIAPIKey
	}
	if env.JWTSecret != "" {
		cfg.Auth.JWTSecret = env.JWTSecret
	}
	if env.PostgresDSN != "" {
		cfg.Postgres.DSN = env.PostgresDSN
	}
	if env.MongoURI != "" {
		cfg.Mongo.URI = env.MongoURI
	}
	if env.SystemPrompt != "" {
		cfg.Chat.SystemPrompt = env.SystemPrompt
	}
	return nil
}
