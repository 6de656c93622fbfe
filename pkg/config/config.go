package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Telegram      TelegramConfig      `mapstructure:"telegram"`
	LLM           LLMConfig           `mapstructure:"llm"`
	OpenAI        OpenAIConfig        `mapstructure:"openai"`
	Gemini        GeminiConfig        `mapstructure:"gemini"`
	LinkedIn      LinkedInConfig      `mapstructure:"linkedin"`
	Drafts        DraftsConfig        `mapstructure:"drafts"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Conversations ConversationsConfig `mapstructure:"conversations"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Knowledge     KnowledgeConfig     `mapstructure:"knowledge"`
	Log           LogConfig           `mapstructure:"log"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token" validate:"required"`
}

type LLMConfig struct {
	Provider string `mapstructure:"provider" validate:"oneof=openai gemini"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model" validate:"required"`
	MaxTokens   int     `mapstructure:"max_tokens" validate:"gt=0"`
	Temperature float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
}

type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model" validate:"required"`
	MaxTokens   int     `mapstructure:"max_tokens" validate:"gt=0"`
	Temperature float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
}

// LinkedInConfig may stay empty; posting then fails with a visible error
// and drafts keep working.
type LinkedInConfig struct {
	AccessToken string        `mapstructure:"access_token"`
	PersonURN   string        `mapstructure:"person_urn"`
	APIURL      string        `mapstructure:"api_url" validate:"omitempty,url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type DraftsConfig struct {
	Backend    string `mapstructure:"backend" validate:"oneof=file postgres sqlite"`
	FilePath   string `mapstructure:"file_path"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type ConversationsConfig struct {
	Backend      string        `mapstructure:"backend" validate:"oneof=memory redis"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" validate:"required"`
	CompletedTTL time.Duration `mapstructure:"completed_ttl" validate:"required"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type KnowledgeConfig struct {
	Dir string `mapstructure:"dir"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File        string `mapstructure:"file"`
	Development bool   `mapstructure:"development"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		if _, err := fmt.Sscanf(u.Port(), "%d", &port); err != nil {
			return DatabaseConfig{}, fmt.Errorf("invalid port %q: %w", u.Port(), err)
		}
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  sslMode,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.token", "")

	v.SetDefault("llm.provider", "openai")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 1024)
	v.SetDefault("openai.temperature", 0.2)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("gemini.max_tokens", 1024)
	v.SetDefault("gemini.temperature", 0.2)

	v.SetDefault("linkedin.access_token", "")
	v.SetDefault("linkedin.person_urn", "")
	v.SetDefault("linkedin.api_url", "")
	v.SetDefault("linkedin.timeout", 15*time.Second)

	v.SetDefault("drafts.backend", "file")
	v.SetDefault("drafts.file_path", "job_drafts.json")
	v.SetDefault("drafts.sqlite_path", "job_drafts.db")

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "jobpost")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("conversations.backend", "memory")
	v.SetDefault("conversations.idle_timeout", 24*time.Hour)
	v.SetDefault("conversations.completed_ttl", 30*time.Second)

	v.SetDefault("redis.url", "")
	v.SetDefault("knowledge.dir", "knowledge_base")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.development", false)

	v.SetDefault("metrics.addr", "")
}

// LoadConfig reads path (optional), then .env and the environment. Nested
// keys map to upper-case env names, so openai.api_key is OPENAI_API_KEY.
func LoadConfig(path string) (*Config, error) {
	// A missing .env is normal in containers.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	// Enable environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Database = dbConfig
	}

	if urn := v.GetString("PERSON_URN"); urn != "" {
		config.LinkedIn.PersonURN = urn
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks field constraints and the settings each chosen backend needs.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	switch {
	case c.LLM.Provider == "openai" && c.OpenAI.APIKey == "":
		return errors.New("invalid config: openai.api_key is required for the openai provider")
	case c.LLM.Provider == "gemini" && c.Gemini.APIKey == "":
		return errors.New("invalid config: gemini.api_key is required for the gemini provider")
	case c.Conversations.Backend == "redis" && c.Redis.URL == "":
		return errors.New("invalid config: redis.url is required for the redis conversation backend")
	case c.Drafts.Backend == "postgres" && c.Database.DBName == "":
		return errors.New("invalid config: database.dbname is required for the postgres draft backend")
	}
	return nil
}
