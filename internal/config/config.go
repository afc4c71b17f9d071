package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
)

type Config struct {
	HTTP     HTTPConfig    `mapstructure:"http"`
	DB       DBConfig      `mapstructure:"db"`
	Bot      BotConfig     `mapstructure:"bot"`
	Scoring  ScoringConfig `mapstructure:"scoring"`
	Media    MediaConfig   `mapstructure:"media"`
	Log      LogConfig     `mapstructure:"log"`
	Admins   []AdminConfig `mapstructure:"admins"`
	AdminIDs string        `mapstructure:"admin_ids"`
}

type HTTPConfig struct {
	Addr           string        `mapstructure:"addr"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateBurst      int           `mapstructure:"rate_burst"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	Mode           string        `mapstructure:"mode"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type BotConfig struct {
	Token   string `mapstructure:"token"`
	Enabled bool   `mapstructure:"enabled"`
}

type ScoringConfig struct {
	FallbackLocale string `mapstructure:"fallback_locale"`
	PartialCredit  bool   `mapstructure:"partial_credit"`
}

type MediaConfig struct {
	Backend        string `mapstructure:"backend"`
	Root           string `mapstructure:"root"`
	URLPrefix      string `mapstructure:"url_prefix"`
	MaxBytes       int64  `mapstructure:"max_bytes"`
	MinioEndpoint  string `mapstructure:"minio_endpoint"`
	MinioAccessKey string `mapstructure:"minio_access_key"`
	MinioSecretKey string `mapstructure:"minio_secret_key"`
	MinioBucket    string `mapstructure:"minio_bucket"`
	MinioSecure    bool   `mapstructure:"minio_secure"`
	MinioPublicURL string `mapstructure:"minio_public_url"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type AdminConfig struct {
	TelegramID int64  `mapstructure:"telegram_id"`
	Nickname   string `mapstructure:"nickname"`
	FirstName  string `mapstructure:"first_name"`
	LastName   string `mapstructure:"last_name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.rate_limit", 20.0)
	v.SetDefault("http.rate_burst", 40)
	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("http.mode", "release")

	v.SetDefault("db.path", "quiz.db")

	v.SetDefault("bot.enabled", true)

	v.SetDefault("scoring.fallback_locale", "ru")
	v.SetDefault("scoring.partial_credit", true)

	v.SetDefault("media.backend", "local")
	v.SetDefault("media.root", "media")
	v.SetDefault("media.url_prefix", "/media")
	v.SetDefault("media.max_bytes", 10<<20)
	v.SetDefault("media.minio_bucket", "quiz-media")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "logs/quizd.log")
}

// Load reads defaults, the optional YAML file at path and the environment.
// Variables use the QUIZ_ prefix; BOT_TOKEN, DB_PATH and ADMIN_IDS are also
// read without it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("QUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("bot.token", "QUIZ_BOT_TOKEN", "BOT_TOKEN")
	v.BindEnv("db.path", "QUIZ_DB_PATH", "DB_PATH")
	v.BindEnv("admin_ids", "QUIZ_ADMIN_IDS", "ADMIN_IDS")
	v.BindEnv("media.minio_endpoint", "QUIZ_MEDIA_MINIO_ENDPOINT", "MINIO_ENDPOINT")
	v.BindEnv("media.minio_access_key", "QUIZ_MEDIA_MINIO_ACCESS_KEY", "MINIO_ACCESS_KEY")
	v.BindEnv("media.minio_secret_key", "QUIZ_MEDIA_MINIO_SECRET_KEY", "MINIO_SECRET_KEY")
	v.BindEnv("media.minio_bucket", "QUIZ_MEDIA_MINIO_BUCKET", "MINIO_BUCKET")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Media.Backend {
	case "local":
	case "minio":
		if c.Media.MinioEndpoint == "" || c.Media.MinioBucket == "" {
			return fmt.Errorf("media backend minio needs minio_endpoint and minio_bucket")
		}
	default:
		return fmt.Errorf("unknown media backend %q", c.Media.Backend)
	}
	if c.Media.MaxBytes <= 0 {
		return fmt.Errorf("media.max_bytes must be positive")
	}
	if c.DB.Path == "" {
		return fmt.Errorf("db.path is required")
	}
	return nil
}

// BotEnabled reports whether the Telegram side should run.
func (c *Config) BotEnabled() bool {
	return c.Bot.Enabled && c.Bot.Token != ""
}

// ParseAdminIDs splits a list of chat ids separated by commas, semicolons,
// spaces or newlines. Entries that are not integers are returned in skipped.
func ParseAdminIDs(raw string) (ids []int64, skipped []string) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\r' || r == ' ' || r == '\t'
	})
	seen := map[int64]bool{}
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil || id == 0 {
			skipped = append(skipped, f)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, skipped
}
