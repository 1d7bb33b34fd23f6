package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Port            string        `mapstructure:"port"`
		Env             string        `mapstructure:"env"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"app"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Indexes  IndexesConfig  `mapstructure:"indexes"`
	Search   SearchConfig   `mapstructure:"search"`
	Videos   VideosConfig   `mapstructure:"videos"`
	CORS     struct {
		AllowOrigins []string `mapstructure:"allow_origins"`
	} `mapstructure:"cors"`
	Jaeger struct {
		OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	} `mapstructure:"jaeger"`
}

// UpstreamConfig points at the third-party video-indexing service.
type UpstreamConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// IndexesConfig holds the two upstream index ids a search scope resolves to.
type IndexesConfig struct {
	Brand   string `mapstructure:"brand"`
	Creator string `mapstructure:"creator"`
}

type SearchConfig struct {
	DefaultPageLimit int           `mapstructure:"default_page_limit"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
}

type VideosConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// Configured reports whether credentials needed for any upstream call are set.
func (u UpstreamConfig) Configured() bool {
	return u.APIKey != "" && u.BaseURL != ""
}

var envBindings = map[string]string{
	"app.port":                  "APP_PORT",
	"app.env":                   "APP_ENV",
	"app.shutdown_timeout":      "APP_SHUTDOWN_TIMEOUT",
	"upstream.api_key":          "INDEXER_API_KEY",
	"upstream.base_url":         "INDEXER_BASE_URL",
	"upstream.timeout":          "INDEXER_TIMEOUT",
	"indexes.brand":             "BRAND_INDEX_ID",
	"indexes.creator":           "CREATOR_INDEX_ID",
	"search.default_page_limit": "SEARCH_DEFAULT_PAGE_LIMIT",
	"search.max_retries":        "SEARCH_MAX_RETRIES",
	"search.retry_delay":        "SEARCH_RETRY_DELAY",
	"videos.default_limit":      "VIDEOS_DEFAULT_LIMIT",
	"videos.max_limit":          "VIDEOS_MAX_LIMIT",
	"cors.allow_origins":        "CORS_ALLOW_ORIGINS",
	"jaeger.otlp_endpoint":      "OTLP_ENDPOINT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.shutdown_timeout", 10*time.Second)
	v.SetDefault("upstream.api_key", "")
	v.SetDefault("upstream.base_url", "")
	v.SetDefault("upstream.timeout", time.Duration(0))
	v.SetDefault("indexes.brand", "")
	v.SetDefault("indexes.creator", "")
	v.SetDefault("search.default_page_limit", 12)
	v.SetDefault("search.max_retries", 2)
	v.SetDefault("search.retry_delay", time.Second)
	v.SetDefault("videos.default_limit", 12)
	v.SetDefault("videos.max_limit", 50)
	v.SetDefault("cors.allow_origins", []string{"*"})
	v.SetDefault("jaeger.otlp_endpoint", "")
}

// LoadConfig reads an optional .env and config.yaml from the given paths
// (current directory when none), then lets the environment override both.
// Missing upstream credentials are not an error here; requests report them.
func LoadConfig(paths ...string) (cfg Config, err error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	envFiles := make([]string, 0, len(paths))
	for _, p := range paths {
		envFiles = append(envFiles, strings.TrimSuffix(p, "/")+"/.env")
	}
	if err = godotenv.Load(envFiles...); err != nil {
		log.Println("warning: .env file not found, use environment only.")
	}

	v := viper.New()
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err = v.ReadInConfig(); err != nil {
		log.Printf("note: config.yaml not found, read environment only. Error: %v", err)
	}

	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err = v.BindEnv(key, env); err != nil {
			return cfg, err
		}
	}

	err = v.Unmarshal(&cfg)
	return
}
