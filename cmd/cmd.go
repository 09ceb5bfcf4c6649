package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"github.com/kr/pretty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Config struct {
	LogLevel           string   `json:"log_level" mapstructure:"log_level"`
	LogFormat          string   `json:"log_format" mapstructure:"log_format"`
	ConfigFile         string   `json:"config_file" mapstructure:"config_file"`
	Store              string   `json:"store" mapstructure:"store"`
	Migrate            bool     `json:"migrate" mapstructure:"migrate"`
	DatabaseName       string   `json:"database_name" mapstructure:"database_name"`
	DatabaseUser       string   `json:"database_user" mapstructure:"database_user"`
	DatabaseHost       string   `json:"database_host" mapstructure:"database_host"`
	DatabasePassword   string   `json:"database_password" mapstructure:"database_password"`
	Auth               string   `json:"auth" mapstructure:"auth"`
	GithubClientID     string   `json:"github_client_id" mapstructure:"github_client_id"`
	GithubClientSecret string   `json:"github_client_secret" mapstructure:"github_client_secret"`
	ServerSecret       string   `json:"server_secret" mapstructure:"server_secret"`
	PollsPerPage       int      `json:"polls_per_page" mapstructure:"polls_per_page"`
	Addr               string   `json:"addr" mapstructure:"addr"`
	TrustProxy         bool     `json:"trust_proxy" mapstructure:"trust_proxy"`
	AllowedOrigins     []string `json:"allowed_origins" mapstructure:"allowed_origins"`
	RedisAddr          string   `json:"redis_addr" mapstructure:"redis_addr"`
	S3Bucket           string   `json:"s3_bucket" mapstructure:"s3_bucket"`
	S3Region           string   `json:"s3_region" mapstructure:"s3_region"`
	S3PublicURL        string   `json:"s3_public_url" mapstructure:"s3_public_url"`
	SlackWebhookURL    string   `json:"slack_webhook_url" mapstructure:"slack_webhook_url"`
	SiteURL            string   `json:"site_url" mapstructure:"site_url"`
	PreviewAddr        string   `json:"preview_addr" mapstructure:"preview_addr"`
	PreviewAPIURL      string   `json:"preview_api_url" mapstructure:"preview_api_url"`
	PreviewOriginURL   string   `json:"preview_origin_url" mapstructure:"preview_origin_url"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "json",
		ConfigFile:       "config.json",
		Store:            "postgres",
		DatabaseName:     "thegoat",
		DatabaseUser:     "postgres",
		DatabasePassword: "postgres",
		DatabaseHost:     "127.0.0.1",
		Auth:             "github",
		PollsPerPage:     20,
		Addr:             "localhost:8080",
		AllowedOrigins:   []string{},
		SiteURL:          "https://thegoat123.com",
		PreviewAddr:      "localhost:8888",
		PreviewAPIURL:    "http://localhost:8080",
		PreviewOriginURL: "http://localhost:5173",
	}
}

func flagSet(defaults *Config) *pflag.FlagSet {
	flags := pflag.NewFlagSet("thegoat", pflag.ContinueOnError)
	flags.String("config_file", defaults.ConfigFile, "Configuration file, in JSON")
	flags.String("log_level", defaults.LogLevel, "Log level")
	flags.String("log_format", defaults.LogFormat, "Log format, json or console")
	flags.String("store", defaults.Store, "Storage, postgres or memory")
	flags.Bool("migrate", defaults.Migrate, "Create the database tables on start")
	flags.String("auth", defaults.Auth, "OAuth provider, github or fake")
	flags.Int("polls_per_page", defaults.PollsPerPage, "Number of polls per page")
	flags.String("addr", defaults.Addr, "Address the API server listens on")
	flags.Bool("trust_proxy", defaults.TrustProxy, "Identify voters with X-Forwarded-For and X-Real-IP")
	flags.StringSlice("allowed_origins", defaults.AllowedOrigins, "Origins allowed to open live connections")
	flags.String("redis_addr", defaults.RedisAddr, "Redis address, to share live events across instances")
	flags.String("site_url", defaults.SiteURL, "Public address of the site")
	flags.String("preview_addr", defaults.PreviewAddr, "Address the preview server listens on")
	return flags
}

// Load reads the configuration from, by increasing priority: the defaults, the configuration file,
// the environment (and a .env file) and the command line arguments.
func (c *Config) Load(args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cannot read .env: %w", err)
	}

	v := viper.New()

	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(b)); err != nil {
		return err
	}

	flags := flagSet(c)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := v.BindPFlags(flags); err != nil {
		return err
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		f, err := os.Open(file)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		if err == nil {
			defer f.Close()
			if err := v.MergeConfig(f); err != nil {
				return fmt.Errorf("cannot read %s: %w", file, err)
			}
		}
	}

	if err := v.Unmarshal(c); err != nil {
		return err
	}

	return c.Validate()
}

func (c *Config) Validate() error {
	if c.ServerSecret == "" {
		return fmt.Errorf("missing config 'server secret'")
	}

	switch c.Store {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown store %q, expected postgres or memory", c.Store)
	}

	switch c.Auth {
	case "github":
		if c.GithubClientID == "" {
			return fmt.Errorf("missing config 'github client id'")
		}

		if c.GithubClientSecret == "" {
			return fmt.Errorf("missing config 'github client secret'")
		}
	case "fake":
	default:
		return fmt.Errorf("unknown auth %q, expected github or fake", c.Auth)
	}

	if c.S3Bucket != "" && c.S3Region == "" {
		return fmt.Errorf("missing config 's3 region'")
	}

	return nil
}

// DatabaseURL returns the connection string of the database, using the "user=postgres dbname=thegoat ..." format.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"user=%v dbname=%v sslmode=disable password=%v host=%v",
		c.DatabaseUser,
		c.DatabaseName,
		c.DatabasePassword,
		c.DatabaseHost,
	)
}

// Dump logs the configuration at debug level, secrets excluded.
func (c *Config) Dump(logger zerolog.Logger) {
	redacted := *c
	for _, s := range []*string{&redacted.DatabasePassword, &redacted.GithubClientSecret, &redacted.ServerSecret, &redacted.SlackWebhookURL} {
		if *s != "" {
			*s = "********"
		}
	}
	logger.Debug().Msgf("Current configuration:\n%# v", pretty.Formatter(redacted))
}

func SetupLogger(cfg *Config) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Str("input", cfg.LogLevel).Msg("Cannot parse log level")
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "" || cfg.LogFormat == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
}
