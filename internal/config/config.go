package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultGlamourStyle = "dark"

var ErrMissingURL = errors.New("assistant url is required")

type UserConfig struct {
	Name        string `yaml:"name"`
	AccessLevel string `yaml:"access_level"`
	Client      string `yaml:"client"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // trace|debug|info|warn|error
	Format string `yaml:"format"` // json|console
	Path   string `yaml:"path"`
}

type AppConfig struct {
	HubURL         string        `yaml:"hub_url"`
	ClearURL       string        `yaml:"clear_url"`
	APIURL         string        `yaml:"api_url"`
	User           UserConfig    `yaml:"user"`
	DBPath         string        `yaml:"db_path"`
	ExportDir      string        `yaml:"export_dir"`
	MetricsAddr    string        `yaml:"metrics_addr"`
	Refresh        time.Duration `yaml:"refresh"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Log            LogConfig     `yaml:"log"`

	ConfigPath string `yaml:"-"`
	Ask        string `yaml:"-"`
}

// Parse reads flags from args with environment fallbacks and an optional YAML
// file. Precedence is flags, then env, then file, then defaults.
func Parse(args []string, getenv func(string) string) (AppConfig, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	var fl AppConfig
	fs := flag.NewFlagSet("dot-hub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&fl.ConfigPath, "config", "", "path to YAML config file")
	fs.StringVar(&fl.HubURL, "hub-url", "", "assistant endpoint")
	fs.StringVar(&fl.ClearURL, "clear-url", "", "session clear endpoint")
	fs.StringVar(&fl.APIURL, "api-url", "", "jobs API base url")
	fs.StringVar(&fl.User.Name, "user", "", "display name")
	fs.StringVar(&fl.User.AccessLevel, "access", "", "access level (Full or Client WIP)")
	fs.StringVar(&fl.User.Client, "client", "", "client code the user is restricted to")
	fs.StringVar(&fl.DBPath, "db-path", "", "path to SQLite job cache")
	fs.StringVar(&fl.ExportDir, "export-dir", "", "override export output directory")
	fs.StringVar(&fl.MetricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	fs.DurationVar(&fl.Refresh, "refresh", 0, "job cache refresh interval")
	fs.DurationVar(&fl.RequestTimeout, "timeout", 0, "assistant request timeout")
	fs.StringVar(&fl.Log.Level, "log-level", "", "log level")
	fs.StringVar(&fl.Log.Format, "log-format", "", "log format (json or console)")
	fs.StringVar(&fl.Log.Path, "log-path", "", "log file path")
	fs.StringVar(&fl.Ask, "ask", "", "ask one question, print the answer and exit")
	if err := fs.Parse(args); err != nil {
		return AppConfig{}, fmt.Errorf("parse flags: %w", err)
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg := defaults()

	configPath := fl.ConfigPath
	if configPath == "" {
		configPath = getenv("DOT_HUB_CONFIG")
	}
	if configPath != "" {
		if err := loadFile(configPath, &cfg); err != nil {
			return AppConfig{}, err
		}
		cfg.ConfigPath = configPath
	}

	applyEnv(&cfg, getenv)
	applyFlags(&cfg, fl, set)

	if err := finish(&cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func defaults() AppConfig {
	return AppConfig{
		Refresh:        5 * time.Minute,
		RequestTimeout: 60 * time.Second,
		Log:            LogConfig{Level: "info", Format: "json"},
	}
}

func loadFile(path string, cfg *AppConfig) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func applyEnv(cfg *AppConfig, getenv func(string) string) {
	str := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	dur := func(dst *time.Duration, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	str(&cfg.HubURL, "DOT_HUB_URL")
	str(&cfg.ClearURL, "DOT_CLEAR_URL")
	str(&cfg.APIURL, "DOT_API_URL")
	str(&cfg.User.Name, "DOT_USER")
	str(&cfg.User.AccessLevel, "DOT_ACCESS_LEVEL")
	str(&cfg.User.Client, "DOT_CLIENT")
	str(&cfg.DBPath, "DOT_DB_PATH")
	str(&cfg.ExportDir, "DOT_EXPORT_DIR")
	str(&cfg.MetricsAddr, "DOT_METRICS_ADDR")
	str(&cfg.Log.Level, "DOT_LOG_LEVEL")
	str(&cfg.Log.Format, "DOT_LOG_FORMAT")
	str(&cfg.Log.Path, "DOT_LOG_PATH")
	dur(&cfg.Refresh, "DOT_REFRESH")
	dur(&cfg.RequestTimeout, "DOT_TIMEOUT")
}

func applyFlags(cfg *AppConfig, fl AppConfig, set map[string]bool) {
	pick := func(name string, dst *string, v string) {
		if set[name] {
			*dst = v
		}
	}
	pick("hub-url", &cfg.HubURL, fl.HubURL)
	pick("clear-url", &cfg.ClearURL, fl.ClearURL)
	pick("api-url", &cfg.APIURL, fl.APIURL)
	pick("user", &cfg.User.Name, fl.User.Name)
	pick("access", &cfg.User.AccessLevel, fl.User.AccessLevel)
	pick("client", &cfg.User.Client, fl.User.Client)
	pick("db-path", &cfg.DBPath, fl.DBPath)
	pick("export-dir", &cfg.ExportDir, fl.ExportDir)
	pick("metrics-addr", &cfg.MetricsAddr, fl.MetricsAddr)
	pick("log-level", &cfg.Log.Level, fl.Log.Level)
	pick("log-format", &cfg.Log.Format, fl.Log.Format)
	pick("log-path", &cfg.Log.Path, fl.Log.Path)
	if set["refresh"] {
		cfg.Refresh = fl.Refresh
	}
	if set["timeout"] {
		cfg.RequestTimeout = fl.RequestTimeout
	}
	cfg.Ask = fl.Ask
}

func finish(cfg *AppConfig) error {
	cfg.HubURL = strings.TrimSpace(cfg.HubURL)
	if cfg.HubURL == "" {
		return fmt.Errorf("validate config: %w (set -hub-url or DOT_HUB_URL)", ErrMissingURL)
	}
	if cfg.ClearURL == "" {
		cfg.ClearURL = deriveClearURL(cfg.HubURL)
	}
	if cfg.Refresh <= 0 {
		cfg.Refresh = 5 * time.Minute
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	if cfg.DBPath == "" || cfg.Log.Path == "" {
		dir, err := DataDir()
		if err != nil {
			return err
		}
		if cfg.DBPath == "" {
			cfg.DBPath = filepath.Join(dir, "jobs.sqlite")
		}
		if cfg.Log.Path == "" {
			cfg.Log.Path = filepath.Join(dir, "dot-hub.log")
		}
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}
	return nil
}

// DataDir is where the job cache and log live by default.
func DataDir() (string, error) {
	if fromEnv := os.Getenv("DOT_HUB_HOME"); fromEnv != "" {
		return filepath.Clean(fromEnv), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "dot-hub"), nil
}

// deriveClearURL swaps the last path segment of the hub url for "clear".
func deriveClearURL(hub string) string {
	idx := strings.LastIndex(hub, "/")
	if idx < len("https://") {
		return strings.TrimRight(hub, "/") + "/clear"
	}
	return hub[:idx] + "/clear"
}
