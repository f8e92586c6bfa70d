package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
	"github.com/rohunvora/anti-slop-lib-sub000/internal/signals"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override: scan.concurrency is read
// from ANTISLOP_SCAN_CONCURRENCY.
const EnvPrefix = "ANTISLOP"

// Config is the compiled-in configuration with optional overrides.
type Config struct {
	SchemaVersion string        `mapstructure:"schema_version" json:"schemaVersion"`
	App           AppConfig     `mapstructure:"app" json:"app"`
	Paths         PathsConfig   `mapstructure:"paths" json:"paths"`
	Scan          ScanConfig    `mapstructure:"scan" json:"scan"`
	Gate          GateConfig    `mapstructure:"gate" json:"gate"`
	Reports       ReportsConfig `mapstructure:"reports" json:"reports"`
	Logging       LoggingConfig `mapstructure:"logging" json:"logging"`
	History       HistoryConfig `mapstructure:"history" json:"history"`
	Server        ServerConfig  `mapstructure:"server" json:"server"`
	Harvest       HarvestConfig `mapstructure:"harvest" json:"harvest"`
	Watch         WatchConfig   `mapstructure:"watch" json:"watch"`
}

type AppConfig struct {
	Name    string `mapstructure:"name" json:"name"`
	Channel string `mapstructure:"channel" json:"channel"`
}

type PathsConfig struct {
	WorkspaceRoot string `mapstructure:"workspace_root" json:"workspaceRoot"`
	OutputDir     string `mapstructure:"output_dir" json:"outputDir"`
}

type ScanConfig struct {
	Extensions   []string `mapstructure:"extensions" json:"extensions"`
	Ignore       []string `mapstructure:"ignore" json:"ignore"`
	MaxFileBytes int64    `mapstructure:"max_file_bytes" json:"maxFileBytes"`
	Concurrency  int      `mapstructure:"concurrency" json:"concurrency"`
	Severity     string   `mapstructure:"severity" json:"severity"`
	Top          int      `mapstructure:"top" json:"top"`
}

// GateConfig decides whether a scan passes. MaxCritical below zero means no
// limit. FailWhen is an expression evaluated by the gate package.
type GateConfig struct {
	Threshold   string `mapstructure:"threshold" json:"threshold"`
	MaxCritical int    `mapstructure:"max_critical" json:"maxCritical"`
	FailWhen    string `mapstructure:"fail_when" json:"failWhen,omitempty"`
}

type ReportsConfig struct {
	JSON     ReportConfig `mapstructure:"json" json:"json"`
	SARIF    ReportConfig `mapstructure:"sarif" json:"sarif"`
	JUnit    ReportConfig `mapstructure:"junit" json:"junit"`
	Markdown ReportConfig `mapstructure:"markdown" json:"markdown"`
	HTML     ReportConfig `mapstructure:"html" json:"html"`
}

type ReportConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Path    string `mapstructure:"path" json:"path"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" json:"level"`
	JSON  bool   `mapstructure:"json" json:"json"`
}

type HistoryConfig struct {
	Enabled  bool   `mapstructure:"enabled" json:"enabled"`
	Path     string `mapstructure:"path" json:"path"`
	Keep     int    `mapstructure:"keep" json:"keep"`
	LogLevel string `mapstructure:"log_level" json:"logLevel"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr" json:"addr"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" json:"maxBodyBytes"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" json:"readTimeout"`
	Cache        CacheConfig   `mapstructure:"cache" json:"cache"`
}

type CacheConfig struct {
	Backend   string        `mapstructure:"backend" json:"backend"`
	TTL       time.Duration `mapstructure:"ttl" json:"ttl"`
	MaxItems  int           `mapstructure:"max_items" json:"maxItems"`
	RedisAddr string        `mapstructure:"redis_addr" json:"redisAddr,omitempty"`
	RedisDB   int           `mapstructure:"redis_db" json:"redisDb"`
}

type HarvestConfig struct {
	Delay            time.Duration `mapstructure:"delay" json:"delay"`
	Timeout          time.Duration `mapstructure:"timeout" json:"timeout"`
	UserAgent        string        `mapstructure:"user_agent" json:"userAgent"`
	MaxBytes         int64         `mapstructure:"max_bytes" json:"maxBytes"`
	DefaultThumbnail string        `mapstructure:"default_thumbnail" json:"defaultThumbnail"`
	OutputPath       string        `mapstructure:"output_path" json:"outputPath"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" json:"debounce"`
}

type Flags struct {
	ConfigPath string
	LogLevel   string
}

// Default returns the compiled-in defaults.
func Default() Config {
	return Config{
		SchemaVersion: "1.0",
		App: AppConfig{
			Name:    "antislop",
			Channel: "release",
		},
		Paths: PathsConfig{
			WorkspaceRoot: ".",
			OutputDir:     ".antislop",
		},
		Scan: ScanConfig{
			Extensions:   []string{".html", ".htm", ".jsx", ".tsx", ".js", ".ts", ".vue", ".svelte", ".astro", ".css", ".md"},
			Ignore:       []string{"node_modules", ".git", "dist", "build", ".next", ".antislop", "vendor"},
			MaxFileBytes: 2 << 20,
			Concurrency:  runtime.NumCPU(),
			Top:          5,
		},
		Gate: GateConfig{
			Threshold:   "C",
			MaxCritical: -1,
		},
		Reports: ReportsConfig{
			JSON:     ReportConfig{Enabled: true, Path: ".antislop/report.json"},
			SARIF:    ReportConfig{Enabled: true, Path: ".antislop/results.sarif"},
			JUnit:    ReportConfig{Enabled: true, Path: ".antislop/junit.xml"},
			Markdown: ReportConfig{Enabled: false, Path: ".antislop/report.md"},
			HTML:     ReportConfig{Enabled: false, Path: ".antislop/report.html"},
		},
		Logging: LoggingConfig{
			Level: "warn",
			JSON:  false,
		},
		History: HistoryConfig{
			Enabled:  true,
			Path:     ".antislop/history.db",
			Keep:     200,
			LogLevel: "silent",
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:7878",
			MaxBodyBytes: 4 << 20,
			ReadTimeout:  15 * time.Second,
			Cache: CacheConfig{
				Backend:  "memory",
				TTL:      10 * time.Minute,
				MaxItems: 512,
			},
		},
		Harvest: HarvestConfig{
			Delay:            2 * time.Second,
			Timeout:          20 * time.Second,
			UserAgent:        "antislop-harvest/1.0",
			MaxBytes:         4 << 20,
			DefaultThumbnail: "thumbnails/default.png",
			OutputPath:       ".antislop/harvest.json",
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
		},
	}
}

// setDefaults registers every key with viper. Keys viper has never seen are
// not looked up in the environment, so this covers the whole tree.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("schema_version", d.SchemaVersion)
	v.SetDefault("app.name", d.App.Name)
	v.SetDefault("app.channel", d.App.Channel)

	v.SetDefault("paths.workspace_root", d.Paths.WorkspaceRoot)
	v.SetDefault("paths.output_dir", d.Paths.OutputDir)

	v.SetDefault("scan.extensions", d.Scan.Extensions)
	v.SetDefault("scan.ignore", d.Scan.Ignore)
	v.SetDefault("scan.max_file_bytes", d.Scan.MaxFileBytes)
	v.SetDefault("scan.concurrency", d.Scan.Concurrency)
	v.SetDefault("scan.severity", d.Scan.Severity)
	v.SetDefault("scan.top", d.Scan.Top)

	v.SetDefault("gate.threshold", d.Gate.Threshold)
	v.SetDefault("gate.max_critical", d.Gate.MaxCritical)
	v.SetDefault("gate.fail_when", d.Gate.FailWhen)

	for name, r := range map[string]ReportConfig{
		"json":     d.Reports.JSON,
		"sarif":    d.Reports.SARIF,
		"junit":    d.Reports.JUnit,
		"markdown": d.Reports.Markdown,
		"html":     d.Reports.HTML,
	} {
		v.SetDefault("reports."+name+".enabled", r.Enabled)
		v.SetDefault("reports."+name+".path", r.Path)
	}

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.json", d.Logging.JSON)

	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("history.keep", d.History.Keep)
	v.SetDefault("history.log_level", d.History.LogLevel)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.cache.backend", d.Server.Cache.Backend)
	v.SetDefault("server.cache.ttl", d.Server.Cache.TTL)
	v.SetDefault("server.cache.max_items", d.Server.Cache.MaxItems)
	v.SetDefault("server.cache.redis_addr", d.Server.Cache.RedisAddr)
	v.SetDefault("server.cache.redis_db", d.Server.Cache.RedisDB)

	v.SetDefault("harvest.delay", d.Harvest.Delay)
	v.SetDefault("harvest.timeout", d.Harvest.Timeout)
	v.SetDefault("harvest.user_agent", d.Harvest.UserAgent)
	v.SetDefault("harvest.max_bytes", d.Harvest.MaxBytes)
	v.SetDefault("harvest.default_thumbnail", d.Harvest.DefaultThumbnail)
	v.SetDefault("harvest.output_path", d.Harvest.OutputPath)

	v.SetDefault("watch.debounce", d.Watch.Debounce)
}

// Resolve layers defaults, the optional config file and ANTISLOP_*
// environment variables, in that order, then validates the result.
// It returns the config, the file used (if any) and non-fatal warnings.
func Resolve(flags Flags) (Config, string, []string, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfgPath string
	if flags.ConfigPath != "" {
		v.SetConfigFile(flags.ConfigPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, "", nil, fmt.Errorf("failed to read config %s: %w", flags.ConfigPath, err)
		}
		cfgPath = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if flags.LogLevel != "" {
		cfg.Logging.Level = flags.LogLevel
	}

	var warnings []string
	if cfg.Scan.Concurrency <= 0 {
		cfg.Scan.Concurrency = runtime.NumCPU()
		warnings = append(warnings, fmt.Sprintf("scan.concurrency must be positive; using %d", cfg.Scan.Concurrency))
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = Default().Watch.Debounce
		warnings = append(warnings, "watch.debounce must be positive; using 300ms")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, "", nil, err
	}
	return cfg, cfgPath, warnings, nil
}

// Validate checks the resolved configuration for consistency. All problems
// are reported together.
func (c *Config) Validate() error {
	var errs []error
	if c.SchemaVersion != "1.0" {
		errs = append(errs, fmt.Errorf("unsupported schema_version: %s (expected 1.0)", c.SchemaVersion))
	}
	if _, err := engine.ParseGrade(c.Gate.Threshold); err != nil {
		errs = append(errs, fmt.Errorf("gate.threshold: %w", err))
	}
	if c.Scan.Severity != "" {
		if _, err := signals.ParseSeverity(c.Scan.Severity); err != nil {
			errs = append(errs, fmt.Errorf("scan.severity: %w", err))
		}
	}
	if c.Scan.MaxFileBytes <= 0 {
		errs = append(errs, errors.New("scan.max_file_bytes must be positive"))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q (valid: debug, info, warn, error)", c.Logging.Level))
	}
	switch c.Server.Cache.Backend {
	case "memory", "none":
	case "redis":
		if c.Server.Cache.RedisAddr == "" {
			errs = append(errs, errors.New("server.cache.redis_addr is required when server.cache.backend is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("server.cache.backend: unknown backend %q (valid: memory, redis, none)", c.Server.Cache.Backend))
	}
	if c.Harvest.Delay < 0 {
		errs = append(errs, errors.New("harvest.delay must not be negative"))
	}
	return errors.Join(errs...)
}

// OutputPath joins name onto the output directory.
func (c *Config) OutputPath(name string) string {
	dir := strings.TrimRight(c.Paths.OutputDir, "/\\")
	if dir == "" {
		dir = ".antislop"
	}
	return dir + "/" + name
}
