package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/blackwell-systems/orderwatch/internal/insights"
	"github.com/blackwell-systems/orderwatch/internal/suggest"
)

// Config is the top-level orderwatch configuration.
type Config struct {
	OrdersFile string             `mapstructure:"orders_file"`
	Source     string             `mapstructure:"source"`
	Database   string             `mapstructure:"database"`
	Window     string             `mapstructure:"window"`
	Timezone   string             `mapstructure:"timezone"`
	Thresholds suggest.Thresholds `mapstructure:"thresholds"`
	Watch      Watch              `mapstructure:"watch"`
	HTTP       HTTP               `mapstructure:"http"`
	Logger     Logger             `mapstructure:"logger"`
	Output     Output             `mapstructure:"output"`
}

// Watch configures the background watcher.
type Watch struct {
	Interval time.Duration `mapstructure:"interval"`
	Quiet    bool          `mapstructure:"quiet"`
}

// HTTP configures the JSON API server.
type HTTP struct {
	Address        string   `mapstructure:"address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Logger configures the slog handler. Level uses slog's numeric levels
// (-4 debug, 0 info, 4 warn, 8 error).
type Logger struct {
	Level     int  `mapstructure:"level"`
	AddSource bool `mapstructure:"add_source"`
}

// Output defines output preferences.
type Output struct {
	Color bool `mapstructure:"color"`
	Width int  `mapstructure:"width"`
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Load reads configuration from the given path (or the default location),
// applies ORDERWATCH_* environment overrides and returns a validated Config
// with all defaults applied.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("orders_file", DefaultOrdersFile)
	v.SetDefault("source", SourceFile)
	v.SetDefault("database", DBPath())
	v.SetDefault("window", DefaultWindow)
	v.SetDefault("timezone", DefaultTimezone)
	v.SetDefault("thresholds.cancellation_rate", DefaultThresholds.CancellationRate)
	v.SetDefault("thresholds.return_rate", DefaultThresholds.ReturnRate)
	v.SetDefault("thresholds.pending_ratio", DefaultThresholds.PendingRatio)
	v.SetDefault("thresholds.pending_min", DefaultThresholds.PendingMin)
	v.SetDefault("thresholds.completion_rate", DefaultThresholds.CompletionRate)
	v.SetDefault("thresholds.completion_min_orders", DefaultThresholds.CompletionMinOrders)
	v.SetDefault("thresholds.monthly_frequency", DefaultThresholds.MonthlyFrequency)
	v.SetDefault("watch.interval", DefaultWatch.Interval)
	v.SetDefault("watch.quiet", DefaultWatch.Quiet)
	v.SetDefault("http.address", DefaultHTTP.Address)
	v.SetDefault("http.allowed_origins", DefaultHTTP.AllowedOrigins)
	v.SetDefault("logger.level", DefaultLogger.Level)
	v.SetDefault("logger.add_source", DefaultLogger.AddSource)
	v.SetDefault("output.color", DefaultOutput.Color)
	v.SetDefault("output.width", DefaultOutput.Width)

	// thresholds.return_rate -> ORDERWATCH_THRESHOLDS_RETURN_RATE
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("logger.level", EnvPrefix+"_LOG_LEVEL")

	if cfgFile != "" {
		v.SetConfigFile(expandPath(cfgFile))
	} else {
		v.AddConfigPath(ConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Read config file if it exists; missing file is not an error.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.OrdersFile = expandPath(cfg.OrdersFile)
	cfg.Database = expandPath(cfg.Database)
	cfg.Source = strings.ToLower(strings.TrimSpace(cfg.Source))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Source != SourceFile && c.Source != SourceDB {
		return fmt.Errorf("source must be %q or %q, got %q", SourceFile, SourceDB, c.Source)
	}
	if _, err := insights.ParseWindow(c.Window); err != nil {
		return fmt.Errorf("window: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be positive, got %s", c.Watch.Interval)
	}
	return nil
}

// Location resolves Timezone. Empty and "Local" mean the machine's zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// DBPath returns the full path to the SQLite database.
func DBPath() string {
	return filepath.Join(ConfigDir(), DefaultDBName)
}

// ConfigDir returns the expanded configuration directory.
func ConfigDir() string {
	return expandPath(DefaultConfigDir)
}
