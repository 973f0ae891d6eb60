// Package config provides configuration loading and defaults for orderwatch.
package config

import (
	"time"

	"github.com/blackwell-systems/orderwatch/internal/suggest"
)

// DefaultConfigDir is the default location for orderwatch configuration.
const DefaultConfigDir = "~/.config/orderwatch"

// DefaultDBName is the filename for the SQLite database.
const DefaultDBName = "orderwatch.db"

// DefaultConfigFile is the filename for the YAML config.
const DefaultConfigFile = "config.yaml"

// EnvPrefix prefixes every environment override, e.g. ORDERWATCH_WINDOW or
// ORDERWATCH_THRESHOLDS_RETURN_RATE.
const EnvPrefix = "ORDERWATCH"

// Order sources.
const (
	SourceFile = "file"
	SourceDB   = "db"
)

// DefaultOrdersFile is read when no orders file is configured.
const DefaultOrdersFile = "orders.json"

// DefaultWindow is the insight window used when none is given.
const DefaultWindow = "last_30_days"

// DefaultTimezone buckets trends in the machine's local time.
const DefaultTimezone = "Local"

// DefaultWatch holds the default watch daemon settings.
var DefaultWatch = Watch{
	Interval: 5 * time.Minute,
	Quiet:    false,
}

// DefaultHTTP holds the default API server settings.
var DefaultHTTP = HTTP{
	Address:        "127.0.0.1:8080",
	AllowedOrigins: []string{"*"},
}

// DefaultLogger logs at info level without source locations.
var DefaultLogger = Logger{
	Level:     0,
	AddSource: false,
}

// DefaultOutput holds the default output preferences.
var DefaultOutput = Output{
	Color: true,
	Width: 80,
}

// DefaultThresholds are the stock recommendation thresholds.
var DefaultThresholds = suggest.DefaultThresholds()
