// Package config provides functionality for managing configuration options
// for the application using command-line flags, environment variables and
// an optional JSON file.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Duration is a time.Duration that reads "90s"-style strings from flags and JSON.
type Duration struct {
	time.Duration
}

// Set implements flag.Value.
func (d *Duration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.Set(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("duration must be a string or integer: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string

	// Driver selects the record store: memory, sqlite or postgres.
	Driver string

	// DatabaseDSN holds the PostgreSQL connection string.
	DatabaseDSN string

	// SQLitePath is the SQLite database file.
	SQLitePath string

	// Config is the path to the Config file.
	Config string

	LogLevel string

	// MetricsAddr serves Prometheus metrics over plain HTTP when set.
	MetricsAddr string

	// CertsDir holds ca.crt, ca.key, server.crt and server.key.
	CertsDir string

	// Namespace separates address derivations of independent deployments.
	Namespace string

	// MaxRecordSize caps an encoded record in bytes; 0 disables the check.
	MaxRecordSize int

	// CompactInterval is how often closed records are compacted.
	CompactInterval Duration

	// TombstoneRetention is how long a closed record keeps its payload.
	TombstoneRetention Duration

	// Owner is the hex identity the MCP server acts for.
	Owner string
}

// options holds the current configuration values.
var options = Default()

// Default returns the built-in defaults.
func Default() *Options {
	return &Options{
		Port:               "localhost:8080",
		Driver:             "sqlite",
		SQLitePath:         "gophtodo.db",
		Config:             "config.json",
		LogLevel:           "info",
		CertsDir:           "certs",
		Namespace:          "gophtodo",
		MaxRecordSize:      1024,
		CompactInterval:    Duration{time.Hour},
		TombstoneRetention: Duration{30 * 24 * time.Hour},
	}
}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Port, "a", options.Port, "run on ip:port server")
	flag.StringVar(&options.Driver, "driver", options.Driver, "record store: memory, sqlite or postgres")
	flag.StringVar(&options.DatabaseDSN, "d", options.DatabaseDSN, "postgres dsn")
	flag.StringVar(&options.SQLitePath, "sqlite", options.SQLitePath, "sqlite database file")
	flag.StringVar(&options.Config, "config", options.Config, "path to config file")
	flag.StringVar(&options.Config, "c", options.Config, "path to config file (shorthand)")
	flag.StringVar(&options.LogLevel, "log-level", options.LogLevel, "debug, info, warn or error")
	flag.StringVar(&options.MetricsAddr, "metrics", options.MetricsAddr, "prometheus metrics address, empty to disable")
	flag.StringVar(&options.CertsDir, "certs", options.CertsDir, "directory with CA and server certificates")
	flag.StringVar(&options.Namespace, "namespace", options.Namespace, "address derivation namespace")
	flag.IntVar(&options.MaxRecordSize, "max-record", options.MaxRecordSize, "maximum encoded record size in bytes")
	flag.Var(&options.CompactInterval, "compact-interval", "tombstone compaction interval, 0 disables compaction")
	flag.Var(&options.TombstoneRetention, "tombstone-retention", "how long closed records keep their payload")
	flag.StringVar(&options.Owner, "owner", options.Owner, "hex identity the MCP server acts for")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	if err := options.apply(os.Getenv); err != nil {
		log.Fatalf("error while loading config: %v", err)
	}
	return options
}

// apply layers the config file and then the environment over o.
func (o *Options) apply(getenv func(string) string) error {
	if configPath := getenv("CONFIG"); configPath != "" {
		o.Config = configPath
	}

	if o.Config != "" {
		if _, err := os.Stat(o.Config); err == nil {
			data, err := os.ReadFile(o.Config)
			if err != nil {
				return fmt.Errorf("reading config file: %w", err)
			}
			if err := json.Unmarshal(data, o); err != nil {
				return fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	if serverAddress := getenv("SERVER_ADDRESS"); serverAddress != "" {
		o.Port = serverAddress
	}
	if driver := getenv("STORE_DRIVER"); driver != "" {
		o.Driver = driver
	}
	if dsn := getenv("DATABASE_DSN"); dsn != "" {
		o.DatabaseDSN = dsn
	}
	if level := getenv("LOG_LEVEL"); level != "" {
		o.LogLevel = level
	}
	if addr := getenv("METRICS_ADDRESS"); addr != "" {
		o.MetricsAddr = addr
	}
	if ns := getenv("TODO_NAMESPACE"); ns != "" {
		o.Namespace = ns
	}
	if owner := getenv("TODO_OWNER"); owner != "" {
		o.Owner = owner
	}
	if size := getenv("MAX_RECORD_SIZE"); size != "" {
		n, err := strconv.Atoi(size)
		if err != nil {
			return fmt.Errorf("MAX_RECORD_SIZE: %w", err)
		}
		o.MaxRecordSize = n
	}

	switch o.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown store driver %q", o.Driver)
	}
	if o.CompactInterval.Duration < 0 {
		return fmt.Errorf("negative compact interval %s", o.CompactInterval)
	}
	if o.TombstoneRetention.Duration < 0 {
		return fmt.Errorf("negative tombstone retention %s", o.TombstoneRetention)
	}
	return nil
}
