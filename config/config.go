package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/gotoolkits/resetmon/subscriber"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Source   string `yaml:"source"`
	Endpoint string `yaml:"endpoint"`
	Topic    string `yaml:"topic"`

	Format   string `yaml:"format"`
	Exclude  string `yaml:"exclude"`
	LogPath  string `yaml:"log_path"`
	LogLevel string `yaml:"log_level"`

	Resolver   string        `yaml:"resolver"`
	DNSServer  string        `yaml:"dns_server"`
	DNSTimeout time.Duration `yaml:"dns_timeout"`

	MetricsAddress string `yaml:"metrics_address"`
	MetricsPath    string `yaml:"metrics_path"`

	Honeycomb HoneycombConfig `yaml:"honeycomb"`
}

type HoneycombConfig struct {
	APIKey  string `yaml:"api_key"`
	Dataset string `yaml:"dataset"`
	APIHost string `yaml:"api_host"`
}

// Load parses args (without the program name), falling back to RESETMON_*
// environment variables for unset flags. A YAML file named by -c, when it
// exists, is applied on top.
func Load(args []string) (Config, error) {
	var config Config
	var configPath string

	fs := flag.NewFlagSet("resetmon", flag.ContinueOnError)
	fs.StringVar(&config.Source, "source", LookupEnvOrString("RESETMON_SOURCE", "zmq"), "message source: zmq or stdin")
	fs.StringVar(&config.Endpoint, "endpoint", LookupEnvOrString("RESETMON_ENDPOINT", subscriber.DefaultEndpoint), "publisher endpoint to subscribe to")
	fs.StringVar(&config.Topic, "topic", LookupEnvOrString("RESETMON_TOPIC", subscriber.DefaultTopic), "subscription topic")
	fs.StringVar(&config.Format, "f", LookupEnvOrString("RESETMON_FORMAT", "text"), "text, table, json, logfile or honeycomb output format")
	fs.StringVar(&config.Exclude, "exclude", LookupEnvOrString("RESETMON_EXCLUDE", ""), "exclude output filter")
	fs.StringVar(&config.LogPath, "log_path", LookupEnvOrString("RESETMON_LOG_PATH", "/var/log/resetmon"), "specify logfile output path")
	fs.StringVar(&config.LogLevel, "log_level", LookupEnvOrString("RESETMON_LOG_LEVEL", "info"), "log level")
	fs.StringVar(&config.Resolver, "resolver", LookupEnvOrString("RESETMON_RESOLVER", "system"), "reverse lookup backend: system or dns")
	fs.StringVar(&config.DNSServer, "dns_server", LookupEnvOrString("RESETMON_DNS_SERVER", ""), "DNS server host:port for the dns resolver")
	fs.DurationVar(&config.DNSTimeout, "dns_timeout", LookupEnvOrDuration("RESETMON_DNS_TIMEOUT", 2*time.Second), "per query timeout for the dns resolver")
	fs.StringVar(&config.MetricsAddress, "metrics_address", LookupEnvOrString("RESETMON_METRICS_ADDRESS", ""), "address to serve prometheus metrics on, empty disables")
	fs.StringVar(&config.MetricsPath, "metrics_path", LookupEnvOrString("RESETMON_METRICS_PATH", "/metrics"), "metrics endpoint path")
	fs.StringVar(&config.Honeycomb.APIKey, "honeycomb_api_key", LookupEnvOrString("HONEYCOMB_API_KEY", ""), "Honeycomb API key")
	fs.StringVar(&config.Honeycomb.Dataset, "honeycomb_dataset", LookupEnvOrString("HONEYCOMB_DATASET", "resetmon"), "Honeycomb dataset name")
	fs.StringVar(&config.Honeycomb.APIHost, "honeycomb_api_host", LookupEnvOrString("HONEYCOMB_API_ENDPOINT", "https://api.honeycomb.io"), "Honeycomb API endpoint")
	fs.StringVar(&configPath, "c", "config.yaml", "config file path")
	if err := fs.Parse(args); err != nil {
		return config, err
	}

	// Load config from file if exists
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfig(configPath, &config); err != nil {
			log.Warnf("Failed to load config file: %v, using flag values", err)
		}
	}
	return config, nil
}

func loadConfig(configPath string, config *Config) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, config)
}

// Verify reports every problem with the configuration at once.
func (c *Config) Verify() error {
	var errs []error

	switch c.Source {
	case "zmq", "stdin":
	default:
		errs = append(errs, fmt.Errorf("unknown source %q", c.Source))
	}

	switch c.Format {
	case "text", "table", "json":
	case "logfile":
		if ok, err := PathExists(c.LogPath); !ok {
			errs = append(errs, fmt.Errorf("log path: %w", err))
		}
	case "honeycomb":
		if c.Honeycomb.APIKey == "" {
			errs = append(errs, ErrMissingAPIKey)
		}
	default:
		errs = append(errs, fmt.Errorf("unknown format %q", c.Format))
	}

	switch c.Resolver {
	case "system":
	case "dns":
		if _, _, err := net.SplitHostPort(c.DNSServer); err != nil {
			errs = append(errs, fmt.Errorf("dns server %q: %w", c.DNSServer, err))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown resolver %q", c.Resolver))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	// returns nil if no errors in slice
	return errors.Join(errs...)
}

var ErrMissingAPIKey = errors.New("missing Honeycomb API key")

func PathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	return false, err
}
