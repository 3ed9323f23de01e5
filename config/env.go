package config

import (
	"os"
	"time"
)

// LookupEnvOrString returns a string from the environment variable with the given key
// or the default value if the environment variable is not set
func LookupEnvOrString(key string, def string) string {
	if env := os.Getenv(key); env != "" {
		return env
	}
	return def
}

// LookupEnvOrDuration returns a duration parsed from the environment variable with the given key
// or the default value if the environment variable is not set or cannot be parsed as a duration
func LookupEnvOrDuration(key string, def time.Duration) time.Duration {
	if env := os.Getenv(key); env != "" {
		if d, err := time.ParseDuration(env); err == nil {
			return d
		}
	}
	return def
}
