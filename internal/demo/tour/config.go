package tour

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Config struct {
	APIBaseURL  string
	APIKey      string
	Username    string
	Password    string
	HTTPTimeout time.Duration
	// Interval paces generated questions once the scripted tour is done.
	Interval time.Duration
	// Generated is how many random questions follow the scripted tour. Zero
	// stops after the script; negative keeps asking until canceled.
	Generated int
	Seed      int64
}

func DefaultConfig() Config {
	return Config{
		APIBaseURL:  "http://localhost:8080",
		Username:    "admin",
		Password:    "password",
		HTTPTimeout: 10 * time.Second,
		Interval:    2 * time.Second,
		Generated:   0,
		Seed:        time.Now().UTC().UnixNano(),
	}
}

func LoadConfigFromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := DefaultConfig()
	appliers := []func() error{
		func() error { return applyString(lookup, "QUERYDESK_DEMO_API_URL", &cfg.APIBaseURL) },
		func() error { return applyString(lookup, "QUERYDESK_DEMO_API_KEY", &cfg.APIKey) },
		func() error { return applyString(lookup, "QUERYDESK_DEMO_USERNAME", &cfg.Username) },
		func() error { return applyString(lookup, "QUERYDESK_DEMO_PASSWORD", &cfg.Password) },
		func() error { return applyDuration(lookup, "QUERYDESK_DEMO_HTTP_TIMEOUT", &cfg.HTTPTimeout) },
		func() error { return applyDuration(lookup, "QUERYDESK_DEMO_INTERVAL", &cfg.Interval) },
		func() error { return applyInt(lookup, "QUERYDESK_DEMO_GENERATED", &cfg.Generated) },
		func() error { return applyInt64(lookup, "QUERYDESK_DEMO_SEED", &cfg.Seed) },
	}
	for _, apply := range appliers {
		if err := apply(); err != nil {
			return Config{}, err
		}
	}

	if cfg.APIBaseURL == "" {
		return Config{}, fmt.Errorf("QUERYDESK_DEMO_API_URL is required")
	}
	if cfg.HTTPTimeout <= 0 {
		return Config{}, fmt.Errorf("QUERYDESK_DEMO_HTTP_TIMEOUT must be > 0")
	}
	if cfg.Interval <= 0 {
		return Config{}, fmt.Errorf("QUERYDESK_DEMO_INTERVAL must be > 0")
	}
	if (cfg.Username == "") != (cfg.Password == "") {
		return Config{}, fmt.Errorf("QUERYDESK_DEMO_USERNAME and QUERYDESK_DEMO_PASSWORD must be set together")
	}

	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	return cfg, nil
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}
