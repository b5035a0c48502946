package config

import (
	"fmt"
	"sort"
	"time"
)

// Config represents a wodwiki.yaml configuration file.
// All values are optional and act as defaults for wodwiki run flags.
// CLI flags always override config values.
type Config struct {
	Source   string `yaml:"source"`
	Category string `yaml:"category"`

	Storage   StorageConfig             `yaml:"storage"`
	Policy    PolicyConfig              `yaml:"policy"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Provider  ProviderSelection         `yaml:"provider"`
	Adapter   AdapterConfig             `yaml:"adapter"`
}

// StorageConfig holds history storage defaults from the config file.
type StorageConfig struct {
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// PolicyConfig holds policy defaults from the config file.
type PolicyConfig struct {
	Name          string   `yaml:"name"`
	FlushMode     string   `yaml:"flush_mode"`
	BufferEvents  int      `yaml:"buffer_events"`
	BufferBytes   int64    `yaml:"buffer_bytes"`
	FlushCount    int      `yaml:"flush_count"`
	FlushInterval Duration `yaml:"flush_interval"`
}

// ProviderConfig is a providerpool replica set definition within the config
// file. Name is derived from the map key, not stored in the struct.
type ProviderConfig struct {
	Strategy      string   `yaml:"strategy"`
	Replicas      []string `yaml:"replicas"`
	StickyTTL     Duration `yaml:"sticky_ttl,omitempty"`
	RecencyWindow *int     `yaml:"recency_window,omitempty"`
}

// ProviderSelection holds providerpool selection defaults from the config
// file.
type ProviderSelection struct {
	Pool     string `yaml:"pool"`
	Strategy string `yaml:"strategy"`
}

// AdapterConfig holds notification adapter defaults from the config file.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// ProviderNames returns the configured provider pool names in sorted,
// deterministic order.
func (c *Config) ProviderNames() []string {
	if len(c.Providers) == 0 {
		return nil
	}

	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
