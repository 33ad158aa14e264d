// Package config loads the zoned server's YAML configuration file and
// applies environment-variable overrides for the token and peer list.
package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration structure for the zoned server (§6).
type Config struct {
	ZonesFolder            string   `yaml:"zones_folder"`
	DNSPort                int      `yaml:"dns_port"`
	HTTPPort               int      `yaml:"http_port"`
	APIToken               string   `yaml:"api_token"`
	ReplicationQuorumRatio float64  `yaml:"replication_quorum_ratio"`
	ReplicationTimeoutMs   int      `yaml:"replication_timeout_ms"`
	Peers                  []string `yaml:"peers"`
}

// Default returns a Config with the §6 defaults applied.
func Default() Config {
	return Config{
		ZonesFolder:            "./zones",
		DNSPort:                53,
		HTTPPort:               8080,
		ReplicationQuorumRatio: 0.5,
		ReplicationTimeoutMs:   2000,
	}
}

// Load reads path as YAML over the §6 defaults, then applies
// ZONED_API_TOKEN/ZONED_PEERS environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if token := os.Getenv("ZONED_API_TOKEN"); token != "" {
		cfg.APIToken = token
	}
	if peers := os.Getenv("ZONED_PEERS"); peers != "" {
		cfg.Peers = splitNonEmpty(peers, ",")
	}
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
