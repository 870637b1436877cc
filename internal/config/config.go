// Package config loads worker configuration from a TOML file, with an
// optional Vault overlay for broker credentials.
//
// The file path comes from the CONFIG environment variable, defaulting to
// ./config/<worker>.toml.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Kafka holds the commit-log topology for one worker.
type Kafka struct {
	// InputTopic carries incoming PushNotification and HttpRequest
	// envelopes.
	InputTopic string `mapstructure:"input_topic"`
	// ConfigTopic carries tenant Application configuration envelopes.
	ConfigTopic string `mapstructure:"config_topic"`
	// OutputTopic receives the result envelopes.
	OutputTopic string `mapstructure:"output_topic"`
	GroupID     string `mapstructure:"group_id"`
	// Brokers is a comma-separated host:port list.
	Brokers string `mapstructure:"brokers"`

	// Optional SASL credentials, usually provided through Vault rather
	// than the file.
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// BrokerList splits the comma-separated broker string.
func (k Kafka) BrokerList() []string {
	parts := strings.Split(k.Brokers, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

// Log holds the log-relay settings.
type Log struct {
	// Host is the GELF relay address; shipping is handled outside this
	// process.
	Host string `mapstructure:"host"`
}

// Config is the full worker configuration.
type Config struct {
	Kafka Kafka `mapstructure:"kafka"`
	Log   Log   `mapstructure:"log"`
}

// Load reads the TOML file for the named worker and applies the Vault
// overlay when VAULT_ADDR is set.
func Load(workerName string) (*Config, error) {
	path := os.Getenv("CONFIG")
	if path == "" {
		path = fmt.Sprintf("./config/%s.toml", workerName)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Kafka.InputTopic == "" || cfg.Kafka.OutputTopic == "" || cfg.Kafka.ConfigTopic == "" {
		return nil, fmt.Errorf("config %s: kafka input_topic, config_topic and output_topic are required", path)
	}
	if cfg.Kafka.Brokers == "" {
		return nil, fmt.Errorf("config %s: kafka brokers is required", path)
	}

	if err := applyVaultOverlay(workerName, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
