package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/dmitrijs2005/classmint/internal/timex"
)

// Config holds runtime settings for the classmint CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the gRPC endpoint.
//   - RequestTimeout: deadline applied to every call.
//   - SecretKey: shared secret for minting admin tokens. Prompted for when empty.
//   - IssuerID: subject of minted admin tokens, recorded as issued_by.
//   - AdminTokenValidityDuration: lifetime of minted admin tokens.
type Config struct {
	ServerEndpointAddr         string        `split_words:"true"`
	RequestTimeout             time.Duration `split_words:"true"`
	SecretKey                  string        `split_words:"true"`
	IssuerID                   string        `split_words:"true"`
	AdminTokenValidityDuration time.Duration `split_words:"true"`
}

type jsonConfig struct {
	ServerEndpointAddr         *string         `json:"server_endpoint_addr"`
	RequestTimeout             *timex.Duration `json:"request_timeout"`
	SecretKey                  *string         `json:"secret_key"`
	IssuerID                   *string         `json:"issuer_id"`
	AdminTokenValidityDuration *timex.Duration `json:"admin_token_validity_duration"`
}

func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RequestTimeout = 10 * time.Second
	c.SecretKey = ""
	c.IssuerID = "admin"
	c.AdminTokenValidityDuration = 5 * time.Minute
}

// LoadConfig applies defaults, then the JSON file at path when path is not
// empty, then CM_* environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path != "" {
		if err := parseJSON(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process("cm", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	return cfg, nil
}

func parseJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if jc.ServerEndpointAddr != nil {
		cfg.ServerEndpointAddr = *jc.ServerEndpointAddr
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.SecretKey != nil {
		cfg.SecretKey = *jc.SecretKey
	}
	if jc.IssuerID != nil {
		cfg.IssuerID = *jc.IssuerID
	}
	if jc.AdminTokenValidityDuration != nil {
		cfg.AdminTokenValidityDuration = jc.AdminTokenValidityDuration.Duration
	}
	return nil
}
