package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/classmint/internal/timex"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape of the config file. Pointer fields tell an
// absent key apart from a zero value, so a file can set VerifyCacheSize to 0.
// Durations accept "15m" strings or integer nanoseconds.
type fileConfig struct {
	EndpointAddrGRPC           *string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	MetricsAddr                *string         `json:"metrics_addr" yaml:"metrics_addr"`
	DatabaseDriver             *string         `json:"database_driver" yaml:"database_driver"`
	DatabaseDSN                *string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                  *string         `json:"secret_key" yaml:"secret_key"`
	AdminTokenValidityDuration *timex.Duration `json:"admin_token_validity_duration" yaml:"admin_token_validity_duration"`
	VerifyCacheSize            *int            `json:"verify_cache_size" yaml:"verify_cache_size"`
	RecentBlocksLimit          *int            `json:"recent_blocks_limit" yaml:"recent_blocks_limit"`
	S3RootUser                 *string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword             *string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                   *string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                   *string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint             *string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	Debug                      *bool           `json:"debug" yaml:"debug"`
}

// parseFile reads path as YAML when it ends in .yaml or .yml and as JSON
// otherwise, then copies every key present into cfg.
func parseFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &fileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, fc)
	default:
		err = json.Unmarshal(b, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *fileConfig) apply(cfg *Config) {
	setString(&cfg.EndpointAddrGRPC, fc.EndpointAddrGRPC)
	setString(&cfg.MetricsAddr, fc.MetricsAddr)
	setString(&cfg.DatabaseDriver, fc.DatabaseDriver)
	setString(&cfg.DatabaseDSN, fc.DatabaseDSN)
	setString(&cfg.SecretKey, fc.SecretKey)
	if fc.AdminTokenValidityDuration != nil {
		cfg.AdminTokenValidityDuration = fc.AdminTokenValidityDuration.Duration
	}
	if fc.VerifyCacheSize != nil {
		cfg.VerifyCacheSize = *fc.VerifyCacheSize
	}
	if fc.RecentBlocksLimit != nil {
		cfg.RecentBlocksLimit = *fc.RecentBlocksLimit
	}
	setString(&cfg.S3RootUser, fc.S3RootUser)
	setString(&cfg.S3RootPassword, fc.S3RootPassword)
	setString(&cfg.S3Bucket, fc.S3Bucket)
	setString(&cfg.S3Region, fc.S3Region)
	setString(&cfg.S3BaseEndpoint, fc.S3BaseEndpoint)
	if fc.Debug != nil {
		cfg.Debug = *fc.Debug
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
