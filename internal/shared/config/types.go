package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Mode     string `mapstructure:"mode"`
	Timezone string `mapstructure:"timezone"`
	// NodeID seeds certificate serial generation; unique per running instance.
	NodeID int64 `mapstructure:"node_id"`
}

// IsDebug reports whether the process runs in debug mode.
func (s *ServerConfig) IsDebug() bool {
	return s.Mode == "debug" || s.Mode == "development"
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Path            string `mapstructure:"path"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level           string `mapstructure:"level"`
	Format          string `mapstructure:"format"`
	OutputPath      string `mapstructure:"output_path"`
	SourceAllLevels bool   `mapstructure:"source_all_levels"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// PKIConfig locates the signing CA. When both paths are empty an ephemeral CA
// is generated at startup, which is only suitable for development.
type PKIConfig struct {
	CACertPath    string `mapstructure:"ca_cert_path"`
	CAKeyPath     string `mapstructure:"ca_key_path"`
	KeyCurve      string `mapstructure:"key_curve"`
	CAValidityDay int    `mapstructure:"ca_validity_days"`
	CRLValidity   int    `mapstructure:"crl_validity_hours"`
}

// CRLValidityDuration returns how long a generated revocation list stays fresh.
func (p *PKIConfig) CRLValidityDuration() time.Duration {
	if p.CRLValidity <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(p.CRLValidity) * time.Hour
}

type ReconcilerConfig struct {
	RetryAttempts     uint          `mapstructure:"retry_attempts"`
	RetryInitial      time.Duration `mapstructure:"retry_initial"`
	RetryMax          time.Duration `mapstructure:"retry_max"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
	ExpiryInterval    time.Duration `mapstructure:"expiry_interval"`
	OwnerConcurrency  int           `mapstructure:"owner_concurrency"`
}

type SubscriptionConfig struct {
	// DefaultTermDays applies when a subscription is created without an end date.
	DefaultTermDays int `mapstructure:"default_term_days"`
}

// DefaultTerm returns the default subscription length.
func (s *SubscriptionConfig) DefaultTerm() time.Duration {
	if s.DefaultTermDays <= 0 {
		return 365 * 24 * time.Hour
	}
	return time.Duration(s.DefaultTermDays) * 24 * time.Hour
}
