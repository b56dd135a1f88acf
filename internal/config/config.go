package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"fairway/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Facility   FacilityConfig   `yaml:"facility"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Sweep      SweepConfig      `yaml:"sweep"`
	Exports    ExportConfig     `yaml:"exports"`
	Google     GoogleConfig     `yaml:"google"`
}

// FacilityConfig describes the venue itself: where it lives on the clock,
// how long a default session runs and how many simultaneous bookings a
// single member may hold. MaxConcurrentBookings of zero means no cap.
type FacilityConfig struct {
	Name                  string               `yaml:"name"`
	Timezone              string               `yaml:"timezone"`
	DefaultBookingMinutes int                  `yaml:"default_booking_minutes"`
	MaxConcurrentBookings int                  `yaml:"max_concurrent_bookings"`
	BusinessHours         models.BusinessHours `yaml:"business_hours"`
}

type SweepConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalSeconds int  `yaml:"interval_seconds"`
}

func (s SweepConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool   `yaml:"prometheus_enabled"`
	PrometheusPort    int    `yaml:"prometheus_port"`
	HealthCheckPort   int    `yaml:"health_check_port"`
	LogLevel          string `yaml:"log_level"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type GoogleConfig struct {
	GoogleCredentialsFile string `yaml:"credentials_file"`
	BookingSpreadSheetID  string `yaml:"bookings_spreadsheet_id"`
	AuditSpreadSheetID    string `yaml:"audit_spreadsheet_id"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; environment variables may come from the deployment
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Expand ${VAR} references before unmarshalling
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if _, err := time.LoadLocation(c.Facility.Timezone); err != nil {
		return fmt.Errorf("facility timezone %q: %w", c.Facility.Timezone, err)
	}

	if c.Facility.MaxConcurrentBookings < 0 {
		return errors.New("facility max_concurrent_bookings must not be negative")
	}

	return c.Facility.BusinessHours.Validate()
}

// ValidateBays checks a bay seed list before it is handed to the store.
func ValidateBays(bays []models.Bay) error {
	bayIDs := make(map[int64]bool)
	for _, bay := range bays {
		if bay.ID == 0 {
			return fmt.Errorf("bay '%s' has invalid ID 0", bay.Name)
		}
		if bayIDs[bay.ID] {
			return fmt.Errorf("duplicate bay ID found: %d", bay.ID)
		}
		bayIDs[bay.ID] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	// auth turns on automatically once keys are configured
	if len(c.API.Auth.APIKeys) > 0 {
		c.API.Auth.Enabled = true
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}

	if c.Facility.Timezone == "" {
		c.Facility.Timezone = "UTC"
	}
	if c.Facility.DefaultBookingMinutes == 0 {
		c.Facility.DefaultBookingMinutes = models.DefaultBookingMinutes
	}

	if c.Sweep.IntervalSeconds == 0 {
		c.Sweep.IntervalSeconds = models.DefaultSweepInterval
	}
}

// Location resolves the facility timezone. Validate has already ensured
// the name loads, so failures here fall back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Facility.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
