package config

import (
	"os"
	"path/filepath"
	"testing"

	"fairway/internal/models"
)

func TestLoadConfig(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
database:
  path: "test.db"
facility:
  name: "Downtown Golf Club"
  timezone: "America/New_York"
  max_concurrent_bookings: 2
  business_hours:
    monday:
      open: "09:00"
      close: "21:00"
      is_open: true
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Facility.Timezone != "America/New_York" {
		t.Errorf("expected timezone America/New_York, got %s", cfg.Facility.Timezone)
	}
	if cfg.Facility.MaxConcurrentBookings != 2 {
		t.Errorf("expected max_concurrent_bookings 2, got %d", cfg.Facility.MaxConcurrentBookings)
	}
	if !cfg.Facility.BusinessHours.Monday.IsOpen {
		t.Errorf("expected monday to be open")
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("FAIRWAY_DB_PATH", "env.db")

	yamlContent := `
database:
  path: "${FAIRWAY_DB_PATH}"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Database.Path != "env.db" {
		t.Errorf("expected env.db, got %s", cfg.Database.Path)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Facility: FacilityConfig{Timezone: "UTC"},
			},
			wantErr: false,
		},
		{
			name: "missing database path",
			cfg: Config{
				Facility: FacilityConfig{Timezone: "UTC"},
			},
			wantErr: true,
		},
		{
			name: "bad timezone",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Facility: FacilityConfig{Timezone: "Mars/Olympus"},
			},
			wantErr: true,
		},
		{
			name: "negative concurrency cap",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Facility: FacilityConfig{Timezone: "UTC", MaxConcurrentBookings: -1},
			},
			wantErr: true,
		},
		{
			name: "open after close",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Facility: FacilityConfig{
					Timezone: "UTC",
					BusinessHours: models.BusinessHours{
						Friday: models.DayHours{Open: "22:00", Close: "09:00", IsOpen: true},
					},
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateBays(t *testing.T) {
	err := ValidateBays([]models.Bay{
		{ID: 1, Name: "Bay 1"},
		{ID: 1, Name: "Bay 2"},
	})
	if err == nil {
		t.Errorf("expected duplicate bay ID error")
	}

	err = ValidateBays([]models.Bay{{ID: 0, Name: "Bay 0"}})
	if err == nil {
		t.Errorf("expected invalid bay ID error")
	}

	err = ValidateBays([]models.Bay{{ID: 1, Name: "Bay 1"}, {ID: 2, Name: "Bay 2"}})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.API.HTTP.Port != 8080 {
		t.Errorf("expected default HTTP port 8080, got %d", cfg.API.HTTP.Port)
	}
	if cfg.Facility.Timezone != "UTC" {
		t.Errorf("expected default timezone UTC, got %s", cfg.Facility.Timezone)
	}
	if cfg.Facility.DefaultBookingMinutes != models.DefaultBookingMinutes {
		t.Errorf("expected default booking minutes %d, got %d", models.DefaultBookingMinutes, cfg.Facility.DefaultBookingMinutes)
	}
	if cfg.Sweep.IntervalSeconds != models.DefaultSweepInterval {
		t.Errorf("expected default sweep interval %d, got %d", models.DefaultSweepInterval, cfg.Sweep.IntervalSeconds)
	}
	if cfg.API.Auth.HeaderAPIKey != "x-api-key" {
		t.Errorf("expected default api key header, got %s", cfg.API.Auth.HeaderAPIKey)
	}
}
