package config

import "testing"

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{
		HTTP:   HTTPConfig{Port: 0},
		Source: SourceConfig{Path: "data/booking.db"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingSourcePath(t *testing.T) {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing source path")
	}
}

func TestValidate_PageSizeBounds(t *testing.T) {
	cfg := Config{
		HTTP:   HTTPConfig{Port: 8080},
		Source: SourceConfig{Path: "data/booking.db"},
		Index:  IndexConfig{DefaultPageSize: 200, MaxPageSize: 100},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error when default page size exceeds the maximum")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 10 {
		t.Errorf("expected WriteTimeoutSec=10, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Index.Path != "data/stayindex.db" {
		t.Errorf("expected Path='data/stayindex.db', got %q", cfg.Index.Path)
	}
	if cfg.Index.QueueCapacity != 2000 {
		t.Errorf("expected QueueCapacity=2000, got %d", cfg.Index.QueueCapacity)
	}
	if cfg.Index.CacheTTLSec != 300 {
		t.Errorf("expected CacheTTLSec=300, got %d", cfg.Index.CacheTTLSec)
	}
	if cfg.Index.DefaultPageSize != 20 {
		t.Errorf("expected DefaultPageSize=20, got %d", cfg.Index.DefaultPageSize)
	}
	if cfg.Index.MaxPageSize != 100 {
		t.Errorf("expected MaxPageSize=100, got %d", cfg.Index.MaxPageSize)
	}
	if cfg.Maintenance.StartupDelaySec != 600 {
		t.Errorf("expected StartupDelaySec=600, got %d", cfg.Maintenance.StartupDelaySec)
	}
	if cfg.Maintenance.IntervalSec != 21600 {
		t.Errorf("expected IntervalSec=21600, got %d", cfg.Maintenance.IntervalSec)
	}
	if cfg.Maintenance.RetentionDays != 90 {
		t.Errorf("expected RetentionDays=90, got %d", cfg.Maintenance.RetentionDays)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:        HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Index:       IndexConfig{Path: "custom.db", QueueCapacity: 500, CacheTTLSec: 60, DefaultPageSize: 50, MaxPageSize: 500},
		Maintenance: MaintenanceConfig{StartupDelaySec: 5, IntervalSec: 3600, RetentionDays: 30},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Index.Path != "custom.db" {
		t.Errorf("expected Path='custom.db', got %q", cfg.Index.Path)
	}
	if cfg.Index.QueueCapacity != 500 {
		t.Errorf("expected QueueCapacity=500, got %d", cfg.Index.QueueCapacity)
	}
	if cfg.Maintenance.RetentionDays != 30 {
		t.Errorf("expected RetentionDays=30, got %d", cfg.Maintenance.RetentionDays)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("STAYINDEX_TEST_PORT", "9090")

	data := expandEnvVars([]byte("port: ${STAYINDEX_TEST_PORT}\npath: ${STAYINDEX_TEST_PATH:-data/index.db}"))
	got := string(data)
	want := "port: 9090\npath: data/index.db"
	if got != want {
		t.Errorf("expandEnvVars:\ngot:  %q\nwant: %q", got, want)
	}
}
