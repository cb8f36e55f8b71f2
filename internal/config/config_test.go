package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DBPath != "gigwire.db" {
		t.Errorf("DBPath = %q, want gigwire.db", cfg.DBPath)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("Listen = %q, want :8080", cfg.Listen)
	}
	if !cfg.EnableScheduler {
		t.Error("EnableScheduler should default to true")
	}
	if cfg.PublishInterval() != time.Hour {
		t.Errorf("PublishInterval = %v, want 1h", cfg.PublishInterval())
	}
	if cfg.MockIngestHour != 6 {
		t.Errorf("MockIngestHour = %d, want 6", cfg.MockIngestHour)
	}
	if cfg.PublishBatchSize != 500 {
		t.Errorf("PublishBatchSize = %d, want 500", cfg.PublishBatchSize)
	}
	if cfg.AllowRepublishCorrection {
		t.Error("AllowRepublishCorrection should default to false")
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("GIGWIRE_DB_PATH", "/var/lib/gigwire/data.db")
	t.Setenv("GIGWIRE_PUBLISH_INTERVAL", "5")
	t.Setenv("GIGWIRE_MOCK_INGEST_HOUR", "-1")
	t.Setenv("GIGWIRE_ENABLE_SCHEDULER", "false")
	t.Setenv("GIGWIRE_ALLOW_REPUBLISH_CORRECTION", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DBPath != "/var/lib/gigwire/data.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.PublishInterval() != 5*time.Minute {
		t.Errorf("PublishInterval = %v, want 5m", cfg.PublishInterval())
	}
	if cfg.MockIngestHour != -1 {
		t.Errorf("MockIngestHour = %d, want -1", cfg.MockIngestHour)
	}
	if cfg.EnableScheduler {
		t.Error("EnableScheduler should be false")
	}
	if !cfg.AllowRepublishCorrection {
		t.Error("AllowRepublishCorrection should be true")
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"zero interval", "GIGWIRE_PUBLISH_INTERVAL", "0"},
		{"hour too large", "GIGWIRE_MOCK_INGEST_HOUR", "24"},
		{"zero batch size", "GIGWIRE_PUBLISH_BATCH_SIZE", "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load accepted %s=%s", tc.key, tc.value)
			}
		})
	}
}
