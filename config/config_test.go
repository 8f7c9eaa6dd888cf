package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	var c AppConfig
	applyDefaults(&c)

	if c.AppPort != "8080" || c.DBDriver != "mysql" || c.DBPort != "3306" {
		t.Errorf("app/db defaults = %q %q %q", c.AppPort, c.DBDriver, c.DBPort)
	}
	if c.StorageDriver != "local" || c.MaxUploadMB != 20 || c.SnapshotTimeoutSec != 60 {
		t.Errorf("storage defaults = %q %d %d", c.StorageDriver, c.MaxUploadMB, c.SnapshotTimeoutSec)
	}
	if !reflect.DeepEqual(c.AllowedOrigins, []string{"*"}) {
		t.Errorf("origins = %v", c.AllowedOrigins)
	}

	pg := AppConfig{DBDriver: "postgres"}
	applyDefaults(&pg)
	if pg.DBPort != "5432" {
		t.Errorf("postgres port = %q, want 5432", pg.DBPort)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("STORAGE_DRIVER", "FTP")
	t.Setenv("FTP_PORT", "2121")
	t.Setenv("ADMIN_USERNAMES", " root , ops ,")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("VIEW_RATE_LIMIT_PER_MINUTE", "30")

	c := AppConfig{MetricsEnabled: true}
	applyDefaults(&c)
	applyEnvOverrides(&c)

	if c.DBDriver != "postgres" || c.StorageDriver != "ftp" {
		t.Errorf("drivers = %q %q, want lowercased", c.DBDriver, c.StorageDriver)
	}
	if c.FTPPort != 2121 || c.ViewRateLimitPerMinute != 30 {
		t.Errorf("ints = %d %d", c.FTPPort, c.ViewRateLimitPerMinute)
	}
	if !reflect.DeepEqual(c.AdminUsernames, []string{"root", "ops"}) {
		t.Errorf("admins = %q", c.AdminUsernames)
	}
	if c.MetricsEnabled {
		t.Error("METRICS_ENABLED=false did not disable metrics")
	}
}

func TestLoadJSONConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"app": {"AppPort": "9000", "MetricsEnabled": false, "AllowedOrigins": ["https://homenest.example"]},
		"storage": {"Driver": "ftp", "MaxUploadMB": 50},
		"admin": {"Usernames": ["root"]}
	}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	c := AppConfig{MetricsEnabled: true}
	if err := loadJSONConfig(path, &c); err != nil {
		t.Fatal(err)
	}
	if c.AppPort != "9000" || c.StorageDriver != "ftp" || c.MaxUploadMB != 50 {
		t.Errorf("loaded = %q %q %d", c.AppPort, c.StorageDriver, c.MaxUploadMB)
	}
	if c.MetricsEnabled {
		t.Error("explicit MetricsEnabled=false ignored")
	}
	if !reflect.DeepEqual(c.AllowedOrigins, []string{"https://homenest.example"}) {
		t.Errorf("origins = %v", c.AllowedOrigins)
	}
}

func TestLoadJSONConfigMissingFile(t *testing.T) {
	var c AppConfig
	if err := loadJSONConfig(filepath.Join(t.TempDir(), "nope.json"), &c); err != nil {
		t.Errorf("missing file: %v, want nil", err)
	}
}

func TestSplitAndTrim(t *testing.T) {
	if got := splitAndTrim(" a, ,b ,"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("splitAndTrim = %q", got)
	}
}
