package config

import "testing"

func TestLoadConfigRequiresPassword(t *testing.T) {
	t.Setenv("SQL_PASSWORD", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected an error when SQL_PASSWORD is unset")
	}
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	t.Setenv("SQL_PASSWORD", "secret")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("got port %d want 8080", cfg.Server.Port)
	}
	if cfg.API.RootPath != "/api/" {
		t.Errorf("got root path %q want /api/", cfg.API.RootPath)
	}
	if cfg.Database.Database != "accounting" {
		t.Errorf("got database %q want accounting", cfg.Database.Database)
	}
}

func TestLoadConfigOverridesFromEnv(t *testing.T) {
	t.Setenv("SQL_PASSWORD", "secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ROOT_PATH", "/v1/")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("got port %d want 9090", cfg.Server.Port)
	}
	if cfg.API.RootPath != "/v1/" {
		t.Errorf("got root path %q want /v1/", cfg.API.RootPath)
	}
}
