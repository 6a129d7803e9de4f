package config

import (
	"os"
	"testing"
	"time"
)

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Database.DBName != "ride_hailing" {
		t.Errorf("expected db name ride_hailing, got %s", cfg.Database.DBName)
	}
	if cfg.RabbitMQ.Exchange != "ride_events" {
		t.Errorf("expected exchange ride_events, got %s", cfg.RabbitMQ.Exchange)
	}
	if cfg.Matching.PoolSize != 50 {
		t.Errorf("expected pool size 50, got %d", cfg.Matching.PoolSize)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("expected token TTL 24h, got %v", cfg.Auth.TokenTTL)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("RABBITMQ_ENABLED", "true")
	t.Setenv("MATCHING_POOL_SIZE", "20")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("expected db host db.internal, got %s", cfg.Database.Host)
	}
	if cfg.Redis.DB != 3 {
		t.Errorf("expected redis db 3, got %d", cfg.Redis.DB)
	}
	if !cfg.RabbitMQ.Enabled {
		t.Error("expected rabbitmq enabled")
	}
	if cfg.Matching.PoolSize != 20 {
		t.Errorf("expected pool size 20, got %d", cfg.Matching.PoolSize)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected allowed origins: %v", cfg.Server.AllowedOrigins)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "missing secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: true},
		{name: "new relic without key", mutate: func(c *Config) { c.NewRelic.Enabled = true }, wantErr: true},
		{name: "non-positive pool size", mutate: func(c *Config) { c.Matching.PoolSize = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Auth:     AuthConfig{JWTSecret: "secret"},
				Matching: MatchingConfig{PoolSize: 10},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDatabaseConfig_URL(t *testing.T) {
	c := DatabaseConfig{Host: "h", Port: "5432", User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	want := "postgres://u:p@h:5432/d?sslmode=disable"
	if got := c.URL(); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
