package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ConfigYAML(t *testing.T) {
	path := filepath.Join("..", "..", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Database.Host == "" && cfg.Database.URL == "" {
		t.Fatalf("expected database.host to be set")
	}
	if cfg.RabbitMQ.Port == 0 {
		t.Fatalf("expected rabbitmq.port to be set")
	}
	if cfg.Server.RequestTimeout != 10*time.Second {
		t.Fatalf("expected server.request_timeout 10s, got %v", cfg.Server.RequestTimeout)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("database:\n  host: db\n  database: cafe\n"))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("expected default port 4000, got %d", cfg.Server.Port)
	}
	if cfg.Orders.MaxLines != 50 || cfg.Orders.MaxQuantity != 100 {
		t.Errorf("unexpected order limits: %+v", cfg.Orders)
	}
	if cfg.Redis.PendingTTL != 20*time.Second || cfg.Redis.IdempotencyTTL != 24*time.Hour {
		t.Errorf("unexpected idempotency ttls: pending %v, record %v", cfg.Redis.PendingTTL, cfg.Redis.IdempotencyTTL)
	}
	if cfg.Orders.StrictStatusTransitions {
		t.Errorf("expected lenient status transitions by default")
	}
	if cfg.MessagingEnabled() {
		t.Errorf("expected messaging disabled without rabbitmq host")
	}
	if got := cfg.DatabaseURL(); got != "postgres://:@db:5432/cafe?sslmode=disable" {
		t.Errorf("unexpected database url %q", got)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg, err := Parse([]byte("database:\n  host: db\n  database: cafe\n"))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	env := map[string]string{
		"DB_HOST":     "pg.internal",
		"DB_PORT":     "6543",
		"DB_NAME":     "orders",
		"DB_PASSWORD": "secret",
		"PORT":        "8081",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		t.Fatalf("applyEnv returned error: %v", err)
	}

	if cfg.Database.Host != "pg.internal" || cfg.Database.Port != 6543 || cfg.Database.Database != "orders" {
		t.Errorf("env overrides not applied: %+v", cfg.Database)
	}
	if cfg.Server.Port != 8081 {
		t.Errorf("expected port 8081, got %d", cfg.Server.Port)
	}

	env["DB_PORT"] = "not-a-number"
	if err := cfg.applyEnv(lookup); err == nil {
		t.Errorf("expected error for invalid DB_PORT")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{name: "valid", yaml: "database:\n  host: db\n  database: cafe\n", wantErr: false},
		{name: "url only", yaml: "database:\n  url: postgres://u:p@h/db\n", wantErr: false},
		{name: "missing host", yaml: "database:\n  database: cafe\n", wantErr: true},
		{name: "missing database name", yaml: "database:\n  host: db\n", wantErr: true},
		{name: "bad port", yaml: "server:\n  port: 70000\ndatabase:\n  host: db\n  database: cafe\n", wantErr: true},
		{name: "min over max conns", yaml: "database:\n  host: db\n  database: cafe\n  max_conns: 2\n  min_conns: 3\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			if err != nil {
				t.Fatalf("Parse returned error: %v", err)
			}
			err = cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
