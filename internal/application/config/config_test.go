package config

import (
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if cfg.PersistenceBackend != BackendMemory || cfg.StateBackend != BackendMemory {
		t.Errorf("backends = %s/%s", cfg.PersistenceBackend, cfg.StateBackend)
	}

	if cfg.Kafka.Enabled() || cfg.Kafka.Topic != "meeting-events" {
		t.Errorf("kafka = %+v", cfg.Kafka)
	}

	if cfg.Realtime.PingInterval != 30*time.Second || cfg.Realtime.SendBuffer != 256 {
		t.Errorf("realtime = %+v", cfg.Realtime)
	}

	if cfg.Network.MaxAttempts != 10 || cfg.Network.BackoffMultiplier != 1.5 || cfg.Network.MaxDelay != time.Minute {
		t.Errorf("network = %+v", cfg.Network)
	}

	if !cfg.RateLimit.Enabled || cfg.RateLimit.Create != 10 {
		t.Errorf("rate limit = %+v", cfg.RateLimit)
	}

	if len(cfg.Turn.ICEServers()) != 0 || cfg.Turn.Enabled() {
		t.Errorf("turn must be disabled by default")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:    "missing secret",
			env:     map[string]string{"JWT_SECRET": ""},
			wantErr: true,
		},
		{
			name:    "unknown state backend",
			env:     map[string]string{"STATE_BACKEND": "etcd"},
			wantErr: true,
		},
		{
			name:    "multiplier below one",
			env:     map[string]string{"NETWORK_BACKOFF_MULTIPLIER": "0.5"},
			wantErr: true,
		},
		{
			name: "kafka brokers",
			env:  map[string]string{"KAFKA_BROKERS": "k1:9092,k2:9092"},
			check: func(t *testing.T, cfg *Config) {
				if !cfg.Kafka.Enabled() || len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
					t.Errorf("brokers = %v", cfg.Kafka.Brokers)
				}
			},
		},
		{
			name: "turn servers",
			env:  map[string]string{"TURN_HOST": "turn.example.com:3478", "TURN_SECRET": "s"},
			check: func(t *testing.T, cfg *Config) {
				servers := cfg.Turn.ICEServers()
				if len(servers) != 2 || servers[0].URLs[0] != "turn:turn.example.com:3478?transport=udp" {
					t.Errorf("ice servers = %+v", servers)
				}
			},
		},
		{
			name: "postgres url wins",
			env:  map[string]string{"PERSISTENCE_BACKEND": "postgres", "POSTGRES_URL": "postgres://u@db/meet"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Postgres.DSN() != "postgres://u@db/meet" {
					t.Errorf("dsn = %s", cfg.Postgres.DSN())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "secret")

			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := New()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}

				return
			}

			if err != nil {
				t.Fatalf("New: %v", err)
			}

			tt.check(t, cfg)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "meet", SSL: "disable"}

	if got := p.DSN(); got != "postgresql://u:p@db:5433/meet?sslmode=disable" {
		t.Fatalf("dsn = %s", got)
	}
}
