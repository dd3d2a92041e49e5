package config

import (
	"os"
	"path/filepath"
	"testing"
)

const minimalYAML = `environment: test
server:
  port: 8080
clickhouse:
  host: localhost
  port: 9000
  database: arena
predictors:
  timeout: 3s
  endpoints:
    - id: model-a
      url: http://localhost:9001
    - id: model-b
      url: http://localhost:9002
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMinimalConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Environment != "test" {
		t.Fatalf("environment = %q", cfg.Environment)
	}
	if len(cfg.Predictors.Endpoints) != 2 || cfg.Predictors.Endpoints[0].ID != "model-a" {
		t.Fatalf("endpoints = %+v", cfg.Predictors.Endpoints)
	}
}

func TestValidateRejectsMissingPredictors(t *testing.T) {
	body := `environment: test
clickhouse:
  host: localhost
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected error for empty predictor list")
	}
}

func TestValidateRejectsDuplicatePredictorIDs(t *testing.T) {
	body := `environment: test
clickhouse:
  host: localhost
predictors:
  endpoints:
    - id: model-a
      url: http://localhost:9001
    - id: model-a
      url: http://localhost:9002
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected error for duplicate predictor id")
	}
}

func TestValidateRequiresStreamKeyWhenEnabled(t *testing.T) {
	body := minimalYAML + `stream:
  enabled: true
  symbols: [BTCUSDT]
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected error for enabled stream without api key")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := LoadWithEnv(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Redis.Addr != "redis:6379" {
		t.Fatalf("redis addr = %q", cfg.Redis.Addr)
	}
}

func TestLoadWithEnvNumericOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("REDIS_DB", "3")

	cfg, err := LoadWithEnv(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("server port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Redis.DB != 3 {
		t.Fatalf("redis db = %d, want 3", cfg.Redis.DB)
	}

	// a garbled value falls back to the file's setting
	t.Setenv("SERVER_PORT", "not-a-port")
	cfg, err = LoadWithEnv(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("server port = %d, want 8080", cfg.Server.Port)
	}
}
