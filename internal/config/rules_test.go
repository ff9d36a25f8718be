package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/faceguard/core/internal/config"
	"github.com/faceguard/core/internal/ruleconfig"
)

func TestSeedRules_MissingFileIsNotAnError(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := ruleconfig.NewStore(db, make([]byte, 32))

	if err := config.SeedRules(context.Background(), store, "/nonexistent/rules.yaml"); err != nil {
		t.Errorf("expected no error for missing seed file, got %v", err)
	}
}

func TestSeedRules_InsertsRulesAndChannels(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := ruleconfig.NewStore(db, make([]byte, 32))

	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	yamlDoc := `
rules:
  - name: after-hours-watchlist
    priority: high
    person_ids: ["p-1"]
    cooldown_minutes: 15
    notification_channels: ["ch-1"]
    is_active: true
channels:
  - name: security-email
    type: email
    rate_limit_per_min: 10
    is_active: true
    email:
      host: smtp.example.com
      port: 587
      from: alerts@example.com
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}

	mock.ExpectExec("INSERT INTO alert_rules").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO notification_channels").WillReturnResult(sqlmock.NewResult(1, 1))

	if err := config.SeedRules(context.Background(), store, path); err != nil {
		t.Fatalf("SeedRules failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
