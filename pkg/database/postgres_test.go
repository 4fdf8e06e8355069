package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/wonny/ecfr-scorecard/pkg/config"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	// Skip if DATABASE_URL is not set
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	db, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(db.Close)

	return db
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}

	if !status.Healthy {
		t.Error("Expected database to be healthy")
	}

	if status.Stats.MaxConns == 0 {
		t.Error("Expected MaxConns to be greater than 0")
	}
}

func TestTryAdvisoryLock(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	const key = 774411

	release, acquired, err := db.TryAdvisoryLock(ctx, key)
	if err != nil {
		t.Fatalf("TryAdvisoryLock failed: %v", err)
	}
	if !acquired {
		t.Fatal("Expected first lock attempt to succeed")
	}

	_, second, err := db.TryAdvisoryLock(ctx, key)
	if err != nil {
		t.Fatalf("second TryAdvisoryLock failed: %v", err)
	}
	if second {
		t.Error("Expected second lock attempt to be refused while held")
	}

	release()

	releaseAgain, third, err := db.TryAdvisoryLock(ctx, key)
	if err != nil {
		t.Fatalf("third TryAdvisoryLock failed: %v", err)
	}
	if !third {
		t.Error("Expected lock to be available after release")
	}
	releaseAgain()
}

func TestNewWithInvalidURL(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			URL:             "invalid://url",
			MaxConns:        5,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
	}

	_, err := New(cfg)
	if err == nil {
		t.Error("Expected error with invalid database URL, got nil")
	}
}

func TestClose(t *testing.T) {
	db := &DB{}

	// Close on an unopened DB should not panic
	db.Close()
}
