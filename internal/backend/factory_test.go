package backend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"moneytracker/internal/amqp"
	"moneytracker/internal/config"
	"moneytracker/internal/core"
	"moneytracker/internal/log"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil), Component: "test"})
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:            "sqlite",
		SQLiteDBPath:           "/tmp/x.db",
		AMQPURL:                "amqp://localhost",
		AMQPExchange:           "ex",
		AMQPChangesQueue:       "changes",
		AMQPNotificationsQueue: "notes",
	}
	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if got.Type != SQLiteBackend || got.AMQP.ChangesQueue != "changes" || got.AMQP.NotificationsQueue != "notes" {
		t.Fatalf("unexpected config: %+v", got)
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("nil config must fail")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("unknown backend must fail")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown", Config{Type: "sheets"}, true},
		{"amqp without queues", Config{Type: MemoryBackend, AMQP: amqp.Config{URL: "amqp://localhost"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
	if got := GetBackendTypeStrings(); len(got) != 2 || got[0] != "sqlite" {
		t.Errorf("GetBackendTypeStrings() = %v", got)
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	f := NewFactory(testLogger())
	ctx := context.Background()
	res, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "data", "m.db")})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Cleanup()

	if res.AMQP != nil || res.Publisher() != nil {
		t.Fatal("no broker configured, publisher must be nil")
	}
	if _, err := res.Backend.ListTransactions(ctx, nil); err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
}

func TestCreateMemoryBackendWithSeed(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "seed.txt")
	content := "EXPENSE|12.50|Food|lunch|2025-03-01\nINCOME|1000|Salary||2025-03-02\n"
	if err := os.WriteFile(seed, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	f := NewFactory(testLogger())
	res, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend, MemorySeedPath: seed})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Cleanup()

	income := core.Income
	txs, err := res.Backend.ListTransactions(context.Background(), &income)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 1 || txs[0].Amount.Cents != 100000 {
		t.Fatalf("unexpected seed rows: %+v", txs)
	}
}

func TestCreateBackendContinuesWithoutBroker(t *testing.T) {
	f := NewFactory(testLogger())
	f.dialAMQP = func(amqp.Config, *log.Logger) (*amqp.Client, error) {
		return nil, errors.New("connection refused")
	}
	res, err := f.CreateBackend(context.Background(), Config{
		Type: MemoryBackend,
		AMQP: amqp.Config{URL: "amqp://localhost", Exchange: "ex", ChangesQueue: "c", NotificationsQueue: "n"},
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if res.AMQP != nil || res.Publisher() != nil {
		t.Fatal("failed dial must leave AMQP disabled")
	}
	if err := res.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
}
