package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nurpe/landuse-contracts/internal/config"
	"github.com/nurpe/landuse-contracts/internal/db"
)

// SQLite returns a migrated in-memory database private to the test.
func SQLite(tb testing.TB) *gorm.DB {
	tb.Helper()
	name := strings.ReplaceAll(uuid.NewString(), "-", "")
	database, err := db.Open(config.DBConfig{
		Driver: config.DriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	}, zerolog.Nop())
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close(database) })

	if err := db.Migrate(context.Background(), database); err != nil {
		tb.Fatalf("migrate sqlite: %v", err)
	}
	return database
}

var (
	pgOnce sync.Once
	pgDB   *gorm.DB
	pgErr  error
)

// Postgres returns the shared database named by TEST_POSTGRES_DSN and skips
// the test when it is unset. Tables are truncated before returning.
func Postgres(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		tb.Skip("set TEST_POSTGRES_DSN to run postgres integration tests")
	}
	pgOnce.Do(func() {
		pgDB, pgErr = db.Open(config.DBConfig{
			Driver:       config.DriverPostgres,
			DSN:          dsn,
			MaxOpenConns: 32,
		}, zerolog.Nop())
		if pgErr != nil {
			return
		}
		pgErr = db.Migrate(context.Background(), pgDB)
	})
	if pgErr != nil {
		tb.Fatalf("init postgres: %v", pgErr)
	}
	if err := pgDB.Exec(`TRUNCATE history_entries, liquidation_records, contracts, yearly_sequence_counters`).Error; err != nil {
		tb.Fatalf("truncate: %v", err)
	}
	return pgDB
}

// Clock hands out strictly increasing instants starting at a fixed time.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start, step: time.Second}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

// Set jumps the clock, for example across a year boundary.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
