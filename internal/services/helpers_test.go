package services

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testplan-ai/backend/internal/config"
	"github.com/testplan-ai/backend/internal/models"
	"github.com/testplan-ai/backend/internal/utils"
	"gorm.io/gorm"
)

var (
	codecOnce sync.Once
	codec     *utils.SecretCodec
)

// testCodec shares one codec across tests; key derivation is slow.
func testCodec(t *testing.T) *utils.SecretCodec {
	t.Helper()
	codecOnce.Do(func() {
		c, err := utils.NewSecretCodec("test-passphrase")
		if err != nil {
			panic(err)
		}
		codec = c
	})
	return codec
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := models.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type testEnv struct {
	db        *gorm.DB
	settings  *SettingService
	configs   *IntegrationConfigService
	tickets   *TicketCacheService
	templates *TemplateService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	settings := NewSettingService(db)
	return &testEnv{
		db:        db,
		settings:  settings,
		configs:   NewIntegrationConfigService(settings, testCodec(t)),
		tickets:   NewTicketCacheService(db),
		templates: NewTemplateService(db, t.TempDir(), 5<<20),
	}
}

func (e *testEnv) seedSecret(t *testing.T, key, plaintext string) {
	t.Helper()
	token, err := testCodec(t).Encrypt(plaintext)
	require.NoError(t, err)
	require.NoError(t, e.settings.Upsert(key, token))
}

// fakeTimer fires immediately and records every requested wait.
type fakeTimer struct {
	mu     sync.Mutex
	delays []time.Duration
	c      chan time.Time
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{c: make(chan time.Time, 1)}
}

func (f *fakeTimer) Start(d time.Duration) {
	f.mu.Lock()
	f.delays = append(f.delays, d)
	f.mu.Unlock()
	f.c <- time.Now()
}

func (f *fakeTimer) Stop() {}

func (f *fakeTimer) C() <-chan time.Time { return f.c }

func (f *fakeTimer) Delays() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.delays...)
}
