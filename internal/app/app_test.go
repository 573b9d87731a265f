package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/expense-tracker/internal/config"
	"gitlab.com/yelinaung/expense-tracker/internal/identity"
	"gitlab.com/yelinaung/expense-tracker/internal/ledger"
)

func testConfig(driver, sqlitePath string) *config.Config {
	return &config.Config{
		ListenAddr:         ":0",
		StoreDriver:        driver,
		SQLitePath:         sqlitePath,
		APISecret:          "secret",
		AuthMode:           config.AuthModeToken,
		AnonymousOwner:     "guest",
		SessionTTL:         time.Hour,
		BcryptCost:         4,
		RateLimitPerMinute: 100,
		ReportCacheSize:    8,
		ReportCacheTTL:     time.Minute,
		OTelExporter:       config.ExporterNone,
	}
}

func TestNew_Memory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	a, err := New(ctx, testConfig(config.StoreMemory, ""))
	require.NoError(t, err)
	defer a.Close()

	require.Nil(t, a.Suggester)
	require.NoError(t, a.Stores.Ping(ctx))

	rec := httptest.NewRecorder()
	a.Server().Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNew_SQLitePersistsAcrossRestarts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := testConfig(config.StoreSQLite, filepath.Join(t.TempDir(), "expenses.db"))

	a, err := New(ctx, cfg)
	require.NoError(t, err)

	_, err = a.Identity.Register(ctx, identity.RegisterInput{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	cats, err := a.Categories.ListForOwner(ctx, "alice")
	require.NoError(t, err)
	_, err = a.Ledger.Add(ctx, "alice", ledger.AddInput{Label: "Tea", Amount: 3, Category: "Food", Date: "2024-01-10"})
	require.NoError(t, err)
	a.Close()

	b, err := New(ctx, cfg)
	require.NoError(t, err)
	defer b.Close()

	_, err = b.Identity.Login(ctx, "ALICE", "secret1")
	require.NoError(t, err)
	again, err := b.Categories.ListForOwner(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, cats, again)
	require.Len(t, b.Ledger.ListForOwner("alice"), 1)
}

func TestOpenStores_UnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := OpenStores(context.Background(), StoreOptions{Driver: "mongo"})
	require.Error(t, err)
}
