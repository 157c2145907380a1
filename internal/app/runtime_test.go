package app

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/tradedesk/internal/simulator"
	"github.com/rovshanmuradov/tradedesk/internal/trading"
)

func writeConfig(t *testing.T, apiURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf("api_url: %s\ntoken_file: %s\nrequest_timeout_ms: 3000\nlog_file: %s\n",
		apiURL, filepath.Join(dir, "token"), filepath.Join(dir, "tradedesk.log"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestRuntimeRestoresPersistedSession(t *testing.T) {
	ledger := simulator.NewLedger(simulator.Options{
		StartingCash: decimal.RequireFromString("10000.00"),
		Prices:       map[string]decimal.Decimal{"AAPL": decimal.RequireFromString("185.92")},
	})
	_, err := ledger.Register("Alice", "alice", "alice@example.com", "pw")
	require.NoError(t, err)
	srv := httptest.NewServer(simulator.NewRouter(ledger, zap.NewNop()))
	defer srv.Close()

	path := writeConfig(t, srv.URL)
	ctx := context.Background()

	rt, err := New(Options{ConfigPath: path, Buffered: true})
	require.NoError(t, err)
	assert.False(t, rt.Restore(ctx), "no session persisted yet")

	_, err = rt.Sync.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	require.NoError(t, rt.Close())
	require.NoError(t, rt.Close(), "closing twice is harmless")

	rt2, err := New(Options{ConfigPath: path, Buffered: true, Debug: true})
	require.NoError(t, err)
	defer rt2.Close()

	assert.True(t, rt2.Restore(ctx))
	assert.Equal(t, trading.Authenticated, rt2.Sync.State())
	assert.Equal(t, "alice", rt2.Sync.Profile().Username)
	assert.NotEmpty(t, rt2.LogBuffer.GetRecentLogs(0), "logs go to the buffer")
}

func TestRuntimeAPIURLOverride(t *testing.T) {
	path := writeConfig(t, "http://127.0.0.1:1")
	rt, err := New(Options{ConfigPath: path, APIURL: "http://127.0.0.1:2", Debug: true})
	require.NoError(t, err)
	defer rt.Close()

	assert.Equal(t, "http://127.0.0.1:2", rt.Client.BaseURL())
	assert.Nil(t, rt.LogBuffer)
}

func TestShutdownHandlerOrder(t *testing.T) {
	sh := NewShutdownHandler(zap.NewNop(), time.Second)

	var order []string
	sh.AddFunc("first", func() error { order = append(order, "first"); return nil })
	sh.AddFunc("second", func() error { order = append(order, "second"); return errors.New("boom") })
	sh.Add("third", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok, "steps run under the shutdown timeout")
		order = append(order, "third")
		return nil
	})

	err := sh.Shutdown(context.Background())
	assert.EqualError(t, err, "second: boom")
	assert.Equal(t, []string{"third", "second", "first"}, order)

	assert.NoError(t, sh.Shutdown(context.Background()))
	assert.Len(t, order, 3)
}
