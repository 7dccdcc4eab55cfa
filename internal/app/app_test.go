package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s1037989/stripepayment/internal/config"
	"github.com/s1037989/stripepayment/internal/provider/mock"
)

func mockedConfig() *config.Config {
	return &config.Config{
		Environment:    "test",
		LogLevel:       "error",
		HTTPPort:       0,
		Secret:         "sk_test_app",
		PubKey:         "pk_test_app",
		BaseURL:        config.DefaultBaseURL,
		CurrencyCode:   "USD",
		AutoCapture:    true,
		Mocked:         true,
		Timeout:        5 * time.Second,
		IdempotencyTTL: time.Hour,
		OTelSampleRate: 1.0,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewApp_MockedWithoutStores(t *testing.T) {
	a, err := NewApp(mockedConfig(), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })

	assert.Nil(t, a.pool)
	assert.Nil(t, a.redis)
	assert.Nil(t, a.producer)
	require.NotNil(t, a.client.Mock())

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var ready struct {
		Status string                    `json:"status"`
		Checks map[string]map[string]any `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	assert.Equal(t, "up", ready.Status)
	assert.Contains(t, ready.Checks, "stripe")
}

func TestNewApp_CheckoutEndToEnd(t *testing.T) {
	a, err := NewApp(mockedConfig(), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })

	// The mock hands back the same charge id every time, so later checkouts
	// land on the record the first one stored.
	for _, key := range []string{"app-e2e-1", "app-e2e-2", "app-e2e-3"} {
		body := []byte(`{"amount":1250,"source":"tok_visa","receipt_email":"a@example.com"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", key)
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, "%s: %s", key, rec.Body.String())

		var out struct {
			Data struct {
				Record struct {
					ChargeID string `json:"charge_id"`
					Status   string `json:"status"`
					Amount   int64  `json:"amount"`
					Livemode bool   `json:"livemode"`
				} `json:"record"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Equal(t, mock.FixtureID, out.Data.Record.ChargeID, key)
		assert.Equal(t, "captured", out.Data.Record.Status, key)
		assert.Equal(t, int64(1250), out.Data.Record.Amount, key)
		assert.False(t, out.Data.Record.Livemode, key)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	a, err := NewApp(mockedConfig(), testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
