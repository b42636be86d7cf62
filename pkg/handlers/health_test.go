package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cardfolio-inc/cardfolio-engine/pkg/config"
)

func TestHealthEndpoints(t *testing.T) {
	cfg := &config.Config{Env: "test", Version: "1.2.3"}
	h := NewHealthHandler(cfg, zap.NewNop())

	t.Run("health returns ok", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())
	})

	t.Run("ping returns service info", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Ping(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

		require.Equal(t, http.StatusOK, w.Code)

		var resp PingResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "1.2.3", resp.Version)
		assert.Equal(t, "cardfolio-engine", resp.Service)
		assert.Equal(t, "test", resp.Environment)
	})
}
