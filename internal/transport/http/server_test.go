package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/agents"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/config"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/gateway"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/service"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/session"
	"github.com/mr-gyb/1.9-Updated-Backend/tests/helpers"
)

func TestServerRoutes(t *testing.T) {
	store := helpers.NewTestSQLiteStore(t)
	catalog := agents.NewCatalog()
	sessions := session.NewManager(gateway.New(store), session.Options{Agents: catalog})
	t.Cleanup(sessions.Close)
	e := NewServer(service.New(store, catalog, sessions, &config.Config{}), nil)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sessions/u1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"READY"`)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/nobody", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
