package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/mediagraph"
	"github.com/soundprediction/mediagraph/pkg/config"
	"github.com/soundprediction/mediagraph/pkg/driver"
	"github.com/soundprediction/mediagraph/pkg/types"
)

type stubSource struct{}

func (stubSource) Kind(_ context.Context, id string) (types.MediaKind, error) {
	return types.MovieKind, nil
}

func (stubSource) Fetch(_ context.Context, id string) (*types.Title, error) {
	return &types.Title{ImdbID: id, Kind: types.MovieKind, Title: "Stub " + id, Year: "1999"}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "localhost",
			Port: 8080,
			Mode: gin.TestMode,
		},
	}
}

func newTestServer(t *testing.T) (*Server, *driver.MemoryDriver) {
	t.Helper()
	d := driver.NewMemoryDriver()
	client, err := mediagraph.NewClient(d, stubSource{}, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	s := New(testConfig(), client, nil)
	s.Setup()
	return s, d
}

func TestSetup(t *testing.T) {
	s, _ := newTestServer(t)

	require.NotNil(t, s.router)
	require.NotNil(t, s.server)
	assert.Equal(t, "localhost:8080", s.server.Addr)
	assert.Equal(t, s.router, s.Handler())
}

func TestHealthRoutes(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/health", "/healthcheck", "/live", "/ready", "/health/detailed"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		})
	}
}

func TestIngestRouteWritesGraph(t *testing.T) {
	s, d := newTestServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/titles/tt0133093", nil))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 1, d.NodeCount(types.NodeRef{Label: types.MovieLabel, Name: "tt0133093"}))

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/titles/tt0133093", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"skipped_duplicate"`)
}

func TestUnknownRoute(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/stats", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestContextMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(contextMiddleware())
	var source any
	r.GET("/probe", func(c *gin.Context) {
		source = c.Request.Context().Value(types.ContextKeyRequestSource)
		c.Status(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/probe", nil))
	assert.Equal(t, "server", source)
}
