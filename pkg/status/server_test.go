package status

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePush struct {
	connected bool
}

func (f *fakePush) Connected() bool { return f.connected }

type fakeStorage struct {
	err error
}

func (f *fakeStorage) AuthToken() (string, error) { return "", f.err }

func do(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

// TestHealthz tests liveness: always 200 with the build version.
func TestHealthz(t *testing.T) {
	s := NewServer(&fakePush{connected: true}, &fakeStorage{}, "1.2.3")

	rec := do(t, s, "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.False(t, resp.Timestamp.IsZero())
}

// TestReadyzAllHealthy tests the ready path.
func TestReadyzAllHealthy(t *testing.T) {
	s := NewServer(&fakePush{connected: true}, &fakeStorage{}, "dev")

	rec := do(t, s, "/readyz")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "connected", resp.Checks["push"])
	assert.Equal(t, "ok", resp.Checks["storage"])
	assert.Empty(t, resp.Message)
}

// TestReadyzPushDown tests that a disconnected channel makes the client
// unready.
func TestReadyzPushDown(t *testing.T) {
	s := NewServer(&fakePush{connected: false}, &fakeStorage{}, "dev")

	rec := do(t, s, "/readyz")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not ready", resp.Status)
	assert.Equal(t, "disconnected", resp.Checks["push"])
	assert.Equal(t, "Push channel not connected", resp.Message)
}

// TestReadyzStorageError tests the database probe.
func TestReadyzStorageError(t *testing.T) {
	s := NewServer(&fakePush{connected: true}, &fakeStorage{err: errors.New("db closed")}, "dev")

	rec := do(t, s, "/readyz")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Checks["storage"], "db closed")
	assert.Equal(t, "Local database not accessible", resp.Message)
}

// TestMetricsExposed tests that the Prometheus endpoint is wired.
func TestMetricsExposed(t *testing.T) {
	s := NewServer(&fakePush{connected: true}, &fakeStorage{}, "dev")

	rec := do(t, s, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
