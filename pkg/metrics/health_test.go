package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetHealth() {
	healthChecker = newHealthChecker()
}

func TestRegisterComponent(t *testing.T) {
	resetHealth()

	RegisterComponent("poller.recent", true, "running")

	require.Len(t, healthChecker.components, 1)
	comp := healthChecker.components["poller.recent"]
	assert.True(t, comp.Healthy)
	assert.Equal(t, "running", comp.Message)
}

func TestGetHealth(t *testing.T) {
	resetHealth()
	SetVersion("1.0.0")

	RegisterComponent("storage", true, "")
	RegisterComponent("poller.bulk", true, "")

	health := GetHealth()
	assert.Equal(t, "healthy", health.Status)
	assert.Len(t, health.Components, 2)
	assert.Equal(t, "1.0.0", health.Version)

	UpdateComponent("poller.bulk", false, "fetch failed after 3 attempts")
	health = GetHealth()
	assert.Equal(t, "unhealthy", health.Status)
	assert.Equal(t, "unhealthy: fetch failed after 3 attempts", health.Components["poller.bulk"])
}

func TestGetReadiness(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		expected string
	}{
		{
			name:     "storage not registered",
			setup:    func() {},
			expected: "not_ready",
		},
		{
			name:     "storage healthy",
			setup:    func() { RegisterComponent("storage", true, "") },
			expected: "ready",
		},
		{
			name:     "storage unhealthy",
			setup:    func() { RegisterComponent("storage", false, "disk full") },
			expected: "not_ready",
		},
		{
			name: "non-critical component unhealthy",
			setup: func() {
				RegisterComponent("storage", true, "")
				RegisterComponent("delivery", false, "channel not found")
			},
			expected: "ready",
		},
		{
			name: "custom critical components",
			setup: func() {
				SetCriticalComponents("storage", "delivery")
				RegisterComponent("storage", true, "")
			},
			expected: "not_ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetHealth()
			tt.setup()

			readiness := GetReadiness()
			assert.Equal(t, tt.expected, readiness.Status)
			if tt.expected == "not_ready" {
				assert.NotEmpty(t, readiness.Message)
			}
		})
	}
}

func TestHealthHandler(t *testing.T) {
	resetHealth()
	SetVersion("test")
	RegisterComponent("storage", true, "")

	w := httptest.NewRecorder()
	HealthHandler()(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var health HealthStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "test", health.Version)

	UpdateComponent("storage", false, "broken")
	w = httptest.NewRecorder()
	HealthHandler()(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadyHandler(t *testing.T) {
	resetHealth()

	w := httptest.NewRecorder()
	ReadyHandler()(w, httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	RegisterComponent("storage", true, "")
	w = httptest.NewRecorder()
	ReadyHandler()(w, httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var readiness HealthStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&readiness))
	assert.Equal(t, "ready", readiness.Status)
}

func TestLivenessHandler(t *testing.T) {
	resetHealth()

	w := httptest.NewRecorder()
	LivenessHandler()(w, httptest.NewRequest("GET", "/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "alive", response["status"])
	assert.NotEmpty(t, response["uptime"])
}
