package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	caremesh "github.com/caremesh/caremesh"
	"github.com/caremesh/caremesh/device"
)

func newTestServer(t *testing.T) (*Server, *caremesh.CareMesh) {
	t.Helper()
	mesh := caremesh.New()
	return NewServer(mesh, nil), mesh
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echoContentType, echoJSON)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

const (
	echoContentType = "Content-Type"
	echoJSON        = "application/json"
)

func TestStartWorkflow_ReturnsSessionID(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/workflows", `{"workflow_type":"regular"}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["session_id"])
}

func TestStartWorkflow_UnknownTypeIs400(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/workflows", `{"workflow_type":"telepathy"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWorkflowStatus_RoundTrip(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/workflows", `{"workflow_type":"device_scan"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	id := resp["session_id"]

	require.Eventually(t, func() bool {
		status := doJSON(t, s, http.MethodGet, "/workflows/"+id, "")
		return status.Code == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	status := doJSON(t, s, http.MethodGet, "/workflows/"+id, "")
	var body map[string]any
	require.NoError(t, json.Unmarshal(status.Body.Bytes(), &body))
	assert.Equal(t, id, body["session_id"])
	assert.Equal(t, "device_scan", body["workflow_type"])
}

func TestWorkflowStatus_Missing404(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/workflows/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmergencyOverride_Missing404(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/workflows/nope/override", `{"reason":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompleteWorkflow_IsIdempotent(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/workflows", `{"workflow_type":"regular"}`)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	id := resp["session_id"]

	assert.Equal(t, http.StatusOK, doJSON(t, s, http.MethodPost, "/workflows/"+id+"/complete", "").Code)
	assert.Equal(t, http.StatusOK, doJSON(t, s, http.MethodPost, "/workflows/"+id+"/complete", "").Code)
}

func TestAgentHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/health/agents", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Len(t, health, 8)
}

func TestDeviceLifecycleOverHTTP(t *testing.T) {
	s, mesh := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/devices", `{
		"device_id": "watch-1",
		"patient_id": "p-1",
		"device_type": "smartwatch",
		"emergency_thresholds": {"heart_rate_min": 50, "heart_rate_max": 120}
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/devices/watch-1/vitals", `{"heart_rate": 44}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var eval device.Evaluation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eval))
	assert.True(t, eval.IsEmergency)

	rec = doJSON(t, s, http.MethodGet, "/devices/watch-1/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var alerts []device.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	assert.Len(t, alerts, 1)

	rec = doJSON(t, s, http.MethodPost, "/devices/watch-1/scan", `{"doctor_id":"doc-1","scan_type":"device_info"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/devices/watch-1/reports", `{"report_type":"lab","doctor_id":"doc-1"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	d, err := mesh.Devices().Get("watch-1")
	require.NoError(t, err)
	assert.Len(t, d.Reports, 1)
}

func TestDeviceRoutes_Unknown404(t *testing.T) {
	s, _ := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, doJSON(t, s, http.MethodPost, "/devices/nope/vitals", `{"heart_rate": 70}`).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, s, http.MethodPost, "/devices/nope/scan", `{"doctor_id":"d"}`).Code)
}

func TestRegisterDevice_MissingIdentifiersIs400(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/devices", `{"device_id":"only-id"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
