package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdamba/slawatch/internal/dashboard"
	"github.com/chrisdamba/slawatch/internal/ingest"
	"github.com/chrisdamba/slawatch/internal/models"
	"github.com/chrisdamba/slawatch/internal/simulator"
	"github.com/chrisdamba/slawatch/internal/stream"
)

type fakeController struct {
	mu      sync.Mutex
	running bool
	speed   float64
	starts  int
}

func (f *fakeController) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = true
	f.starts++
	return nil
}

func (f *fakeController) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
}

func (f *fakeController) Toggle(ctx context.Context) (bool, error) {
	if f.Running() {
		f.Stop()
		return false, nil
	}
	return true, f.Start(ctx)
}

func (f *fakeController) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeController) SetSpeed(x float64) error {
	if x != 0.5 && x != 1 && x != 2 {
		return simulator.ErrInvalidSpeed
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.speed = x
	return nil
}

func (f *fakeController) Speed() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.speed
}

func (f *fakeController) Stats() models.LiveStats {
	return models.LiveStats{TotalOrders: 3, OrdersByZone: map[string]int{"Z1": 3}}
}

type fixture struct {
	bus  *stream.Bus
	dash *dashboard.Dashboard
	sim  *fakeController
	ts   *httptest.Server
}

func newFixture(t *testing.T, cfg models.ServerConfig) *fixture {
	t.Helper()
	bus := stream.NewBus(nil)
	dash := dashboard.New(dashboard.DefaultCharts(models.SmoothingConfig{ZoneBreachWeight: 0.8, TrendWeight: 0.7}), bus)
	fallback := ingest.FallbackRecords()
	require.NoError(t, dash.Load(fallback, nil, nil, fallback))

	ctx, cancel := context.WithCancel(context.Background())
	sim := &fakeController{speed: 1}
	ts := httptest.NewServer(New(ctx, cfg, dash, sim, bus).Handler())
	t.Cleanup(func() {
		cancel()
		ts.Close()
		bus.Close()
	})
	return &fixture{bus: bus, dash: dash, sim: sim, ts: ts}
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *apiError       `json:"error"`
}

func do(t *testing.T, method, url string) (int, envelope) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestCharts(t *testing.T) {
	f := newFixture(t, models.ServerConfig{})

	status, body := do(t, http.MethodGet, f.ts.URL+"/api/v1/charts")
	require.Equal(t, http.StatusOK, status)
	var charts []dashboard.ChartSnapshot
	require.NoError(t, json.Unmarshal(body.Data, &charts))
	assert.Len(t, charts, len(dashboard.DefaultCharts(models.SmoothingConfig{})))

	status, body = do(t, http.MethodGet, f.ts.URL+"/api/v1/charts/zone-breach")
	require.Equal(t, http.StatusOK, status)
	var chart dashboard.ChartSnapshot
	require.NoError(t, json.Unmarshal(body.Data, &chart))
	assert.Equal(t, "zone-breach", chart.ID)
	assert.Equal(t, []string{"Z1", "Z2"}, chart.Summary.Keys())

	status, body = do(t, http.MethodGet, f.ts.URL+"/api/v1/charts/nope")
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, body.Error)
	assert.Equal(t, "CHART_NOT_FOUND", body.Error.Code)
}

func TestStatsAndSecondary(t *testing.T) {
	f := newFixture(t, models.ServerConfig{})
	f.dash.SetAdvisory("Using sample data: boom")

	status, body := do(t, http.MethodGet, f.ts.URL+"/api/v1/stats")
	require.Equal(t, http.StatusOK, status)
	var stats StatsResponse
	require.NoError(t, json.Unmarshal(body.Data, &stats))
	assert.Equal(t, 3, stats.Live.TotalOrders)
	assert.False(t, stats.Running)
	assert.Equal(t, 1.0, stats.Speed)
	assert.Equal(t, "Using sample data: boom", stats.Advisory)

	status, _ = do(t, http.MethodGet, f.ts.URL+"/api/v1/secondary")
	assert.Equal(t, http.StatusOK, status)
}

func TestSimulationControl(t *testing.T) {
	f := newFixture(t, models.ServerConfig{})

	status, body := do(t, http.MethodPost, f.ts.URL+"/api/v1/simulation/start")
	require.Equal(t, http.StatusOK, status)
	var state SimulationResponse
	require.NoError(t, json.Unmarshal(body.Data, &state))
	assert.True(t, state.Running)

	_, body = do(t, http.MethodPost, f.ts.URL+"/api/v1/simulation/toggle")
	require.NoError(t, json.Unmarshal(body.Data, &state))
	assert.False(t, state.Running)

	do(t, http.MethodPost, f.ts.URL+"/api/v1/simulation/toggle")
	assert.True(t, f.sim.Running())
	do(t, http.MethodPost, f.ts.URL+"/api/v1/simulation/stop")
	assert.False(t, f.sim.Running())

	status, body = do(t, http.MethodPut, f.ts.URL+"/api/v1/simulation/speed?x=2")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body.Data, &state))
	assert.Equal(t, 2.0, state.Speed)

	status, body = do(t, http.MethodPut, f.ts.URL+"/api/v1/simulation/speed?x=3")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_SPEED", body.Error.Code)

	status, _ = do(t, http.MethodPut, f.ts.URL+"/api/v1/simulation/speed?x=fast")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 2.0, f.sim.Speed())
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, models.ServerConfig{})

	status, _ := do(t, http.MethodGet, f.ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, status)

	resp, err := http.Get(f.ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	f := newFixture(t, models.ServerConfig{AllowedOrigins: []string{"http://dash.local"}})

	req, _ := http.NewRequest(http.MethodOptions, f.ts.URL+"/api/v1/charts", nil)
	req.Header.Set("Origin", "http://dash.local")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://dash.local", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://evil.local")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func readFrame(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestWebSocket_SnapshotThenUpdates(t *testing.T) {
	f := newFixture(t, models.ServerConfig{})

	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readFrame(t, conn)
	assert.Equal(t, MessageTypeSnapshot, first.Type)

	batch := []models.RawOrderRecord{{
		Date: time.Date(2024, 4, 6, 0, 0, 0, 0, time.UTC), Zone: "Z3",
		OrderCount: 10, AvgDeliveryMinutes: 50, SLABreachFraction: 0.5,
	}}
	require.NoError(t, f.dash.Apply(context.Background(), batch))

	next := readFrame(t, conn)
	assert.Equal(t, MessageTypeSummary, next.Type)
	data, ok := next.Data.(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, data["chart"])
}

func TestWebSocket_RejectsOrigin(t *testing.T) {
	f := newFixture(t, models.ServerConfig{AllowedOrigins: []string{"http://dash.local"}})

	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": []string{"http://evil.local"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
