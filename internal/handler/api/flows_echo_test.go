package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"SectorFlow/internal/domain/models"
	xlogger "SectorFlow/pkg/logger"
	"SectorFlow/pkg/util"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	result     *models.AggregationResult
	refreshing bool
	lastErr    string
	triggered  int
}

func (s *stubSource) Latest() *models.AggregationResult { return s.result }
func (s *stubSource) Refreshing() bool                  { return s.refreshing }
func (s *stubSource) LastError() string                 { return s.lastErr }
func (s *stubSource) Trigger() bool {
	if s.refreshing {
		return false
	}
	s.triggered++
	return true
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func published() *models.AggregationResult {
	return &models.AggregationResult{
		GeneratedAt: time.Date(2026, 10, 16, 20, 30, 0, 0, time.UTC),
		Tickers:     42,
		Windows: map[models.Window][]models.SectorAggregate{
			models.Window1D: {
				{Sector: models.SectorEnergy, PctChange: 0.8, AbsChangeMillions: 120, Contributors: 20},
				{Sector: models.SectorUtilities, PctChange: -0.3, AbsChangeMillions: -15, Contributors: 22},
			},
			models.Window1W: {
				{Sector: models.SectorEnergy, PctChange: 2.1, AbsChangeMillions: 300, Contributors: 20},
			},
		},
	}
}

func serve(t *testing.T, src FlowSource, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	e := echo.New()
	NewFlowsEchoHandler(xlogger.Nop(), src, util.LoadLocation("US/Eastern")).RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestFlows_DefaultWindowAscending(t *testing.T) {
	rec, env := serve(t, &stubSource{result: published()}, http.MethodGet, "/api/flows")
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.FlowsResponse
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, models.Window1D, body.Window)
	assert.Equal(t, "2026-10-16 16:30:00 EDT", body.GeneratedAt)
	require.Len(t, body.Rows, 2)
	assert.Equal(t, models.SectorUtilities, body.Rows[0].Sector)
	assert.Equal(t, models.SectorEnergy, body.Rows[1].Sector)
}

func TestFlows_WindowAndSort(t *testing.T) {
	rec, env := serve(t, &stubSource{result: published()}, http.MethodGet, "/api/flows?window=1d&sort=desc")
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.FlowsResponse
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, models.SectorEnergy, body.Rows[0].Sector)

	rec, env = serve(t, &stubSource{result: published()}, http.MethodGet, "/api/flows?window=1m")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, models.Window1M, body.Window)
	assert.Empty(t, body.Rows)
}

func TestFlows_Invalid(t *testing.T) {
	rec, env := serve(t, &stubSource{result: published()}, http.MethodGet, "/api/flows?window=3y")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(env.Data), "ERR_ONEOF")

	rec, _ = serve(t, &stubSource{}, http.MethodGet, "/api/flows")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestFigures(t *testing.T) {
	rec, env := serve(t, &stubSource{result: published()}, http.MethodGet, "/api/figures?tz=UTC")
	require.Equal(t, http.StatusOK, rec.Code)

	var d struct {
		LastUpdated string `json:"last_updated"`
		Figures     []struct {
			Title string `json:"title"`
			Bars  []struct {
				Label string `json:"label"`
				Color string `json:"color"`
			} `json:"bars"`
		} `json:"figures"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &d))
	assert.Equal(t, "2026-10-16 20:30:00 UTC", d.LastUpdated)
	require.Len(t, d.Figures, 3)
	assert.Equal(t, "1D Change", d.Figures[0].Title)
	assert.Equal(t, "red", d.Figures[0].Bars[0].Color)
	assert.Equal(t, "0.80%\n$120.0M", d.Figures[0].Bars[1].Label)

	rec, _ = serve(t, &stubSource{result: published()}, http.MethodGet, "/api/figures?tz=Mars/Olympus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatus(t *testing.T) {
	rec, env := serve(t, &stubSource{result: published(), refreshing: true, lastErr: "resolve constituents: boom"}, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var st models.StatusResponse
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.True(t, st.Refreshing)
	assert.Equal(t, 42, st.Tickers)
	assert.Equal(t, "resolve constituents: boom", st.LastError)
}

func TestRefresh(t *testing.T) {
	src := &stubSource{}
	rec, _ := serve(t, src, http.MethodPost, "/api/refresh")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, src.triggered)

	src.refreshing = true
	rec, _ = serve(t, src, http.MethodPost, "/api/refresh")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, src.triggered)
}

func TestHealth(t *testing.T) {
	rec, _ := serve(t, &stubSource{}, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","ready":false}`, rec.Body.String())
}
