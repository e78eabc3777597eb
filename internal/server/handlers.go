package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/chrisdamba/slawatch/internal/dashboard"
	"github.com/chrisdamba/slawatch/internal/logging"
	"github.com/chrisdamba/slawatch/internal/models"
	"github.com/chrisdamba/slawatch/internal/simulator"
)

type apiResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatsResponse is the body of GET /api/v1/stats.
type StatsResponse struct {
	Live     models.LiveStats `json:"live"`
	Running  bool             `json:"running"`
	Speed    float64          `json:"speed"`
	Advisory string           `json:"advisory,omitempty"`
}

type SimulationResponse struct {
	Running bool    `json:"running"`
	Speed   float64 `json:"speed"`
}

func respondJSON(w http.ResponseWriter, status int, body apiResponse) {
	data, err := json.Marshal(body)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondOK(w http.ResponseWriter, data any) {
	respondJSON(w, http.StatusOK, apiResponse{Status: "success", Data: data})
}

func respondError(w http.ResponseWriter, status int, code string, err error) {
	if status >= http.StatusInternalServerError {
		logging.Error().Err(err).Str("code", code).Msg("API error")
	}
	respondJSON(w, status, apiResponse{Status: "error", Error: &apiError{Code: code, Message: err.Error()}})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	respondOK(w, map[string]string{"status": "ok"})
}

func (s *Server) listCharts(w http.ResponseWriter, _ *http.Request) {
	respondOK(w, s.dash.Charts())
}

func (s *Server) getChart(w http.ResponseWriter, r *http.Request) {
	chart, err := s.dash.Chart(chi.URLParam(r, "id"))
	if errors.Is(err, dashboard.ErrUnknownChart) {
		respondError(w, http.StatusNotFound, "CHART_NOT_FOUND", err)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL", err)
		return
	}
	respondOK(w, chart)
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	respondOK(w, StatsResponse{
		Live:     s.sim.Stats(),
		Running:  s.sim.Running(),
		Speed:    s.sim.Speed(),
		Advisory: s.dash.Advisory(),
	})
}

func (s *Server) secondary(w http.ResponseWriter, _ *http.Request) {
	respondOK(w, s.dash.Secondary())
}

func (s *Server) simulationState() SimulationResponse {
	return SimulationResponse{Running: s.sim.Running(), Speed: s.sim.Speed()}
}

func (s *Server) startSimulation(w http.ResponseWriter, _ *http.Request) {
	if err := s.sim.Start(s.ctx); err != nil {
		respondError(w, http.StatusInternalServerError, "SIMULATION_START_FAILED", err)
		return
	}
	respondOK(w, s.simulationState())
}

func (s *Server) stopSimulation(w http.ResponseWriter, _ *http.Request) {
	s.sim.Stop()
	respondOK(w, s.simulationState())
}

func (s *Server) toggleSimulation(w http.ResponseWriter, _ *http.Request) {
	if _, err := s.sim.Toggle(s.ctx); err != nil {
		respondError(w, http.StatusInternalServerError, "SIMULATION_TOGGLE_FAILED", err)
		return
	}
	respondOK(w, s.simulationState())
}

// setSpeed reads the multiplier from the "x" query parameter.
func (s *Server) setSpeed(w http.ResponseWriter, r *http.Request) {
	x, err := strconv.ParseFloat(r.URL.Query().Get("x"), 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_SPEED", simulator.ErrInvalidSpeed)
		return
	}
	if err := s.sim.SetSpeed(x); err != nil {
		if errors.Is(err, simulator.ErrInvalidSpeed) {
			respondError(w, http.StatusBadRequest, "INVALID_SPEED", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL", err)
		return
	}
	respondOK(w, s.simulationState())
}
