package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/beamlab/piezo-core/internal/steering"
)

// handleListAxes returns the read model for both axes.
func (s *Server) handleListAxes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.Status())
}

// handleGetAxis returns the read model for a single axis.
func (s *Server) handleGetAxis(w http.ResponseWriter, r *http.Request) {
	id, ok := s.axisParam(w, r)
	if !ok {
		return
	}

	status, ok := s.coord.AxisStatus(id)
	if !ok {
		writeNotFound(w, "axis not started")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// valueRequest is the body for endpoints that set a numeric value.
type valueRequest struct {
	Value *float64 `json:"value"`
}

// handleSetVoltage sets the output voltage target for an axis.
//
// Body: {"value": 37.5}
func (s *Server) handleSetVoltage(w http.ResponseWriter, r *http.Request) {
	s.handleValueCommand(w, r, s.coord.SetVoltage)
}

// handleSetJogStep sets the jog step size for an axis.
//
// Body: {"value": 1.0}
func (s *Server) handleSetJogStep(w http.ResponseWriter, r *http.Request) {
	s.handleValueCommand(w, r, s.coord.SetJogStep)
}

// handleValueCommand parses the axis and value then applies a coordinator
// command that takes a float argument.
func (s *Server) handleValueCommand(w http.ResponseWriter, r *http.Request, cmd func(context.Context, steering.AxisID, float64) error) {
	id, ok := s.axisParam(w, r)
	if !ok {
		return
	}

	var req valueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Value == nil {
		writeBadRequest(w, "value is required")
		return
	}

	if err := cmd(r.Context(), id, *req.Value); err != nil {
		writeCommandError(w, err)
		return
	}
	s.writeAxisStatus(w, id)
}

// handleJogIncrease nudges the axis one jog step towards higher voltage.
func (s *Server) handleJogIncrease(w http.ResponseWriter, r *http.Request) {
	s.handleSimpleCommand(w, r, s.coord.Increase)
}

// handleJogDecrease nudges the axis one jog step towards lower voltage.
func (s *Server) handleJogDecrease(w http.ResponseWriter, r *http.Request) {
	s.handleSimpleCommand(w, r, s.coord.Decrease)
}

// handleZero drives the axis output to 0V and clears the remembered target.
func (s *Server) handleZero(w http.ResponseWriter, r *http.Request) {
	s.handleSimpleCommand(w, r, s.coord.Zero)
}

func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	s.handleSimpleCommand(w, r, s.coord.Enable)
}

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	s.handleSimpleCommand(w, r, s.coord.Disable)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	s.handleSimpleCommand(w, r, s.coord.Connect)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.handleSimpleCommand(w, r, s.coord.Disconnect)
}

// handleToggleDirection flips the axis direction flag. Subsequent jog
// commands move the opposite way for the same control.
func (s *Server) handleToggleDirection(w http.ResponseWriter, r *http.Request) {
	s.handleSimpleCommand(w, r, s.coord.ToggleDirection)
}

// handleSimpleCommand parses the axis then applies a coordinator command
// that takes no arguments beyond the axis.
func (s *Server) handleSimpleCommand(w http.ResponseWriter, r *http.Request, cmd func(context.Context, steering.AxisID) error) {
	id, ok := s.axisParam(w, r)
	if !ok {
		return
	}

	if err := cmd(r.Context(), id); err != nil {
		writeCommandError(w, err)
		return
	}
	s.writeAxisStatus(w, id)
}

// axisParam parses the {axis} URL parameter, writing a 404 on failure.
func (s *Server) axisParam(w http.ResponseWriter, r *http.Request) (steering.AxisID, bool) {
	id, err := steering.ParseAxisID(chi.URLParam(r, "axis"))
	if err != nil {
		writeNotFound(w, err.Error())
		return "", false
	}
	return id, true
}

// writeAxisStatus responds with the post-command read model so clients see
// the effect of the command without a second round trip.
func (s *Server) writeAxisStatus(w http.ResponseWriter, id steering.AxisID) {
	status, ok := s.coord.AxisStatus(id)
	if !ok {
		writeNotFound(w, "axis not started")
		return
	}
	writeJSON(w, http.StatusOK, status)
}
