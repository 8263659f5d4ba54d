package api

import (
	"encoding/json"
	"net/http"

	"github.com/beamlab/piezo-core/internal/axis"
)

// handleGetAssignment returns the current axis-to-serial assignment.
func (s *Server) handleGetAssignment(w http.ResponseWriter, _ *http.Request) {
	assignment, ok := s.coord.Assignment()
	if !ok {
		writeNotFound(w, "axes not started")
		return
	}
	writeJSON(w, http.StatusOK, assignment)
}

// assignmentRequest is the body for PUT /assignment.
type assignmentRequest struct {
	SerialX string `json:"serial_x"`
	SerialY string `json:"serial_y"`
}

// handleSetAssignment reassigns both axes to new controller serials.
//
// The swap is validated against the connected device list before either
// axis is stopped, so a bad request leaves the current axes running.
//
// Body: {"serial_x": "29500241", "serial_y": "29500242"}
func (s *Server) handleSetAssignment(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	serialX, err := axis.ParseSerial(req.SerialX)
	if err != nil {
		writeBadRequest(w, "serial_x: "+err.Error())
		return
	}
	serialY, err := axis.ParseSerial(req.SerialY)
	if err != nil {
		writeBadRequest(w, "serial_y: "+err.Error())
		return
	}

	if err := s.coord.Reassign(r.Context(), serialX, serialY); err != nil {
		writeCommandError(w, err)
		return
	}

	assignment, _ := s.coord.Assignment()
	writeJSON(w, http.StatusOK, assignment)
}
