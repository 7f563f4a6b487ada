package api

import (
	"encoding/json"
	"net/http"

	"github.com/pyhub-apps/pdfviewer-golang/pkg/viewstate"
)

// stateResponse is the view state plus the enabled controls
type stateResponse struct {
	viewstate.State
	CanNext     bool `json:"can_next"`
	CanPrev     bool `json:"can_prev"`
	CanZoomIn   bool `json:"can_zoom_in"`
	CanZoomOut  bool `json:"can_zoom_out"`
	CanNextText bool `json:"can_next_text"`
	CanPrevText bool `json:"can_prev_text"`
}

func newStateResponse(s viewstate.State) stateResponse {
	return stateResponse{
		State:       s,
		CanNext:     s.CanNext(),
		CanPrev:     s.CanPrev(),
		CanZoomIn:   s.CanZoomIn(),
		CanZoomOut:  s.CanZoomOut(),
		CanNextText: s.CanNextText(),
		CanPrevText: s.CanPrevText(),
	}
}

// GetState handles GET /api/v1/state
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, newStateResponse(h.viewer.State()), http.StatusOK)
}

// DispatchAction handles POST /api/v1/state/actions
func (h *Handler) DispatchAction(w http.ResponseWriter, r *http.Request) {
	var req viewstate.ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	action, err := req.Action()
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	state := h.viewer.Dispatch(action)
	h.log.WithField("action", action.Type()).Debug("action dispatched")
	respondJSON(w, newStateResponse(state), http.StatusOK)
}
