package utils

import (
	"encoding/json"
	"net/http"

	"github.com/ACondori95/admin-tarea/apperrors"
	"github.com/ACondori95/admin-tarea/logging"
)

type MessageResponse struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Logger.Errorf("Event ID: RESPONSE_ENCODE_FAILED, Description: Failed to encode response: %v", err)
	}
}

func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, MessageResponse{Message: message})
}

// WriteError maps err onto its status code. Internal causes are logged, not returned.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logging.Logger.Errorf("Event ID: REQUEST_FAILED, Description: %s %s failed: %v", r.Method, r.URL.Path, err)
	} else {
		logging.Logger.Warnf("Event ID: REQUEST_REJECTED, Description: %s %s rejected with %d: %v", r.Method, r.URL.Path, status, err)
	}
	WriteMessage(w, status, apperrors.PublicMessage(err))
}
