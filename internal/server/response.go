package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// response is the standard envelope for every API reply.
type response struct {
	Status    string    `json:"status"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// requestID generates a unique request identifier.
func requestID() string {
	return "req_" + uuid.New().String()[:8]
}

// respondOK writes a success response with the standard envelope.
func respondOK(w http.ResponseWriter, reqID string, data any) {
	respondJSON(w, http.StatusOK, reqID, data, "")
}

// respondError writes an error response with the standard envelope.
func respondError(w http.ResponseWriter, reqID string, status int, msg string) {
	respondJSON(w, status, reqID, nil, msg)
}

func respondJSON(w http.ResponseWriter, status int, reqID string, data any, errMsg string) {
	resp := response{
		Status:    "ok",
		RequestID: reqID,
		Timestamp: time.Now().UTC(),
		Data:      data,
		Error:     errMsg,
	}
	if errMsg != "" {
		resp.Status = "error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
