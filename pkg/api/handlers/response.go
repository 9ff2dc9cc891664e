package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func healthyResponse(data any) Response {
	return Response{Status: "healthy", Timestamp: time.Now().UTC(), Data: data}
}

func unhealthyResponse(errMsg string, data any) Response {
	return Response{Status: "unhealthy", Timestamp: time.Now().UTC(), Error: errMsg, Data: data}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are gone by now; an encode failure can only be dropped.
	_ = json.NewEncoder(w).Encode(body)
}
