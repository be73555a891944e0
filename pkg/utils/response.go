package utils

import (
	"encoding/json"
	"net/http"
)

// APIResponse is the envelope every endpoint returns.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func Success(w http.ResponseWriter, status int, message string, data interface{}) {
	JSON(w, status, APIResponse{Success: true, Message: message, Data: data})
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, APIResponse{Success: false, Message: message})
}

// ErrorWithData is for failures that still carry a payload, such as a
// partially applied route assignment.
func ErrorWithData(w http.ResponseWriter, status int, message string, data interface{}) {
	JSON(w, status, APIResponse{Success: false, Message: message, Data: data})
}
