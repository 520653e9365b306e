package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pep299/article-bias-analyzer/internal/apperror"
)

// Response represents a standard API response
type Response struct {
	Status      string      `json:"status"`
	Message     string      `json:"message,omitempty"`
	Error       string      `json:"error,omitempty"`
	Kind        string      `json:"kind,omitempty"`
	Remediation string      `json:"remediation,omitempty"`
	Data        interface{} `json:"data,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, response Response) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(response)
}

// WriteError writes an error response
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, Response{
		Status: "error",
		Error:  message,
	})
}

// WriteAppError writes err with the status, kind and remediation of its
// category. Uncategorized errors become a 500.
func WriteAppError(w http.ResponseWriter, err error) error {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		return WriteInternalError(w, err.Error())
	}

	message := appErr.Message
	if message == "" {
		message = err.Error()
	}
	return WriteJSON(w, appErr.Kind.HTTPStatus(), Response{
		Status:      "error",
		Error:       message,
		Kind:        appErr.Kind.String(),
		Remediation: appErr.Kind.Remediation(),
	})
}

// WriteSuccess writes a success response
func WriteSuccess(w http.ResponseWriter, message string, data interface{}) error {
	return WriteJSON(w, http.StatusOK, Response{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// WriteBadRequest writes a 400 Bad Request error
func WriteBadRequest(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusBadRequest, message)
}

// WriteConflict writes a 409 Conflict error
func WriteConflict(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusConflict, message)
}

// WriteInternalError writes a 500 Internal Server Error
func WriteInternalError(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusInternalServerError, message)
}
