package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
)

// now is replaced in tests to pin envelope timestamps
var now = time.Now

// WriteJSON encodes data without HTML escaping
func WriteJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	return encoder.Encode(data)
}

// WriteResult sends a 200 JSON response
func WriteResult(w http.ResponseWriter, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	return WriteJSON(w, data)
}

// WriteError sends the error envelope. Errors that are not an *APIError or
// *ValidationError become a 500.
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *APIError
	var validationErr *ValidationError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &validationErr):
		apiErr = NewInvalidRequestError("%s", validationErr.Error())
	default:
		apiErr = NewInternalServerError("%v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.StatusCode)
	_ = WriteJSON(w, apiErr.Response(now()))
}
