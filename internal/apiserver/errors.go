package apiserver

import (
	"net/http"

	"github.com/moolen/kubediagnose/internal/api"
)

// handleMethodNotAllowed handles 405 responses
func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodGet)
	api.WriteError(w, api.NewMethodNotAllowedError(r.Method))
}
