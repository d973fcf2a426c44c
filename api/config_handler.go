package api

import (
	"net/http"

	"github.com/seenimoa/bris/internal/calculator"
	"github.com/seenimoa/bris/internal/config"
)

// ParametersResponse is returned by GET /api/v1/calculator/parameters.
type ParametersResponse struct {
	Parameters calculator.Params `json:"parameters"`
	ConfigFile string            `json:"config_file,omitempty"` // empty when running on defaults
}

// handleParameters returns the regulatory thresholds the engines are using.
func (s *Server) handleParameters(w http.ResponseWriter, r *http.Request) {
	writeOK(w, ParametersResponse{
		Parameters: s.calc.Params(),
		ConfigFile: s.cfg.Source,
	})
}

// handleGetConfigKeys returns the status of the configured secrets, masked.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeOK(w, config.CheckAPIKeys(s.cfg))
}
