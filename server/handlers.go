package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"WaveSplit/config"
	"WaveSplit/core/wave"
	"WaveSplit/core/workflow"
	"WaveSplit/logger"
	"WaveSplit/model"
	"WaveSplit/notify"
	"WaveSplit/repository"

	"github.com/gorilla/mux"
)

// peaksBuckets is the resolution of the static waveform render cache.
const peaksBuckets = 512

// APIHandler handles all API requests of the local UI shell.
type APIHandler struct {
	projectRepo repository.ProjectRepository
	engine      *workflow.Engine
	hub         *notify.Hub
	cfg         *config.Config

	// computePeaks is swappable for tests.
	computePeaks func(path string) ([][2]float64, error)
}

// NewAPIHandler creates the API handler.
func NewAPIHandler(
	projectRepo repository.ProjectRepository,
	engine *workflow.Engine,
	hub *notify.Hub,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		projectRepo: projectRepo,
		engine:      engine,
		hub:         hub,
		cfg:         cfg,
		computePeaks: func(path string) ([][2]float64, error) {
			return wave.PeaksFromWAV(path, peaksBuckets)
		},
	}
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			logger.Error("failed to encode response", logger.ErrorField(err))
		}
	}
}

// writeError maps domain errors onto HTTP statuses and a uniform error body.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var transportErr *model.TransportError
	var invariantErr *model.SegmentInvariantError
	switch {
	case errors.Is(err, model.ErrProjectNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrDuplicateProjectID):
		status = http.StatusConflict
	case errors.Is(err, model.ErrSplitInFlight):
		status = http.StatusConflict
	case errors.Is(err, model.ErrExportConflict):
		status = http.StatusConflict
	case errors.As(err, &invariantErr):
		status = http.StatusBadRequest
	case errors.As(err, &transportErr):
		status = http.StatusBadGateway
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// pathFileIndex parses the {index} path variable.
func pathFileIndex(r *http.Request) (int, error) {
	return strconv.Atoi(mux.Vars(r)["index"])
}

// pathSegmentIndex parses the {seg} path variable.
func pathSegmentIndex(r *http.Request) (int, error) {
	return strconv.Atoi(mux.Vars(r)["seg"])
}
