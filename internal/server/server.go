// Package server exposes the pipelines of a workspace over HTTP
package server

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/aouyang1/go-arimax/frame"
	"github.com/aouyang1/go-arimax/internal/registry"
	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
)

// MaxBodyBytes caps the size of an inference request
const MaxBodyBytes = 32 << 20

// Server is the HTTP server for pipeline inference
type Server struct {
	ws     *registry.Workspace
	router *mux.Router
	logger *slog.Logger
}

// New creates a server for the pipelines of a workspace
func New(ws *registry.Workspace, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{ws: ws, router: mux.NewRouter(), logger: logger}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/pipelines", s.handlePipelines).Methods(http.MethodGet)

	s.router.HandleFunc("/pipelines/{name}/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/pipelines/{name}/deploy", s.handleDeploy).Methods(http.MethodPost)
	s.router.HandleFunc("/pipelines/{name}/undeploy", s.handleUndeploy).Methods(http.MethodPost)
	s.router.HandleFunc("/pipelines/{name}/infer", s.handleInfer).Methods(http.MethodPost)
	s.router.HandleFunc("/pipelines/{name}/series", s.handleSeries).Methods(http.MethodPost)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("unable to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	s.writeJSON(w, code, errorResponse{Error: err.Error()})
}

// inferStatus maps an inference error to its http status
func inferStatus(err error) int {
	switch {
	case errors.Is(err, registry.ErrNotDeployed):
		return http.StatusConflict
	case errors.Is(err, registry.ErrPipelineNotFound):
		return http.StatusNotFound
	}
	return http.StatusUnprocessableEntity
}

func (s *Server) pipeline(w http.ResponseWriter, r *http.Request) (*registry.Pipeline, bool) {
	p, err := s.ws.Pipeline(mux.Vars(r)["name"])
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	return p, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "workspace": s.ws.Name()})
}

func (s *Server) handlePipelines(w http.ResponseWriter, r *http.Request) {
	names := s.ws.Pipelines()
	statuses := make([]registry.Status, 0, len(names))
	for _, name := range names {
		if p, exists := s.ws.FindPipeline(name); exists {
			statuses = append(statuses, p.Status())
		}
	}
	s.writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := s.pipeline(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, p.Status())
}

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	p, ok := s.pipeline(w, r)
	if !ok {
		return
	}
	if err := p.Deploy(); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.logger.Info("deployed pipeline", "pipeline", p.Name())
	s.writeJSON(w, http.StatusOK, p.Status())
}

func (s *Server) handleUndeploy(w http.ResponseWriter, r *http.Request) {
	p, ok := s.pipeline(w, r)
	if !ok {
		return
	}
	if err := p.Undeploy(); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.logger.Info("undeployed pipeline", "pipeline", p.Name())
	s.writeJSON(w, http.StatusOK, p.Status())
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
}

// handleInfer forecasts a frame of observations. A list of frames returns a list of result
// frames, a single frame covering one site returns a single result frame.
func (s *Server) handleInfer(w http.ResponseWriter, r *http.Request) {
	p, ok := s.pipeline(w, r)
	if !ok {
		return
	}
	if !p.Deployed() {
		s.writeError(w, http.StatusConflict, registry.ErrNotDeployed)
		return
	}

	orient := frame.Orient(r.URL.Query().Get("orient"))
	if orient != "" && orient != frame.OrientList && orient != frame.OrientIndex {
		s.writeError(w, http.StatusBadRequest, errors.New("orient must be list or index"))
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	rows, err := frame.Decode(bytes.NewReader(body), p.Options().Exog)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := p.Infer(rows)
	if err != nil {
		s.logger.Warn("inference failed", "pipeline", p.Name(), "rows", len(rows), "error", err)
		s.writeError(w, inferStatus(err), err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	batch := len(bytes.TrimSpace(body)) > 0 && bytes.TrimSpace(body)[0] == '['
	if batch || len(res) != 1 {
		err = frame.EncodeSiteResults(w, res, orient)
	} else {
		err = frame.EncodeResults(w, res[0].Results, orient)
	}
	if err != nil {
		s.logger.Warn("unable to write response", "error", err)
	}
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	p, ok := s.pipeline(w, r)
	if !ok {
		return
	}
	if !p.Deployed() {
		s.writeError(w, http.StatusConflict, registry.ErrNotDeployed)
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	counts, err := frame.DecodeSeries(bytes.NewReader(body))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := p.InferSeries(counts)
	if err != nil {
		s.logger.Warn("series inference failed", "pipeline", p.Name(), "error", err)
		s.writeError(w, inferStatus(err), err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := frame.EncodeSeries(w, res); err != nil {
		s.logger.Warn("unable to write response", "error", err)
	}
}
