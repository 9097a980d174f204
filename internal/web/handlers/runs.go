package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/cluster"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/config"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/extract"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/identity"
)

// RunsHandler triggers extraction and clustering runs as async jobs.
type RunsHandler struct {
	cfg        *config.Config
	extractSvc *extract.Service
	idSvc      *identity.Service
	jobs       *JobManager
}

// NewRunsHandler creates the runs handler.
func NewRunsHandler(cfg *config.Config, extractSvc *extract.Service, idSvc *identity.Service, jobs *JobManager) *RunsHandler {
	return &RunsHandler{cfg: cfg, extractSvc: extractSvc, idSvc: idSvc, jobs: jobs}
}

type extractRequest struct {
	Concurrency int  `json:"concurrency,omitempty"`
	Force       bool `json:"force,omitempty"`
}

// StartExtraction kicks off face extraction over the library.
func (h *RunsHandler) StartExtraction(w http.ResponseWriter, r *http.Request) {
	if h.extractSvc == nil {
		respondError(w, http.StatusServiceUnavailable, "extraction not configured")
		return
	}

	var req extractRequest
	if r.Body != nil {
		// An empty body means defaults.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Concurrency < 1 {
		req.Concurrency = 4
	}

	opts := extract.Options{
		Concurrency: req.Concurrency,
		MinScore:    h.cfg.Embedding.MinScore,
		MaxSize:     h.cfg.Embedding.MaxSize,
		Force:       req.Force,
	}

	job := h.jobs.Start("extract", func() (any, error) {
		return h.extractSvc.Run(context.Background(), opts)
	})
	respondJSON(w, http.StatusAccepted, job.Snapshot())
}

type reclusterRequest struct {
	Mode           string  `json:"mode"` // "full" or "incremental"
	Eps            float64 `json:"eps,omitempty"`
	MinSamples     int     `json:"min_samples,omitempty"`
	MatchThreshold float64 `json:"match_threshold,omitempty"`
	MaxIterations  int     `json:"max_iterations,omitempty"`
}

// StartRecluster kicks off a clustering run. Incremental runs loop until
// convergence.
func (h *RunsHandler) StartRecluster(w http.ResponseWriter, r *http.Request) {
	var req reclusterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	var fn func() (any, error)
	switch req.Mode {
	case "full":
		opts := identity.FullOptions{Eps: req.Eps, MinSamples: req.MinSamples, MatchThreshold: req.MatchThreshold}
		fn = func() (any, error) {
			return h.idSvc.RunFullRecluster(context.Background(), opts)
		}
	case "incremental":
		opts := identity.IncrementalOptions{
			Eps:            req.Eps,
			MinSamples:     req.MinSamples,
			MatchThreshold: req.MatchThreshold,
			MaxIterations:  req.MaxIterations,
		}
		fn = func() (any, error) {
			return h.idSvc.RunIncrementalLoop(context.Background(), opts)
		}
	default:
		respondError(w, http.StatusBadRequest, "mode must be full or incremental")
		return
	}

	// Reject bad parameters synchronously so the caller gets a 4xx instead
	// of a failed job. The run itself still revalidates.
	if err := h.validate(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := h.jobs.Start("recluster-"+req.Mode, fn)
	respondJSON(w, http.StatusAccepted, job.Snapshot())
}

func (h *RunsHandler) validate(req reclusterRequest) error {
	if req.Eps < 0 || req.MinSamples < 0 || req.MatchThreshold < 0 || req.MaxIterations < 0 {
		return cluster.ErrInvalidParams
	}
	return nil
}

// JobStatus reports the state of one async job.
func (h *RunsHandler) JobStatus(w http.ResponseWriter, r *http.Request) {
	job := h.jobs.Get(chi.URLParam(r, "jobId"))
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	respondJSON(w, http.StatusOK, job.Snapshot())
}
