package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/mkoval/scholarcsv/internal/jobs"
	"github.com/mkoval/scholarcsv/internal/scholar"
)

// SubmitRequest represents the request body for POST /jobs. Authors may
// be bare scholar IDs or full profile URLs. YearColumns is the legacy
// single-author override; 0 means automatic.
type SubmitRequest struct {
	Authors     []string `json:"authors" validate:"required,min=1,dive,required"`
	YearColumns int      `json:"year_columns,omitempty" validate:"gte=0,lte=200"`
}

// SubmitResponse represents the response for POST /jobs
type SubmitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// StatusResponse represents the response for GET /jobs/{id}
type StatusResponse struct {
	JobID       string `json:"job_id"`
	State       string `json:"state"`
	Log         string `json:"log"`
	Error       string `json:"error,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

// CancelResponse represents the response for POST /jobs/{id}/cancel
type CancelResponse struct {
	JobID     string `json:"job_id"`
	Cancelled bool   `json:"cancelled"`
}

// handleSubmit accepts a job request and schedules the extraction worker.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	authorIDs := make([]string, 0, len(req.Authors))
	for _, raw := range req.Authors {
		id, err := scholar.ExtractAuthorID(raw)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		authorIDs = append(authorIDs, id)
	}

	jobID, err := s.manager.Submit(jobs.Request{
		AuthorIDs:   authorIDs,
		YearColumns: req.YearColumns,
	})
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Printf("accepted job %s for %d author(s)", jobID, len(authorIDs))
	s.jsonResponse(w, http.StatusAccepted, SubmitResponse{
		JobID:  jobID.String(),
		Status: string(jobs.StatePending),
	})
}

// handleStatus returns a non-blocking snapshot of a job.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.jobIDFromPath(w, r)
	if !ok {
		return
	}

	snap, err := s.manager.Snapshot(jobID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	resp := StatusResponse{
		JobID: snap.ID.String(),
		State: string(snap.State),
		Log:   snap.Log,
		Error: snap.ErrMessage,
	}
	if snap.State == jobs.StateCompleted && snap.ArtifactPath != "" {
		resp.DownloadURL = fmt.Sprintf("/jobs/%s/download", snap.ID)
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleEvents streams job progress as Server-Sent Events until the job
// reaches a terminal state or the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.jobIDFromPath(w, r)
	if !ok {
		return
	}

	events, err := s.manager.Subscribe(r.Context(), jobID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	for ev := range events {
		if err := sse.WriteJobEvent(ev); err != nil {
			log.Printf("job %s: error writing SSE event: %v", jobID, err)
			return
		}
	}
}

// handleCancel sets the job's cancellation token. Idempotent.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.jobIDFromPath(w, r)
	if !ok {
		return
	}

	if !s.manager.RequestCancel(jobID) {
		s.errorResponse(w, http.StatusNotFound, jobs.ErrJobNotFound.Error())
		return
	}
	s.jsonResponse(w, http.StatusAccepted, CancelResponse{
		JobID:     jobID.String(),
		Cancelled: true,
	})
}

// handleDownload serves the export artifact of a completed job.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	jobID, ok := s.jobIDFromPath(w, r)
	if !ok {
		return
	}

	snap, err := s.manager.Snapshot(jobID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if snap.State != jobs.StateCompleted || snap.ArtifactPath == "" {
		notReady := &ErrArtifactNotReady{State: snap.State}
		s.errorResponse(w, HTTPStatus(notReady), notReady.Error())
		return
	}

	filename := fmt.Sprintf("scholar_export_%.8s.csv", jobID.String())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Type", "text/csv")
	http.ServeFile(w, r, snap.ArtifactPath)
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) jobIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := r.PathValue("id")
	if idStr == "" {
		s.errorResponse(w, http.StatusBadRequest, "Job ID is required")
		return uuid.Nil, false
	}
	jobID, err := uuid.Parse(idStr)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid job ID format")
		return uuid.Nil, false
	}
	return jobID, true
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("error encoding response: %v", err)
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
