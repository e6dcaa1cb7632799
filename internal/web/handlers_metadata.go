package web

import (
	"net/http"

	"github.com/JonMunkholm/metasync/internal/core"
	"github.com/JonMunkholm/metasync/internal/mapping"
	"github.com/JonMunkholm/metasync/internal/reconcile"
	"github.com/JonMunkholm/metasync/internal/report"
)

// applyRequest is the pass request sent by the operator page.
type applyRequest struct {
	mapping.Plan
	Rows   []map[string]any `json:"rows"`
	Source string           `json:"source"`
}

func (a applyRequest) toCore() core.ApplyRequest {
	return core.ApplyRequest{Plan: a.Plan, Rows: wireRows(a.Rows), Source: a.Source}
}

type applyResponse struct {
	report.Response
	RunID string `json:"runId,omitempty"`
}

type dryRunResponse struct {
	Success bool `json:"success"`
	*reconcile.PreviewResult
}

// handleApply runs a pass and answers in the operator wire format. A pass
// cut short by cancellation still reports the rows it processed.
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	run, err := s.service.Apply(ctx, req.toCore())
	if err != nil {
		if run != nil && run.Outcome != nil {
			resp := newErrorResponse(err)
			writeJSON(w, statusFor(err), applyResponse{
				Response: report.Response{Success: false, Outcome: run.Outcome, Error: resp.Error},
				RunID:    run.ID,
			})
			return
		}
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, applyResponse{
		Response: report.NewResponse(run.Outcome, nil),
		RunID:    run.ID,
	})
}

// handleDryRun reports what a pass would do without writing.
func (s *Server) handleDryRun(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.service.DryRun(r.Context(), req.toCore())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dryRunResponse{Success: true, PreviewResult: res})
}
