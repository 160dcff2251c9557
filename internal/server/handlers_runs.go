package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/cte-extractor/internal/common"
	"github.com/joseph-ayodele/cte-extractor/internal/core"
	"github.com/joseph-ayodele/cte-extractor/internal/entity"
)

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.log.Error("api.runs.list_failed", "err", err)
		jsonError(w, "failed to list runs", common.HTTPStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleGetRun returns a stored run with its tables rebuilt from the saved outcomes.
// Runs processed in debug mode also carry the per-document traces.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "runID")
	if err := common.NewValidator().Field("run_id", raw, common.Required, common.UUID).Err(); err != nil {
		jsonError(w, err.Error(), common.HTTPStatus(err))
		return
	}
	runID := uuid.MustParse(raw)
	run, err := s.runs.GetRun(r.Context(), runID)
	if err != nil {
		jsonError(w, err.Error(), common.HTTPStatus(err))
		return
	}
	outcomes, err := s.runs.ListOutcomes(r.Context(), runID)
	if err != nil {
		s.log.Error("api.runs.outcomes_failed", "run_id", runID, "err", err)
		jsonError(w, "failed to load outcomes", common.HTTPStatus(err))
		return
	}

	res := core.Assemble(fieldsOf(outcomes, s.proc.Table().Names()), outcomes, core.Request{})
	resp := map[string]any{
		"run":     run,
		"records": res.Table,
		"errors":  res.Errors,
	}
	if hasTraces(outcomes) {
		resp["outcomes"] = outcomeTraces(outcomes)
	}
	writeJSON(w, http.StatusOK, resp)
}

func hasTraces(outcomes []entity.Outcome) bool {
	for _, o := range outcomes {
		if o.Trace != nil {
			return true
		}
	}
	return false
}

// fieldsOf returns the declared fields present in the stored records, in declared order.
func fieldsOf(outcomes []entity.Outcome, declared []string) []string {
	seen := map[string]bool{}
	for _, o := range outcomes {
		for k := range o.Record {
			seen[k] = true
		}
	}
	out := make([]string, 0, len(seen))
	for _, name := range declared {
		if seen[name] {
			out = append(out, name)
		}
	}
	return out
}
