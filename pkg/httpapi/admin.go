package httpapi

import (
	"net/http"

	"github.com/forgeops/stocksync/pkg/logger"
)

// triggerEvaluation runs a full rule pass on demand. Per-rule failures are
// reported but do not fail the request; the pass itself ran.
func (s *Server) triggerEvaluation(w http.ResponseWriter, r *http.Request) {
	err := s.evaluator.EvaluateAll(r.Context())
	if err != nil {
		s.logger.WarnContext(r.Context(), "on-demand evaluation finished with failures",
			logger.Error(err))
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "completed_with_errors",
			"detail": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

// connectionSnapshot exposes the live session registry for operators.
func (s *Server) connectionSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    s.hub.Len(),
		"sessions": s.hub.Snapshot(),
	})
}
