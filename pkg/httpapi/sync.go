package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/forgeops/stocksync/pkg/syncer"
)

type syncBatchRequest struct {
	Operations []syncer.Operation `json:"operations"`
	LastSync   time.Time          `json:"last_sync"`
}

// applySyncBatch applies a batch of offline operations. The response always
// carries one outcome per operation; a 207 signals a mix of outcomes.
func (s *Server) applySyncBatch(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req syncBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	result, err := s.reconciler.ApplyBatch(r.Context(), identity.UserID, req.Operations, req.LastSync)
	if err != nil {
		if errors.Is(err, syncer.ErrEmptyBatch) {
			writeError(w, http.StatusBadRequest, "batch contains no operations")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to apply batch")
		return
	}

	status := http.StatusOK
	if result.Failed > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, result)
}
