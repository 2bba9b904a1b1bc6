package httpapi

import "net/http"

// relayScanResult pushes a decoded barcode payload to the caller's live
// session so the scanning device sees the result without polling. Decoding
// happens client-side; this surface only relays.
func (s *Server) relayScanResult(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var payload map[string]any
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.hub.RelayBarcodeScan(identity.UserID.String(), payload)
	writeJSON(w, http.StatusOK, payload)
}
