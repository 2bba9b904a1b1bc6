package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/forgeops/stocksync/pkg/notifier"
)

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	opts := notifier.ListOptions{Limit: 50}
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		opts.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		opts.Offset = offset
	}
	if q.Get("unread") == "true" {
		opts.OnlyUnread = true
	}
	for _, kind := range q["kind"] {
		opts.Kinds = append(opts.Kinds, notifier.Kind(kind))
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since timestamp")
			return
		}
		opts.Since = &since
	}

	notifications, err := s.dispatcher.List(r.Context(), identity.UserID, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if notifications == nil {
		notifications = []notifier.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (s *Server) notificationSummary(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	summary, err := s.dispatcher.Summarize(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	notificationID, err := uuid.Parse(chi.URLParam(r, "notificationID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	ok, err := s.dispatcher.MarkRead(r.Context(), notificationID, identity.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to mark notification read")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

type bulkNotifyRequest struct {
	UserIDs    []uuid.UUID        `json:"user_ids"`
	Title      string             `json:"title"`
	Body       string             `json:"body"`
	Kind       notifier.Kind      `json:"kind"`
	Priority   notifier.Priority  `json:"priority,omitempty"`
	Channels   []notifier.Channel `json:"channels,omitempty"`
	Data       map[string]any     `json:"data,omitempty"`
	ExpiresAt  *time.Time         `json:"expires_at,omitempty"`
	ItemID     *uuid.UUID         `json:"item_id,omitempty"`
	LocationID *uuid.UUID         `json:"location_id,omitempty"`
}

// bulkNotify fans one announcement out to several users, reporting one
// outcome per target. Partial failure is a 207, total failure a 500.
func (s *Server) bulkNotify(w http.ResponseWriter, r *http.Request) {
	var req bulkNotifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if len(req.UserIDs) == 0 {
		writeError(w, http.StatusBadRequest, "user_ids is required")
		return
	}

	outcomes := s.dispatcher.DispatchBulk(r.Context(), notifier.BulkRequest{
		UserIDs:    req.UserIDs,
		Title:      req.Title,
		Body:       req.Body,
		Kind:       req.Kind,
		Priority:   req.Priority,
		Channels:   req.Channels,
		Data:       req.Data,
		ExpiresAt:  req.ExpiresAt,
		ItemID:     req.ItemID,
		LocationID: req.LocationID,
	})

	failed := 0
	for _, o := range outcomes {
		if o.Status != "processed" {
			failed++
		}
	}

	status := http.StatusOK
	switch {
	case failed == len(outcomes):
		status = http.StatusInternalServerError
	case failed > 0:
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, map[string]any{"outcomes": outcomes})
}
