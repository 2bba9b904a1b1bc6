package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/forgeops/stocksync/pkg/alerts"
	"github.com/forgeops/stocksync/pkg/logger"
	"github.com/forgeops/stocksync/pkg/notifier"
)

type ruleRequest struct {
	Name       string             `json:"name"`
	Kind       notifier.Kind      `json:"kind"`
	LocationID *uuid.UUID         `json:"location_id,omitempty"`
	Category   string             `json:"category,omitempty"`
	Condition  alerts.Condition   `json:"condition"`
	Channels   []notifier.Channel `json:"channels"`
	Priority   notifier.Priority  `json:"priority,omitempty"`
	Active     *bool              `json:"active,omitempty"`
	QuietHours *notifier.Window   `json:"quiet_hours,omitempty"`
}

func (req ruleRequest) toRule(id, userID uuid.UUID, createdAt, now time.Time) alerts.Rule {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return alerts.Rule{
		ID:         id,
		UserID:     userID,
		Name:       req.Name,
		Kind:       req.Kind,
		LocationID: req.LocationID,
		Category:   req.Category,
		Condition:  req.Condition,
		Channels:   req.Channels,
		Priority:   req.Priority,
		Active:     active,
		QuietHours: req.QuietHours,
		CreatedAt:  createdAt,
		UpdatedAt:  now,
	}
}

func (s *Server) createRule(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	now := time.Now()
	rule := req.toRule(uuid.New(), identity.UserID, now, now)
	if err := rule.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.rules.Create(r.Context(), rule); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to create alert rule", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create rule")
		return
	}

	writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	rules, err := s.rules.ListByUser(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list rules")
		return
	}
	if rules == nil {
		rules = []alerts.Rule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

func (s *Server) getRule(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	ruleID, err := uuid.Parse(chi.URLParam(r, "ruleID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	rule, err := s.rules.Get(r.Context(), ruleID, identity.UserID)
	if err != nil {
		if errors.Is(err, alerts.ErrRuleNotFound) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load rule")
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) updateRule(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	ruleID, err := uuid.Parse(chi.URLParam(r, "ruleID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	existing, err := s.rules.Get(r.Context(), ruleID, identity.UserID)
	if err != nil {
		if errors.Is(err, alerts.ErrRuleNotFound) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load rule")
		return
	}

	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	rule := req.toRule(existing.ID, identity.UserID, existing.CreatedAt, time.Now())
	if err := rule.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.rules.Update(r.Context(), rule); err != nil {
		if errors.Is(err, alerts.ErrRuleNotFound) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update rule")
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) deleteRule(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	ruleID, err := uuid.Parse(chi.URLParam(r, "ruleID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule id")
		return
	}

	if err := s.rules.Delete(r.Context(), ruleID, identity.UserID); err != nil {
		if errors.Is(err, alerts.ErrRuleNotFound) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete rule")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
