package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/forgeops/stocksync/pkg/notifier"
)

func (s *Server) getPreference(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	pref, err := s.dispatcher.Storage().Preference(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, notifier.ErrPreferenceNotFound) {
			def := notifier.DefaultPreference(identity.UserID)
			writeJSON(w, http.StatusOK, def)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load preference")
		return
	}
	writeJSON(w, http.StatusOK, pref)
}

type preferenceRequest struct {
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	PushToken   string `json:"push_token,omitempty"`

	EmailEnabled bool `json:"email_enabled"`
	SMSEnabled   bool `json:"sms_enabled"`
	PushEnabled  bool `json:"push_enabled"`
	InAppEnabled bool `json:"in_app_enabled"`

	QuietHoursEnabled bool             `json:"quiet_hours_enabled"`
	QuietHours        *notifier.Window `json:"quiet_hours,omitempty"`

	KindOverrides map[string]bool `json:"kind_overrides,omitempty"`
}

func (s *Server) updatePreference(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req preferenceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	now := time.Now()
	pref := notifier.Preference{
		UserID:            identity.UserID,
		Email:             req.Email,
		PhoneNumber:       req.PhoneNumber,
		PushToken:         req.PushToken,
		EmailEnabled:      req.EmailEnabled,
		SMSEnabled:        req.SMSEnabled,
		PushEnabled:       req.PushEnabled,
		InAppEnabled:      req.InAppEnabled,
		QuietHoursEnabled: req.QuietHoursEnabled,
		QuietHours:        notifier.Window{Start: "22:00", End: "08:00"},
		KindOverrides:     req.KindOverrides,
		UpdatedAt:         now,
	}
	if req.QuietHours != nil {
		if err := req.QuietHours.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		pref.QuietHours = *req.QuietHours
	}

	if existing, err := s.dispatcher.Storage().Preference(r.Context(), identity.UserID); err == nil {
		pref.CreatedAt = existing.CreatedAt
	} else {
		pref.CreatedAt = now
	}

	if err := s.dispatcher.Storage().SavePreference(r.Context(), pref); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save preference")
		return
	}
	writeJSON(w, http.StatusOK, pref)
}
