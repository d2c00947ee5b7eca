package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sdko-org/uptime-dashboard/internal/identity"
	"github.com/sdko-org/uptime-dashboard/internal/models"
	"github.com/sdko-org/uptime-dashboard/internal/monitorapi"
	"github.com/sdko-org/uptime-dashboard/internal/session"
	"github.com/sdko-org/uptime-dashboard/internal/view"
	"github.com/sirupsen/logrus"
)

const loginPath = "/login"

type notification struct {
	Level       string `json:"level"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeNotification(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"notification": notification{Level: "error", Message: message, Dismissible: true},
	})
}

func redirectToLogin(w http.ResponseWriter, message string) {
	w.Header().Set("Location", loginPath)
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"redirect": loginPath,
		"error":    message,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(out); err != nil {
		return &view.ValidationError{Field: "body", Message: "Malformed request body"}
	}
	return nil
}

func authStatus(kind identity.Kind) int {
	switch kind {
	case identity.KindInvalidCredentials, identity.KindUnknownUser, identity.KindUnconfirmedAccount:
		return http.StatusUnauthorized
	case identity.KindUsernameTaken:
		return http.StatusConflict
	case identity.KindTooManyAttempts:
		return http.StatusTooManyRequests
	}
	return http.StatusBadRequest
}

// writeError renders err with the status and shape the dashboard expects.
func (h *DashboardHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := h.log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path})

	var (
		validation *view.ValidationError
		authErr    *identity.AuthError
		serverErr  *monitorapi.ServerError
		transport  *monitorapi.TransportError
	)
	switch {
	case monitorapi.IsAuthorizationExpired(err), errors.Is(err, session.ErrUnauthenticated):
		log.WithError(err).Info("Authorization expired, redirecting to login")
		redirectToLogin(w, "Your session has expired. Please sign in again.")
	case errors.As(err, &validation):
		writeJSON(w, http.StatusUnprocessableEntity, validation)
	case errors.Is(err, models.ErrInvalidRange), errors.Is(err, view.ErrRangeTooLong), errors.Is(err, view.ErrUnknownPreset):
		writeJSON(w, http.StatusUnprocessableEntity, &view.ValidationError{Field: "range", Message: err.Error()})
	case errors.As(err, &authErr):
		writeJSON(w, authStatus(authErr.Kind), map[string]string{
			"error": authErr.Message(),
			"code":  authErr.Kind.String(),
		})
	case errors.Is(err, identity.ErrUnavailable):
		log.WithError(err).Error("Identity provider unavailable")
		writeNotification(w, http.StatusBadGateway, "Authentication service is unavailable, try again later")
	case errors.As(err, &serverErr) && serverErr.StatusCode >= 400 && serverErr.StatusCode < 500:
		writeNotification(w, serverErr.StatusCode, serverErr.Message())
	case errors.As(err, &serverErr):
		log.WithError(err).Error("Monitoring API error")
		writeNotification(w, http.StatusBadGateway, serverErr.Message())
	case errors.As(err, &transport):
		log.WithError(err).Error("Monitoring API unreachable")
		writeNotification(w, http.StatusBadGateway, "Monitoring service is unreachable, try again later")
	default:
		log.WithError(err).Error("Request failed")
		writeNotification(w, http.StatusInternalServerError, "Something went wrong")
	}
}
