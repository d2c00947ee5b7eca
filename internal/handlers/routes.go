package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the auth endpoints, the session-guarded dashboard
// API and the operational endpoints on r.
func RegisterRoutes(r *mux.Router, h *DashboardHandler, metricsHandler http.Handler) {
	r.HandleFunc("/healthz", HandleHealth).Methods(http.MethodGet)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}

	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/session", h.SessionStatus).Methods(http.MethodGet)
	auth.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	auth.HandleFunc("/signup", h.Signup).Methods(http.MethodPost)
	auth.HandleFunc("/confirm", h.ConfirmSignup).Methods(http.MethodPost)
	auth.HandleFunc("/resend", h.ResendCode).Methods(http.MethodPost)
	auth.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)
	auth.HandleFunc("/forgot-password", h.ForgotPassword).Methods(http.MethodPost)
	auth.HandleFunc("/reset-password", h.ResetPassword).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(RequireSession(h.sessions))
	api.HandleFunc("/dashboard", h.Dashboard).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.OverallStats).Methods(http.MethodGet)
	api.HandleFunc("/endpoints", h.ListEndpoints).Methods(http.MethodGet)
	api.HandleFunc("/endpoints", h.CreateEndpoint).Methods(http.MethodPost)
	api.HandleFunc("/endpoints/{id}", h.GetEndpoint).Methods(http.MethodGet)
	api.HandleFunc("/endpoints/{id}", h.UpdateEndpoint).Methods(http.MethodPut)
	api.HandleFunc("/endpoints/{id}", h.DeleteEndpoint).Methods(http.MethodDelete)
	api.HandleFunc("/endpoints/{id}/status", h.SetEndpointStatus).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/endpoints/{id}/logs", h.ListLogs).Methods(http.MethodGet)
	api.HandleFunc("/endpoints/{id}/stats", h.EndpointStats).Methods(http.MethodGet)
	api.HandleFunc("/endpoints/{id}/export", h.ExportLogs).Methods(http.MethodGet)
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
