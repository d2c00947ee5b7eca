package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sdko-org/uptime-dashboard/internal/session"
	"github.com/sdko-org/uptime-dashboard/internal/view"
)

const sessionCookie = "session"

// bindingToken reads the caller's session token from the cookie or a
// bearer Authorization header.
func bindingToken(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// statusFor is the session status as seen by the caller. Clients that do
// not hold the bound token see an anonymous session.
func (h *DashboardHandler) statusFor(r *http.Request) session.Status {
	st := h.sessions.Status()
	if st.State == session.StateAuthenticated && !h.sessions.Authorized(bindingToken(r)) {
		return session.Status{State: session.StateAnonymous}
	}
	return st
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
}

type codeRequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

type resetRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

func (h *DashboardHandler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.statusFor(r))
}

func (h *DashboardHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := view.ValidateLogin(req.Email, req.Password); err != nil {
		h.writeError(w, r, err)
		return
	}

	if _, err := h.sessions.Login(r.Context(), req.Email, req.Password); err != nil {
		h.writeError(w, r, err)
		return
	}
	token, err := session.NewBindingToken()
	if err == nil {
		err = h.sessions.Bind(r.Context(), token)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	setSessionCookie(w, r, token)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   h.sessions.Status(),
		"redirect": "/dashboard",
	})
}

func (h *DashboardHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := view.ValidateSignup(req.Email, req.Password, req.ConfirmPassword); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.sessions.Signup(r.Context(), req.Email, req.Password, session.Profile{
		GivenName:  req.FirstName,
		FamilyName: req.LastName,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"username":         res.Username,
		"confirmed":        res.Confirmed,
		"code_destination": res.CodeDestination,
		"redirect":         "/confirm?username=" + url.QueryEscape(res.Username),
	})
}

func (h *DashboardHandler) ConfirmSignup(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		h.writeError(w, r, &view.ValidationError{Field: "username", Message: "Username is required"})
		return
	}
	if err := view.ValidateCode(req.Code); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.sessions.ConfirmSignup(r.Context(), req.Username, req.Code); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"redirect": loginPath})
}

func (h *DashboardHandler) ResendCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		h.writeError(w, r, &view.ValidationError{Field: "username", Message: "Username is required"})
		return
	}

	dest, err := h.sessions.ResendConfirmationCode(r.Context(), req.Username)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code_destination": dest})
}

// Logout always succeeds for the caller. Only the client holding the bound
// token ends the operator session.
func (h *DashboardHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h.sessions.Authorized(bindingToken(r)) {
		h.sessions.Logout(r.Context())
	} else {
		h.log.WithField("client_ip", h.clientIP(r)).Info("Logout from unbound client, session left intact")
	}
	clearSessionCookie(w, r)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   h.statusFor(r),
		"redirect": loginPath,
	})
}

func (h *DashboardHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := view.ValidateEmail(req.Email); err != nil {
		h.writeError(w, r, err)
		return
	}

	dest, err := h.sessions.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code_destination": dest})
}

func (h *DashboardHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := view.ValidateEmail(req.Email); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := view.ValidateCode(req.Code); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := view.ValidatePassword(req.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.sessions.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"redirect": loginPath})
}
