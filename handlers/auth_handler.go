package handlers

import (
	"html/template"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/benson/survivor/logging"
	"github.com/benson/survivor/metrics"
	"github.com/benson/survivor/middleware"
	"github.com/benson/survivor/models"
	"github.com/benson/survivor/services"
)

// AuthHandler handles admin login and logout.
type AuthHandler struct {
	templates   *template.Template
	authService *services.AuthService
	cookieTTL   time.Duration
	logger      *logging.Logger
}

// NewAuthHandler creates a new authentication handler. cookieTTL should
// match the token expiry so the cookie does not outlive its token.
func NewAuthHandler(templates *template.Template, authService *services.AuthService, cookieTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		templates:   templates,
		authService: authService,
		cookieTTL:   cookieTTL,
		logger:      logging.WithPrefix("AuthHandler"),
	}
}

// LoginPage displays the login form
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	// If already authenticated, redirect to the admin page
	if middleware.IsAuthenticated(r) {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	data := struct {
		Title string
		Error string
	}{
		Title: "Admin Login",
		Error: r.URL.Query().Get("error"),
	}

	if err := h.templates.ExecuteTemplate(w, "login.html", data); err != nil {
		h.logger.Errorf("Template error: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Login handles the login form submission
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	if username == "" || password == "" {
		http.Redirect(w, r, "/login?error="+url.QueryEscape("Please provide both username and password"), http.StatusSeeOther)
		return
	}

	authResponse, err := h.authService.Login(r.Context(), username, password)
	if err != nil {
		metrics.RecordLoginAttempt("failure")
		h.logger.Warnf("Login failed for %s: %v", username, err)
		http.Redirect(w, r, "/login?error="+url.QueryEscape("Invalid username or password"), http.StatusSeeOther)
		return
	}

	metrics.RecordLoginAttempt("success")
	h.setAuthCookie(w, authResponse.Token)

	h.logger.Infof("Admin %s logged in", authResponse.Username)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// LoginAPI handles JSON login requests
func (h *AuthHandler) LoginAPI(w http.ResponseWriter, r *http.Request) {
	var loginReq models.LoginRequest
	if err := decodeJSON(r, &loginReq); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if loginReq.Username == "" || loginReq.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username and password are required"})
		return
	}

	authResponse, err := h.authService.Login(r.Context(), loginReq.Username, loginReq.Password)
	if err != nil {
		metrics.RecordLoginAttempt("failure")
		h.logger.Warnf("API login failed for %s: %v", loginReq.Username, err)
		writeError(w, h.logger, err)
		return
	}

	metrics.RecordLoginAttempt("success")
	h.logger.Infof("Admin %s logged in via API", authResponse.Username)
	writeJSON(w, http.StatusOK, authResponse)
}

// Logout clears the auth cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   cookieSecure(),
		SameSite: http.SameSiteStrictMode,
	})

	h.logger.Infof("Admin logged out from %s", r.RemoteAddr)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Me returns the current admin's information
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r)
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// setAuthCookie sets the authentication cookie
func (h *AuthHandler) setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.cookieTTL),
		HttpOnly: true,
		Secure:   cookieSecure(),
		SameSite: http.SameSiteStrictMode,
	})
}

// cookieSecure decides the Secure flag. Behind a TLS-terminating proxy
// the app side of the connection is plain HTTP.
func cookieSecure() bool {
	return os.Getenv("BEHIND_PROXY") != "true"
}
