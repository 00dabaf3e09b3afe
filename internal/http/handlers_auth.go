package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/target/dispatch-api/internal/domain/auth"
	apperrors "github.com/target/dispatch-api/internal/errors"
	"github.com/target/dispatch-api/internal/service"
)

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	SessionResolver
	ProviderEnabled() bool
	BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	PasswordLogin(ctx context.Context, email, password string) (*service.CompleteLoginResult, error)
	Logout(ctx context.Context, sessionID string) error
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc          AuthServiceInterface
	CookieDomain string
	Logger       *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AuthHandlers) cookies() cookieWriter {
	return cookieWriter{domain: h.CookieDomain}
}

// SessionUser is the public view of the signed-in principal.
type SessionUser struct {
	ID        string          `json:"id"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Email     string          `json:"email"`
	Role      domainauth.Role `json:"role"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func newSessionUser(s domainauth.Session) SessionUser {
	return SessionUser{
		ID:        s.UserID,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Email:     s.Email,
		Role:      s.Role,
		ExpiresAt: s.ExpiresAt,
	}
}

// Login starts the external identity provider flow.
// GET /auth/login?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	if !h.Svc.ProviderEnabled() {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: string(apperrors.ErrCodeNotFound),
			Err:     errors.New("external login is not enabled"),
		})
		return
	}
	redirectURI := safeRedirectPath(r.URL.Query().Get("redirect_uri"))

	result, err := h.Svc.BeginLogin(r.Context(), redirectURI)
	if err != nil {
		WriteServiceError(w, r, h.logger(), err)
		return
	}

	c := h.cookies()
	c.set(w, r, cookieOAuthState, result.State, oauthCookieMaxAge)
	c.set(w, r, cookieOAuthNonce, result.Nonce, oauthCookieMaxAge)
	c.set(w, r, cookiePostLoginRedirect, redirectURI, oauthCookieMaxAge)

	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// Callback completes the identity provider flow.
// GET /auth/callback?code=<code>&state=<state>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		writeValidation(w, "code", "authorization code is required")
		return
	}
	if state == "" {
		writeValidation(w, "state", "state parameter is required")
		return
	}

	stateCookie, err := r.Cookie(cookieOAuthState)
	if err != nil || stateCookie.Value != state {
		writeValidation(w, "state", "invalid or missing state parameter")
		return
	}
	nonceCookie, err := r.Cookie(cookieOAuthNonce)
	if err != nil {
		writeValidation(w, "nonce", "missing nonce parameter")
		return
	}

	result, err := h.Svc.CompleteLogin(r.Context(), service.CompleteLoginInput{
		Code:  code,
		State: state,
		Nonce: nonceCookie.Value,
	})
	if err != nil {
		h.logger().WarnContext(r.Context(), "login completion failed", "error", err)
		WriteServiceError(w, r, h.logger(), err)
		return
	}

	c := h.cookies()
	h.setSessionCookie(w, r, result.Session)
	c.clear(w, r, cookieOAuthState)
	c.clear(w, r, cookieOAuthNonce)

	http.Redirect(w, r, h.postLoginRedirect(w, r), http.StatusFound)
}

type passwordLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Password signs in with email and password.
// POST /auth/password.
func (h *AuthHandlers) Password(w http.ResponseWriter, r *http.Request) {
	var req passwordLoginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	result, err := h.Svc.PasswordLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteServiceError(w, r, h.logger(), err)
		return
	}
	h.setSessionCookie(w, r, result.Session)
	WriteJSON(w, http.StatusOK, newSessionUser(result.Session))
}

// Logout removes the server-side session and clears the cookie.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionCookie, err := r.Cookie(cookieSession); err == nil {
		if logoutErr := h.Svc.Logout(r.Context(), sessionCookie.Value); logoutErr != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", logoutErr)
		}
	}
	h.cookies().clear(w, r, cookieSession)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in user.
// GET /api/auth/me.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	session := getSessionFromRequest(r, h.Svc)
	if session == nil {
		h.cookies().clear(w, r, cookieSession)
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: string(apperrors.ErrCodeUnauthorized),
			Err:     errors.New("authentication required"),
		})
		return
	}
	WriteJSON(w, http.StatusOK, newSessionUser(*session))
}

func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, r *http.Request, s domainauth.Session) {
	h.cookies().set(w, r, cookieSession, s.ID, int(time.Until(s.ExpiresAt).Seconds()))
}

// postLoginRedirect returns the stored post-login path and clears its cookie.
func (h *AuthHandlers) postLoginRedirect(w http.ResponseWriter, r *http.Request) string {
	redirectCookie, err := r.Cookie(cookiePostLoginRedirect)
	if err != nil {
		return "/"
	}
	h.cookies().clear(w, r, cookiePostLoginRedirect)
	return safeRedirectPath(redirectCookie.Value)
}

func writeValidation(w http.ResponseWriter, field, msg string) {
	WriteError(w, ErrorParams{
		Code:    http.StatusBadRequest,
		ErrCode: string(apperrors.ErrCodeValidation),
		Field:   field,
		Err:     errors.New(msg),
	})
}

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "/" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(candidate, "//") {
		return "/"
	}
	return candidate
}
