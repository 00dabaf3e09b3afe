package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/dispatch-api/internal/domain/auth"
	apperrors "github.com/target/dispatch-api/internal/errors"
	"github.com/target/dispatch-api/internal/service"
)

func TestAuthHandlers_Login(t *testing.T) {
	var gotRedirect string
	h := &AuthHandlers{
		Svc: &mockAuthService{
			beginLoginFunc: func(_ context.Context, redirectURL string) (*service.BeginLoginResult, error) {
				gotRedirect = redirectURL
				return &service.BeginLoginResult{AuthURL: "https://idp.test/authorize", State: "st", Nonce: "nc"}, nil
			},
		},
		CookieDomain: "example.com",
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/login?redirect_uri=/jobs/Job-7K2M9Q", nil)
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://idp.test/authorize", rec.Header().Get("Location"))
	assert.Equal(t, "/jobs/Job-7K2M9Q", gotRedirect)

	state := findCookie(rec, cookieOAuthState)
	require.NotNil(t, state)
	assert.Equal(t, "st", state.Value)
	assert.Equal(t, "example.com", state.Domain)
	assert.True(t, state.HttpOnly)
	require.NotNil(t, findCookie(rec, cookieOAuthNonce))
	assert.Equal(t, "/jobs/Job-7K2M9Q", findCookie(rec, cookiePostLoginRedirect).Value)
}

func TestAuthHandlers_Login_RejectsOffsiteRedirect(t *testing.T) {
	var gotRedirect string
	h := &AuthHandlers{Svc: &mockAuthService{
		beginLoginFunc: func(_ context.Context, redirectURL string) (*service.BeginLoginResult, error) {
			gotRedirect = redirectURL
			return &service.BeginLoginResult{AuthURL: "https://idp.test/authorize"}, nil
		},
	}}

	for _, target := range []string{"https://evil.example.net/", "//evil.example.net", "jobs"} {
		req := httptest.NewRequest(http.MethodGet, "/auth/login?redirect_uri="+target, nil)
		h.Login(httptest.NewRecorder(), req)
		assert.Equal(t, "/", gotRedirect, target)
	}
}

func TestAuthHandlers_Login_ProviderDisabled(t *testing.T) {
	h := &AuthHandlers{Svc: &mockAuthService{providerDisabled: true}}
	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func callbackRequest(query string, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/auth/callback?"+query, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func TestAuthHandlers_Callback(t *testing.T) {
	var got service.CompleteLoginInput
	h := &AuthHandlers{Svc: &mockAuthService{
		completeLoginFunc: func(_ context.Context, in service.CompleteLoginInput) (*service.CompleteLoginResult, error) {
			got = in
			return &service.CompleteLoginResult{Session: testSession("fresh", domainauth.RoleUser)}, nil
		},
	}}

	rec := httptest.NewRecorder()
	h.Callback(rec, callbackRequest("code=abc&state=st",
		&http.Cookie{Name: cookieOAuthState, Value: "st"},
		&http.Cookie{Name: cookieOAuthNonce, Value: "nc"},
		&http.Cookie{Name: cookiePostLoginRedirect, Value: "/dashboard"},
	))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	assert.Equal(t, service.CompleteLoginInput{Code: "abc", State: "st", Nonce: "nc"}, got)

	session := findCookie(rec, cookieSession)
	require.NotNil(t, session)
	assert.Equal(t, "fresh", session.Value)
	assert.Positive(t, session.MaxAge)
	assert.Equal(t, -1, findCookie(rec, cookieOAuthState).MaxAge)
}

func TestAuthHandlers_Callback_Rejections(t *testing.T) {
	h := &AuthHandlers{Svc: &mockAuthService{}}

	tests := []struct {
		name      string
		req       *http.Request
		wantField string
	}{
		{"missing code", callbackRequest("state=st"), "code"},
		{"missing state", callbackRequest("code=abc"), "state"},
		{"state mismatch", callbackRequest("code=abc&state=st", &http.Cookie{Name: cookieOAuthState, Value: "other"}), "state"},
		{"missing nonce", callbackRequest("code=abc&state=st", &http.Cookie{Name: cookieOAuthState, Value: "st"}), "nonce"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Callback(rec, tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantField, decodeError(t, rec).Field)
		})
	}
}

func TestAuthHandlers_Callback_ExchangeFails(t *testing.T) {
	h := &AuthHandlers{Logger: quietLogger(), Svc: &mockAuthService{
		completeLoginFunc: func(context.Context, service.CompleteLoginInput) (*service.CompleteLoginResult, error) {
			return nil, errors.New("exchange authorization code: token endpoint unavailable")
		},
	}}
	rec := httptest.NewRecorder()
	h.Callback(rec, callbackRequest("code=abc&state=st",
		&http.Cookie{Name: cookieOAuthState, Value: "st"},
		&http.Cookie{Name: cookieOAuthNonce, Value: "nc"},
	))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Nil(t, findCookie(rec, cookieSession))
}

func TestAuthHandlers_Password(t *testing.T) {
	h := &AuthHandlers{Svc: &mockAuthService{
		passwordLoginFunc: func(_ context.Context, email, password string) (*service.CompleteLoginResult, error) {
			if email == "dispatcher@example.com" && password == "correct-horse-battery" {
				return &service.CompleteLoginResult{Session: testSession("pw-session", domainauth.RoleUser)}, nil
			}
			return nil, apperrors.Unauthorized("invalid email or password")
		},
	}}

	t.Run("success", func(t *testing.T) {
		rec := httptest.NewRecorder()
		body := `{"email":"dispatcher@example.com","password":"correct-horse-battery"}`
		h.Password(rec, httptest.NewRequest(http.MethodPost, "/auth/password", strings.NewReader(body)))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "pw-session", findCookie(rec, cookieSession).Value)
		var user SessionUser
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
		assert.Equal(t, domainauth.RoleUser, user.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := httptest.NewRecorder()
		body := `{"email":"dispatcher@example.com","password":"nope"}`
		h.Password(rec, httptest.NewRequest(http.MethodPost, "/auth/password", strings.NewReader(body)))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, findCookie(rec, cookieSession))
	})
}

func TestAuthHandlers_Logout(t *testing.T) {
	var loggedOut string
	h := &AuthHandlers{Svc: &mockAuthService{
		logoutFunc: func(_ context.Context, id string) error {
			loggedOut = id
			return errors.New("redis down")
		},
	}, Logger: quietLogger()}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: cookieSession, Value: userSessionID})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, userSessionID, loggedOut)
	assert.Equal(t, -1, findCookie(rec, cookieSession).MaxAge)
}

func TestAuthHandlers_Me(t *testing.T) {
	h := &AuthHandlers{Svc: &mockAuthService{}}

	t.Run("signed in", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: cookieSession, Value: adminSessionID})
		rec := httptest.NewRecorder()
		h.Me(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var user SessionUser
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
		assert.Equal(t, "admin@example.com", user.Email)
		assert.Equal(t, domainauth.RoleAdmin, user.Role)
	})

	t.Run("anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Me(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSafeRedirectPath(t *testing.T) {
	assert.Equal(t, "/", safeRedirectPath(""))
	assert.Equal(t, "/jobs?status=new", safeRedirectPath("/jobs?status=new"))
	assert.Equal(t, "/", safeRedirectPath("https://evil.example.net/"))
	assert.Equal(t, "/", safeRedirectPath("//evil.example.net/x"))
	assert.Equal(t, "/", safeRedirectPath("relative"))
}
