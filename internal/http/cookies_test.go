package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieDomainFor(t *testing.T) {
	tests := map[string]string{
		"https://dispatch.example.com":       "example.com",
		"https://app.dispatch.example.co.uk": "example.co.uk",
		"https://example.com:8443/base":      "example.com",
		"http://localhost:8080":              "",
		"http://127.0.0.1:8080":              "",
		"http://[::1]:8080":                  "",
		"https://co.uk":                      "",
		"":                                   "",
		"::not a url":                        "",
	}
	for in, want := range tests {
		assert.Equal(t, want, CookieDomainFor(in), in)
	}
}

func TestCookieWriter(t *testing.T) {
	cw := cookieWriter{domain: "example.com"}

	t.Run("secure behind proxy", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-Proto", "https")
		rec := httptest.NewRecorder()
		cw.set(rec, req, cookieSession, "abc", 3600)

		c := findCookie(rec, cookieSession)
		require.NotNil(t, c)
		assert.True(t, c.Secure)
		assert.True(t, c.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.Equal(t, 3600, c.MaxAge)
	})

	t.Run("clear", func(t *testing.T) {
		rec := httptest.NewRecorder()
		cw.clear(rec, httptest.NewRequest(http.MethodGet, "/", nil), cookieSession)

		c := findCookie(rec, cookieSession)
		require.NotNil(t, c)
		assert.Empty(t, c.Value)
		assert.Equal(t, -1, c.MaxAge)
		assert.False(t, c.Secure)
	})
}
