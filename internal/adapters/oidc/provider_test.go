package oidc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/target/dispatch-api/internal/ports"
)

// fakeIdP serves discovery, token and userinfo endpoints. It never issues an
// id_token, so providers built against it must not request the openid scope.
func fakeIdP(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{
			"issuer":                 srv.URL,
			"authorization_endpoint": srv.URL + "/authorize",
			"token_endpoint":         srv.URL + "/token",
			"userinfo_endpoint":      srv.URL + "/userinfo",
			"jwks_uri":               srv.URL + "/jwks",
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			writeJSON(t, w, map[string]string{"error": "invalid_grant"})
			return
		}
		writeJSON(t, w, map[string]any{"access_token": "at-1", "token_type": "Bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(t, w, map[string]any{
			"samaccountname": "z001abc",
			"mail":           "Dana.Dispatch@Example.com",
			"firstname":      "Dana",
			"lastname":       "Dispatch",
			"memberof":       []string{"APP-DISPATCH-ADMIN"},
		})
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func newTestProvider(t *testing.T, idp *httptest.Server) *Provider {
	t.Helper()
	p, err := NewProvider(ProviderConfig{
		ClientID:     "dispatch",
		ClientSecret: "s3cret",
		RedirectURL:  "https://dispatch.example.com/auth/callback",
		Scope:        "profile email",
		DiscoveryURL: idp.URL + "/.well-known/openid-configuration",
		LogoutURL:    idp.URL + "/logout",
		HTTPClient:   idp.Client(),
	})
	require.NoError(t, err)
	return p
}

func TestNewProvider_MissingSettings(t *testing.T) {
	_, err := NewProvider(ProviderConfig{ClientID: "dispatch", RedirectURL: " "})
	require.Error(t, err)
	assert.EqualError(t, err, "oidc: missing client_secret, discovery_url, redirect_url")
}

func TestNewProvider_DiscoveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewProvider(ProviderConfig{
		ClientID: "a", ClientSecret: "b", RedirectURL: "https://x/cb",
		DiscoveryURL: srv.URL, HTTPClient: srv.Client(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oidc discovery")
}

func TestIssuerFromDiscovery(t *testing.T) {
	tests := map[string]string{
		"https://idp.example.com":                                    "https://idp.example.com",
		"https://idp.example.com/":                                   "https://idp.example.com",
		"https://idp.example.com/.well-known/openid-configuration":   "https://idp.example.com",
		" https://idp.example.com/t/.well-known/openid-configuration": "https://idp.example.com/t",
	}
	for in, want := range tests {
		assert.Equal(t, want, issuerFromDiscovery(in), in)
	}
}

func TestProvider_Begin(t *testing.T) {
	idp := fakeIdP(t)
	p := newTestProvider(t, idp)

	authURL, state, nonce, err := p.Begin(context.Background(), ports.BeginInput{RedirectURL: "/jobs"})
	require.NoError(t, err)
	assert.NotEmpty(t, state)
	assert.NotEmpty(t, nonce)
	assert.NotEqual(t, state, nonce)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, state, q.Get("state"))
	assert.Equal(t, nonce, q.Get("nonce"))
	assert.Equal(t, "dispatch", q.Get("client_id"))
	assert.Equal(t, "https://dispatch.example.com/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "select_account", q.Get("prompt"))

	_, _, _, err = p.Begin(context.Background(), ports.BeginInput{})
	assert.EqualError(t, err, "oidc: redirect URL is required")
}

func TestProvider_Exchange(t *testing.T) {
	idp := fakeIdP(t)
	p := newTestProvider(t, idp)
	ctx := context.Background()

	t.Run("user info fills identity", func(t *testing.T) {
		id, err := p.Exchange(ctx, ports.ExchangeInput{Code: "good-code", State: "s", Nonce: "n"})
		require.NoError(t, err)
		assert.Equal(t, "z001abc", id.UserID)
		assert.Equal(t, "dana.dispatch@example.com", id.Email)
		assert.Equal(t, "Dana", id.FirstName)
		assert.Equal(t, "Dispatch", id.LastName)
		assert.Equal(t, []string{"APP-DISPATCH-ADMIN"}, id.Groups)
		assert.False(t, id.ExpiresAt.IsZero())
	})

	t.Run("rejected code", func(t *testing.T) {
		_, err := p.Exchange(ctx, ports.ExchangeInput{Code: "bad", State: "s", Nonce: "n"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exchange code for token")
	})

	t.Run("missing inputs", func(t *testing.T) {
		for _, in := range []ports.ExchangeInput{
			{State: "s", Nonce: "n"},
			{Code: "c", Nonce: "n"},
			{Code: "c", State: "s"},
		} {
			_, err := p.Exchange(ctx, in)
			assert.EqualError(t, err, "oidc: code, state and nonce are required")
		}
	})
}

func TestProvider_LogoutURL(t *testing.T) {
	idp := fakeIdP(t)
	assert.Equal(t, idp.URL+"/logout", newTestProvider(t, idp).LogoutURL())
}

func TestMapClaims(t *testing.T) {
	t.Run("standard claims win", func(t *testing.T) {
		got := mapClaims(claimSet{
			Sub: "sub-1", SamAccountName: "z001", Email: "A@B.com", Mail: "other@b.com",
			GivenName: "Ann", FirstName: "X", Groups: []string{"g"}, Roles: []string{"r"},
		})
		assert.Equal(t, idFields{userID: "sub-1", email: "a@b.com", givenName: "Ann", groups: []string{"g"}}, got)
	})

	t.Run("falls back to roles then memberof", func(t *testing.T) {
		assert.Equal(t, []string{"r"}, mapClaims(claimSet{Roles: []string{"r"}, MemberOf: []string{"m"}}).groups)
		assert.Equal(t, []string{"m"}, mapClaims(claimSet{MemberOf: []string{"m"}}).groups)
		assert.Equal(t, "pref", mapClaims(claimSet{PreferredUsername: "pref"}).userID)
	})
}

func TestFillMissing(t *testing.T) {
	f := idFields{userID: "keep", groups: []string{"mine"}}
	fillMissing(&f, idFields{userID: "other", email: "e@x.com", givenName: "G", familyName: "F", groups: []string{"theirs"}})
	assert.Equal(t, idFields{userID: "keep", email: "e@x.com", givenName: "G", familyName: "F", groups: []string{"mine"}}, f)
}

func TestGetIDTokenFromToken(t *testing.T) {
	_, err := getIDTokenFromToken(nil)
	require.Error(t, err)

	_, err = getIDTokenFromToken(&oauth2.Token{AccessToken: "at"})
	assert.EqualError(t, err, "missing id_token in token response")

	tok := (&oauth2.Token{AccessToken: "at"}).WithExtra(map[string]any{"id_token": "raw.jwt.value"})
	raw, err := getIDTokenFromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "raw.jwt.value", raw)
}

func TestRandomToken(t *testing.T) {
	a, err := randomToken(stateBytes)
	require.NoError(t, err)
	b, err := randomToken(stateBytes)
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
