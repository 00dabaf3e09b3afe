// Package oidc signs dispatch users in through an OpenID Connect identity provider.
package oidc

import (
	"cmp"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	domainauth "github.com/target/dispatch-api/internal/domain/auth"
	"github.com/target/dispatch-api/internal/ports"
	"golang.org/x/oauth2"
)

// Provider is the ports.AuthProvider for AUTH_MODE=oauth.
type Provider struct {
	config    *oauth2.Config
	logoutURL string

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier
}

// ProviderConfig mirrors the OAUTH_* settings.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	// DiscoveryURL may be the issuer or its /.well-known/openid-configuration URL.
	DiscoveryURL string
	LogoutURL    string
	HTTPClient   *http.Client
}

const (
	defaultHTTPTimeout = 30 * time.Second
	stateBytes         = 24
	fallbackTokenTTL   = time.Hour
)

func (c ProviderConfig) validate() error {
	var missing []string
	for name, v := range map[string]string{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"redirect_url":  c.RedirectURL,
		"discovery_url": c.DiscoveryURL,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return fmt.Errorf("oidc: missing %s", strings.Join(missing, ", "))
}

// issuerFromDiscovery strips the well-known suffix so go-oidc can append it.
func issuerFromDiscovery(u string) string {
	u = strings.TrimSuffix(strings.TrimSpace(u), "/")
	u = strings.TrimSuffix(u, "/.well-known/openid-configuration")
	return strings.TrimSuffix(u, "/")
}

// NewProvider fetches the discovery document once and builds the OAuth2 client.
func NewProvider(config ProviderConfig) (*Provider, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	ctx := gooidc.ClientContext(context.Background(), httpClient)
	op, err := gooidc.NewProvider(ctx, issuerFromDiscovery(config.DiscoveryURL))
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       strings.Fields(config.Scope),
			Endpoint:     op.Endpoint(),
		},
		logoutURL:    config.LogoutURL,
		oidcProvider: op,
		verifier:     op.Verifier(&gooidc.Config{ClientID: config.ClientID}),
	}, nil
}

// Begin returns the IdP authorization URL with a fresh state and nonce.
// The redirect_uri is always the configured one; in.RedirectURL is only the
// post-login destination and must be present.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, string, error) {
	if in.RedirectURL == "" {
		return "", "", "", errors.New("oidc: redirect URL is required")
	}
	state, err := randomToken(stateBytes)
	if err != nil {
		return "", "", "", fmt.Errorf("oidc: state: %w", err)
	}
	nonce, err := randomToken(stateBytes)
	if err != nil {
		return "", "", "", fmt.Errorf("oidc: nonce: %w", err)
	}
	authURL := p.config.AuthCodeURL(state,
		gooidc.Nonce(nonce),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	return authURL, state, nonce, nil
}

// Exchange trades the code for tokens, verifies the ID token nonce and fills
// gaps from the UserInfo endpoint.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if in.Code == "" || in.State == "" || in.Nonce == "" {
		return domainauth.Identity{}, errors.New("oidc: code, state and nonce are required")
	}

	token, err := p.config.Exchange(ctx, in.Code)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("exchange code for token: %w", err)
	}

	fields, err := p.extractFromIDToken(ctx, token, in.Nonce)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("extract id_token: %w", err)
	}
	if fields.email == "" || fields.userID == "" {
		if fillErr := p.fillFromUserInfo(ctx, token.AccessToken, &fields); fillErr != nil {
			return domainauth.Identity{}, fmt.Errorf("get user info: %w", fillErr)
		}
	}
	if fields.email == "" {
		return domainauth.Identity{}, errors.New("oidc: identity provider returned no verified email")
	}

	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(fallbackTokenTTL)
	}
	return domainauth.Identity{
		UserID:    fields.userID,
		FirstName: fields.givenName,
		LastName:  fields.familyName,
		Email:     fields.email,
		Groups:    fields.groups,
		ExpiresAt: expiresAt,
	}, nil
}

// claimSet is the union of standard OIDC claims and the AD/ADFS shapes some
// corporate IdPs still emit. It decodes both ID tokens and UserInfo payloads.
type claimSet struct {
	Sub               string   `json:"sub"`
	Email             string   `json:"email"`
	EmailVerified     *bool    `json:"email_verified"`
	GivenName         string   `json:"given_name"`
	FamilyName        string   `json:"family_name"`
	PreferredUsername string   `json:"preferred_username"`
	Groups            []string `json:"groups"`
	Roles             []string `json:"roles"`
	Nonce             string   `json:"nonce"`

	SamAccountName string   `json:"samaccountname"`
	FirstName      string   `json:"firstname"`
	LastName       string   `json:"lastname"`
	Mail           string   `json:"mail"`
	MemberOf       []string `json:"memberof"`
}

func (p *Provider) getUserInfo(ctx context.Context, accessToken string) (*claimSet, error) {
	ui, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	var claims claimSet
	if claimsErr := ui.Claims(&claims); claimsErr != nil {
		return nil, fmt.Errorf("decode user info: %w", claimsErr)
	}
	return &claims, nil
}

type idFields struct {
	userID     string
	email      string
	givenName  string
	familyName string
	groups     []string
}

func (p *Provider) extractFromIDToken(ctx context.Context, tok *oauth2.Token, expectedNonce string) (idFields, error) {
	var f idFields
	if !p.hasOpenIDScope() {
		return f, nil
	}
	rawID, err := getIDTokenFromToken(tok)
	if err != nil {
		return f, err
	}
	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return f, fmt.Errorf("verify id_token: %w", err)
	}
	var claims claimSet
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return f, fmt.Errorf("parse id_token claims: %w", claimsErr)
	}
	if expectedNonce != "" && claims.Nonce != expectedNonce {
		return f, errors.New("invalid nonce")
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		claims.Email = ""
	}
	return mapClaims(claims), nil
}

func (p *Provider) fillFromUserInfo(ctx context.Context, accessToken string, f *idFields) error {
	ui, err := p.getUserInfo(ctx, accessToken)
	if err != nil {
		return err
	}
	fillMissing(f, mapClaims(*ui))
	return nil
}

// mapClaims prefers standard OIDC claims and falls back to AD names.
func mapClaims(c claimSet) idFields {
	groups := c.Groups
	if len(groups) == 0 {
		groups = c.Roles
	}
	if len(groups) == 0 {
		groups = c.MemberOf
	}
	return idFields{
		userID:     cmp.Or(c.Sub, c.SamAccountName, c.PreferredUsername),
		email:      strings.ToLower(cmp.Or(c.Email, c.Mail)),
		givenName:  cmp.Or(c.GivenName, c.FirstName),
		familyName: cmp.Or(c.FamilyName, c.LastName),
		groups:     groups,
	}
}

func fillMissing(f *idFields, from idFields) {
	if f.userID == "" {
		f.userID = from.userID
	}
	if f.email == "" {
		f.email = from.email
	}
	if f.givenName == "" {
		f.givenName = from.givenName
	}
	if f.familyName == "" {
		f.familyName = from.familyName
	}
	if len(f.groups) == 0 {
		f.groups = from.groups
	}
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (p *Provider) hasOpenIDScope() bool {
	return slices.Contains(p.config.Scopes, gooidc.ScopeOpenID)
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	raw := tok.Extra("id_token")
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}

// LogoutURL is the IdP end-session endpoint, empty when not configured.
func (p *Provider) LogoutURL() string {
	return p.logoutURL
}
