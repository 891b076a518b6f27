package out

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"ghnb/internal/modules/auth/domain"
	authout "ghnb/internal/modules/auth/port/out"
	apperrors "ghnb/internal/platform/errors"
)

// GitHubEndpoint is github.com's OAuth endpoint including device authorization.
var GitHubEndpoint = oauth2.Endpoint{
	AuthURL:       "https://github.com/login/oauth/authorize",
	TokenURL:      "https://github.com/login/oauth/access_token",
	DeviceAuthURL: "https://github.com/login/device/code",
}

type DeviceAuthorizerOptions struct {
	ClientID string
	Endpoint oauth2.Endpoint
	// UserURL is the REST endpoint answering {"login": ...} for the new
	// token. Empty skips the account lookup.
	UserURL    string
	HTTPClient *http.Client
}

type OAuthDeviceAuthorizer struct {
	opts DeviceAuthorizerOptions
}

func NewOAuthDeviceAuthorizer(opts DeviceAuthorizerOptions) authout.DeviceAuthorizer {
	return &OAuthDeviceAuthorizer{opts: opts}
}

// UserURLFor maps a GraphQL endpoint to the REST user endpoint beside it:
// https://api.github.com/graphql -> https://api.github.com/user, and
// https://ghe.example/api/graphql -> https://ghe.example/api/v3/user.
func UserURLFor(graphqlEndpoint string) string {
	base, ok := strings.CutSuffix(strings.TrimRight(graphqlEndpoint, "/"), "/graphql")
	if !ok {
		return ""
	}
	if strings.HasSuffix(base, "/api") {
		return base + "/v3/user"
	}
	return base + "/user"
}

func (a *OAuthDeviceAuthorizer) Authorize(ctx context.Context, scopes []string, prompt func(domain.DeviceCode)) (domain.Grant, error) {
	if strings.TrimSpace(a.opts.ClientID) == "" {
		return domain.Grant{}, fmt.Errorf("%w: auth.client_id is not configured (or set GITHUB_TOKEN)", apperrors.ErrInvalidInput)
	}
	cfg := &oauth2.Config{
		ClientID: a.opts.ClientID,
		Endpoint: a.opts.Endpoint,
		Scopes:   scopes,
	}
	if a.opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.opts.HTTPClient)
	}

	code, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return domain.Grant{}, fmt.Errorf("request device code: %w", err)
	}
	verification := code.VerificationURIComplete
	if verification == "" {
		verification = code.VerificationURI
	}
	prompt(domain.DeviceCode{UserCode: code.UserCode, VerificationURI: verification, ExpiresAt: code.Expiry})

	token, err := cfg.DeviceAccessToken(ctx, code)
	if err != nil {
		return domain.Grant{}, fmt.Errorf("await device authorization: %w", err)
	}
	grant := domain.Grant{AccessToken: token.AccessToken, Scopes: grantedScopes(token)}
	if a.opts.UserURL != "" {
		// The account name is cosmetic; a failed lookup still signs in.
		grant.Account, _ = a.lookupLogin(ctx, cfg, token)
	}
	return grant, nil
}

func (a *OAuthDeviceAuthorizer) lookupLogin(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.opts.UserURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := cfg.Client(ctx, token).Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("user lookup: %s", resp.Status)
	}
	var user struct {
		Login string `json:"login"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", fmt.Errorf("decode user: %w", err)
	}
	return user.Login, nil
}

func grantedScopes(token *oauth2.Token) []string {
	raw, _ := token.Extra("scope").(string)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
