package out_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/oauth2"

	authout "ghnb/internal/modules/auth/adapter/out"
	"ghnb/internal/modules/auth/domain"
	apperrors "ghnb/internal/platform/errors"
)

func TestDeviceAuthorizerCompletesFlow(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/device/code", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse device form: %v", err)
		}
		if r.Form.Get("client_id") != "client-1" || r.Form.Get("scope") != "repo workflow" {
			t.Errorf("unexpected device request form: %v", r.Form)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"device_code":"dev-1","user_code":"WDJB-MJHT","verification_uri":"https://github.com/login/device","expires_in":900,"interval":1}`))
	})
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse token form: %v", err)
		}
		if r.Form.Get("device_code") != "dev-1" {
			t.Errorf("unexpected token request form: %v", r.Form)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gho_device","token_type":"bearer","scope":"repo,workflow"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer gho_device" {
			t.Errorf("unexpected user lookup auth %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"login":"octocat"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	endpoint := oauth2.Endpoint{
		TokenURL:      srv.URL + "/login/oauth/access_token",
		DeviceAuthURL: srv.URL + "/login/device/code",
		AuthStyle:     oauth2.AuthStyleInParams,
	}
	authorizer := authout.NewOAuthDeviceAuthorizer(authout.DeviceAuthorizerOptions{
		ClientID:   "client-1",
		Endpoint:   endpoint,
		UserURL:    srv.URL + "/user",
		HTTPClient: srv.Client(),
	})

	var prompted domain.DeviceCode
	grant, err := authorizer.Authorize(context.Background(), []string{"repo", "workflow"}, func(code domain.DeviceCode) {
		prompted = code
	})
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if prompted.UserCode != "WDJB-MJHT" || prompted.VerificationURI != "https://github.com/login/device" {
		t.Fatalf("unexpected prompt: %+v", prompted)
	}
	if grant.AccessToken != "gho_device" || grant.Account != "octocat" {
		t.Fatalf("unexpected grant: %+v", grant)
	}
	if diff := cmp.Diff([]string{"repo", "workflow"}, grant.Scopes); diff != "" {
		t.Fatalf("granted scopes mismatch (-want +got):\n%s", diff)
	}
}

func TestDeviceAuthorizerRequiresClientID(t *testing.T) {
	t.Parallel()
	authorizer := authout.NewOAuthDeviceAuthorizer(authout.DeviceAuthorizerOptions{Endpoint: authout.GitHubEndpoint})
	_, err := authorizer.Authorize(context.Background(), []string{"repo"}, func(domain.DeviceCode) {})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestUserURLFor(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"https://api.github.com/graphql":   "https://api.github.com/user",
		"https://ghe.example/api/graphql/": "https://ghe.example/api/v3/user",
		"https://proxy.example/gql":        "",
	}
	for in, want := range cases {
		if got := authout.UserURLFor(in); got != want {
			t.Fatalf("UserURLFor(%q): expected %q, got %q", in, want, got)
		}
	}
}
