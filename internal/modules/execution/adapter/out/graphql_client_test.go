package out_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	executionout "ghnb/internal/modules/execution/adapter/out"
	"ghnb/internal/modules/execution/domain"
)

type capturedRequest struct {
	authorization string
	userAgent     []string
	body          map[string]any
}

func newGraphQLServer(t *testing.T, status int, response string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		raw, _ := io.ReadAll(r.Body)
		captured.authorization = r.Header.Get("Authorization")
		captured.userAgent = r.Header.Values("User-Agent")
		_ = json.Unmarshal(raw, &captured.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, endpoint string, strip bool) *executionout.GraphQLClient {
	t.Helper()
	builder := executionout.NewHTTPClientFactoryBuilder(executionout.ClientOptions{Endpoint: endpoint, StripUserAgent: strip})
	factory, err := builder.Build(domain.Session{ID: "s1", AccessToken: "gho_secret"})
	if err != nil {
		t.Fatalf("build factory: %v", err)
	}
	return factory.NewClient().(*executionout.GraphQLClient)
}

func TestGraphQLClientReturnsData(t *testing.T) {
	t.Parallel()
	captured := &capturedRequest{}
	srv := newGraphQLServer(t, http.StatusOK, `{"data":{"viewer":{"login":"octocat"}}}`, captured)
	client := newClient(t, srv.URL, false)

	data, err := client.Query(context.Background(), "query($n: Int) { viewer { login } }", map[string]any{"n": 1})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if string(data) != `{"viewer":{"login":"octocat"}}` {
		t.Fatalf("unexpected data %s", data)
	}
	if captured.authorization != "token gho_secret" {
		t.Fatalf("unexpected authorization header %q", captured.authorization)
	}
	want := map[string]any{"query": "query($n: Int) { viewer { login } }", "variables": map[string]any{"n": float64(1)}}
	if diff := cmp.Diff(want, captured.body); diff != "" {
		t.Fatalf("request body mismatch (-want +got):\n%s", diff)
	}
	if len(captured.userAgent) == 0 || captured.userAgent[0] == "" {
		t.Fatalf("expected default user agent, got %v", captured.userAgent)
	}
}

func TestGraphQLClientStripsUserAgent(t *testing.T) {
	t.Parallel()
	captured := &capturedRequest{}
	srv := newGraphQLServer(t, http.StatusOK, `{"data":{}}`, captured)
	client := newClient(t, srv.URL, true)

	if _, err := client.Query(context.Background(), "{ viewer { login } }", nil); err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(captured.userAgent) != 0 {
		t.Fatalf("expected no user agent, got %v", captured.userAgent)
	}
	if _, ok := captured.body["variables"]; ok {
		t.Fatalf("variables must be omitted when absent")
	}
}

func TestGraphQLClientQueryErrors(t *testing.T) {
	t.Parallel()
	captured := &capturedRequest{}
	srv := newGraphQLServer(t, http.StatusOK, `{"data":null,"errors":[{"type":"NOT_FOUND","path":["repository"],"message":"Could not resolve to a Repository"}]}`, captured)
	client := newClient(t, srv.URL, false)

	_, err := client.Query(context.Background(), "{ repository(owner: \"x\", name: \"y\") { id } }", nil)
	var queryErr *domain.QueryError
	if !errors.As(err, &queryErr) {
		t.Fatalf("expected query error, got %v", err)
	}
	if len(queryErr.Errors) != 1 || queryErr.Errors[0].Type != "NOT_FOUND" || queryErr.Data != nil {
		t.Fatalf("unexpected query error: %+v", queryErr)
	}
}

func TestGraphQLClientHTTPErrors(t *testing.T) {
	t.Parallel()
	captured := &capturedRequest{}
	srv := newGraphQLServer(t, http.StatusUnauthorized, `{"message":"Bad credentials","documentation_url":"https://docs.github.com/graphql"}`, captured)
	client := newClient(t, srv.URL, false)

	_, err := client.Query(context.Background(), "{ viewer { login } }", nil)
	var reqErr *domain.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected request error, got %v", err)
	}
	if reqErr.Status != http.StatusUnauthorized || reqErr.Message != "Bad credentials" {
		t.Fatalf("unexpected request error: %+v", reqErr)
	}
}

func TestBuildRequiresToken(t *testing.T) {
	t.Parallel()
	builder := executionout.NewHTTPClientFactoryBuilder(executionout.ClientOptions{Endpoint: "https://api.github.com/graphql"})
	if _, err := builder.Build(domain.Session{ID: "s1"}); err == nil {
		t.Fatalf("expected error for a session without a token")
	}
}
