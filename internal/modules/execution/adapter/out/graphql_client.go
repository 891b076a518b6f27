package out

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"ghnb/internal/modules/execution/domain"
	executionout "ghnb/internal/modules/execution/port/out"
	apperrors "ghnb/internal/platform/errors"
)

const maxErrorBody = 64 << 10

type ClientOptions struct {
	Endpoint string
	// StripUserAgent sends an empty User-Agent header.
	StripUserAgent bool
	// Base is the transport requests go through; nil uses http.DefaultTransport.
	Base http.RoundTripper
}

// HTTPClientFactoryBuilder builds GraphQL client factories bound to a session.
type HTTPClientFactoryBuilder struct {
	opts ClientOptions
}

func NewHTTPClientFactoryBuilder(opts ClientOptions) *HTTPClientFactoryBuilder {
	return &HTTPClientFactoryBuilder{opts: opts}
}

func (b *HTTPClientFactoryBuilder) Build(session domain.Session) (executionout.ClientFactory, error) {
	if strings.TrimSpace(session.AccessToken) == "" {
		return nil, fmt.Errorf("%w: session has no access token", apperrors.ErrNotAuthenticated)
	}
	endpoint := strings.TrimSpace(b.opts.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("%w: graphql endpoint is empty", apperrors.ErrInvalidInput)
	}
	base := b.opts.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if b.opts.StripUserAgent {
		base = stripUserAgent{base: base}
	}
	transport := &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: session.AccessToken, TokenType: "token"}),
		Base:   base,
	}
	return &httpClientFactory{endpoint: endpoint, httpClient: &http.Client{Transport: transport}}, nil
}

type httpClientFactory struct {
	endpoint   string
	httpClient *http.Client
}

func (f *httpClientFactory) NewClient() executionout.GraphQLClient {
	return &GraphQLClient{endpoint: f.endpoint, httpClient: f.httpClient}
}

type GraphQLClient struct {
	endpoint   string
	httpClient *http.Client
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage       `json:"data"`
	Errors []domain.GraphQLError `json:"errors"`
}

func (c *GraphQLClient) Query(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("encode graphql request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read graphql response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newRequestError(resp, body)
	}

	decoded := graphqlResponse{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		return nil, &domain.QueryError{Errors: decoded.Errors, Data: nullToEmpty(decoded.Data)}
	}
	return decoded.Data, nil
}

func newRequestError(resp *http.Response, body []byte) *domain.RequestError {
	reqErr := &domain.RequestError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	if json.Valid(body) {
		reqErr.Body = body
		var withMessage struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &withMessage); err == nil && withMessage.Message != "" {
			reqErr.Message = withMessage.Message
		}
	} else if text := strings.TrimSpace(string(body)); text != "" {
		reqErr.Message = text
	}
	return reqErr
}

func nullToEmpty(raw json.RawMessage) json.RawMessage {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	return raw
}

// stripUserAgent sends an empty User-Agent; net/http omits the header only
// when it is set to the empty string.
type stripUserAgent struct {
	base http.RoundTripper
}

func (t stripUserAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header["User-Agent"] = []string{""}
	return t.base.RoundTrip(clone)
}
