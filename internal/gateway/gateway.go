package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"avatarctl/internal/logging"
	"avatarctl/internal/services"
	"avatarctl/internal/session"
)

const (
	defaultTimeout = 30 * time.Second
	refreshPath    = "/auth/refresh"
	maxBodyBytes   = 8 << 20
)

// HTTPDoer allows substitution of the HTTP client in tests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Credentials is the token access the gateway needs. *session.Credentials
// satisfies it.
type Credentials interface {
	Pair() (session.Pair, error)
	Replace(access, refresh string) error
	Clear() error
}

// SessionEndedFunc is invoked once per irrecoverable authentication failure,
// after both tokens have been cleared.
type SessionEndedFunc func(ctx context.Context, cause error)

// Option customises Gateway construction.
type Option func(*Gateway)

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(client HTTPDoer) Option {
	return func(g *Gateway) {
		if client != nil {
			g.client = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		if timeout > 0 {
			g.client = &http.Client{Timeout: timeout}
		}
	}
}

// WithLogger attaches a logger; requests are logged at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logging.NewComponentLogger(logger, "gateway")
	}
}

// WithSessionEnded registers the session termination signal.
func WithSessionEnded(fn SessionEndedFunc) Option {
	return func(g *Gateway) {
		g.onSessionEnded = fn
	}
}

// Gateway attaches bearer credentials to API calls and recovers from an
// expired access token with a single refresh-and-retry cycle per request.
type Gateway struct {
	baseURL        string
	client         HTTPDoer
	creds          Credentials
	logger         *slog.Logger
	onSessionEnded SessionEndedFunc

	// refreshes collapses concurrent refresh cycles into one call.
	refreshes singleflight.Group
}

// Request describes one logical API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is encoded as JSON when non-nil.
	Body any
	// Anonymous sends the request without credentials and never refreshes.
	Anonymous bool
}

// Response is a successful (2xx) API response with its body fully read.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// New builds a Gateway for the API rooted at baseURL.
func New(baseURL string, creds Credentials, opts ...Option) (*Gateway, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("gateway: base url is empty")
	}
	if creds == nil {
		return nil, errors.New("gateway: credentials are nil")
	}
	g := &Gateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		creds:   creds,
		logger:  logging.NewComponentLogger(nil, "gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// BaseURL returns the API root every request path is joined to.
func (g *Gateway) BaseURL() string {
	return g.baseURL
}

// Do dispatches req. Non-2xx responses are returned as *Error; the only
// status handled locally is a first 401, which triggers one refresh cycle
// and one retry whose outcome is returned as-is.
func (g *Gateway) Do(ctx context.Context, req Request) (*Response, error) {
	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: req.Method, Path: req.Path, Err: err}
	}

	var sent string
	if !req.Anonymous {
		pair, err := g.creds.Pair()
		if err != nil {
			return nil, &Error{Kind: KindTransport, Method: req.Method, Path: req.Path, Err: err}
		}
		sent = pair.Access
	}

	resp, err := g.send(ctx, req, body, sent)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusUnauthorized || req.Anonymous {
		return g.result(req, resp)
	}

	access, err := g.refresh(ctx, sent)
	if err != nil {
		return nil, err
	}
	retry, err := g.send(ctx, req, body, access)
	if err != nil {
		return nil, err
	}
	return g.result(req, retry)
}

// JSON dispatches req and decodes a successful body into out (when non-nil).
func (g *Gateway) JSON(ctx context.Context, req Request, out any) error {
	resp, err := g.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &Error{Kind: KindTransport, Status: resp.Status, Method: req.Method, Path: req.Path, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (g *Gateway) result(req Request, resp *Response) (*Response, error) {
	if resp.Status >= 200 && resp.Status < 300 {
		return resp, nil
	}
	return nil, &Error{
		Kind:   kindForStatus(resp.Status),
		Status: resp.Status,
		Method: req.Method,
		Path:   req.Path,
		Detail: parseDetail(resp.Body),
	}
}

func (g *Gateway) send(ctx context.Context, req Request, body []byte, access string) (*Response, error) {
	target := g.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: method, Path: req.Path, Err: fmt.Errorf("build request: %w", err)}
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		httpReq.Header.Set("Authorization", "Bearer "+access)
	}

	logger := logging.WithContext(services.WithRequestID(ctx, requestID), g.logger)
	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		logger.Debug("api request failed",
			logging.String("method", method),
			logging.String("path", req.Path),
			logging.Error(err),
		)
		return nil, &Error{Kind: KindTransport, Method: method, Path: req.Path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Status: resp.StatusCode, Method: method, Path: req.Path, Err: fmt.Errorf("read response: %w", err)}
	}
	logger.Debug("api request",
		logging.String("method", method),
		logging.String("path", req.Path),
		logging.Int("status", resp.StatusCode),
		logging.Bool("authenticated", access != ""),
		logging.Duration("elapsed", time.Since(start)),
	)
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// refresh obtains an access token to retry with after a 401 for sent.
// Concurrent callers share one refresh call. When the stored access token
// already differs from sent, another request refreshed in the meantime and
// that token is reused without contacting the server.
func (g *Gateway) refresh(ctx context.Context, sent string) (string, error) {
	v, err, _ := g.refreshes.Do("refresh", func() (any, error) {
		pair, err := g.creds.Pair()
		if err != nil {
			return "", &Error{Kind: KindTransport, Method: http.MethodPost, Path: refreshPath, Err: err}
		}
		if pair.Access != "" && pair.Access != sent {
			return pair.Access, nil
		}
		if pair.Refresh == "" {
			cause := &Error{Kind: KindUnauthenticated, Status: http.StatusUnauthorized, Method: http.MethodPost, Path: refreshPath, Detail: "no refresh token stored"}
			g.endSession(ctx, cause)
			return "", cause
		}

		// The shared refresh outlives any single caller's cancellation.
		tokens, err := g.callRefresh(context.WithoutCancel(ctx), pair.Refresh)
		if err != nil {
			g.endSession(ctx, err)
			return "", err
		}
		if err := g.creds.Replace(tokens.AccessToken, tokens.RefreshToken); err != nil {
			return "", &Error{Kind: KindTransport, Method: http.MethodPost, Path: refreshPath, Err: err}
		}
		g.logger.Debug("access token refreshed", logging.Bool("refresh_rotated", tokens.RefreshToken != ""))
		return tokens.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// callRefresh exchanges the refresh token for a new pair. Every failure,
// including transport errors, is reported as KindUnauthenticated.
func (g *Gateway) callRefresh(ctx context.Context, refreshToken string) (tokenResponse, error) {
	req := Request{
		Method:    http.MethodPost,
		Path:      refreshPath,
		Body:      map[string]string{"refresh_token": refreshToken},
		Anonymous: true,
	}
	tokens, err := g.exchange(ctx, req)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			apiErr.Kind = KindUnauthenticated
			return tokenResponse{}, apiErr
		}
		return tokenResponse{}, &Error{Kind: KindUnauthenticated, Method: req.Method, Path: req.Path, Err: err}
	}
	return tokens, nil
}

func (g *Gateway) exchange(ctx context.Context, req Request) (tokenResponse, error) {
	body, err := encodeBody(req.Body)
	if err != nil {
		return tokenResponse{}, err
	}
	resp, err := g.send(ctx, req, body, "")
	if err != nil {
		return tokenResponse{}, err
	}
	if _, err := g.result(req, resp); err != nil {
		return tokenResponse{}, err
	}
	var tokens tokenResponse
	if err := json.Unmarshal(resp.Body, &tokens); err != nil {
		return tokenResponse{}, &Error{Status: resp.Status, Method: req.Method, Path: req.Path, Err: fmt.Errorf("decode token response: %w", err)}
	}
	if strings.TrimSpace(tokens.AccessToken) == "" {
		return tokenResponse{}, &Error{Status: resp.Status, Method: req.Method, Path: req.Path, Detail: "token response carried no access token"}
	}
	return tokens, nil
}

func (g *Gateway) endSession(ctx context.Context, cause error) {
	if err := g.creds.Clear(); err != nil {
		logging.WarnWithContext(g.logger, "failed to clear session tokens", "session_clear_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the session file manually and run 'avatarctl login'"),
		)
	}
	logging.ErrorWithContext(g.logger, "session ended", "session_ended",
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, "run 'avatarctl login'"),
	)
	if g.onSessionEnded != nil {
		g.onSessionEnded(ctx, cause)
	}
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	if raw, ok := body.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return data, nil
}
