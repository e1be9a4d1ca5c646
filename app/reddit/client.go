package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/lysyi3m/market-comb/app/market"
)

const (
	DefaultAuthURL = "https://www.reddit.com/api/v1/access_token"
	DefaultBaseURL = "https://oauth.reddit.com"

	tokenSlack = time.Minute
)

type Config struct {
	ClientID          string
	ClientSecret      string
	Username          string
	Password          string
	UserAgent         string
	RequestsPerMinute int

	// Optional overrides, mainly for tests.
	AuthURL    string
	BaseURL    string
	HTTPClient *http.Client
}

// Client talks to the reddit OAuth API as a script application.
// Every request passes through a shared rate limiter.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// APIError is returned for non-2xx responses and for API level errors in
// otherwise successful responses.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("reddit %s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("reddit %s %s: %s", e.Method, e.Path, e.Message)
}

func (e *APIError) Unwrap() error {
	return market.ErrRemoteUnavailable
}

func NewClient(cfg Config) *Client {
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(30 * time.Second)
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	form := url.Values{
		"grant_type": {"password"},
		"username":   {c.cfg.Username},
		"password":   {c.cfg.Password},
	}
	req, err := http.NewRequestWithContext(withIdempotent(ctx), http.MethodPost, c.cfg.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch access token: %w: %w", market.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	var tok tokenResponse
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Method: http.MethodPost, Path: "access_token", StatusCode: resp.StatusCode, Message: resp.Status}
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("failed to decode access token: %w: %w", market.ErrRemoteUnavailable, err)
	}
	if tok.Error != "" || tok.AccessToken == "" {
		return "", &APIError{Method: http.MethodPost, Path: "access_token", Message: "authentication rejected: " + tok.Error}
	}

	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenSlack)
	slog.Debug("Reddit access token refreshed", "expires_in", tok.ExpiresIn)

	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// get performs an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("raw_json", "1")
	return c.do(withIdempotent(ctx), http.MethodGet, path+"?"+query.Encode(), nil, out)
}

// post performs an authenticated form POST. api_type=json is always sent so
// failures are reported in the body.
func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	form.Set("api_type", "json")

	var envelope struct {
		JSON struct {
			Errors [][]any          `json:"errors"`
			Data   *json.RawMessage `json:"data"`
		} `json:"json"`
	}
	if err := c.do(ctx, http.MethodPost, path, form, &envelope); err != nil {
		return err
	}
	if len(envelope.JSON.Errors) > 0 {
		return &APIError{Method: http.MethodPost, Path: path, Message: fmt.Sprint(envelope.JSON.Errors)}
	}
	if out != nil && envelope.JSON.Data != nil {
		if err := json.Unmarshal(*envelope.JSON.Data, out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w: %w", path, market.ErrRemoteUnavailable, err)
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "bearer "+token)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reddit %s %s: %w: %w", method, path, market.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidateToken()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode %s response: %w: %w", path, market.ErrRemoteUnavailable, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
