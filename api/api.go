// Package api is a small client for the Twitch Helix REST API, sharing
// credentials and the token-refresh hook with the chat client.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/gissleh/tmi"
)

// DefaultBaseURL is the Helix API root.
const DefaultBaseURL = "https://api.twitch.tv/helix"

// Options configures a Client. Token and ClientID are required for
// authenticated endpoints.
type Options struct {
	BaseURL  string
	ClientID string
	Token    string

	// OnAuthenticationFailure is called when a request is rejected with 401.
	// The request is retried once with the returned token.
	OnAuthenticationFailure func(ctx context.Context) (string, error)

	// RequestsPerMinute bounds the request rate. Zero means the Helix
	// default bucket of 800 points per minute.
	RequestsPerMinute int

	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// A RequestError is a non-2xx response from the API.
type RequestError struct {
	Status int
	Body   string
}

func (err *RequestError) Error() string {
	return fmt.Sprintf("api: request failed with status %d: %s", err.Status, err.Body)
}

// A Client issues rate-limited requests against the Helix API. It is safe
// for concurrent use; the token may be replaced mid-flight by a refresh.
type Client struct {
	baseURL    string
	clientID   string
	refresh    func(ctx context.Context) (string, error)
	limiter    *rate.Limiter
	httpClient *http.Client
	log        zerolog.Logger

	mu    sync.RWMutex
	token string
}

// New creates an API client. It never fails; misconfiguration surfaces as
// request errors.
func New(options Options) *Client {
	if options.BaseURL == "" {
		options.BaseURL = DefaultBaseURL
	}
	if options.RequestsPerMinute <= 0 {
		options.RequestsPerMinute = 800
	}
	if options.HTTPClient == nil {
		options.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	perSecond := rate.Limit(float64(options.RequestsPerMinute) / 60.0)

	return &Client{
		baseURL:    strings.TrimSuffix(options.BaseURL, "/"),
		clientID:   options.ClientID,
		token:      strings.TrimPrefix(options.Token, "oauth:"),
		refresh:    options.OnAuthenticationFailure,
		limiter:    rate.NewLimiter(perSecond, options.RequestsPerMinute/60+1),
		httpClient: options.HTTPClient,
		log:        options.Logger,
	}
}

// Get issues a GET request and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, params url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, params, nil, out)
}

// Post issues a POST request with a JSON body and decodes the response
// into out. Both body and out may be nil.
func (c *Client) Post(ctx context.Context, path string, params url.Values, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, params, body, out)
}

// Put issues a PUT request with a JSON body and decodes the response into
// out. Both body and out may be nil.
func (c *Client) Put(ctx context.Context, path string, params url.Values, body, out interface{}) error {
	return c.do(ctx, http.MethodPut, path, params, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	status, data, err := c.roundTrip(ctx, method, path, params, body)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && c.refresh != nil {
		token, refreshErr := c.refresh(ctx)
		if refreshErr != nil {
			return &tmi.AuthenticationError{Err: refreshErr}
		}
		c.mu.Lock()
		c.token = strings.TrimPrefix(token, "oauth:")
		c.mu.Unlock()

		status, data, err = c.roundTrip(ctx, method, path, params, body)
		if err != nil {
			return err
		}
	}

	if status < 200 || status > 299 {
		return &RequestError{Status: status, Body: string(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("api: decoding response: %w", err)
		}
	}

	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, params url.Values, body interface{}) (int, []byte, error) {
	target := c.baseURL + "/" + strings.TrimPrefix(path, "/")
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("api: encoding request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, err
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.clientID != "" {
		req.Header.Set("Client-Id", c.clientID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug().Str("method", method).Str("url", target).Msg("api request")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, err
	}

	return res.StatusCode, data, nil
}
