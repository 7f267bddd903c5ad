package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gissleh/tmi"
	"github.com/gissleh/tmi/api"
)

type usersResponse struct {
	Data []struct {
		ID    string `json:"id"`
		Login string `json:"login"`
	} `json:"data"`
}

func TestClientGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users", r.URL.Path)
		assert.Equal(t, "ronni", r.URL.Query().Get("login"))
		assert.Equal(t, "Bearer sometoken", r.Header.Get("Authorization"))
		assert.Equal(t, "clientid", r.Header.Get("Client-Id"))

		_, _ = w.Write([]byte(`{"data":[{"id":"66","login":"ronni"}]}`))
	}))
	defer server.Close()

	client := api.New(api.Options{
		BaseURL:  server.URL,
		ClientID: "clientid",
		Token:    "oauth:sometoken", // chat-style prefix is stripped
	})

	var out usersResponse
	err := client.Get(context.Background(), "/users", url.Values{"login": {"ronni"}}, &out)
	require.NoError(t, err)
	require.Len(t, out.Data, 1)
	assert.Equal(t, "66", out.Data[0].ID)
}

func TestClientPostBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["message"])

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := api.New(api.Options{BaseURL: server.URL, Token: "sometoken"})

	err := client.Post(context.Background(), "/announcements", nil, map[string]string{"message": "hello"}, nil)
	assert.NoError(t, err)
}

func TestClientRetriesOnceAfterRefresh(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		assert.Equal(t, "Bearer newtoken", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	var refreshes int32
	client := api.New(api.Options{
		BaseURL: server.URL,
		Token:   "staletoken",
		OnAuthenticationFailure: func(ctx context.Context) (string, error) {
			atomic.AddInt32(&refreshes, 1)
			return "newtoken", nil
		},
	})

	var out usersResponse
	err := client.Get(context.Background(), "/users", nil, &out)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

func TestClientConcurrentRequestsDuringRefresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer staletoken" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client := api.New(api.Options{
		BaseURL:           server.URL,
		Token:             "staletoken",
		RequestsPerMinute: 60000,
		OnAuthenticationFailure: func(ctx context.Context) (string, error) {
			return "newtoken", nil
		},
	})

	// The refresh replaces the token while other requests are reading it.
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = client.Get(context.Background(), "/users", nil, nil)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestClientRefreshFailureIsAuthenticationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := api.New(api.Options{
		BaseURL: server.URL,
		Token:   "staletoken",
		OnAuthenticationFailure: func(ctx context.Context) (string, error) {
			return "", context.DeadlineExceeded
		},
	})

	err := client.Get(context.Background(), "/users", nil, nil)

	var authErr *tmi.AuthenticationError
	assert.ErrorAs(t, err, &authErr)
}

func TestClientRequestError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"Too Many Requests"}`))
	}))
	defer server.Close()

	client := api.New(api.Options{BaseURL: server.URL, Token: "sometoken"})

	err := client.Get(context.Background(), "/users", nil, nil)

	var reqErr *api.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusTooManyRequests, reqErr.Status)
	assert.Contains(t, reqErr.Error(), "Too Many Requests")
}

func TestClientNoRefreshHookPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := api.New(api.Options{BaseURL: server.URL, Token: "sometoken"})

	err := client.Get(context.Background(), "/users", nil, nil)

	var reqErr *api.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusUnauthorized, reqErr.Status)
}
