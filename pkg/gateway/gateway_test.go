package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/workbook-tools/collection-migrator/pkg/config"
	"github.com/workbook-tools/collection-migrator/pkg/errdefs"
	"github.com/workbook-tools/collection-migrator/pkg/node"
)

func newClient(t *testing.T, srv *httptest.Server, cfg config.Gateway) *HTTPClient {
	t.Helper()
	cfg.URL = srv.URL
	c, err := NewHTTPClientWith(cfg, srv.Client())
	require.NoError(t, err)
	return c
}

func TestAPIKey(t *testing.T) {
	require := require.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal("secret", r.Header.Get(apiKeyHeader))
		require.Empty(r.Header.Get(sessionHeader))
		require.Equal("/api/card/1", r.URL.Path)
		_, _ = io.WriteString(w, `{"id": 1, "table_id": 9007199254740993}`)
	}))
	defer srv.Close()

	c := newClient(t, srv, config.Gateway{APIKey: "secret"})
	var card map[string]interface{}
	require.NoError(c.Get(context.Background(), "/api/card/1", &card))
	id, ok := node.Int(card, "table_id")
	require.True(ok)
	require.Equal(int64(9007199254740993), id)
}

func TestLoginAndRenewal(t *testing.T) {
	require := require.New(t)
	var logins, calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/session":
			require.Equal(http.MethodPost, r.Method)
			var body map[string]string
			require.NoError(json.NewDecoder(r.Body).Decode(&body))
			require.Equal("me@example.com", body["username"])
			require.Equal("pw", body["password"])
			n := atomic.AddInt32(&logins, 1)
			_ = json.NewEncoder(w).Encode(map[string]string{"id": map[int32]string{1: "s1", 2: "s2"}[n]})
		case "/api/user/current":
			atomic.AddInt32(&calls, 1)
			// the first session expires after one call
			if r.Header.Get(sessionHeader) == "s1" && atomic.LoadInt32(&calls) > 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = io.WriteString(w, `{"id": 1, "is_superuser": true}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newClient(t, srv, config.Gateway{Email: "me@example.com", Password: "pw"})
	ctx := context.Background()

	user, err := c.Check(ctx)
	require.NoError(err)
	require.True(node.AsBool(user["is_superuser"]))
	require.Equal(int32(1), atomic.LoadInt32(&logins))

	_, err = c.Check(ctx)
	require.NoError(err)
	require.Equal(int32(2), atomic.LoadInt32(&logins))
	require.Equal("s2", c.currentSession())
}

func TestUnauthorizedWithoutPassword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newClient(t, srv, config.Gateway{SessionID: "stale"})
	_, err := c.Check(context.Background())
	require.Error(t, err)
	require.True(t, errdefs.IsUnauthorized(err))
	require.True(t, errors.Is(err, errdefs.ErrMigration))
}

func TestStatusErrors(t *testing.T) {
	require := require.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"errors":{"name":"required"}}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newClient(t, srv, config.Gateway{APIKey: "k"})
	ctx := context.Background()

	err := c.Get(ctx, "/api/card/404", &map[string]interface{}{})
	require.True(errors.Is(err, errdefs.ErrNotFound))
	require.True(errors.Is(err, errdefs.ErrMigration))

	err = c.Put(ctx, "/api/card/1", map[string]interface{}{"name": ""}, nil)
	require.False(errors.Is(err, errdefs.ErrNotFound))
	var se *errdefs.StatusError
	require.True(errors.As(err, &se))
	require.Equal(http.StatusBadRequest, se.StatusCode)
	require.Contains(se.Error(), "required")
}

func TestPostBodyAndBasicAuth(t *testing.T) {
	require := require.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(ok)
		require.Equal("proxy", user)
		require.Equal("pp", pass)
		require.Equal("application/json", r.Header.Get("Content-Type"))
		var body map[string]interface{}
		require.NoError(json.NewDecoder(r.Body).Decode(&body))
		require.Equal("copy", body["name"])
		_, _ = io.WriteString(w, `{"id": 77}`)
	}))
	defer srv.Close()

	c := newClient(t, srv, config.Gateway{APIKey: "k", BasicUser: "proxy", BasicPassword: "pp"})
	var created map[string]interface{}
	require.NoError(c.Post(context.Background(), "/api/collection/", map[string]interface{}{"name": "copy"}, &created))
	id, err := node.MustID(created)
	require.NoError(err)
	require.Equal(int64(77), id)
}

func TestNewHTTPClientValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Gateway
	}{
		{name: "no url", cfg: config.Gateway{APIKey: "k"}},
		{name: "bad scheme", cfg: config.Gateway{URL: "ftp://host", APIKey: "k"}},
		{name: "no credentials", cfg: config.Gateway{URL: "https://host"}},
		{name: "email without password", cfg: config.Gateway{URL: "https://host", Email: "me@example.com"}},
		{name: "bad timeout", cfg: config.Gateway{URL: "https://host", APIKey: "k", Timeout: "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHTTPClient(tt.cfg)
			require.True(t, errors.Is(err, errdefs.ErrConfiguration))
		})
	}

	_, err := NewHTTPClient(config.Gateway{URL: "https://host", SessionID: "s", Timeout: "30s", MaxRetries: 5})
	require.NoError(t, err)
}
