package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SendsFixedHeadersAndBearer(t *testing.T) {
	var got http.Header
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/echo", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"ok": "yes"})
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/", 0, WithHeader("X-Api-Key", "secret"), WithHeader("X-Empty", " "))
	require.NoError(t, err)
	assert.True(t, c.HasHeader("X-Api-Key"))
	assert.False(t, c.HasHeader("X-Empty"))

	var out map[string]string
	err = c.Do(context.Background(), Call{
		Method: http.MethodPost,
		Path:   "v1/echo",
		Bearer: "tok-1",
		Body:   map[string]string{"a": "b"},
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, "yes", out["ok"])
	assert.Equal(t, "b", gotBody["a"])
	assert.Equal(t, "secret", got.Get("X-Api-Key"))
	assert.Equal(t, "Bearer tok-1", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Empty(t, got.Get("X-Empty"))
}

func TestDo_NoBearerNoAuthorization(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := New(srv.URL, 0)
	require.NoError(t, err)
	require.NoError(t, c.Do(context.Background(), Call{Path: "/ping"}, nil))
	assert.Empty(t, auth)
}

func TestDo_NonSuccessIsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := New(srv.URL, 0)
	require.NoError(t, err)

	err = c.Do(context.Background(), Call{Path: "/x"}, nil)
	var he *HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusForbidden, he.StatusCode)
	assert.Equal(t, "nope", he.Body)
}

func TestNew_BaseURL(t *testing.T) {
	_, err := New("not a url", 0)
	assert.Error(t, err)

	c, err := New("", 0)
	require.NoError(t, err)
	assert.Empty(t, c.BaseURL())
	assert.ErrorIs(t, c.Do(context.Background(), Call{Path: "/x"}, nil), ErrNoBaseURL)
}
