package httpclient

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AppliesTimeout(t *testing.T) {
	client := New(DefaultConfig())
	assert.Equal(t, 30*time.Second, client.Timeout)

	client = New(Config{Timeout: 2 * time.Second})
	assert.Equal(t, 2*time.Second, client.Timeout)
}

func TestNew_RedirectCap(t *testing.T) {
	// Every path redirects one level deeper, forever.
	depth := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		depth++
		http.Redirect(w, r, fmt.Sprintf("/hop%d", depth), http.StatusFound)
	}))
	defer srv.Close()

	client := New(Config{Timeout: 5 * time.Second, FollowRedirects: true, MaxRedirects: 3})
	resp, err := client.Get(srv.URL)
	if resp != nil {
		resp.Body.Close()
	}
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopped after 3 redirects")
}

func TestNew_NoRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer srv.Close()

	client := New(Config{Timeout: 5 * time.Second, FollowRedirects: false})
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	// The redirect comes back as-is instead of being chased.
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/elsewhere", resp.Header.Get("Location"))
}

func TestNew_InsecureTLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// The test server's cert is self-signed; a verifying client fails.
	strict := New(DefaultConfig())
	resp, err := strict.Get(srv.URL)
	if resp != nil {
		resp.Body.Close()
	}
	require.Error(t, err)

	lax := New(SpiderConfig())
	resp, err = lax.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProbeConfig_StopsAtFirstAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusMovedPermanently)
	}))
	defer srv.Close()

	client := New(ProbeConfig())
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
}
