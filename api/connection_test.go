package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, status int, body string) (*httptest.Server, *ClientHost) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body+" "+r.URL.Query().Get("symbol"))
	}))
	t.Cleanup(server.Close)

	host := strings.TrimPrefix(server.URL, "http://")
	return server, NewClientHost(SchemeHttp, host, 5*time.Second)
}

func TestClientHostRequest(t *testing.T) {
	_, conn := testServer(t, http.StatusOK, "hello")

	endpoint := &url.URL{Path: "query", RawQuery: "symbol=NVDA"}
	response, err := conn.Request(context.Background(), endpoint)
	require.NoError(t, err)
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello NVDA", string(body))
	assert.Equal(t, SchemeHttp, endpoint.Scheme)
}

func TestClientHostRequestNonOkStatus(t *testing.T) {
	_, conn := testServer(t, http.StatusServiceUnavailable, "down")

	_, err := conn.Request(context.Background(), &url.URL{Path: "query"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestClientHostRequestCancelled(t *testing.T) {
	_, conn := testServer(t, http.StatusOK, "hello")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := conn.Request(ctx, &url.URL{Path: "query"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientFactory(t *testing.T) {
	client := ClientFactory("www.example.com", "key", time.Second)

	host, ok := client.Connection.(*ClientHost)
	require.True(t, ok)
	assert.Equal(t, SchemeHttps, host.scheme)
	assert.Equal(t, "www.example.com", host.host)
	assert.Equal(t, time.Second, host.client.Timeout)
	assert.Equal(t, "key", client.ApiKey)
}
