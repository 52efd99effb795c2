package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	SchemeHttps = "https"
	SchemeHttp  = "http"
)

// Connection sends a fully built endpoint, the caller owns closing the body
type Connection interface {
	Request(ctx context.Context, endpoint *url.URL) (*http.Response, error)
}

type ClientHost struct {
	client *http.Client
	scheme string
	host   string
}

type Client struct {
	Connection Connection
	ApiKey     string
}

func (conn *ClientHost) Request(ctx context.Context, endpoint *url.URL) (*http.Response, error) {
	endpoint.Scheme = conn.scheme
	endpoint.Host = conn.host

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("error building request for %s: %w", endpoint.Path, err)
	}

	response, err := conn.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error requesting %s: %w", conn.host, err)
	}

	if response.StatusCode != http.StatusOK {
		response.Body.Close()
		return nil, fmt.Errorf("error requesting %s, status %s", conn.host, response.Status)
	}

	return response, nil
}

func NewClientHost(scheme, host string, timeout time.Duration) *ClientHost {
	return &ClientHost{
		client: &http.Client{Timeout: timeout},
		scheme: scheme,
		host:   host,
	}
}

func ClientFactory(host string, apiKey string, timeout time.Duration) *Client {
	return &Client{
		Connection: NewClientHost(SchemeHttps, host, timeout),
		ApiKey:     apiKey,
	}
}
