package geoip

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jbaylocal/marketplace-api/pkg/geo"
	"github.com/jbaylocal/marketplace-api/pkg/model"
)

var (
	// ErrCircuitOpen signals the breaker is open after repeated 429 responses.
	ErrCircuitOpen = errors.New("geoip circuit open due to repeated rate limit errors")
	// ErrNoPublicIP is returned when the caller address cannot be geolocated.
	ErrNoPublicIP = errors.New("client address is not publicly routable")
)

// HTTPClient matches net/http.Client Do signature for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client resolves the caller's IP address to an approximate position.
// It serves as the server-side device locator.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	mock       bool

	maxRetries       int
	breakerThreshold int

	mu               sync.Mutex
	consecutiveLimit int
}

// Config defines settings for the geolocation client.
type Config struct {
	BaseURL    string
	Mock       bool
	MaxRetries int
	BreakerMax int
}

// New creates a geolocation client.
func New(httpClient HTTPClient, cfg Config) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://ipapi.co"
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}
	breaker := cfg.BreakerMax
	if breaker <= 0 {
		breaker = 5
	}

	return &Client{
		baseURL:          base,
		httpClient:       httpClient,
		mock:             cfg.Mock,
		maxRetries:       maxRetries,
		breakerThreshold: breaker,
	}
}

type clientIPKey struct{}

// WithClientIP attaches the request's remote address for Locate.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func clientIPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// Locate looks up the IP stored in ctx. Mock mode returns the town centre.
func (c *Client) Locate(ctx context.Context) (model.Coordinate, error) {
	if c.mock {
		return geo.JeffreysBayCenter, nil
	}

	ip := net.ParseIP(clientIPFrom(ctx))
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() {
		return model.Coordinate{}, ErrNoPublicIP
	}

	if c.breakerOpen() {
		return model.Coordinate{}, ErrCircuitOpen
	}

	endpoint := fmt.Sprintf("%s/%s/json/", c.baseURL, ip.String())
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return model.Coordinate{}, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request: %w", err)
			if ctx.Err() != nil {
				return model.Coordinate{}, lastErr
			}
			continue
		}

		coord, retry, err := c.handleResponse(resp)
		if err == nil {
			return coord, nil
		}
		lastErr = err
		if !retry {
			return model.Coordinate{}, err
		}
	}
	return model.Coordinate{}, fmt.Errorf("geoip lookup failed after retries: %w", lastErr)
}

func (c *Client) handleResponse(resp *http.Response) (model.Coordinate, bool, error) {
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		c.resetLimit()
		coord, err := decodeResponse(resp.Body)
		return coord, false, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		if c.recordLimit() {
			return model.Coordinate{}, false, ErrCircuitOpen
		}
		return model.Coordinate{}, true, fmt.Errorf("geoip status %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	return model.Coordinate{}, resp.StatusCode >= 500, fmt.Errorf("geoip status %d: %s", resp.StatusCode, string(body))
}

func (c *Client) breakerOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consecutiveLimit >= c.breakerThreshold
}

func (c *Client) recordLimit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutiveLimit++
	return c.consecutiveLimit >= c.breakerThreshold
}

func (c *Client) resetLimit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutiveLimit = 0
}

func decodeResponse(body io.Reader) (model.Coordinate, error) {
	buf, err := io.ReadAll(body)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("read response: %w", err)
	}
	var out lookupResponse
	if err := json.Unmarshal(bytes.TrimSpace(buf), &out); err != nil {
		return model.Coordinate{}, fmt.Errorf("decode response: %w", err)
	}
	if out.Error {
		return model.Coordinate{}, fmt.Errorf("geoip: %s", out.Reason)
	}
	if out.Latitude == nil || out.Longitude == nil {
		return model.Coordinate{}, errors.New("geoip: response has no position")
	}
	return model.Coordinate{Lat: *out.Latitude, Lng: *out.Longitude}, nil
}

type lookupResponse struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Error     bool     `json:"error"`
	Reason    string   `json:"reason"`
}
