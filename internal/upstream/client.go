// Package upstream provides the HTTP client for the alert service's REST
// endpoints: snapshot polling, preference updates, and alert actions.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "tradepulse/internal/errors"
	"tradepulse/internal/gate"
	"tradepulse/internal/logging"
	"tradepulse/internal/models"
	"tradepulse/internal/resilience"
	"tradepulse/pkg/utils"
)

// Config holds upstream client configuration.
type Config struct {
	// BaseURL is the alert service root, e.g. https://api.example.com.
	BaseURL string
	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// Retry controls transient-failure retries on snapshot fetches.
	Retry utils.RetryConfig
	// Breaker protects the upstream from being hammered while hard down.
	Breaker resilience.CircuitBreakerConfig
}

// DefaultConfig returns the default client configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Timeout: 15 * time.Second,
		Retry:   utils.DefaultRetryConfig(),
		Breaker: resilience.DefaultCircuitBreakerConfig(),
	}
}

// Client talks to the upstream alert service.
type Client struct {
	config  Config
	http    *http.Client
	logger  zerolog.Logger
	breaker *resilience.CircuitBreaker
}

// NewClient creates a new upstream client.
func NewClient(config Config, logger zerolog.Logger) *Client {
	return &Client{
		config:  config,
		http:    &http.Client{Timeout: config.Timeout},
		logger:  logger.With().Str("component", "upstream").Logger(),
		breaker: resilience.NewCircuitBreaker("upstream", config.Breaker),
	}
}

// FetchSnapshot retrieves the full current alert snapshot plus global
// armed and quiet-hours state from GET /alerts. Network failures return a
// TransportError, non-2xx statuses an UpstreamError; both are retried per
// the retry config before giving up.
func (c *Client) FetchSnapshot(ctx context.Context) (*models.Snapshot, error) {
	endpoint := c.config.BaseURL + "/alerts"

	return utils.RetryWithResult(ctx, c.config.Retry, func() (*models.Snapshot, error) {
		var snapshot models.Snapshot
		if err := c.getJSON(ctx, endpoint, &snapshot); err != nil {
			return nil, err
		}
		return &snapshot, nil
	})
}

// UpdatePreferences pushes a partial preference update to
// PUT /alerts/preferences. Quiet-hours strings are validated before the
// request is sent; a ValidationError leaves the server state untouched.
func (c *Client) UpdatePreferences(ctx context.Context, prefs models.Preferences) error {
	if prefs.QuietHours != nil {
		if _, err := gate.ParseWindows(prefs.QuietHours); err != nil {
			return err
		}
	}

	endpoint := c.config.BaseURL + "/alerts/preferences"
	return c.sendJSON(ctx, http.MethodPut, endpoint, prefs)
}

// SendAction posts a user action for an alert to POST /alerts/{id}/action.
// The action must be one of the alert's declared actions.
func (c *Client) SendAction(ctx context.Context, alert *models.Alert, action string) error {
	if !alert.HasAction(action) {
		return apperrors.Wrapf(apperrors.ErrUnknownAction, "action %q on alert %s", action, alert.ID)
	}

	endpoint := fmt.Sprintf("%s/alerts/%s/action", c.config.BaseURL, alert.ID)
	return c.sendJSON(ctx, http.MethodPost, endpoint, models.ActionRequest{Action: action})
}

// BreakerState exposes the circuit state for diagnostics.
func (c *Client) BreakerState() resilience.CircuitState {
	return c.breaker.State()
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	return c.do(ctx, http.MethodGet, endpoint, nil, out)
}

func (c *Client) sendJSON(ctx context.Context, method, endpoint string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return apperrors.Wrap(err, "encoding request body")
	}
	return c.do(ctx, method, endpoint, payload, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, out interface{}) error {
	return c.breaker.Execute(func() error {
		start := time.Now()

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return apperrors.Wrap(err, "building request")
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		logging.LogAPICall(c.logger, method, endpoint, time.Since(start), err)
		if err != nil {
			return apperrors.NewTransportError("fetch", endpoint, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return apperrors.NewUpstreamError(resp.StatusCode, endpoint, respBody)
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return apperrors.NewParseError("poll", nil, err)
			}
		}
		return nil
	})
}

// StreamURL derives the websocket endpoint from the base URL.
func StreamURL(baseURL string) string {
	ws := baseURL
	switch {
	case strings.HasPrefix(ws, "https://"):
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	case strings.HasPrefix(ws, "http://"):
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return ws + "/ws/alerts"
}
