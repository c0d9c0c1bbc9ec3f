// Package twilioclient posts SMS messages to care team members through
// Twilio's REST API.
package twilioclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/careconnect-ai/platform/pkg/logging"
)

var tracer = otel.Tracer("careconnect/careteam/twilio")

// Message is a single outbound SMS. From falls back to the client's default
// number when empty.
type Message struct {
	To   string
	From string
	Body string
}

// Client posts SMS messages using Twilio's REST API.
type Client struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// New builds a client with sane defaults.
func New(accountSID, authToken, defaultFrom string, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		accountSID: accountSID,
		authToken:  authToken,
		from:       defaultFrom,
		baseURL:    "https://api.twilio.com",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// SetBaseURL overrides the API host, for tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = strings.TrimRight(u, "/") }

// Send dispatches a single SMS, retrying transient failures. It returns the
// provider message SID on success.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	if c.accountSID == "" || c.authToken == "" {
		return "", errors.New("careteam: twilio credentials missing")
	}
	if msg.To == "" {
		return "", errors.New("careteam: to required")
	}
	if msg.From == "" {
		msg.From = c.from
	}
	if msg.From == "" {
		return "", errors.New("careteam: from required")
	}
	if strings.TrimSpace(msg.Body) == "" {
		return "", errors.New("careteam: body required")
	}

	ctx, span := tracer.Start(ctx, "careteam.twilio.send")
	defer span.End()
	span.SetAttributes(attribute.String("careteam.to", msg.To))

	payload := url.Values{}
	payload.Set("To", msg.To)
	payload.Set("From", msg.From)
	payload.Set("Body", msg.Body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
		if err != nil {
			lastErr = err
			break
		}
		req.SetBasicAuth(c.accountSID, c.authToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				var parsed struct {
					SID string `json:"sid"`
				}
				_ = json.Unmarshal(body, &parsed)
				c.logger.Info("careteam sms sent", "to", msg.To, "sid", parsed.SID)
				return parsed.SID, nil
			}
			lastErr = fmt.Errorf("careteam: twilio send failed: %s", formatAPIError(resp.StatusCode, body))
			// Don't retry non-rate-limit 4xx errors.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != 429 {
				break
			}
		}

		if attempt < 3 {
			time.Sleep(time.Duration(200+rand.Intn(300)) * time.Millisecond)
		}
	}

	if lastErr != nil {
		span.RecordError(lastErr)
	}
	return "", lastErr
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func formatAPIError(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("status %d", status)
	}
	var parsed apiError
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, trimmed)
}
