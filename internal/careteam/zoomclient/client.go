// Package zoomclient creates video consultation meetings through Zoom's
// server-to-server OAuth API.
package zoomclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/careconnect-ai/platform/pkg/logging"
)

var tracer = otel.Tracer("careconnect/careteam/zoom")

// ErrNoActiveUsers is returned when the Zoom account has no active user to
// host the meeting.
var ErrNoActiveUsers = errors.New("careteam: zoom account has no active users")

// Meeting is the subset of Zoom's meeting resource the dashboard uses.
type Meeting struct {
	ID       int64  `json:"id"`
	Topic    string `json:"topic"`
	JoinURL  string `json:"join_url"`
	StartURL string `json:"start_url"`
	Duration int    `json:"duration"`
}

// Client talks to Zoom using the account_credentials OAuth grant. Access
// tokens are cached until shortly before expiry.
type Client struct {
	clientID     string
	clientSecret string
	accountID    string
	oauthURL     string
	apiURL       string
	httpClient   *http.Client
	logger       *logging.Logger
	now          func() time.Time

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// New builds a client with sane defaults.
func New(clientID, clientSecret, accountID string, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		accountID:    accountID,
		oauthURL:     "https://zoom.us/oauth/token",
		apiURL:       "https://api.zoom.us/v2",
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		logger:       logger,
		now:          time.Now,
	}
}

// SetEndpoints overrides the OAuth and API hosts, for tests.
func (c *Client) SetEndpoints(oauthURL, apiURL string) {
	c.oauthURL = oauthURL
	c.apiURL = strings.TrimRight(apiURL, "/")
}

// CreateConsultation provisions a scheduled 30-minute meeting hosted by the
// account's first active user and returns its join details.
func (c *Client) CreateConsultation(ctx context.Context, topic string) (Meeting, error) {
	ctx, span := tracer.Start(ctx, "careteam.zoom.create_consultation")
	defer span.End()

	token, err := c.token(ctx)
	if err != nil {
		span.RecordError(err)
		return Meeting{}, err
	}

	userID, err := c.firstActiveUser(ctx, token)
	if err != nil {
		span.RecordError(err)
		return Meeting{}, err
	}

	if topic == "" {
		topic = "CareConnect Video Consultation"
	}
	meeting, err := c.createMeeting(ctx, token, userID, topic)
	if err != nil {
		span.RecordError(err)
		return Meeting{}, err
	}

	c.logger.Info("careteam zoom meeting created", "meeting_id", meeting.ID)
	return meeting, nil
}

// token returns a cached access token or fetches a fresh one.
func (c *Client) token(ctx context.Context) (string, error) {
	if c.clientID == "" || c.clientSecret == "" || c.accountID == "" {
		return "", errors.New("careteam: zoom credentials missing")
	}

	c.mu.Lock()
	if c.accessToken != "" && c.now().Before(c.tokenExpiry) {
		token := c.accessToken
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	form := url.Values{}
	form.Set("grant_type", "account_credentials")
	form.Set("account_id", c.accountID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.oauthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("careteam: zoom token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("careteam: zoom token request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("careteam: zoom token failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.AccessToken == "" {
		return "", errors.New("careteam: zoom token response malformed")
	}

	c.mu.Lock()
	c.accessToken = parsed.AccessToken
	// Refresh a minute early to avoid using a token mid-expiry.
	c.tokenExpiry = c.now().Add(time.Duration(parsed.ExpiresIn)*time.Second - time.Minute)
	c.mu.Unlock()
	return parsed.AccessToken, nil
}

func (c *Client) firstActiveUser(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.apiURL+"/users?status=active&page_size=1", nil)
	if err != nil {
		return "", fmt.Errorf("careteam: zoom users request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("careteam: zoom users request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("careteam: zoom users failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Users []struct {
			ID string `json:"id"`
		} `json:"users"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("careteam: zoom users response malformed: %w", err)
	}
	if len(parsed.Users) == 0 {
		return "", ErrNoActiveUsers
	}
	return parsed.Users[0].ID, nil
}

func (c *Client) createMeeting(ctx context.Context, token, userID, topic string) (Meeting, error) {
	payload := map[string]any{
		"topic":    topic,
		"type":     2, // scheduled meeting
		"duration": 30,
		"timezone": "America/Chicago",
		"settings": map[string]any{
			"host_video":        true,
			"participant_video": true,
			"join_before_host":  true,
			"waiting_room":      false,
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Meeting{}, fmt.Errorf("careteam: zoom meeting payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/users/%s/meetings", c.apiURL, userID), strings.NewReader(string(encoded)))
	if err != nil {
		return Meeting{}, fmt.Errorf("careteam: zoom meeting request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Meeting{}, fmt.Errorf("careteam: zoom meeting request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 16384))
	if resp.StatusCode != http.StatusCreated {
		return Meeting{}, fmt.Errorf("careteam: zoom meeting failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var meeting Meeting
	if err := json.Unmarshal(body, &meeting); err != nil {
		return Meeting{}, fmt.Errorf("careteam: zoom meeting response malformed: %w", err)
	}
	return meeting, nil
}
