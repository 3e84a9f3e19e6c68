package proxmox

import (
	"bytes"
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

	"github.com/rcourtman/proxmox-mcp/pkg/tlsutil"
	"github.com/rs/zerolog/log"
)

// Client is a Proxmox VE API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	config     ClientConfig

	authMu sync.Mutex
	auth   auth
}

// ClientConfig holds configuration for the PVE client
type ClientConfig struct {
	Host        string
	User        string
	Password    string
	TokenName   string
	TokenValue  string
	Fingerprint string
	VerifySSL   bool
	Timeout     time.Duration
}

// auth represents authentication details
type auth struct {
	user       string
	realm      string
	ticket     string
	csrfToken  string
	tokenName  string
	tokenValue string
	expiresAt  time.Time
}

// APIError is a non-2xx reply from the Proxmox API. The body is preserved
// verbatim so callers can surface the cluster's own diagnostics.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

// NewClient creates a new Proxmox VE API client
func NewClient(cfg ClientConfig) (*Client, error) {
	// Normalize host URL - ensure it has a protocol
	if !strings.HasPrefix(cfg.Host, "http://") && !strings.HasPrefix(cfg.Host, "https://") {
		cfg.Host = "https://" + cfg.Host
		log.Debug().Str("host", cfg.Host).Msg("No protocol specified in Proxmox host, defaulting to HTTPS")
	}

	var user, realm string

	if cfg.TokenName != "" && cfg.TokenValue != "" {
		// Token authentication - the token name may carry the full
		// user@realm!tokenname format
		if strings.Contains(cfg.TokenName, "!") {
			parts := strings.Split(cfg.TokenName, "!")
			if len(parts) == 2 && strings.Contains(parts[0], "@") {
				userParts := strings.Split(parts[0], "@")
				if len(userParts) == 2 {
					user = userParts[0]
					realm = userParts[1]
					cfg.TokenName = parts[1]
				}
			}
		} else if cfg.User != "" {
			parts := strings.Split(cfg.User, "@")
			if len(parts) == 2 {
				user = parts[0]
				realm = parts[1]
			} else {
				user = cfg.User
				realm = "pam"
			}
		}
		if user == "" {
			return nil, fmt.Errorf("token authentication requires user information either in token name (user@realm!tokenname) or user field")
		}
	} else {
		// Password authentication - user@realm format is required
		parts := strings.Split(cfg.User, "@")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid user format, expected user@realm")
		}
		user = parts[0]
		realm = parts[1]
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	httpClient := tlsutil.CreateHTTPClientWithTimeout(cfg.VerifySSL, cfg.Fingerprint, timeout)

	client := &Client{
		baseURL:    strings.TrimSuffix(cfg.Host, "/") + "/api2/json",
		httpClient: httpClient,
		config:     cfg,
		auth: auth{
			user:       user,
			realm:      realm,
			tokenName:  cfg.TokenName,
			tokenValue: cfg.TokenValue,
		},
	}

	// Authenticate up front when using a password
	if cfg.Password != "" && cfg.TokenName == "" {
		if err := client.authenticate(context.Background()); err != nil {
			return nil, fmt.Errorf("authentication failed: %w", err)
		}
	}

	return client, nil
}

// AuthUser returns the user@realm identity the client authenticates as.
func (c *Client) AuthUser() string {
	return c.auth.user + "@" + c.auth.realm
}

// authenticate performs password-based authentication
func (c *Client) authenticate(ctx context.Context) error {
	username := c.auth.user + "@" + c.auth.realm
	password := c.config.Password

	if err := c.authenticateJSON(ctx, username, password); err == nil {
		return nil
	} else if shouldFallbackToForm(err) {
		return c.authenticateForm(ctx, username, password)
	} else {
		return err
	}
}

func (c *Client) authenticateJSON(ctx context.Context, username, password string) error {
	payload := map[string]string{
		"username": username,
		"password": password,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/access/ticket", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.handleAuthResponse(resp)
}

func (c *Client) authenticateForm(ctx context.Context, username, password string) error {
	data := url.Values{
		"username": {username},
		"password": {password},
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/access/ticket", strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.handleAuthResponse(resp)
}

func (c *Client) handleAuthResponse(resp *http.Response) error {
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &authHTTPError{status: resp.StatusCode, body: string(body)}
	}

	var result struct {
		Data struct {
			Ticket              string `json:"ticket"`
			CSRFPreventionToken string `json:"CSRFPreventionToken"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}

	c.auth.ticket = result.Data.Ticket
	c.auth.csrfToken = result.Data.CSRFPreventionToken
	c.auth.expiresAt = time.Now().Add(2 * time.Hour) // PVE tickets expire after 2 hours

	return nil
}

type authHTTPError struct {
	status int
	body   string
}

func (e *authHTTPError) Error() string {
	if e.status == http.StatusUnauthorized || e.status == http.StatusForbidden {
		return fmt.Sprintf("authentication failed (status %d): %s", e.status, e.body)
	}
	return fmt.Sprintf("authentication failed: %s", e.body)
}

func shouldFallbackToForm(err error) bool {
	var authErr *authHTTPError
	if errors.As(err, &authErr) {
		switch authErr.status {
		case http.StatusBadRequest, http.StatusUnsupportedMediaType:
			return true
		}
	}
	return false
}

// request performs an API request. Password auth re-authenticates when the
// ticket has expired, and retries once on a 401 in case the cluster
// invalidated the ticket early.
func (c *Client) request(ctx context.Context, method, path string, data url.Values) (*http.Response, error) {
	usesPassword := c.config.Password != "" && c.auth.tokenName == ""

	if usesPassword {
		c.authMu.Lock()
		expired := time.Now().After(c.auth.expiresAt)
		c.authMu.Unlock()
		if expired {
			if err := c.reauthenticate(ctx); err != nil {
				return nil, fmt.Errorf("re-authentication failed: %w", err)
			}
		}
	}

	resp, err := c.do(ctx, method, path, data)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && usesPassword {
		// Ticket may have been invalidated server-side; refresh and retry once
		resp.Body.Close()
		if err := c.reauthenticate(ctx); err != nil {
			return nil, fmt.Errorf("re-authentication failed after 401: %w", err)
		}
		resp, err = c.do(ctx, method, path, data)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, c.classifyHTTPError(resp.StatusCode, string(body), path)
	}

	return resp, nil
}

func (c *Client) reauthenticate(ctx context.Context) error {
	c.authMu.Lock()
	defer c.authMu.Unlock()
	return c.authenticate(ctx)
}

func (c *Client) do(ctx context.Context, method, path string, data url.Values) (*http.Response, error) {
	var body io.Reader
	fullURL := c.baseURL + path
	if len(data) > 0 {
		if method == "DELETE" {
			// DELETE parameters ride in the query string
			sep := "?"
			if strings.Contains(fullURL, "?") {
				sep = "&"
			}
			fullURL += sep + data.Encode()
		} else {
			body = strings.NewReader(data.Encode())
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	// Snapshot the auth state: reauthenticate may replace the ticket while
	// concurrent requests are in flight
	c.authMu.Lock()
	auth := c.auth
	c.authMu.Unlock()

	if auth.tokenName != "" && auth.tokenValue != "" {
		// API token authentication. Never log the token value.
		authHeader := fmt.Sprintf("PVEAPIToken=%s@%s!%s=%s",
			auth.user, auth.realm, auth.tokenName, auth.tokenValue)
		req.Header.Set("Authorization", authHeader)
	} else if auth.ticket != "" {
		req.Header.Set("Cookie", "PVEAuthCookie="+auth.ticket)
		if method != "GET" && auth.csrfToken != "" {
			req.Header.Set("CSRFPreventionToken", auth.csrfToken)
		}
	}

	return c.httpClient.Do(req)
}

// classifyHTTPError turns a non-2xx reply into an error that keeps the status
// code and body, with the operator hints Proxmox deployments tend to need.
func (c *Client) classifyHTTPError(status int, body, path string) error {
	apiErr := &APIError{StatusCode: status, Body: body}

	switch {
	case status == http.StatusForbidden:
		if c.auth.tokenName != "" {
			return fmt.Errorf("authentication error: token %s@%s!%s does not have sufficient permissions for %s: %w",
				c.auth.user, c.auth.realm, c.auth.tokenName, path, apiErr)
		}
		return fmt.Errorf("authentication error: %w", apiErr)
	case status == http.StatusUnauthorized:
		return fmt.Errorf("authentication error: %w", apiErr)
	case status == 595:
		// PVE-specific: 595 on a /nodes path usually means the proxied node is
		// unreachable, elsewhere it is a ticket problem
		if strings.HasPrefix(path, "/nodes/") {
			return fmt.Errorf("Cannot access node resource %s (node offline or proxy error): %w", path, apiErr)
		}
		return fmt.Errorf("Authentication failed or cluster unreachable: %w", apiErr)
	default:
		return apiErr
	}
}

// get performs a GET request
func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	return c.request(ctx, "GET", path, nil)
}

// post performs a POST request
func (c *Client) post(ctx context.Context, path string, data url.Values) (*http.Response, error) {
	return c.request(ctx, "POST", path, data)
}

// delete performs a DELETE request
func (c *Client) delete(ctx context.Context, path string, data url.Values) (*http.Response, error) {
	return c.request(ctx, "DELETE", path, data)
}

// getData performs a GET request and returns the raw "data" payload.
func (c *Client) getData(ctx context.Context, path string) (json.RawMessage, error) {
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return result.Data, nil
}

// taskData performs a mutating request and decodes the returned UPID task id.
func (c *Client) taskData(ctx context.Context, method, path string, data url.Values) (string, error) {
	resp, err := c.request(ctx, method, path, data)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		Data string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode task response from %s: %w", path, err)
	}
	return result.Data, nil
}
