// Package importer pulls prior conversations out of the ChatGPT web backend
// so they can seed a session's history or be ingested into the knowledge
// store. It speaks the same private API the chat.openai.com frontend uses: a
// browser session cookie is exchanged for a short-lived bearer token, which
// then authorises the conversation endpoints.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/earshot-ai/earshot/pkg/provider/llm"
)

const (
	defaultBaseURL = "https://chat.openai.com/backend-api"
	defaultOrigin  = "https://chat.openai.com"

	// DefaultListLimit is how many recent conversations List fetches.
	DefaultListLimit = 12

	// sessionCookie is the browser cookie the backend expects when minting a
	// bearer token.
	sessionCookie = "__Secure-next-auth.session-token"

	// tokenRefreshSlack refreshes the bearer token slightly before expiry so
	// a request never starts with a token about to lapse.
	tokenRefreshSlack = 30 * time.Second

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// ErrSessionRejected reports that the backend refused the session cookie; the
// user needs to copy a fresh token from their browser.
var ErrSessionRejected = errors.New("importer: chatgpt rejected the session cookie, refresh it from the browser")

// Conversation is one entry of the conversation list.
type Conversation struct {
	ID    string
	Title string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the backend API base URL, mainly for tests.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithOrigin overrides the origin used for token minting, mainly for tests.
func WithOrigin(origin string) Option {
	return func(c *Client) {
		c.origin = strings.TrimRight(origin, "/")
	}
}

// WithBearerToken supplies an explicit bearer token, skipping the session
// cookie exchange entirely.
func WithBearerToken(token string) Option {
	return func(c *Client) {
		c.accessToken = token
		c.manualBearer = true
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Client talks to the ChatGPT web backend API.
type Client struct {
	sessionToken string
	baseURL      string
	origin       string
	httpClient   *http.Client

	mu           sync.Mutex
	accessToken  string
	tokenExpires time.Time
	manualBearer bool
	cookieOnly   bool
}

// NewClient creates a Client authenticated by the browser session token.
func NewClient(sessionToken string, opts ...Option) (*Client, error) {
	if sessionToken == "" {
		return nil, errors.New("importer: a chatgpt session token is required")
	}
	c := &Client{
		sessionToken: sessionToken,
		baseURL:      defaultBaseURL,
		origin:       defaultOrigin,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// List returns the most recent conversations, newest first as the backend
// orders them. limit values below one are raised to one.
func (c *Client) List(ctx context.Context, limit int) ([]Conversation, error) {
	if limit < 1 {
		limit = 1
	}
	endpoint := c.baseURL + "/conversations?" + url.Values{
		"offset": {"0"},
		"limit":  {strconv.Itoa(limit)},
	}.Encode()

	var payload struct {
		Items []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"items"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("importer: list conversations: %w", err)
	}

	conversations := make([]Conversation, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item.ID == "" {
			continue
		}
		title := item.Title
		if title == "" {
			title = "Untitled chat"
		}
		conversations = append(conversations, Conversation{ID: item.ID, Title: title})
	}
	return conversations, nil
}

// mappingNode is one node of the conversation message graph.
type mappingNode struct {
	Message *struct {
		Author struct {
			Role string `json:"role"`
		} `json:"author"`
		Content struct {
			Parts []json.RawMessage `json:"parts"`
		} `json:"content"`
		CreateTime float64 `json:"create_time"`
	} `json:"message"`
}

// Fetch returns the ordered turns of one conversation. The backend delivers
// messages as an unordered node mapping; turns are flattened and sorted by
// creation time. Non-text parts and empty messages are skipped, and every
// non-assistant author (user, system, tool) maps to a user turn.
func (c *Client) Fetch(ctx context.Context, conversationID string) ([]llm.Message, error) {
	var payload struct {
		Mapping map[string]mappingNode `json:"mapping"`
	}
	endpoint := c.baseURL + "/conversation/" + url.PathEscape(conversationID)
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("importer: fetch conversation %s: %w", conversationID, err)
	}
	return flattenMapping(payload.Mapping), nil
}

// flattenMapping orders a message graph into turns sorted by creation time.
// Non-text parts and empty messages are skipped, and every non-assistant
// author (user, system, tool) maps to a user turn.
func flattenMapping(mapping map[string]mappingNode) []llm.Message {
	type timedMessage struct {
		msg     llm.Message
		created float64
	}
	var timed []timedMessage
	for _, node := range mapping {
		if node.Message == nil {
			continue
		}
		var parts []string
		for _, raw := range node.Message.Content.Parts {
			var part string
			if err := json.Unmarshal(raw, &part); err != nil {
				continue
			}
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		text := strings.Join(parts, "\n\n")
		if text == "" {
			continue
		}
		role := "user"
		if node.Message.Author.Role == "assistant" {
			role = "assistant"
		}
		timed = append(timed, timedMessage{
			msg:     llm.Message{Role: role, Content: text},
			created: node.Message.CreateTime,
		})
	}

	sort.SliceStable(timed, func(i, j int) bool { return timed[i].created < timed[j].created })
	ordered := make([]llm.Message, len(timed))
	for i, tm := range timed {
		ordered[i] = tm.msg
	}
	return ordered
}

// Flatten renders fetched turns as plain text suitable for knowledge
// ingestion, one "Role: content" block per turn.
func Flatten(msgs []llm.Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		role := "User"
		if m.Role == "assistant" {
			role = "Assistant"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

// getJSON issues an authorised GET and decodes the JSON body into v. A 401
// with a cached bearer token refreshes the token and retries once.
func (c *Client) getJSON(ctx context.Context, endpoint string, v any) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	resp, err := c.get(ctx, endpoint, token)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		resp.Body.Close()
		c.invalidateToken()
		token, err = c.ensureToken(ctx)
		if err != nil {
			return err
		}
		resp, err = c.get(ctx, endpoint, token)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrSessionRejected
	}
	if err := checkResponse(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *Client) get(ctx context.Context, endpoint, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", c.origin+"/")
	req.Header.Set("Origin", c.origin)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: c.sessionToken})
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.httpClient.Do(req)
}

// ensureToken returns a bearer token, minting one from the session cookie
// when the cache is empty or stale. Accounts that no longer expose a token
// via the session endpoint fall back to cookie-only requests.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.manualBearer || c.cookieOnly {
		return c.accessToken, nil
	}
	if c.accessToken != "" &&
		(c.tokenExpires.IsZero() || time.Now().Before(c.tokenExpires.Add(-tokenRefreshSlack))) {
		return c.accessToken, nil
	}

	resp, err := c.get(ctx, c.origin+"/api/auth/session", "")
	if err != nil {
		return "", fmt.Errorf("importer: mint access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", ErrSessionRejected
	}
	if err := checkResponse(resp); err != nil {
		return "", fmt.Errorf("importer: mint access token: %w", err)
	}

	var payload struct {
		AccessToken string `json:"accessToken"`
		Expires     string `json:"expires"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("importer: decode session response: %w", err)
	}
	if payload.AccessToken == "" {
		c.cookieOnly = true
		c.accessToken = ""
		return "", nil
	}

	c.accessToken = payload.AccessToken
	c.tokenExpires = time.Time{}
	if payload.Expires != "" {
		if t, err := time.Parse(time.RFC3339, payload.Expires); err == nil {
			c.tokenExpires = t
		}
	}
	return c.accessToken, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.accessToken = ""
	c.tokenExpires = time.Time{}
	c.mu.Unlock()
}

// checkResponse turns a non-2xx reply into an error. An HTML body means the
// backend served a browser challenge page instead of JSON, which the hint
// calls out since it looks like success at the HTTP layer.
func checkResponse(resp *http.Response) error {
	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode < 300 && strings.Contains(contentType, "application/json") {
		return nil
	}
	if strings.Contains(contentType, "text/html") {
		return fmt.Errorf("importer: received an HTML challenge page, verify the %s cookie is current", sessionCookie)
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Detail != "" {
			return fmt.Errorf("importer: %s", payload.Detail)
		}
		if payload.Message != "" {
			return fmt.Errorf("importer: %s", payload.Message)
		}
	}
	return fmt.Errorf("importer: api call failed with status %d", resp.StatusCode)
}
