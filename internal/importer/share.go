package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/earshot-ai/earshot/pkg/provider/llm"
)

// defaultShareTitle labels shared conversations whose payload carries no title.
const defaultShareTitle = "Shared ChatGPT project"

// nextDataMarker opens the embedded payload script on share pages that render
// HTML instead of answering with JSON.
const nextDataMarker = `<script id="__NEXT_DATA__" type="application/json">`

// ErrNotShareLink reports that a URL does not point at a ChatGPT share page.
var ErrNotShareLink = errors.New("importer: not a chatgpt share link")

// SharedConversation is the content behind one public share link.
type SharedConversation struct {
	ShareID  string
	Title    string
	Messages []llm.Message
}

// ShareOption configures a ShareClient.
type ShareOption func(*ShareClient)

// WithShareBaseURL overrides the share page origin, mainly for tests.
func WithShareBaseURL(base string) ShareOption {
	return func(c *ShareClient) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithShareHTTPClient overrides the HTTP client.
func WithShareHTTPClient(hc *http.Client) ShareOption {
	return func(c *ShareClient) {
		c.httpClient = hc
	}
}

// ShareClient fetches conversations published through ChatGPT share links.
// Share pages are public, so no session cookie or bearer token is involved.
type ShareClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewShareClient returns a ShareClient talking to chat.openai.com.
func NewShareClient(opts ...ShareOption) *ShareClient {
	c := &ShareClient{
		baseURL:    defaultOrigin,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// sharePayload is the share endpoint's conversation document.
type sharePayload struct {
	Title   string                 `json:"title"`
	Mapping map[string]mappingNode `json:"mapping"`
}

// FetchShared resolves shareURL and returns the shared conversation with its
// turns ordered by creation time.
func (c *ShareClient) FetchShared(ctx context.Context, shareURL string) (*SharedConversation, error) {
	id, err := shareID(shareURL)
	if err != nil {
		return nil, err
	}

	payload, err := c.fetchPayload(ctx, id)
	if err != nil {
		return nil, err
	}

	title := payload.Title
	if title == "" {
		title = defaultShareTitle
	}
	return &SharedConversation{
		ShareID:  id,
		Title:    title,
		Messages: flattenMapping(payload.Mapping),
	}, nil
}

// fetchPayload tries the share endpoints in order. The backend has served the
// document from both paths over time, and either may answer with an HTML page
// that embeds the payload in a __NEXT_DATA__ script instead of plain JSON.
func (c *ShareClient) fetchPayload(ctx context.Context, id string) (*sharePayload, error) {
	endpoints := []string{
		c.baseURL + "/backend-api/share/" + url.PathEscape(id),
		c.baseURL + "/backend-api/share/" + url.PathEscape(id) + "/conversation",
	}

	var lastErr error
	for _, endpoint := range endpoints {
		payload, err := c.fetchOne(ctx, endpoint)
		if err != nil {
			lastErr = err
			continue
		}
		return payload, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("importer: unable to import the shared conversation, ensure the link is public")
}

func (c *ShareClient) fetchOne(ctx context.Context, endpoint string) (*sharePayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, text/html")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.New("importer: the shared conversation could not be found")
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("importer: share request failed with status %d", resp.StatusCode)
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("importer: read share page: %w", err)
		}
		return payloadFromHTML(string(body))
	}

	var payload sharePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("importer: decode share payload: %w", err)
	}
	return &payload, nil
}

// payloadFromHTML digs the conversation document out of the __NEXT_DATA__
// script a rendered share page embeds.
func payloadFromHTML(page string) (*sharePayload, error) {
	start := strings.Index(page, nextDataMarker)
	if start == -1 {
		return nil, errors.New("importer: the share page did not include the expected payload")
	}
	start += len(nextDataMarker)
	end := strings.Index(page[start:], "</script>")
	if end == -1 {
		return nil, errors.New("importer: the share page payload was truncated")
	}

	var wrapper struct {
		Props struct {
			PageProps struct {
				ServerResponse sharePayload `json:"serverResponse"`
			} `json:"pageProps"`
		} `json:"props"`
	}
	if err := json.Unmarshal([]byte(page[start:start+end]), &wrapper); err != nil {
		return nil, fmt.Errorf("importer: decode share page payload: %w", err)
	}
	payload := wrapper.Props.PageProps.ServerResponse
	if len(payload.Mapping) == 0 {
		return nil, errors.New("importer: the share page payload was empty")
	}
	return &payload, nil
}

// shareID extracts the share identifier from a link like
// https://chat.openai.com/share/<id>.
func shareID(shareURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(shareURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotShareLink, err)
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) == 0 || segments[0] != "share" || segments[len(segments)-1] == "" {
		return "", fmt.Errorf("%w: %q", ErrNotShareLink, shareURL)
	}
	return segments[len(segments)-1], nil
}
