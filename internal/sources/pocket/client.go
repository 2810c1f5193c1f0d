package pocket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/mrlokans/bookmarksync/internal/sources"
)

const (
	DefaultAPIURL = "https://getpocket.com/v3"

	defaultTimeout = 30 * time.Second
)

// Item is a saved entry from the retrieve endpoint.
type Item struct {
	ResolvedID    string `json:"resolved_id"`
	ResolvedTitle string `json:"resolved_title"`
	ResolvedURL   string `json:"resolved_url"`
	TimeAdded     string `json:"time_added"`
	SortID        int    `json:"sort_id"`
}

// Added returns when the item was saved, or nil when unknown.
func (i Item) Added() *time.Time {
	secs, err := strconv.ParseInt(i.TimeAdded, 10, 64)
	if err != nil || secs <= 0 {
		return nil
	}
	t := time.Unix(secs, 0)
	return &t
}

type retrieveRequest struct {
	ConsumerKey string `json:"consumer_key"`
	AccessToken string `json:"access_token"`
	Since       int64  `json:"since,omitempty"`
}

type retrieveResponse struct {
	List json.RawMessage `json:"list"`
}

type Client struct {
	httpClient *http.Client
	apiURL     string
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func WithAPIURL(u string) ClientOption {
	return func(c *Client) { c.apiURL = u }
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		apiURL:     DefaultAPIURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Retrieve returns the items saved since the given unix time (0 for all),
// most recent first.
func (c *Client) Retrieve(ctx context.Context, consumerKey, accessToken string, since int64) ([]Item, error) {
	body, err := json.Marshal(retrieveRequest{
		ConsumerKey: consumerKey,
		AccessToken: accessToken,
		Since:       since,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/get", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := sources.CheckResponse(resp); err != nil {
		return nil, err
	}

	var result retrieveResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	items, err := decodeList(result.List)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].SortID > items[j].SortID
	})
	return items, nil
}

// decodeList reads the id-keyed item object. An empty result is sent as a
// JSON array instead of an object.
func decodeList(raw json.RawMessage) ([]Item, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, nil
	}

	var byID map[string]Item
	if err := json.Unmarshal(raw, &byID); err != nil {
		return nil, fmt.Errorf("failed to decode item list: %w", err)
	}
	items := make([]Item, 0, len(byID))
	for _, item := range byID {
		items = append(items, item)
	}
	return items, nil
}
