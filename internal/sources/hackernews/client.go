package hackernews

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/mrlokans/bookmarksync/internal/sources"
)

const (
	DefaultFavoritesURL = "https://hnfavs.reactual.autocode.gg"
	DefaultAPIURL       = "https://hacker-news.firebaseio.com"

	defaultTimeout = 30 * time.Second

	// favoritesLimit is the number of HN favorites pages requested per call;
	// each HN page holds favoritesPerPage entries.
	favoritesLimit   = 5
	favoritesPerPage = 30

	maxConcurrentItems = 8
)

// Favorite is an entry of a user's favorites list, newest first.
type Favorite struct {
	ID    string `json:"id"`
	Link  string `json:"link"`
	Title string `json:"title"`
}

// Item is a story or comment from the Hacker News API.
type Item struct {
	ID    int64  `json:"id"`
	By    string `json:"by"`
	Time  int64  `json:"time"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"`
}

// Client talks to the favorites scraper and the official item API.
type Client struct {
	httpClient   *http.Client
	favoritesURL string
	apiURL       string
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func WithFavoritesURL(u string) ClientOption {
	return func(c *Client) { c.favoritesURL = u }
}

func WithAPIURL(u string) ClientOption {
	return func(c *Client) { c.apiURL = u }
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: defaultTimeout},
		favoritesURL: DefaultFavoritesURL,
		apiURL:       DefaultAPIURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Favorites fetches one window of a user's favorites.
func (c *Client) Favorites(ctx context.Context, username string, limit, offset int) ([]Favorite, error) {
	u, err := url.Parse(c.favoritesURL + "/")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("id", username)
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	var favorites []Favorite
	if err := c.getJSON(ctx, u.String(), &favorites); err != nil {
		return nil, err
	}
	return favorites, nil
}

// AllFavorites pages through a user's favorites until a short window or the
// since id is reached. Only favorites newer than since are returned.
func (c *Client) AllFavorites(ctx context.Context, username, since string) ([]Favorite, error) {
	var favorites []Favorite
	for offset := 0; ; offset += favoritesLimit {
		page, err := c.Favorites(ctx, username, favoritesLimit, offset)
		if err != nil {
			return nil, err
		}
		favorites = append(favorites, page...)
		if len(page) != favoritesPerPage*favoritesLimit || indexOf(favorites, since) >= 0 {
			break
		}
	}

	if idx := indexOf(favorites, since); idx >= 0 {
		favorites = favorites[:idx]
	}
	return favorites, nil
}

func indexOf(favorites []Favorite, id string) int {
	if id == "" {
		return -1
	}
	for i, f := range favorites {
		if f.ID == id {
			return i
		}
	}
	return -1
}

// Item fetches a single item. Deleted items come back as nil.
func (c *Client) Item(ctx context.Context, id string) (*Item, error) {
	var item *Item
	if err := c.getJSON(ctx, c.apiURL+"/v0/item/"+url.PathEscape(id)+".json", &item); err != nil {
		return nil, err
	}
	return item, nil
}

// Items fetches items concurrently, preserving the order of ids. The first
// failure cancels the remaining requests.
func (c *Client) Items(ctx context.Context, ids []string) ([]*Item, error) {
	items := make([]*Item, len(ids))
	p := pool.New().
		WithContext(ctx).
		WithMaxGoroutines(maxConcurrentItems).
		WithCancelOnError()
	for i, id := range ids {
		p.Go(func(ctx context.Context) error {
			item, err := c.Item(ctx, id)
			if err != nil {
				return fmt.Errorf("item %s: %w", id, err)
			}
			items[i] = item
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := sources.CheckResponse(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
