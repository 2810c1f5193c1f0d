package readwise

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mrlokans/bookmarksync/internal/sources"
)

const (
	DefaultAPIURL = "https://readwise.io/api/v2"

	defaultTimeout = 30 * time.Second
	pageSize       = 1000
)

// Page is one page of a list endpoint.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// Book is a Readwise source document: a book, an article, a tweet thread.
type Book struct {
	ID        int        `json:"id"`
	Title     string     `json:"title"`
	Author    string     `json:"author"`
	Category  string     `json:"category"`
	SourceURL string     `json:"source_url"`
	Tags      []Tag      `json:"tags"`
	Updated   *time.Time `json:"updated"`
}

type Highlight struct {
	ID            int        `json:"id"`
	Text          string     `json:"text"`
	Location      int        `json:"location"`
	BookID        int        `json:"book_id"`
	HighlightedAt *time.Time `json:"highlighted_at"`
	Tags          []Tag      `json:"tags"`
}

type Tag struct {
	Name string `json:"name"`
}

// Client interfaces with the Readwise v2 list API.
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

// ValidateToken checks a token against the auth endpoint.
func (c *Client) ValidateToken(ctx context.Context, token string) error {
	return c.get(ctx, token, c.apiURL+"/auth/", nil)
}

// Books fetches one page (1-based) of books updated after since.
func (c *Client) Books(ctx context.Context, token string, since *time.Time, page int) (*Page[Book], error) {
	var result Page[Book]
	if err := c.get(ctx, token, c.listURL("/books/", "updated__gt", since, page), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Highlights fetches one page (1-based) of highlights made after since.
func (c *Client) Highlights(ctx context.Context, token string, since *time.Time, page int) (*Page[Highlight], error) {
	var result Page[Highlight]
	if err := c.get(ctx, token, c.listURL("/highlights/", "highlighted_at__gt", since, page), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AllBooks follows pagination until the last page.
func (c *Client) AllBooks(ctx context.Context, token string, since *time.Time) ([]Book, error) {
	return fetchAll(func(page int) (*Page[Book], error) {
		return c.Books(ctx, token, since, page)
	})
}

// AllHighlights follows pagination until the last page.
func (c *Client) AllHighlights(ctx context.Context, token string, since *time.Time) ([]Highlight, error) {
	return fetchAll(func(page int) (*Page[Highlight], error) {
		return c.Highlights(ctx, token, since, page)
	})
}

// Book fetches a single book by id.
func (c *Client) Book(ctx context.Context, token string, id int) (*Book, error) {
	var book Book
	if err := c.get(ctx, token, c.apiURL+"/books/"+strconv.Itoa(id)+"/", &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func fetchAll[T any](fetch func(page int) (*Page[T], error)) ([]T, error) {
	var all []T
	for page := 1; ; page++ {
		resp, err := fetch(page)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Results...)
		if resp.Next == nil || *resp.Next == "" {
			return all, nil
		}
	}
}

func (c *Client) listURL(path, sinceParam string, since *time.Time, page int) string {
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(pageSize))
	q.Set("page", strconv.Itoa(page))
	if since != nil {
		q.Set(sinceParam, since.UTC().Format("2006-01-02T15:04:05.000Z"))
	}
	return c.apiURL + path + "?" + q.Encode()
}

func (c *Client) get(ctx context.Context, token, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := sources.CheckResponse(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
