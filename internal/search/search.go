package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sharetube/roomsync/pkg/validator"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrBadResponse      = errors.New("bad response")
)

// Error is returned for any failure of the search collaborator. Callers
// treat it as an empty result list.
type Error struct {
	Query string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("search %q failed: %v", e.Query, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Result struct {
	Title     string   `json:"title"`
	URL       string   `json:"url" validate:"required,http_url"`
	Thumbnail string   `json:"thumbnail"`
	Channel   string   `json:"channel"`
	Duration  Duration `json:"duration"`
}

// Duration is the display length of a result, such as "4:13". Numeric
// values are kept in their JSON form; live streams have none.
type Duration string

func (d *Duration) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*d = Duration(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s: %w", b, err)
	}
	*d = Duration(n.String())
	return nil
}

type Client struct {
	client    *http.Client
	endpoint  string
	validator *validator.Validator
	logger    *slog.Logger
}

func NewClient(client *http.Client, endpoint string, logger *slog.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		client:    client,
		endpoint:  endpoint,
		validator: validator.NewValidator(),
		logger:    logger,
	}
}

// Search queries the collaborator. Results failing validation are dropped.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	results, err := c.search(ctx, query)
	if err != nil {
		return nil, &Error{Query: query, Err: err}
	}
	return results, nil
}

func (c *Client) search(ctx context.Context, query string) ([]Result, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var raw []Result
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}

	results := make([]Result, 0, len(raw))
	for _, r := range raw {
		if errs, ok := c.validator.Validate(r); !ok {
			c.logger.DebugContext(ctx, "dropping search result", "url", r.URL, "errors", errs)
			continue
		}
		results = append(results, r)
	}

	return results, nil
}

// NormalizeQuery folds case and surrounding space.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
