package hackernews

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
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/steemit/hnspool/pkg/config"
	"github.com/steemit/hnspool/pkg/logging"
	"github.com/steemit/hnspool/pkg/telemetry"
)

// DefaultBaseURL is the public Hacker News API root
const DefaultBaseURL = "https://hacker-news.firebaseio.com/v0"

// ErrItemNotFound is returned when the detail endpoint answers with null
var ErrItemNotFound = errors.New("item not found")

// FetchError reports a transport failure, a non-success status or an undecodable body
type FetchError struct {
	URL    string
	Status int
	Err    error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Client is a read-only Hacker News API client
type Client struct {
	baseURL string
	list    string
	http    *http.Client
	logger  *zap.Logger
}

// New creates a new Hacker News client
func New(cfg *config.HackerNewsConfig) (*Client, error) {
	list, err := ListName(cfg.List)
	if err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid hackernews base url: %w", err)
	}

	logger := logging.WithComponent("hackernews-client")
	logger.Info("Hacker News client initialized",
		zap.String("url", baseURL),
		zap.String("list", list))

	return &Client{
		baseURL: baseURL,
		list:    list,
		// Zero timeout means none; callers bound requests with their context
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// ListName normalizes a story list name, accepting short aliases
func ListName(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "top", "topstories":
		return "topstories", nil
	case "new", "newstories":
		return "newstories", nil
	case "best", "beststories":
		return "beststories", nil
	case "ask", "askstories":
		return "askstories", nil
	case "show", "showstories":
		return "showstories", nil
	case "job", "jobs", "jobstories":
		return "jobstories", nil
	default:
		return "", fmt.Errorf("unknown story list %q", name)
	}
}

// RootIDs fetches the configured story list. An empty slice with a nil error
// means the upstream list is genuinely empty.
func (c *Client) RootIDs(ctx context.Context) ([]int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "hackernews.root_ids")
	defer span.End()
	span.SetAttributes(attribute.String("hn.list", c.list))

	var ids []int64
	endpoint := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(c.list))
	if err := c.getJSON(ctx, endpoint, &ids); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if ids == nil {
		ids = []int64{}
	}

	c.logger.Debug("Fetched root IDs", zap.String("list", c.list), zap.Int("count", len(ids)))
	return ids, nil
}

// Item fetches a single item by external ID
func (c *Client) Item(ctx context.Context, id int64) (*Payload, error) {
	ctx, span := telemetry.StartSpan(ctx, "hackernews.item")
	defer span.End()
	span.SetAttributes(attribute.Int64("hn.item_id", id))

	var payload *Payload
	endpoint := fmt.Sprintf("%s/item/%d.json", c.baseURL, id)
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if payload == nil {
		return nil, fmt.Errorf("item %d: %w", id, ErrItemNotFound)
	}
	if payload.ID == nil {
		payload.ID = &id
	}
	if *payload.ID != id {
		err := &FetchError{URL: endpoint, Err: fmt.Errorf("got item %d", *payload.ID)}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return payload, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &FetchError{URL: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &FetchError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return &FetchError{
			URL:    endpoint,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &FetchError{URL: endpoint, Err: err}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return &FetchError{URL: endpoint, Err: errors.New("empty response body")}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &FetchError{URL: endpoint, Err: fmt.Errorf("decode response: %w", err)}
	}

	c.logger.Debug("Upstream request completed",
		zap.String("url", endpoint),
		zap.Duration("took", time.Since(start)))
	return nil
}
