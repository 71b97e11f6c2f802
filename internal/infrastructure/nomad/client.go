package nomad

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"NomadScanner/internal/domain"
	"NomadScanner/internal/ports"
)

const (
	maxRetries     = 5
	initialBackoff = time.Second
)

var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// CallCounter tracks network attempts across the whole process. It is a
// diagnostic only; nothing in the collection depends on its value.
type CallCounter struct {
	calls atomic.Int64
}

func (c *CallCounter) inc() {
	if c != nil {
		c.calls.Add(1)
	}
}

// Count reports the number of API attempts made so far.
func (c *CallCounter) Count() int64 {
	if c == nil {
		return 0
	}
	return c.calls.Load()
}

// Client posts search queries against the NOMAD entries API with bounded
// retries and exponential backoff for transient failures.
type Client struct {
	baseURL string
	client  *http.Client
	calls   *CallCounter
	sleep   func(time.Duration)
	logger  *slog.Logger
}

var _ ports.EntrySource = (*Client)(nil)

// NewClient wires an HTTP client; a nil client gets a 60s request timeout.
func NewClient(baseURL string, client *http.Client, calls *CallCounter, logger *slog.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		calls:   calls,
		sleep:   time.Sleep,
		logger:  logger,
	}
}

type pageResponse struct {
	Data       []domain.Entry `json:"data"`
	Pagination struct {
		NextPageAfterValue string `json:"next_page_after_value"`
	} `json:"pagination"`
}

// FetchPage requests one page of entries. The returned cursor is empty when
// the server signals the end of the stream. A repeated non-empty cursor from
// the server is a protocol violation this client does not defend against;
// callers must treat only the empty cursor as termination.
func (c *Client) FetchPage(ctx context.Context, query domain.EntryQuery, pageAfter string) ([]domain.Entry, string, error) {
	pagination := map[string]any{
		"page_size": query.PageSize,
		"order_by":  "entry_id",
		"order":     "asc",
	}
	if pageAfter != "" {
		pagination["page_after_value"] = pageAfter
	}

	q := query.Query
	if q == nil {
		q = map[string]any{}
	}

	payload := map[string]any{
		"owner":      "public",
		"query":      q,
		"pagination": pagination,
	}
	if len(query.IncludeFields) > 0 {
		payload["required"] = map[string]any{"include": query.IncludeFields}
	}

	result, err := c.postQuery(ctx, payload)
	if err != nil {
		return nil, "", err
	}

	return result.Data, result.Pagination.NextPageAfterValue, nil
}

// postQuery issues POST /entries/query, retrying transport errors and
// transient statuses up to maxRetries with doubling backoff and no jitter.
func (c *Client) postQuery(ctx context.Context, payload map[string]any) (*pageResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal query payload: %w", err)
	}

	url := c.baseURL + "/entries/query"
	backoff := initialBackoff

	for attempt := 1; attempt <= maxRetries; attempt++ {
		c.calls.inc()

		resp, err := c.post(ctx, url, body)
		if err != nil {
			if attempt == maxRetries {
				return nil, fmt.Errorf("post entries query: %w", err)
			}
			c.logger.Warn("request error, retrying", "attempt", attempt, "error", err)
			c.sleep(backoff)
			backoff *= 2
			continue
		}

		if retryableStatus[resp.StatusCode] && attempt < maxRetries {
			drain(resp)
			c.logger.Warn("retryable status, backing off",
				"status", resp.StatusCode,
				"attempt", attempt,
				"backoff", backoff)
			c.sleep(backoff)
			backoff *= 2
			continue
		}

		if resp.StatusCode != http.StatusOK {
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			_ = resp.Body.Close()
			return nil, fmt.Errorf("entries query failed with status %d: %s",
				resp.StatusCode, strings.TrimSpace(string(detail)))
		}

		var result pageResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("decode entries response: %w", err)
		}
		if err := resp.Body.Close(); err != nil {
			return nil, fmt.Errorf("close response body: %w", err)
		}

		return &result, nil
	}

	// Unreachable: the final attempt either returns a page or an error above.
	return nil, fmt.Errorf("entries query exceeded %d attempts", maxRetries)
}

func (c *Client) post(ctx context.Context, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "NomadScanner/1.0")

	return c.client.Do(req)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
