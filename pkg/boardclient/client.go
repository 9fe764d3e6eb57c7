package boardclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/chirpwall/chirpwall/pkg/wire"
)

// Query documents sent by the client.
const (
	ListQuery = `query GetMessages {
  messages { id content author createdAt }
}`
	CreateMutation = `mutation CreateMessage($content: String!, $author: String!) {
  createMessage(content: $content, author: $author) { id content author createdAt }
}`
)

const defaultTimeout = 10 * time.Second

// ResponseError reports an errors list from the server, or a non-200
// status.
type ResponseError struct {
	StatusCode int
	Messages   []string
}

func (e *ResponseError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("boardclient: status %d", e.StatusCode)
	}
	return fmt.Sprintf("boardclient: status %d: %s", e.StatusCode, strings.Join(e.Messages, "; "))
}

// Client performs one-shot exchanges against the board's HTTP endpoint.
type Client struct {
	url  string
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a Client that POSTs to url, e.g. http://localhost:4000/graphql.
func New(url string, opts ...Option) *Client {
	c := &Client{url: url, http: &http.Client{Timeout: defaultTimeout}}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ListMessages returns every message in creation order.
func (c *Client) ListMessages(ctx context.Context) ([]wire.Message, error) {
	resp, err := c.Do(ctx, wire.Request{Query: ListQuery, OperationName: "GetMessages"})
	if err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("boardclient: response has no data")
	}
	return resp.Data.Messages, nil
}

// CreateMessage posts a new message and returns it as stored.
func (c *Client) CreateMessage(ctx context.Context, content, author string) (wire.Message, error) {
	resp, err := c.Do(ctx, wire.Request{
		Query:         CreateMutation,
		OperationName: "CreateMessage",
		Variables:     map[string]any{"content": content, "author": author},
	})
	if err != nil {
		return wire.Message{}, err
	}
	if resp.Data == nil || resp.Data.CreateMessage == nil {
		return wire.Message{}, fmt.Errorf("boardclient: response has no createMessage")
	}
	return *resp.Data.CreateMessage, nil
}

// Do sends req and decodes the response. A non-200 status or a non-empty
// errors list is returned as *ResponseError.
func (c *Client) Do(ctx context.Context, req wire.Request) (wire.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return wire.Response{}, fmt.Errorf("boardclient: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return wire.Response{}, fmt.Errorf("boardclient: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return wire.Response{}, fmt.Errorf("boardclient: post %s: %w", c.url, err)
	}
	defer httpResp.Body.Close()

	var resp wire.Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return wire.Response{}, fmt.Errorf("boardclient: decode response (status %d): %w", httpResp.StatusCode, err)
	}
	if httpResp.StatusCode != http.StatusOK || len(resp.Errors) > 0 {
		return resp, &ResponseError{
			StatusCode: httpResp.StatusCode,
			Messages:   lo.Map(resp.Errors, func(e wire.Error, _ int) string { return e.Message }),
		}
	}
	return resp, nil
}
