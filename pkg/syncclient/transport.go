package syncclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	syncapi "github.com/nestlogapp/nestlog/pkg/sync"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// PushResponse is the push endpoint's response body.
type PushResponse struct {
	Results   []syncapi.MutationResult `json:"results"`
	NewCursor *int64                   `json:"newCursor"`
}

// Transport is the wire interface the orchestrator talks through. Tests
// substitute their own implementation.
type Transport interface {
	Push(ctx context.Context, mutations []syncapi.MutationPayload) (*PushResponse, error)
	Pull(ctx context.Context, babyID, since int64, limit int) (*syncapi.Page, error)
}

// ClientOptions configures an HTTP transport client.
type ClientOptions struct {
	BaseURL string
	// Token is sent as the bearer token on every request.
	Token string
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Client is the HTTP implementation of Transport.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a new transport client.
func NewClient(opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: opts.BaseURL,
		token:   opts.Token,
		http:    httpClient,
	}
}

// Push submits a mutation batch to the push endpoint.
func (c *Client) Push(ctx context.Context, mutations []syncapi.MutationPayload) (*PushResponse, error) {
	body, err := json.Marshal(struct {
		Mutations []syncapi.MutationPayload `json:"mutations"`
	}{mutations})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sync/push", bytes.NewReader(body))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp := &PushResponse{}
	if err := c.do(req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Pull fetches one page of changes. A limit of 0 leaves the page size to the
// server.
func (c *Client) Pull(ctx context.Context, babyID, since int64, limit int) (*syncapi.Page, error) {
	params := url.Values{}
	params.Set("babyId", strconv.FormatInt(babyID, 10))
	params.Set("since", strconv.FormatInt(since, 10))
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sync/pull?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	page := &syncapi.Page{}
	if err := c.do(req, page); err != nil {
		return nil, err
	}
	return page, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WithStack(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New(errorMessage(resp.StatusCode, body))
	}

	return errors.WithStack(json.Unmarshal(body, out))
}

func errorMessage(statusCode int, body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return fmt.Sprintf("server returned %d: %s", statusCode, payload.Error.Message)
	}
	return fmt.Sprintf("server returned %d", statusCode)
}
