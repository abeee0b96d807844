package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Request is the payload sent to the assessment collaborator.
type Request struct {
	Persona        Persona `json:"persona"`
	IncludeHistory bool    `json:"includeHistory"`
	Comments       string  `json:"comments"`
}

// StreamClient starts an assessment run and hands back its raw event stream.
type StreamClient interface {
	OpenStream(ctx context.Context, linkID string, req Request) (io.ReadCloser, error)
}

// Client calls the assessment collaborator over HTTP. The response body is a
// newline-framed event stream; it is returned undecoded so the caller owns the
// read loop.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a Client for the given service endpoint.
func NewClient(baseURL, apiKey string) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("ASSESSMENT_SERVICE_URL is required")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			// No overall timeout: the stream stays open for the whole run.
			Timeout: 0,
		},
	}, nil
}

// OpenStream POSTs the analysis request and returns the streaming body. A
// non-2xx response short-circuits: its JSON error body is surfaced as a
// RequestError and stream decoding never starts.
func (c *Client) OpenStream(ctx context.Context, linkID string, req Request) (io.ReadCloser, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/links/%s/analyze", c.baseURL, linkID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, decodeRequestError(resp)
	}
	return resp.Body, nil
}

func decodeRequestError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return &RequestError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("assessment service returned %d", resp.StatusCode)}
	}
	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && strings.TrimSpace(parsed.Error) != "" {
		return &RequestError{StatusCode: resp.StatusCode, Message: parsed.Error}
	}
	return &RequestError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("assessment service returned %d", resp.StatusCode)}
}

var _ StreamClient = (*Client)(nil)
