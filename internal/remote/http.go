package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/palliative-rounds/rounds/internal/schema"
)

// HTTPClient talks to a roster sync server over plain HTTP. The wire shape
// matches internal/server: GET and POST /api/{collection}, DELETE
// /api/{collection}/{id}.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient returns a client for the server at baseURL, e.g.
// "http://localhost:8721". The underlying http.Client carries its own
// timeout as a backstop behind per-call contexts.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 20 * time.Second},
	}
}

// List implements RemoteStore.
func (c *HTTPClient) List(ctx context.Context, col schema.Collection) ([]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.collectionURL(col, ""), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", col, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, httpError("list", col, resp)
	}

	var docs []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", col, err)
	}
	return docs, nil
}

// Save implements RemoteStore.
func (c *HTTPClient) Save(ctx context.Context, col schema.Collection, record any) (string, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.collectionURL(col, ""), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("save to %s: %w", col, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", httpError("save", col, resp)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode save response: %w", err)
	}
	return out.ID, nil
}

// Remove implements RemoteStore. A 404 counts as success.
func (c *HTTPClient) Remove(ctx context.Context, col schema.Collection, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.collectionURL(col, id), nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("remove from %s: %w", col, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK {
		return nil
	}
	return httpError("remove", col, resp)
}

func (c *HTTPClient) collectionURL(col schema.Collection, id string) string {
	u := c.baseURL + "/api/" + url.PathEscape(string(col))
	if id != "" {
		u += "/" + url.PathEscape(id)
	}
	return u
}

func httpError(verb string, col schema.Collection, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = resp.Status
	}
	return fmt.Errorf("%s %s: server returned %d: %s", verb, col, resp.StatusCode, msg)
}
