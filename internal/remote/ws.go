package remote

import (
	"context"
	"encoding/json"
	"fmt"
	stdsync "sync"

	"github.com/coder/websocket"

	"github.com/palliative-rounds/rounds/internal/schema"
)

// wsRequest is one frame sent to the sync server's websocket endpoint.
type wsRequest struct {
	Action     string            `json:"action"` // list, save, remove
	Collection schema.Collection `json:"collection"`
	ID         string            `json:"id,omitempty"`
	Record     json.RawMessage   `json:"record,omitempty"`
}

// wsResponse is the server's reply to a wsRequest.
type wsResponse struct {
	OK    bool              `json:"ok"`
	Error string            `json:"error,omitempty"`
	ID    string            `json:"id,omitempty"`
	Docs  []json.RawMessage `json:"docs,omitempty"`
}

// WSClient is a RemoteStore over a single websocket connection. Frames are
// strict request/response pairs, so calls are serialized with a mutex; the
// engine only issues one at a time anyway.
type WSClient struct {
	mu   stdsync.Mutex
	conn *websocket.Conn
	url  string
}

// DialWS connects to the sync server's websocket endpoint, e.g.
// "ws://localhost:8721/ws".
func DialWS(ctx context.Context, wsURL string) (*WSClient, error) {
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	// Collection payloads can exceed the default 32KB read limit.
	conn.SetReadLimit(16 << 20)
	return &WSClient{conn: conn, url: wsURL}, nil
}

// Close shuts the connection down cleanly.
func (c *WSClient) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

// List implements RemoteStore.
func (c *WSClient) List(ctx context.Context, col schema.Collection) ([]json.RawMessage, error) {
	resp, err := c.roundTrip(ctx, wsRequest{Action: "list", Collection: col})
	if err != nil {
		return nil, err
	}
	return resp.Docs, nil
}

// Save implements RemoteStore.
func (c *WSClient) Save(ctx context.Context, col schema.Collection, record any) (string, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	resp, err := c.roundTrip(ctx, wsRequest{Action: "save", Collection: col, Record: data})
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Remove implements RemoteStore.
func (c *WSClient) Remove(ctx context.Context, col schema.Collection, id string) error {
	_, err := c.roundTrip(ctx, wsRequest{Action: "remove", Collection: col, ID: id})
	return err
}

func (c *WSClient) roundTrip(ctx context.Context, req wsRequest) (wsResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(req)
	if err != nil {
		return wsResponse{}, fmt.Errorf("encode %s request: %w", req.Action, err)
	}
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return wsResponse{}, fmt.Errorf("%s %s: %w", req.Action, req.Collection, err)
	}

	_, payload, err := c.conn.Read(ctx)
	if err != nil {
		return wsResponse{}, fmt.Errorf("%s %s: read reply: %w", req.Action, req.Collection, err)
	}
	var resp wsResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return wsResponse{}, fmt.Errorf("%s %s: decode reply: %w", req.Action, req.Collection, err)
	}
	if !resp.OK {
		return wsResponse{}, fmt.Errorf("%s %s: server error: %s", req.Action, req.Collection, resp.Error)
	}
	return resp, nil
}
