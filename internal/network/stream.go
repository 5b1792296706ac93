package network

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"
)

// Stream receives snapshots pushed by the server over a websocket.
type Stream struct {
	conn *websocket.Conn
}

// StreamURL returns the websocket URL for the stream endpoint.
func (c *Client) StreamURL() string {
	u := *c.base.JoinPath(PathStream)
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String()
}

// DialStream opens the snapshot stream.
func (c *Client) DialStream(ctx context.Context) (*Stream, error) {
	return DialStream(ctx, c.StreamURL())
}

// DialStream opens a snapshot stream at a ws:// or wss:// URL.
func DialStream(ctx context.Context, rawURL string) (*Stream, error) {
	if _, err := url.Parse(rawURL); err != nil {
		return nil, fmt.Errorf("parsing stream url: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", rawURL, err)
	}
	return &Stream{conn: conn}, nil
}

// Read blocks until the next snapshot arrives. Non-text frames are skipped.
func (s *Stream) Read() (*Snapshot, error) {
	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind != websocket.TextMessage {
			continue
		}
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("decoding stream snapshot: %w", err)
		}
		return &snap, nil
	}
}

// Run calls fn for every snapshot until ctx is done or the stream fails.
// It closes the stream on return.
func (s *Stream) Run(ctx context.Context, fn func(*Snapshot)) error {
	stop := context.AfterFunc(ctx, func() { s.conn.Close() })
	defer stop()
	defer s.conn.Close()

	for {
		snap, err := s.Read()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		fn(snap)
	}
}

// Close closes the stream.
func (s *Stream) Close() error {
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}
