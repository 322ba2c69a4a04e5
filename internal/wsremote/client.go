// Package wsremote implements the remote store contract over a websocket
// connection speaking JSON frames. One-shot fetches are correlated by request
// id; continuous listeners by subscription id, both assigned client-side.
package wsremote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rtmirror/rtmirror/internal/remote"
)

const writeTimeout = 10 * time.Second

// ErrClosed is returned for calls made after the connection is gone.
var ErrClosed = errors.New("wsremote: connection closed")

// Client is a remote.Client over one websocket connection. Safe for
// concurrent use; writes are serialized, reads run on a single loop.
type Client struct {
	conn *websocket.Conn
	log  *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[int64]chan frame
	subs    map[int64]*subscription
	nextID  int64
	closed  bool
	err     error

	done chan struct{}
}

// Dial connects to rawURL and starts the read loop. http and https schemes
// are rewritten to their websocket equivalents.
func Dial(ctx context.Context, rawURL string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	wsURL, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}

	c := &Client{
		conn:    conn,
		log:     logger,
		pending: make(map[int64]chan frame),
		subs:    make(map[int64]*subscription),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Close tears down the connection. Pending fetches fail with ErrClosed and
// live listeners receive it through their error callback.
func (c *Client) Close() error {
	c.fail(ErrClosed)
	return c.conn.Close()
}

// Query builds a handle for path.
func (c *Client) Query(path string) remote.Query {
	return &query{c: c, path: path}
}

// FetchFirst performs the ordered-by-key, limit-one probe.
func (c *Client) FetchFirst(ctx context.Context, path string) (remote.Snapshot, error) {
	resp, err := c.call(ctx, frame{Op: opFetchFirst, Path: path})
	if err != nil {
		return nil, err
	}
	if resp.Op == opError {
		return nil, errors.New(resp.Error)
	}
	return decodeSnapshot(resp.Snapshot), nil
}

// call sends a request frame and waits for the response carrying its id.
func (c *Client) call(ctx context.Context, f frame) (frame, error) {
	c.mu.Lock()
	if c.closed {
		err := c.err
		c.mu.Unlock()
		return frame{}, err
	}
	c.nextID++
	f.ID = c.nextID
	ch := make(chan frame, 1)
	c.pending[f.ID] = ch
	c.mu.Unlock()

	if err := c.writeFrame(f); err != nil {
		c.dropPending(f.ID)
		return frame{}, err
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		c.dropPending(f.ID)
		return frame{}, ctx.Err()
	case <-c.done:
		c.mu.Lock()
		err := c.err
		c.mu.Unlock()
		return frame{}, err
	}
}

func (c *Client) writeFrame(f frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(f)
}

func (c *Client) readLoop() {
	for {
		var f frame
		if err := c.conn.ReadJSON(&f); err != nil {
			c.fail(fmt.Errorf("wsremote: read: %w", err))
			return
		}
		c.route(f)
	}
}

func (c *Client) route(f frame) {
	if f.Sub != 0 {
		c.mu.Lock()
		sub := c.subs[f.Sub]
		c.mu.Unlock()
		if sub == nil {
			// Late event for a torn-down listener; drop it.
			c.log.Debug("event for unknown subscription", "sub", f.Sub, "op", f.Op)
			return
		}
		switch f.Op {
		case opEvent:
			sub.onData(decodeSnapshot(f.Snapshot))
		case opError:
			sub.onErr(errors.New(f.Error))
		}
		return
	}

	if f.ID != 0 {
		c.mu.Lock()
		ch := c.pending[f.ID]
		delete(c.pending, f.ID)
		c.mu.Unlock()
		if ch != nil {
			ch <- f
		}
		return
	}

	c.log.Debug("uncorrelated frame dropped", "op", f.Op)
}

// fail marks the connection dead and fans the error out to every listener.
func (c *Client) fail(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.err = err
	subs := make([]*subscription, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.subs = make(map[int64]*subscription)
	c.mu.Unlock()

	close(c.done)
	for _, s := range subs {
		s.onErr(err)
	}
}

func (c *Client) dropPending(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) addSub(s *subscription) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0
	}
	c.nextID++
	c.subs[c.nextID] = s
	return c.nextID
}

func (c *Client) removeSub(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subs[id]; !ok {
		return false
	}
	delete(c.subs, id)
	return true
}

func normalizeURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", errors.New("wsremote: remote URL is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse remote URL: %w", err)
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported remote URL scheme %q", parsed.Scheme)
	}
	return parsed.String(), nil
}
