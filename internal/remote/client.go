// ABOUTME: Websocket remote control client
// ABOUTME: Dials a player, performs the handshake and sends commands
package remote

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Resonate-Protocol/chipdec/internal/discovery"
	"github.com/Resonate-Protocol/chipdec/internal/protocol"
)

// Client controls one remote player
type Client struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	server protocol.ServerHello
}

// Dial connects to the player at addr (host:port) and completes the
// handshake. An empty path selects the default endpoint.
func Dial(ctx context.Context, addr, path, name string) (*Client, error) {
	if path == "" {
		path = discovery.Path
	}
	u := url.URL{Scheme: "ws", Host: addr, Path: path}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	c := &Client{conn: conn}
	if err := c.handshake(name); err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake failed: %w", err)
	}
	return c, nil
}

func (c *Client) handshake(name string) error {
	hello := protocol.ClientHello{
		ClientID: uuid.New().String(),
		Name:     name,
		Version:  protocol.Version,
	}
	if err := c.send(protocol.TypeClientHello, hello); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	in, err := c.read(5 * time.Second)
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	if in.Type == protocol.TypeServerError {
		var e protocol.Error
		in.Into(&e)
		return fmt.Errorf("rejected: %s", e.Message)
	}
	if in.Type != protocol.TypeServerHello {
		return fmt.Errorf("expected server/hello, got %s", in.Type)
	}
	if err := in.Into(&c.server); err != nil {
		return err
	}

	log.Printf("Handshake complete with %s", c.server.Name)
	return nil
}

// ServerName returns the name the player announced
func (c *Client) ServerName() string { return c.server.Name }

// Seek moves the remote playhead
func (c *Client) Seek(target time.Duration) error {
	return c.send(protocol.TypePlayerSeek, protocol.Seek{PositionMs: target.Milliseconds()})
}

// Next skips to the next queued file
func (c *Client) Next() error { return c.send(protocol.TypePlayerNext, nil) }

// Stop ends playback
func (c *Client) Stop() error { return c.send(protocol.TypePlayerStop, nil) }

// Status requests a snapshot and waits for the next player/status
func (c *Client) Status(ctx context.Context) (protocol.Status, error) {
	if err := c.send(protocol.TypePlayerStatus, nil); err != nil {
		return protocol.Status{}, err
	}
	return c.NextStatus(ctx)
}

// NextStatus waits for the next player/status pushed by the player
func (c *Client) NextStatus(ctx context.Context) (protocol.Status, error) {
	for {
		timeout := 10 * time.Second
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		in, err := c.read(timeout)
		if err != nil {
			return protocol.Status{}, err
		}
		switch in.Type {
		case protocol.TypePlayerStatus:
			var st protocol.Status
			if err := in.Into(&st); err != nil {
				return protocol.Status{}, err
			}
			return st, nil
		case protocol.TypeServerError:
			var e protocol.Error
			in.Into(&e)
			return protocol.Status{}, fmt.Errorf("player error: %s: %s", e.Error, e.Message)
		}
	}
}

// Close closes the connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}

func (c *Client) send(msgType string, payload interface{}) error {
	data, err := protocol.Encode(msgType, payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) read(timeout time.Duration) (protocol.Incoming, error) {
	c.conn.SetReadDeadline(time.Now().Add(timeout))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return protocol.Incoming{}, err
	}
	return protocol.Decode(data)
}
