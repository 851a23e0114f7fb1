package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	icon "icon-go/core"
)

// Driver wraps a *websocket.Conn and feeds a Stream's Put method,
// implementing the back-pressure and ack contract of spec.md §5/§6.3.
type Driver struct {
	conn   *websocket.Conn
	stream *icon.Stream
}

// ackMessage is the initial frame a node sends after a successful
// subscribe: {"code":0} for success, {"code":<nonzero>,"message":…} for a
// rejected subscription (spec.md §6.3).
type ackMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Dial connects to stream's websocket endpoint, sends its encoded
// subscription as the first outbound frame, and reads the initial ack.
func Dial(ctx context.Context, stream *icon.Stream) (*Driver, error) {
	uri := stream.ToURI()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("icon: websocket dial %s: %w", uri, err)
	}

	sub, err := stream.Encode()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return nil, fmt.Errorf("icon: websocket subscribe: %w", err)
	}

	var ack ackMessage
	if err := conn.ReadJSON(&ack); err != nil {
		conn.Close()
		return nil, fmt.Errorf("icon: websocket ack: %w", err)
	}
	if ack.Code != 0 {
		conn.Close()
		return nil, fmt.Errorf("icon: subscription rejected: code=%d message=%s", ack.Code, ack.Message)
	}

	return &Driver{conn: conn, stream: stream}, nil
}

// Run reads notification frames until ctx is cancelled or the connection
// fails, pushing each into the stream. Before every read it consults
// CheckSpaceLeft and pauses when the buffer has no room left, per spec.md
// §5's back-pressure contract ("the websocket driver MUST consult
// check_space_left before reading a new frame").
func (d *Driver) Run(ctx context.Context) error {
	defer d.conn.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		for d.stream.CheckSpaceLeft() == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(50 * time.Millisecond):
			}
		}

		_, raw, err := d.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("icon: websocket read: %w", err)
		}

		var msg map[string]any
		if err := json.Unmarshal(raw, &msg); err != nil {
			// A malformed frame is a fatal protocol violation, never
			// swallowed (spec.md §7).
			return fmt.Errorf("icon: websocket: malformed notification: %w", err)
		}

		if err := d.stream.Put([]map[string]any{msg}); err != nil {
			return err
		}
		log.WithFields(log.Fields{"height": d.stream.Height()}).Debug("icon: stream: notification buffered")
	}
}

// Close terminates the underlying connection (spec.md §5 "Cancellation").
func (d *Driver) Close() error {
	return d.conn.Close()
}
