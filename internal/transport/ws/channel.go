package ws

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"funfriday-client/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Channel owns exactly one websocket connection to a party's realtime
// endpoint. Inbound frames are decoded into domain.ServerEvent values and
// delivered in arrival order on Events(); a read failure surfaces one
// EventChannelError and then the event channel closes. There is no
// reconnection: a dropped connection is terminal for the session.
type Channel struct {
	conn *websocket.Conn
	log  zerolog.Logger

	events chan domain.ServerEvent

	writeMu sync.Mutex

	phaseMu sync.RWMutex
	phase   domain.ConnectionPhase

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial opens the realtime connection for a party. The user id rides along as
// a query parameter; an empty user id still connects and observes events.
func Dial(ctx context.Context, baseURL, partyID, userID string, log zerolog.Logger) (*Channel, error) {
	addr := fmt.Sprintf("%s/ws/%s", strings.TrimRight(baseURL, "/"), partyID)
	if userID != "" {
		addr += "?user_id=" + url.QueryEscape(userID)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	c := &Channel{
		conn:   conn,
		log:    log,
		events: make(chan domain.ServerEvent, 16),
		phase:  domain.ConnOpen,
		closed: make(chan struct{}),
	}
	go c.readLoop()

	log.Debug().Str("party_id", partyID).Msg("realtime channel open")
	return c, nil
}

// Events returns the inbound event stream. The channel is closed after a
// terminal error or after Close.
func (c *Channel) Events() <-chan domain.ServerEvent {
	return c.events
}

// Phase reports the connection lifecycle state.
func (c *Channel) Phase() domain.ConnectionPhase {
	c.phaseMu.RLock()
	defer c.phaseMu.RUnlock()
	return c.phase
}

func (c *Channel) setPhase(p domain.ConnectionPhase) {
	c.phaseMu.Lock()
	c.phase = p
	c.phaseMu.Unlock()
}

// Send serializes and writes one command frame. Commands issued while the
// channel is not open are dropped and logged at debug.
func (c *Channel) Send(cmd domain.Command) error {
	if c.Phase() != domain.ConnOpen {
		c.log.Debug().Str("phase", string(c.Phase())).Msg("dropping command on non-open channel")
		return nil
	}

	frame, err := encodeCommand(cmd)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("send %s: %w", frame.Event, err)
	}
	return nil
}

// Close releases the connection. It is idempotent and safe to call
// concurrently with an in-flight read error.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.Phase() == domain.ConnOpen {
			c.setPhase(domain.ConnClosed)
		}
		close(c.closed)

		c.writeMu.Lock()
		deadline := time.Now().Add(time.Second)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.writeMu.Unlock()

		err = c.conn.Close()
		c.log.Debug().Msg("realtime channel closed")
	})
	return err
}

func (c *Channel) readLoop() {
	defer close(c.events)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
				// Deliberate teardown, not an error.
				return
			default:
			}
			c.setPhase(domain.ConnErrored)
			c.events <- domain.EventChannelError{Err: err}
			return
		}

		event, err := decodeEvent(data)
		if err != nil {
			// Malformed and unknown frames are skipped, never fatal.
			c.log.Debug().Err(err).Str("frame", string(data)).Msg("ignoring frame")
			continue
		}
		c.events <- event
	}
}
