package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"rideapp/backend"
	"rideapp/pkg/logger"
	"rideapp/pkg/metrics"
)

// Config holds the realtime endpoint parameters. Token is consulted on
// dial so a session established after construction is picked up.
type Config struct {
	URL       string
	APIKey    string
	Heartbeat time.Duration
	Token     func() string
}

const (
	eventJoin      = "phx_join"
	eventLeave     = "phx_leave"
	eventReply     = "phx_reply"
	eventHeartbeat = "heartbeat"
	topicHeartbeat = "phoenix"
)

// frame is the wire envelope for every realtime message.
type frame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
}

type changePayload struct {
	Record json.RawMessage `json:"record"`
}

// Topic builds the channel name for a table subscription, optionally
// narrowed by a row filter expression ("column=eq.value").
func Topic(table, filter string) string {
	t := "realtime:public:" + table
	if filter != "" {
		t += ":" + filter
	}
	return t
}

// Client multiplexes channel subscriptions over one websocket
// connection. The connection is dialed lazily on first subscribe.
type Client struct {
	cfg Config
	log logger.ILogger

	mu     sync.Mutex
	conn   *websocket.Conn
	subs   map[string]*Channel
	closed bool
	done   chan struct{}
}

func New(cfg Config, log logger.ILogger) *Client {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 25 * time.Second
	}
	return &Client{
		cfg:  cfg,
		log:  log,
		subs: make(map[string]*Channel),
	}
}

func (c *Client) Subscribe(ctx context.Context, table, filter string, fn backend.ChangeHandler) (backend.IChannel, error) {
	topic := Topic(table, filter)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("realtime: client closed")
	}
	if _, ok := c.subs[topic]; ok {
		return nil, fmt.Errorf("realtime: already subscribed to %s", topic)
	}
	if err := c.ensureConnLocked(ctx); err != nil {
		return nil, err
	}

	ch := &Channel{client: c, topic: topic, table: table, handler: fn}
	c.subs[topic] = ch
	if err := c.writeLocked(frame{Topic: topic, Event: eventJoin, Ref: uuid.NewString()}); err != nil {
		delete(c.subs, topic)
		return nil, fmt.Errorf("realtime: join %s: %w", topic, err)
	}
	c.log.Debug("realtime channel joined", logger.String("topic", topic))
	return ch, nil
}

func (c *Client) ensureConnLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	hdr := http.Header{}
	if c.cfg.Token != nil {
		if token := c.cfg.Token(); token != "" {
			hdr.Set("Authorization", "Bearer "+token)
		}
	}
	url := c.cfg.URL
	if c.cfg.APIKey != "" {
		url += "?apikey=" + c.cfg.APIKey
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, hdr)
	if err != nil {
		return fmt.Errorf("realtime: dial: %w", err)
	}
	c.conn = conn
	c.done = make(chan struct{})
	go c.readLoop(conn)
	go c.heartbeat(c.done)

	// topics registered before a dropped connection are rejoined so
	// their handlers keep receiving changes after the redial
	for topic := range c.subs {
		if err := c.writeLocked(frame{Topic: topic, Event: eventJoin, Ref: uuid.NewString()}); err != nil {
			c.log.Warning("realtime rejoin failed", logger.String("topic", topic), logger.Error(err))
		}
	}
	return nil
}

// writeLocked requires c.mu held; websocket writes must not interleave.
func (c *Client) writeLocked(f frame) error {
	if c.conn == nil {
		return fmt.Errorf("realtime: not connected")
	}
	return c.conn.WriteJSON(f)
}

func (c *Client) write(f frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(f)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
				close(c.done)
			}
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				c.log.Warning("realtime connection lost", logger.Error(err))
			}
			return
		}
		c.dispatch(f)
	}
}

func (c *Client) dispatch(f frame) {
	switch f.Event {
	case eventReply, eventHeartbeat:
		return
	case "INSERT", "UPDATE", "DELETE":
		metrics.RealtimeMessagesTotal.WithLabelValues(f.Event).Inc()
		c.mu.Lock()
		ch := c.subs[f.Topic]
		c.mu.Unlock()
		if ch == nil {
			c.log.Debug("realtime event for unknown topic", logger.String("topic", f.Topic))
			return
		}
		var p changePayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			c.log.Warning("realtime payload decode failed",
				logger.String("topic", f.Topic), logger.Error(err))
			return
		}
		ch.handler(backend.ChangeEvent{Table: ch.table, Type: f.Event, Record: p.Record})
	default:
		c.log.Debug("realtime frame ignored", logger.String("event", f.Event))
	}
}

func (c *Client) heartbeat(done chan struct{}) {
	t := time.NewTicker(c.cfg.Heartbeat)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := c.write(frame{Topic: topicHeartbeat, Event: eventHeartbeat, Ref: uuid.NewString()}); err != nil {
				return
			}
		}
	}
}

func (c *Client) leave(topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subs[topic]; !ok {
		return nil
	}
	delete(c.subs, topic)
	if c.conn == nil {
		return nil
	}
	return c.writeLocked(frame{Topic: topic, Event: eventLeave, Ref: uuid.NewString()})
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		close(c.done)
	}
	c.subs = make(map[string]*Channel)
}
