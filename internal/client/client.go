// Package client owns the websocket session: the connection, the send and
// receive loops, and the protocol session handling that keeps the bot
// logged in and present in its rooms.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirebot/internal/account"
	"github.com/vovakirdan/wirebot/internal/config"
	"github.com/vovakirdan/wirebot/internal/plugin"
	"github.com/vovakirdan/wirebot/internal/proto"
	"github.com/vovakirdan/wirebot/internal/state"
)

var (
	// ErrBinaryFrame reports a non-text frame from the server. The wire
	// format is text only, so this is fatal to the session.
	ErrBinaryFrame = errors.New("binary frame on a text protocol")
	// ErrQueueClosed reports a send attempted after shutdown began.
	ErrQueueClosed = errors.New("outbound queue is closed")
)

// Client is one bot session against one server. It implements
// target.Sender; plugin replies flow back out through Send.
type Client struct {
	cfg      config.Config
	log      *zerolog.Logger
	cache    *state.Cache
	parser   *proto.Parser
	registry *plugin.Registry
	account  *account.Client

	sessionID string
	conn      *websocket.Conn

	outbound  chan string
	closing   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	mu        sync.Mutex
	loginTime uint64
}

// New builds a client. Connect must be called before any frames move.
func New(cfg config.Config, cache *state.Cache, parser *proto.Parser,
	registry *plugin.Registry, acct *account.Client, logger *zerolog.Logger) *Client {
	size := cfg.OutboundQueueSize
	if size < 1 {
		size = 1
	}
	return &Client{
		cfg:       cfg,
		log:       logger,
		cache:     cache,
		parser:    parser,
		registry:  registry,
		account:   acct,
		sessionID: uuid.NewString(),
		outbound:  make(chan string, size),
		closing:   make(chan struct{}),
	}
}

func (c *Client) url() string {
	return fmt.Sprintf("ws://%s:%s/showdown/websocket", c.cfg.Host, c.cfg.Port)
}

// Connect dials the server and starts the send and receive loops.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.url(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url(), err)
	}
	c.conn = conn

	c.log.Info().
		Str("url", c.url()).
		Str("session_id", c.sessionID).
		Msg("connected")

	c.wg.Add(2)
	go c.sendLoop(ctx)
	go c.receiveLoop(ctx)
	return nil
}

// Send queues one outbound frame. It never blocks: a full queue drops the
// frame with a warning, and sends after shutdown are dropped too.
func (c *Client) Send(text string) {
	select {
	case <-c.closing:
		c.log.Warn().Err(ErrQueueClosed).Str("frame", text).Msg("frame dropped")
		return
	default:
	}

	select {
	case c.outbound <- text:
	default:
		c.log.Warn().Str("frame", text).Msg("outbound queue full, frame dropped")
	}
}

// Shutdown begins a graceful teardown. Safe to call more than once and
// from any goroutine.
func (c *Client) Shutdown() {
	c.closeOnce.Do(func() {
		close(c.closing)
	})
}

// Wait blocks until both loops have exited.
func (c *Client) Wait() {
	c.wg.Wait()
}

// Done reports shutdown to callers that select on it.
func (c *Client) Done() <-chan struct{} {
	return c.closing
}

func (c *Client) sendLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-c.closing:
			_ = c.conn.Close(websocket.StatusNormalClosure, "closing")
			return
		case <-ctx.Done():
			c.Shutdown()
			_ = c.conn.Close(websocket.StatusGoingAway, "context canceled")
			return
		case text := <-c.outbound:
			if err := c.conn.Write(ctx, websocket.MessageText, []byte(text)); err != nil {
				c.log.Error().Err(err).Msg("write frame")
				c.Shutdown()
				return
			}
			c.log.Debug().Str("frame", text).Msg("frame sent")
			// The server rate-limits; one pause after every frame.
			time.Sleep(c.cfg.Throttle)
		}
	}
}

func (c *Client) receiveLoop(ctx context.Context) {
	defer c.wg.Done()
	defer c.Shutdown()
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			c.logReadExit(err)
			return
		}
		if typ != websocket.MessageText {
			c.log.Error().Err(ErrBinaryFrame).Msg("closing session")
			return
		}
		c.handleFrame(ctx, string(data))
	}
}

func (c *Client) logReadExit(err error) {
	status := websocket.CloseStatus(err)
	switch {
	case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
		c.log.Info().Msg("server closed the connection")
	case errors.Is(err, context.Canceled):
	default:
		select {
		case <-c.closing:
			// local teardown already under way, the error is expected
		default:
			c.log.Error().Err(err).Msg("read frame")
		}
	}
}

// handleFrame splits one inbound frame into lines, reattaches the frame's
// room context to each, and runs every line through parse, session
// handling and plugin dispatch. A malformed line is dropped; the rest of
// the frame goes on.
func (c *Client) handleFrame(ctx context.Context, frame string) {
	lines := strings.Split(frame, "\n")

	room := ""
	if len(lines[0]) > 0 && lines[0][0] == proto.RoomPrefix {
		room = lines[0]
		lines = lines[1:]
	}

	for _, line := range lines {
		if line == "" {
			continue
		}
		text := line
		if room != "" {
			text = room + "\n" + line
		}

		c.log.Debug().Str("line", text).Msg("frame line")

		ev, err := c.parser.Parse(text)
		if err != nil {
			c.log.Warn().Err(err).Str("line", line).Msg("dropping line")
			continue
		}

		c.handleEvent(ctx, ev)
		c.registry.Dispatch(ctx, ev, c.LoginTime(), c)
	}
}

// LoginTime returns the server timestamp at which this session went live.
func (c *Client) LoginTime() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginTime
}

func (c *Client) setLoginTime(ts uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loginTime = ts
}

// JoinRoom asks the server for a room and records it locally.
func (c *Client) JoinRoom(room string) {
	c.cache.EnsureRoom(room)
	c.Send("|/join " + room)
}

// LeaveRoom leaves a room and forgets its cached state.
func (c *Client) LeaveRoom(room string) {
	if err := c.cache.RemoveRoom(room); err != nil {
		c.log.Warn().Err(err).Str("room", room).Msg("leaving a room that was never cached")
	}
	c.Send("|/leave " + room)
}
