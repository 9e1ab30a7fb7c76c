// Package realtime maintains the authenticated event stream that delivers
// job completion notices. One Client holds at most one connection, bound to
// one session token.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/zishang520/engine.io/v2/types"
	sio "github.com/zishang520/socket.io-client-go/socket"
	"github.com/zishang520/socket.io-go-parser/v2/parser"

	"image-studio-client/internal/apperr"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// Disconnect reasons reported by the socket.io client.
const (
	reasonServerDisconnect = "io server disconnect"
	reasonClientDisconnect = "io client disconnect"
)

var errServerEnded = errors.New("server ended the session")

type Options struct {
	// URL is the backend origin; the socket.io path is appended.
	URL               string
	Path              string
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	ConnectTimeout    time.Duration
	Logger            *slog.Logger
}

type Client struct {
	url      string
	path     string
	attempts int
	delay    time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	state     State
	token     string
	current   *run
	lastErr   string
	subs      map[int]func(Event)
	nextSub   int
	watchers  map[int]chan State
	nextWatch int
}

func NewClient(opts Options) *Client {
	if opts.Path == "" {
		opts.Path = "/socket.io"
	}
	if opts.ReconnectAttempts < 0 {
		opts.ReconnectAttempts = 0
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = time.Second
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 20 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		url:      opts.URL,
		path:     opts.Path,
		attempts: opts.ReconnectAttempts,
		delay:    opts.ReconnectDelay,
		timeout:  opts.ConnectTimeout,
		logger:   opts.Logger,
		state:    StateDisconnected,
		subs:     make(map[int]func(Event)),
		watchers: make(map[int]chan State),
	}
}

// run is one socket.io manager for one token, including its reconnects.
type run struct {
	token  string
	socket *sio.Socket
	ready  chan struct{}
	once   sync.Once
}

func (r *run) markReady() {
	r.once.Do(func() { close(r.ready) })
}

// Connect opens the event stream for token. An empty token fails without
// dialing. Calling it again with the active token is a no-op; a different
// token tears the old connection down first. Connect waits for the first
// attempt (or ctx) and never reports dial failures: those drive the
// reconnect loop and show up in State.
func (c *Client) Connect(ctx context.Context, token string) error {
	if token == "" {
		return &apperr.AuthError{Message: "cannot open event stream without a session token"}
	}

	c.mu.Lock()
	if c.current != nil && c.token == token {
		c.mu.Unlock()
		return nil
	}
	old := c.current
	c.current = nil
	c.mu.Unlock()

	if old != nil {
		c.logger.Info("replacing event stream connection for new session")
		old.socket.Disconnect()
	}

	r := &run{token: token, ready: make(chan struct{})}
	r.socket = c.open(r)

	c.mu.Lock()
	if c.current != nil {
		// Lost a race with a concurrent Connect.
		c.mu.Unlock()
		return nil
	}
	c.current = r
	c.token = token
	c.lastErr = ""
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	r.socket.Connect()

	select {
	case <-r.ready:
	case <-ctx.Done():
	}
	return nil
}

// open builds a dedicated manager and socket for r without connecting.
// Reconnects use a fixed delay: the backoff floor and ceiling are equal and
// jitter is off.
func (c *Client) open(r *run) *sio.Socket {
	delay := float64(c.delay.Milliseconds())

	opts := sio.DefaultOptions()
	opts.SetPath(c.path)
	opts.SetTransports(types.NewSet(sio.WebSocket))
	opts.SetForceNew(true)
	opts.SetAutoConnect(false)
	opts.SetReconnection(true)
	opts.SetReconnectionAttempts(float64(c.attempts))
	opts.SetReconnectionDelay(delay)
	opts.SetReconnectionDelayMax(delay)
	opts.SetRandomizationFactor(0)
	opts.SetTimeout(c.timeout)
	opts.SetAuth(map[string]any{"token": r.token})
	opts.SetParser(&orderedParser{Parser: parser.NewParser(), onEvent: func(args []any) {
		c.dispatch(r, args)
	}})

	manager := sio.NewManager(c.url, opts)
	socket := manager.Socket("/", opts)

	manager.On("reconnect_attempt", func(args ...any) {
		var attempt any
		if len(args) > 0 {
			attempt = args[0]
		}
		c.logger.Info("event stream reconnecting", "attempt", attempt, "max_attempts", c.attempts)
		c.setState(r, StateReconnecting, nil)
	})
	manager.On("reconnect_failed", func(...any) {
		c.logger.Warn("event stream reconnect attempts exhausted", "attempts", c.attempts)
		c.setState(r, StateDisconnected, nil)
		r.markReady()
	})

	socket.On("connect", func(...any) {
		c.logger.Info("event stream connected", "sid", socket.Id())
		c.setState(r, StateConnected, nil)
		r.markReady()
	})
	socket.On("connect_error", func(args ...any) {
		err := firstError(args)
		if socket.Active() {
			c.logger.Debug("event stream connect attempt failed", "err", err)
			c.recordError(r, err)
			r.markReady()
			return
		}
		// The server refused the handshake; the socket will not retry.
		msg := err.Error()
		var rejected *sio.ExtendedError
		if errors.As(err, &rejected) && rejected.Message != "" {
			msg = rejected.Message
		}
		c.logger.Warn("event stream closed", "err", msg)
		c.setState(r, StateDisconnected, &apperr.AuthError{Message: msg})
		r.markReady()
	})
	socket.On("disconnect", func(args ...any) {
		reason, _ := firstString(args)
		switch reason {
		case reasonClientDisconnect:
		case reasonServerDisconnect:
			c.logger.Warn("event stream closed", "err", errServerEnded)
			c.setState(r, StateDisconnected, errServerEnded)
		default:
			c.logger.Info("event stream lost", "reason", reason)
			c.setState(r, StateReconnecting, errors.New(reason))
		}
	})

	return socket
}

// Disconnect closes the stream and releases every event subscription. It is
// safe to call repeatedly and must not be called from an event handler.
func (c *Client) Disconnect() {
	c.mu.Lock()
	r := c.current
	c.current = nil
	c.token = ""
	c.subs = make(map[int]func(Event))
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	if r != nil {
		r.socket.Disconnect()
		c.logger.Info("event stream disconnected")
	}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError is the most recent connection failure, if any.
func (c *Client) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Subscribe registers fn for every decoded event. Handlers run on the
// connection's read goroutine in server emission order.
func (c *Client) Subscribe(fn func(Event)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// WatchState returns a channel that always holds the latest state, starting
// with the current one.
func (c *Client) WatchState() (<-chan State, func()) {
	ch := make(chan State, 1)

	c.mu.Lock()
	id := c.nextWatch
	c.nextWatch++
	c.watchers[id] = ch
	ch <- c.state
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.watchers, id)
			c.mu.Unlock()
			close(ch)
		})
	}
}

func (c *Client) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	for _, ch := range c.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

// setState applies s only while r is still the active run.
func (c *Client) setState(r *run, s State, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != r {
		return
	}
	if cause != nil {
		c.lastErr = cause.Error()
	}
	c.setStateLocked(s)
	if s == StateDisconnected {
		c.current = nil
		c.token = ""
	}
}

func (c *Client) recordError(r *run, err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == r {
		c.lastErr = err.Error()
	}
}

// dispatch decodes one event packet's arguments and hands the event to every
// subscriber.
func (c *Client) dispatch(r *run, args []any) {
	c.mu.Lock()
	active := c.current == r
	c.mu.Unlock()
	if !active || len(args) == 0 {
		return
	}

	name, ok := args[0].(string)
	if !ok {
		c.logger.Warn("dropping event without a name")
		return
	}
	var payload json.RawMessage
	if len(args) > 1 {
		raw, err := json.Marshal(args[1])
		if err != nil {
			c.logger.Warn("dropping malformed event", "event", name, "err", err)
			return
		}
		payload = raw
	}

	event, known, err := decodeEvent(name, payload)
	if err != nil {
		c.logger.Warn("dropping malformed event", "event", name, "err", err)
		return
	}
	if !known {
		c.logger.Debug("ignoring unknown event", "event", name)
		return
	}

	c.mu.Lock()
	handlers := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		handlers = append(handlers, fn)
	}
	c.mu.Unlock()

	for _, fn := range handlers {
		fn(event)
	}
}

func firstError(args []any) error {
	for _, a := range args {
		if err, ok := a.(error); ok && err != nil {
			return err
		}
	}
	return errors.New("event stream connection failed")
}

func firstString(args []any) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	s, ok := args[0].(string)
	return s, ok
}
