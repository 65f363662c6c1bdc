// Package channel keeps the agent's websocket session with the control
// plane alive and executes the commands it receives.
package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/semmidev/phylax-agent/internal/domain"
	"github.com/semmidev/phylax-agent/internal/infrastructure/logger"
)

type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Identified
	Listening
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Identified:
		return "identified"
	case Listening:
		return "listening"
	default:
		return "disconnected"
	}
}

// Endpoint locates and authenticates the channel.
type Endpoint interface {
	WebSocketURL() string
	AuthHeader() (http.Header, error)
}

// Handler executes validated commands. Calls are made one at a time.
type Handler interface {
	RunBackup(ctx context.Context, job string) error
	RunRestore(ctx context.Context, job, file string) error
	ReloadSchedules(ctx context.Context) error
}

type Config struct {
	Jobs              domain.JobSet
	Endpoint          Endpoint
	Handler           Handler
	ReconnectInterval time.Duration
	Logger            *logger.Logger

	// OnState, when set, sees every state transition.
	OnState func(State)
}

type Channel struct {
	jobs     domain.JobSet
	endpoint Endpoint
	handler  Handler
	interval time.Duration
	log      *logger.Logger
	onState  func(State)

	state atomic.Int32
}

func New(cfg Config) *Channel {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	interval := cfg.ReconnectInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Channel{
		jobs:     cfg.Jobs,
		endpoint: cfg.Endpoint,
		handler:  cfg.Handler,
		interval: interval,
		log:      log,
		onState:  cfg.OnState,
	}
}

type identifyMessage struct {
	Type string            `json:"type"`
	Jobs map[string]string `json:"jobs"`
}

// IdentifyMessage is the first frame sent on every connection: the jobs this
// agent serves and their buckets.
func IdentifyMessage(jobs domain.JobSet) ([]byte, error) {
	return json.Marshal(identifyMessage{Type: "identify", Jobs: jobs.Buckets()})
}

func (c *Channel) State() State {
	return State(c.state.Load())
}

func (c *Channel) setState(s State) {
	if State(c.state.Swap(int32(s))) == s {
		return
	}
	c.log.Debugf("command channel %s", s)
	if c.onState != nil {
		c.onState(s)
	}
}

// Run keeps a session open until ctx is cancelled, reconnecting at a fixed
// interval after every drop. Only a missing token ends it early.
func (c *Channel) Run(ctx context.Context) error {
	policy := backoff.WithContext(backoff.NewConstantBackOff(c.interval), ctx)

	err := backoff.RetryNotify(func() error {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if errors.Is(err, domain.ErrConfigMissing) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		c.log.Warnw("command channel dropped, reconnecting", "error", err, "retry_in", wait)
	})

	c.setState(Disconnected)
	return err
}

// session runs one connection to completion. It never returns nil.
func (c *Channel) session(ctx context.Context) error {
	defer c.setState(Disconnected)
	c.setState(Connecting)

	header, err := c.endpoint.AuthHeader()
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, c.endpoint.WebSocketURL(), header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("%w: websocket dial failed (status %d): %v", domain.ErrTransport, resp.StatusCode, err)
		}
		return fmt.Errorf("%w: websocket dial failed: %v", domain.ErrTransport, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()
	c.setState(Connected)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	hello, err := IdentifyMessage(c.jobs)
	if err != nil {
		return fmt.Errorf("encode identify: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
		return fmt.Errorf("%w: send identify: %v", domain.ErrTransport, err)
	}
	c.setState(Identified)
	c.log.Infof("Identified to control plane with %d job(s)", len(c.jobs))

	c.reload(ctx)
	c.setState(Listening)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return fmt.Errorf("%w: server closed the command channel", domain.ErrTransport)
			}
			return fmt.Errorf("%w: read command: %v", domain.ErrTransport, err)
		}
		c.dispatch(ctx, data)
	}
}

func (c *Channel) reload(ctx context.Context) {
	if err := c.handler.ReloadSchedules(ctx); err != nil {
		c.log.Errorw("schedule refresh failed", "error", err)
	}
}

// dispatch runs one inbound frame. Bad frames and handler failures are
// logged and never end the session.
func (c *Channel) dispatch(ctx context.Context, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorw("command handler panicked", "panic", r)
		}
	}()

	var cmd domain.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		c.log.Warnw("ignoring malformed command", "error", err)
		return
	}
	if err := cmd.Validate(c.jobs); err != nil {
		c.log.Warnw("ignoring invalid command", "action", cmd.Action, "job", cmd.Job, "error", err)
		return
	}

	c.log.Infof("Received %s command for %q", cmd.Action, cmd.Job)
	var err error
	switch cmd.Action {
	case domain.ActionBackup:
		err = c.handler.RunBackup(ctx, cmd.Job)
	case domain.ActionRestore:
		err = c.handler.RunRestore(ctx, cmd.Job, cmd.File)
	case domain.ActionReloadSchedules:
		c.reload(ctx)
	}
	if err != nil {
		c.log.Errorw("command failed", "action", cmd.Action, "job", cmd.Job, "error", err)
	}
}
