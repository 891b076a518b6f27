package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"ghnb/internal/modules/execution/domain"
	executionout "ghnb/internal/modules/execution/port/out"
	"ghnb/internal/platform/clock"
	"ghnb/internal/platform/config"
	apperrors "ghnb/internal/platform/errors"
)

// errStaleGeneration marks a sign-in that finished after the controller was
// reset; callers retry against the new generation.
var errStaleGeneration = errors.New("session generation reset")

const maxReadyAttempts = 3

type ControllerOptions struct {
	Scopes []string
	// AuthTimeout bounds how long a caller waits for a session. Zero waits
	// until the caller's context is done.
	AuthTimeout time.Duration
}

// Controller executes GraphQL cells. It moves between Unauthenticated,
// Authenticated and Ready, acquiring the session and the client lazily and
// dropping both whenever the session changes.
type Controller struct {
	provider executionout.SessionProvider
	builder  executionout.ClientFactoryBuilder
	clock    clock.Clock
	logger   *zap.Logger

	authTimeout time.Duration
	flight      singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	closed     bool
	scopes     []string
	generation uint64
	genCtx     context.Context
	genCancel  context.CancelFunc
	session    *domain.Session
	factory    executionout.ClientFactory
	client     executionout.GraphQLClient
}

func NewController(
	provider executionout.SessionProvider,
	builder executionout.ClientFactoryBuilder,
	clock clock.Clock,
	opts ControllerOptions,
	logger *zap.Logger,
) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	scopes := config.NormalizeScopes(opts.Scopes)
	if len(scopes) == 0 {
		scopes = append([]string(nil), config.DefaultScopes...)
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		provider:    provider,
		builder:     builder,
		clock:       clock,
		logger:      logger.Named("controller"),
		authTimeout: opts.AuthTimeout,
		ctx:         ctx,
		cancel:      cancel,
		scopes:      scopes,
	}
	c.genCtx, c.genCancel = context.WithCancel(ctx)
	return c
}

func (c *Controller) State() domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.session == nil:
		return domain.StateUnauthenticated
	case c.factory == nil:
		return domain.StateAuthenticated
	default:
		return domain.StateReady
	}
}

func (c *Controller) Session() (domain.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return domain.Session{}, false
	}
	return *c.session, true
}

func (c *Controller) Scopes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.scopes...)
}

// SetScopes replaces the requested scope set. A different set invalidates
// the current session and reports true.
func (c *Controller) SetScopes(scopes []string) bool {
	next := config.NormalizeScopes(scopes)
	if len(next) == 0 {
		next = append([]string(nil), config.DefaultScopes...)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if config.SameScopes(c.scopes, next) {
		return false
	}
	c.logger.Info("scopes changed", zap.Strings("from", c.scopes), zap.Strings("to", next))
	c.scopes = next
	c.resetLocked()
	return true
}

// Reset drops the session, the factory and the client together.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.resetLocked()
	c.cancel()
}

func (c *Controller) resetLocked() {
	c.session = nil
	c.factory = nil
	c.client = nil
	c.generation++
	c.genCancel()
	c.genCtx, c.genCancel = context.WithCancel(c.ctx)
}

func (c *Controller) resetGeneration(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen || c.closed {
		return
	}
	c.resetLocked()
}

// authDeadline is the instant a caller stops waiting for a session. The zero
// value waits until the caller's context is done.
func (c *Controller) authDeadline() time.Time {
	if c.authTimeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.authTimeout)
}

// EnsureSession returns the cached session or joins the single pending
// sign-in. The sign-in runs on the controller's lifetime, so a caller giving
// up does not abandon it for the others.
func (c *Controller) EnsureSession(ctx context.Context) (domain.Session, error) {
	return c.ensureSession(ctx, c.authDeadline())
}

func (c *Controller) ensureSession(ctx context.Context, deadline time.Time) (domain.Session, error) {
	waitCtx := ctx
	if !deadline.IsZero() {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return domain.Session{}, apperrors.ErrControllerClosed
		}
		if c.session != nil {
			session := *c.session
			c.mu.Unlock()
			return session, nil
		}
		gen := c.generation
		genCtx := c.genCtx
		scopes := append([]string(nil), c.scopes...)
		c.mu.Unlock()

		ch := c.flight.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
			session, err := c.waitForSession(genCtx, scopes)
			if err != nil {
				if genCtx.Err() != nil {
					return nil, errStaleGeneration
				}
				return nil, err
			}
			if !c.adopt(gen, session) {
				return nil, errStaleGeneration
			}
			return session, nil
		})

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return domain.Session{}, ctx.Err()
			}
			return domain.Session{}, fmt.Errorf("%w: no GitHub session after %s", apperrors.ErrNotAuthenticated, c.authTimeout)
		case res := <-ch:
			if errors.Is(res.Err, errStaleGeneration) {
				continue
			}
			if res.Err != nil {
				return domain.Session{}, res.Err
			}
			return res.Val.(domain.Session), nil
		}
	}
}

// waitForSession asks for a session interactively and, in parallel, re-checks
// non-interactively whenever the provider reports a change. A failed
// interactive attempt leaves only the second path open.
func (c *Controller) waitForSession(ctx context.Context, scopes []string) (domain.Session, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, stop := c.provider.Subscribe(ctx)
	defer stop()

	type attempt struct {
		session domain.Session
		ok      bool
		err     error
	}
	interactive := make(chan attempt, 1)
	go func() {
		session, ok, err := c.provider.GetSession(ctx, scopes, true)
		interactive <- attempt{session: session, ok: ok, err: err}
	}()

	for {
		select {
		case <-ctx.Done():
			return domain.Session{}, ctx.Err()
		case res := <-interactive:
			interactive = nil
			if res.err == nil && res.ok {
				return res.session, nil
			}
			if res.err != nil {
				c.logger.Warn("sign-in did not complete; waiting for a session from another sign-in (ghnb auth login)", zap.Error(res.err))
			} else {
				c.logger.Warn("no session was created; waiting for a session from another sign-in (ghnb auth login)")
			}
		case change, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if change.ProviderID != domain.ProviderGitHub {
				continue
			}
			session, found, err := c.provider.GetSession(ctx, scopes, false)
			if err != nil {
				c.logger.Warn("session lookup after change failed", zap.Error(err))
				continue
			}
			if found {
				return session, nil
			}
		}
	}
}

func (c *Controller) adopt(gen uint64, session domain.Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.generation != gen {
		return false
	}
	c.session = &session
	events, stop := c.provider.Subscribe(c.genCtx)
	go c.watchSessionChanges(c.genCtx, gen, events, stop)
	c.logger.Debug("session adopted", zap.String("account", session.Account), zap.Strings("scopes", session.Scopes))
	return true
}

// watchSessionChanges resets the controller on the first change for the
// GitHub provider after a session was adopted.
func (c *Controller) watchSessionChanges(ctx context.Context, gen uint64, events <-chan domain.SessionChange, stop func()) {
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-events:
			if !ok {
				return
			}
			if change.ProviderID != domain.ProviderGitHub {
				continue
			}
			c.logger.Info("session changed; resetting", zap.String("reason", change.Reason))
			c.resetGeneration(gen)
			return
		}
	}
}

// EnsureReady returns the cached client, building the factory from the
// session on first use.
func (c *Controller) EnsureReady(ctx context.Context) (executionout.GraphQLClient, error) {
	return c.ensureReady(ctx, c.authDeadline())
}

func (c *Controller) ensureReady(ctx context.Context, deadline time.Time) (executionout.GraphQLClient, error) {
	for attempt := 0; attempt < maxReadyAttempts; attempt++ {
		session, err := c.ensureSession(ctx, deadline)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.session == nil || c.session.ID != session.ID {
			c.mu.Unlock()
			continue
		}
		if c.client != nil {
			client := c.client
			c.mu.Unlock()
			return client, nil
		}
		if c.factory == nil {
			factory, err := c.builder.Build(*c.session)
			if err != nil {
				c.mu.Unlock()
				return nil, fmt.Errorf("build client factory: %w", err)
			}
			c.factory = factory
		}
		c.client = c.factory.NewClient()
		client := c.client
		c.mu.Unlock()
		return client, nil
	}
	return nil, fmt.Errorf("%w: session kept changing", apperrors.ErrNotAuthenticated)
}

// ExecuteCell runs one cell against exec and reports success. The end
// timestamp is always recorded.
func (c *Controller) ExecuteCell(ctx context.Context, cell domain.Cell, exec executionout.CellExecution) bool {
	return c.executeCell(ctx, cell, exec, c.authDeadline())
}

func (c *Controller) executeCell(ctx context.Context, cell domain.Cell, exec executionout.CellExecution, authDeadline time.Time) bool {
	exec.Start(c.clock.Now())
	query, err := domain.ParseCell(cell.Content)
	if err != nil {
		exec.ReplaceOutput(domain.NewJSONOutput(err.Error()))
		exec.End(false, c.clock.Now())
		return false
	}

	success := false
	var data json.RawMessage
	client, err := c.ensureReady(ctx, authDeadline)
	if err == nil {
		data, err = client.Query(ctx, query.Text, query.Variables)
	}
	if err != nil {
		c.logger.Debug("cell failed", zap.Int("cell", cell.Index), zap.Error(err))
		exec.ReplaceOutput(domain.ErrorOutput(err))
	} else {
		success = true
		exec.ReplaceOutput(domain.NewRawJSONOutput(data))
	}
	exec.End(success, c.clock.Now())
	return success
}

// ExecuteCells runs cells strictly in order. A failed cell does not stop the
// batch. The whole batch shares one sign-in deadline, so once it passes the
// remaining cells fail without waiting again.
func (c *Controller) ExecuteCells(ctx context.Context, cells []domain.Cell, newExecution func(domain.Cell) executionout.CellExecution) []bool {
	deadline := c.authDeadline()
	results := make([]bool, 0, len(cells))
	for _, cell := range cells {
		results = append(results, c.executeCell(ctx, cell, newExecution(cell), deadline))
	}
	return results
}
