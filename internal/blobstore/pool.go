package blobstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff"

	"docshare/internal/hier"
)

// ErrPoolClosed is returned by operations on a closed Pool.
var ErrPoolClosed = errors.New("blob store pool closed")

const (
	DefaultMaxConns      = 4
	DefaultDialTimeout   = 10 * time.Second
	DefaultRetryInterval = 200 * time.Millisecond
)

// PoolOptions tune a Pool. Zero values select the defaults.
type PoolOptions struct {
	MaxConns      int
	DialRetries   uint64
	DialTimeout   time.Duration
	RetryInterval time.Duration
}

func (o PoolOptions) withDefaults() PoolOptions {
	if o.MaxConns <= 0 {
		o.MaxConns = DefaultMaxConns
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = DefaultRetryInterval
	}
	return o
}

// Pool implements hier.BlobStore over at most MaxConns concurrent backend
// sessions. Idle sessions are reused; a session whose operation failed is
// closed and replaced on next use.
type Pool struct {
	dialer Dialer
	opts   PoolOptions
	logger hier.Logger

	sem chan struct{}

	mu     sync.Mutex
	idle   []Conn
	dials  int
	closed bool
}

var _ hier.BlobStore = (*Pool)(nil)

// NewPool creates a Pool. No session is opened until the first operation.
func NewPool(dialer Dialer, opts PoolOptions, logger hier.Logger) *Pool {
	opts = opts.withDefaults()
	return &Pool{
		dialer: dialer,
		opts:   opts,
		logger: logger,
		sem:    make(chan struct{}, opts.MaxConns),
	}
}

// Put uploads the file at localPath to key.
func (p *Pool) Put(ctx context.Context, localPath, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return p.do(ctx, func(c Conn) error { return c.Put(ctx, localPath, key) })
}

// Get downloads key into the file at localPath.
func (p *Pool) Get(ctx context.Context, key, localPath string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return p.do(ctx, func(c Conn) error { return c.Get(ctx, key, localPath) })
}

// Dials returns how many sessions the pool has opened so far.
func (p *Pool) Dials() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dials
}

// Idle returns the number of sessions waiting for reuse.
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// Close closes idle sessions. Sessions in use are closed when released.
func (p *Pool) Close() error {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.closed = true
	p.mu.Unlock()

	var errs []error
	for _, c := range idle {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Pool) do(ctx context.Context, fn func(Conn) error) error {
	c, err := p.acquire(ctx)
	if err != nil {
		return err
	}
	err = fn(c)
	p.release(c, err)
	return err
}

func (p *Pool) acquire(ctx context.Context) (Conn, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.sem
		return nil, ErrPoolClosed
	}
	if n := len(p.idle); n > 0 {
		c := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	c, err := p.dial(ctx)
	if err != nil {
		<-p.sem
		return nil, err
	}
	return c, nil
}

// release returns c to the idle list unless opErr suggests the session is
// broken. A missing key or a rejected argument leaves the session usable.
func (p *Pool) release(c Conn, opErr error) {
	defer func() { <-p.sem }()

	reusable := opErr == nil || errors.Is(opErr, hier.ErrNotFound) || errors.Is(opErr, hier.ErrInvalidArgument)

	p.mu.Lock()
	if reusable && !p.closed {
		p.idle = append(p.idle, c)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	if err := c.Close(); err != nil {
		p.logger.Warn("closing blob store session", "error", err)
	}
	if !reusable {
		p.logger.Debug("discarded blob store session", "error", opErr)
	}
}

func (p *Pool) dial(ctx context.Context) (Conn, error) {
	var conn Conn
	operation := func() error {
		dialCtx, cancel := context.WithTimeout(ctx, p.opts.DialTimeout)
		defer cancel()
		c, err := p.dialer.Dial(dialCtx)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.opts.RetryInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, p.opts.DialRetries), ctx)

	notify := func(err error, wait time.Duration) {
		p.logger.Warn("blob store dial failed, retrying", "error", err, "wait", wait)
	}
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, fmt.Errorf("connecting to blob store: %w", err)
	}

	p.mu.Lock()
	p.dials++
	p.mu.Unlock()
	return conn, nil
}
