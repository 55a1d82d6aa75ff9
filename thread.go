package alloc

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

type contextKey struct{}

// WithContext returns a copy of parent carrying c.
func WithContext(parent context.Context, c *Context) context.Context {
	return context.WithValue(parent, contextKey{}, c)
}

// FromContext returns the Context carried by ctx, or nil.
func FromContext(ctx context.Context) *Context {
	c, _ := ctx.Value(contextKey{}).(*Context)
	return c
}

// Run pins the calling goroutine to its OS thread, creates a fresh Context
// for it and calls fn. Allocators built from that Context check that they
// are only used on this OS thread. The goroutine is unpinned when fn
// returns; the Context and its allocators must not outlive fn.
func Run(fn func(c *Context) error, opts ...Option) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	return fn(newContext(osThreadID(), opts...))
}

// Go runs fn on a new goroutine under Run and returns a channel that
// delivers its error.
func Go(fn func(c *Context) error, opts ...Option) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- Run(fn, opts...)
	}()
	return done
}

// Group runs functions on their own pinned threads, each with its own
// Context, and collects the first error.
type Group struct {
	g    *errgroup.Group
	ctx  context.Context
	opts []Option
}

// NewGroup returns a Group and a context canceled when a function of the
// group fails or Wait returns.
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	return &Group{g: g, ctx: gctx, opts: opts}, gctx
}

// SetLimit bounds the number of threads running at once.
func (g *Group) SetLimit(n int) {
	g.g.SetLimit(n)
}

// Go runs fn on a new pinned thread. ctx carries the thread's Context.
func (g *Group) Go(fn func(ctx context.Context, c *Context) error) {
	g.g.Go(func() error {
		return Run(func(c *Context) error {
			return fn(WithContext(g.ctx, c), c)
		}, g.opts...)
	})
}

// Wait blocks until every function has returned and reports the first error.
func (g *Group) Wait() error {
	return g.g.Wait()
}
