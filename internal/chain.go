package internal

import (
	"context"
	"slices"
)

// Chain is an ordered sequence of middleware links. The first link is the
// outermost: it sees the request first and the response last.
// A Chain is immutable; Handle advances over a sub-slice and never consumes
// the links, so one Chain serves any number of concurrent requests.
type Chain struct {
	links []Middleware
}

// NewChain creates a chain from links in outermost-first order.
func NewChain(links ...Middleware) *Chain {
	return &Chain{links: slices.Clone(links)}
}

// Len returns the number of links.
func (c *Chain) Len() int { return len(c.links) }

// Handle invokes the head link with next bound to the rest of the chain.
// An empty chain fails with ErrEmptyMiddlewareStack.
func (c *Chain) Handle(ctx context.Context, req *Request) (*Response, error) {
	return tail(c.links).Handle(ctx, req)
}

// tail is the remaining part of a chain.
type tail []Middleware

func (t tail) Handle(ctx context.Context, req *Request) (*Response, error) {
	if len(t) == 0 {
		return nil, ErrEmptyMiddlewareStack
	}
	return t[0].Process(ctx, req, t[1:])
}
