// Package pipeline gates every inbound real-time event before business logic
// runs. Stages are ordered, independent interceptors; a stage that rejects
// stops the chain so later stages and the handler never execute.
package pipeline

import (
	"context"
	"encoding/json"

	"github.com/EAniwa/legacylancers-sub002/internal/domain"
)

// Event is the unit flowing through the chain: the wire frame plus the
// identity of the connection that sent it. Payload is populated by the
// validation stage; stages after it may rely on the typed value.
type Event struct {
	Name         string
	UserID       string
	ConnectionID string
	Raw          json.RawMessage
	Payload      interface{}
}

// Interceptor is one stage of the chain.
type Interceptor interface {
	Intercept(ctx context.Context, e *Event) error
}

// Chain runs interceptors in registration order, short-circuiting on the
// first rejection. The explicit slice keeps ordering statically inspectable.
type Chain struct {
	stages []Interceptor
}

func NewChain(stages ...Interceptor) *Chain {
	return &Chain{stages: stages}
}

func (c *Chain) Run(ctx context.Context, e *Event) error {
	for _, s := range c.stages {
		if err := s.Intercept(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// IdentityStage asserts that the connection carries an authenticated user.
// Authentication itself happens before the socket upgrade; a connection that
// reaches the event loop without an identity is a programming error and its
// events are rejected rather than trusted.
type IdentityStage struct{}

func (IdentityStage) Intercept(ctx context.Context, e *Event) error {
	if e.UserID == "" {
		return domain.ErrAuthenticationFailed
	}
	return nil
}
