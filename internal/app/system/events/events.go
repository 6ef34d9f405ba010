// Package events publishes advisory domain events.
//
// Publishing is fire-and-forget from the caller's point of view: a failed
// publish is logged by the caller and never fails the operation that raised
// the event.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subjects
const (
	SubjectUserCreated    = "gamerie.users.created"
	SubjectUserDeleted    = "gamerie.users.deleted"
	SubjectUserFollowed   = "gamerie.users.followed"
	SubjectUserUnfollowed = "gamerie.users.unfollowed"
)

// UserEvent is the payload of every users.* subject.
type UserEvent struct {
	UserID  string    `json:"userId"`
	ActorID string    `json:"actorId,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher sends an event payload on a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }

// NATS publishes JSON payloads on a core NATS connection.
type NATS struct {
	nc  *nats.Conn
	log *zap.Logger
}

// ConnectNATS dials url. The connection reconnects on its own; publish
// errors while disconnected are returned to the caller.
func ConnectNATS(url string, log *zap.Logger) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("gamerie"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATS{nc: nc, log: log}, nil
}

func (p *NATS) Publish(ctx context.Context, subject string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATS) Close() {
	if err := p.nc.Drain(); err != nil {
		p.log.Warn("nats drain failed", zap.Error(err))
	}
}

// Recorder keeps published events in memory. Used in tests and development.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
	Err    error
}

// Recorded is one captured publish.
type Recorded struct {
	Subject string
	Payload any
}

func (r *Recorder) Publish(ctx context.Context, subject string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, Recorded{Subject: subject, Payload: payload})
	return nil
}

// Events returns the captured publishes in order.
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.events))
	copy(out, r.events)
	return out
}

// Subjects returns the subjects of the captured publishes in order.
func (r *Recorder) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Subject
	}
	return out
}
