// Package notify reports operation outcomes to the user and to metrics.
//
// Services call Success, Warning or Error at their operation boundary. Each
// call is logged, counted in gamerie_operation_outcomes_total, and appended
// to the Collector carried by the context (if any) so that the HTTP adapter
// can return the messages with the response.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/gamerie/internal/app/system/apperr"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Level is the severity of a user-facing message.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message is one transient notification.
type Message struct {
	Level Level     `json:"level"`
	Op    string    `json:"-"`
	Text  string    `json:"text"`
	At    time.Time `json:"-"`
}

// Collector gathers the messages raised while serving one request.
type Collector struct {
	mu   sync.Mutex
	msgs []Message
}

// Messages returns a copy of the collected messages in order.
func (c *Collector) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}

func (c *Collector) add(m Message) {
	c.mu.Lock()
	c.msgs = append(c.msgs, m)
	c.mu.Unlock()
}

type collectorKey struct{}

// WithCollector returns a context carrying a fresh Collector.
func WithCollector(ctx context.Context) (context.Context, *Collector) {
	c := &Collector{}
	return context.WithValue(ctx, collectorKey{}, c), c
}

// CollectorFrom returns the Collector carried by ctx, or nil.
func CollectorFrom(ctx context.Context) *Collector {
	c, _ := ctx.Value(collectorKey{}).(*Collector)
	return c
}

// Notifier raises user-facing messages. A nil *Notifier is a no-op.
type Notifier struct {
	log      *zap.Logger
	outcomes *prometheus.CounterVec
}

// New builds a Notifier and registers its counter with reg. reg may be nil.
func New(log *zap.Logger, reg prometheus.Registerer) *Notifier {
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gamerie_operation_outcomes_total",
		Help: "Outcomes of user-facing operations by operation and level.",
	}, []string{"operation", "level", "kind"})
	if reg != nil {
		reg.MustRegister(outcomes)
	}
	return &Notifier{log: log, outcomes: outcomes}
}

// Outcomes exposes the counter for tests.
func (n *Notifier) Outcomes() *prometheus.CounterVec {
	return n.outcomes
}

func (n *Notifier) emit(ctx context.Context, level Level, op, text string, kind apperr.Kind) {
	if n == nil {
		return
	}
	n.outcomes.WithLabelValues(op, string(level), string(kind)).Inc()
	if c := CollectorFrom(ctx); c != nil {
		c.add(Message{Level: level, Op: op, Text: text, At: time.Now()})
	}
}

// Success reports a completed operation.
func (n *Notifier) Success(ctx context.Context, op, text string) {
	n.emit(ctx, LevelSuccess, op, text, "")
}

// Warning reports a non-fatal condition.
func (n *Notifier) Warning(ctx context.Context, op, text string) {
	if n != nil {
		n.log.Warn("operation warning", zap.String("operation", op), zap.String("message", text))
	}
	n.emit(ctx, LevelWarning, op, text, "")
}

// Error reports a failed operation with the error's user-facing message, or
// fallback if it has none.
func (n *Notifier) Error(ctx context.Context, op string, err error, fallback string) {
	text := apperr.Message(err, fallback)
	if n != nil {
		n.log.Error("operation failed",
			zap.String("operation", op),
			zap.String("kind", string(apperr.KindOf(err))),
			zap.String("message", text),
			zap.Error(err),
		)
	}
	n.emit(ctx, LevelError, op, text, apperr.KindOf(err))
}
