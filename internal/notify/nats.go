package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/daytrack/internal/config"
	"git.home.luguber.info/inful/daytrack/internal/foundation/errors"
	"git.home.luguber.info/inful/daytrack/internal/logfields"
	"git.home.luguber.info/inful/daytrack/internal/retry"
)

// conn is the subset of *nats.Conn the publisher needs.
type conn interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSPublisher publishes events as JSON on "<subject>.<event type>".
type NATSPublisher struct {
	conn    conn
	subject string
	policy  retry.Policy
}

// NewNATSPublisher connects to the server named in cfg.
func NewNATSPublisher(cfg config.NotifyConfig) (*NATSPublisher, error) {
	if !cfg.Enabled {
		return nil, errors.NotifyError("notifications are disabled").Build()
	}
	policy, err := cfg.Retry.Policy()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid notify retry policy").Build()
	}

	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("daytrack"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNotify, "failed to connect to NATS").
			WithContext("url", cfg.NATSURL).
			Retryable().
			Build()
	}

	slog.Info("NATS publisher initialized", "url", cfg.NATSURL, "subject", cfg.Subject)
	p := newPublisher(nc, cfg.Subject)
	p.policy = policy
	return p, nil
}

func newPublisher(c conn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: c, subject: strings.TrimSuffix(subject, "."), policy: retry.DefaultPolicy()}
}

// Subject returns the subject an event of the given type is published on.
func (p *NATSPublisher) Subject(eventType string) string {
	return p.subject + "." + eventType
}

// Publish sends the event and waits for the server to acknowledge the
// flush, retrying transient failures with the configured backoff.
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.WrapError(err, errors.CategoryNotify, "failed to marshal event").Build()
	}

	subj := p.Subject(event.Type)
	if err := p.policy.Do(ctx, func(ctx context.Context) error { return p.publish(ctx, subj, data) }); err != nil {
		return err
	}

	slog.Debug("Published tracker event",
		logfields.User(event.User),
		logfields.EventType(event.Type),
		slog.String("subject", subj))
	return nil
}

func (p *NATSPublisher) publish(ctx context.Context, subj string, data []byte) error {
	if err := p.conn.Publish(subj, data); err != nil {
		return errors.WrapError(err, errors.CategoryNotify, "failed to publish event").
			WithContext("subject", subj).
			Retryable().
			Build()
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return errors.WrapError(err, errors.CategoryNotify, "NATS flush failed").
			WithContext("subject", subj).
			Retryable().
			Build()
	}
	return nil
}

// Close closes the underlying connection.
func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}
