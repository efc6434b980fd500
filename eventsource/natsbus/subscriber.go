package natsbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/MrEthical07/iammetrics"
)

// Sink receives decoded events. *iammetrics.EventListener satisfies it.
type Sink interface {
	OnEvent(ctx context.Context, ev iammetrics.DomainEvent)
	OnAdminEvent(ctx context.Context, ev iammetrics.AdminDomainEvent)
}

// UserHook runs after a user event reached the sink, e.g. to keep a session
// directory current. Its errors are logged.
type UserHook func(ctx context.Context, ev iammetrics.DomainEvent) error

// Options configures a [Subscriber].
type Options struct {
	URL           string
	Subject       string
	Queue         string
	ClientName    string
	MaxReconnects int
	ReconnectWait time.Duration
	Logger        *zap.Logger
}

// Subscriber consumes event envelopes from one NATS subject.
type Subscriber struct {
	opts      Options
	sink      Sink
	hooks     []UserHook
	logger    *zap.Logger
	malformed atomic.Uint64

	mu   sync.Mutex
	conn *nats.Conn
	sub  *nats.Subscription
}

// NewSubscriber returns an unconnected Subscriber delivering to sink.
func NewSubscriber(opts Options, sink Sink, hooks ...UserHook) (*Subscriber, error) {
	if sink == nil {
		return nil, errors.New("natsbus: nil sink")
	}
	if opts.Subject == "" {
		return nil, errors.New("natsbus: subject is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ClientName == "" {
		opts.ClientName = "iammetricsd"
	}
	if opts.ReconnectWait <= 0 {
		opts.ReconnectWait = 2 * time.Second
	}
	return &Subscriber{
		opts:   opts,
		sink:   sink,
		hooks:  hooks,
		logger: opts.Logger.With(zap.String("subject", opts.Subject)),
	}, nil
}

// Start connects to opts.URL and subscribes.
func (s *Subscriber) Start() error {
	conn, err := nats.Connect(s.opts.URL,
		nats.Name(s.opts.ClientName),
		nats.MaxReconnects(s.opts.MaxReconnects),
		nats.ReconnectWait(s.opts.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			s.logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			s.logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	if err := s.StartWithConn(conn); err != nil {
		conn.Close()
		return err
	}
	return nil
}

// StartWithConn subscribes on an existing connection. Close drains the
// subscription and closes conn.
func (s *Subscriber) StartWithConn(conn *nats.Conn) error {
	var (
		sub *nats.Subscription
		err error
	)
	if s.opts.Queue != "" {
		sub, err = conn.QueueSubscribe(s.opts.Subject, s.opts.Queue, s.handle)
	} else {
		sub, err = conn.Subscribe(s.opts.Subject, s.handle)
	}
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.opts.Subject, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.sub = sub
	s.mu.Unlock()

	s.logger.Info("event subscription started", zap.String("queue", s.opts.Queue))
	return nil
}

func (s *Subscriber) handle(msg *nats.Msg) {
	s.Deliver(context.Background(), msg.Data)
}

// Deliver decodes one envelope and hands it to the sink. It reports whether
// the payload was well formed.
func (s *Subscriber) Deliver(ctx context.Context, data []byte) bool {
	env, err := Decode(data)
	if err != nil {
		s.malformed.Add(1)
		s.logger.Warn("dropping malformed event", zap.Error(err), zap.Int("bytes", len(data)))
		return false
	}

	switch env.Kind {
	case KindUser:
		s.sink.OnEvent(ctx, *env.Event)
		for _, hook := range s.hooks {
			if err := hook(ctx, *env.Event); err != nil {
				s.logger.Error("user event hook failed",
					zap.String("realm", env.Event.RealmID),
					zap.Stringer("type", env.Event.Type),
					zap.Error(err))
			}
		}
	case KindAdmin:
		s.sink.OnAdminEvent(ctx, *env.Admin)
	}
	return true
}

// Malformed returns how many messages were skipped.
func (s *Subscriber) Malformed() uint64 {
	return s.malformed.Load()
}

// Close drains pending messages and then closes the connection.
func (s *Subscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Drain()
	s.conn, s.sub = nil, nil
	return err
}
