package mail

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// AsyncConfig sizes the queue in front of a slow dispatcher.
type AsyncConfig struct {
	QueueSize int
	Workers   int
	// OnDrop is called for each message rejected because the queue was full.
	OnDrop func(Message)
}

// Async hands messages to a worker pool and returns immediately. Delivery
// errors are logged, never returned. When the queue is full the message is
// dropped.
type Async struct {
	next    Dispatcher
	logger  *zap.Logger
	onDrop  func(Message)
	queue   chan Message
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Uint64

	// mu orders enqueue against Close: once closed is set no send can
	// reach the queue, so the workers' final drain sees every message.
	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

var _ Dispatcher = (*Async)(nil)

func NewAsync(next Dispatcher, cfg AsyncConfig, logger *zap.Logger) *Async {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &Async{
		next:   next,
		logger: logger.Named("mail"),
		onDrop: cfg.OnDrop,
		queue:  make(chan Message, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	a.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go a.work()
	}
	return a
}

func (a *Async) work() {
	defer a.wg.Done()

	for {
		select {
		case msg := <-a.queue:
			a.deliver(msg)
		case <-a.done:
			for {
				select {
				case msg := <-a.queue:
					a.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (a *Async) deliver(msg Message) {
	if err := Deliver(context.Background(), a.next, msg); err != nil {
		a.logger.Warn("email delivery failed",
			zap.String("kind", string(msg.Kind)),
			zap.String("to", msg.To),
			zap.Error(err),
		)
	}
}

func (a *Async) enqueue(msg Message) error {
	a.mu.RLock()
	queued := false
	if !a.closed {
		select {
		case a.queue <- msg:
			queued = true
		default:
		}
	}
	a.mu.RUnlock()

	if !queued {
		a.drop(msg)
	}
	return nil
}

func (a *Async) drop(msg Message) {
	a.dropped.Add(1)
	a.logger.Warn("email dropped", zap.String("kind", string(msg.Kind)), zap.String("to", msg.To))
	if a.onDrop != nil {
		a.onDrop(msg)
	}
}

func (a *Async) SendVerificationEmail(_ context.Context, to, name, token string) error {
	return a.enqueue(Message{Kind: KindVerification, To: to, Name: name, Token: token})
}

func (a *Async) SendPasswordResetEmail(_ context.Context, to, name, token string) error {
	return a.enqueue(Message{Kind: KindPasswordReset, To: to, Name: name, Token: token})
}

func (a *Async) SendWelcomeEmail(_ context.Context, to, name string) error {
	return a.enqueue(Message{Kind: KindWelcome, To: to, Name: name})
}

func (a *Async) SendSecurityAlertEmail(_ context.Context, to, name, ip, userAgent string) error {
	return a.enqueue(Message{Kind: KindSecurityAlert, To: to, Name: name, IP: ip, UserAgent: userAgent})
}

// Close stops accepting messages and waits for queued ones to be delivered.
func (a *Async) Close() {
	a.once.Do(func() {
		a.mu.Lock()
		a.closed = true
		a.mu.Unlock()

		close(a.done)
		a.wg.Wait()
	})
}

// Dropped returns how many messages were discarded.
func (a *Async) Dropped() uint64 {
	return a.dropped.Load()
}
