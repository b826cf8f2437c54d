package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ariefcatur/go-takeout/internal/logx"
	"github.com/segmentio/kafka-go"
)

// Writer is the part of *kafka.Writer the producer loop needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer buffers messages in a channel and writes them from one goroutine,
// so request handlers never block on the broker.
type Producer struct {
	w       Writer
	log     *slog.Logger
	mu      sync.RWMutex
	closed  bool
	inbox   chan kafka.Message
	closeCh chan struct{}
}

func NewProducer(brokers []string, topic string, buf int, log *slog.Logger) *Producer {
	return NewProducerWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}, buf, log)
}

func NewProducerWithWriter(w Writer, buf int, log *slog.Logger) *Producer {
	return &Producer{
		w:       w,
		log:     logx.OrDiscard(log),
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for m := range p.inbox {
			if err := p.w.WriteMessages(ctx, m); err != nil {
				p.log.Error("kafka write failed", "action", "publish", "key", string(m.Key), "error", err)
			}
		}
		if err := p.w.Close(); err != nil {
			p.log.Error("kafka writer close", "action", "publish", "error", err)
		}
	}()
}

// Publish enqueues a message. After Close it drops the message and logs.
func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.log.Warn("publish after close dropped", "action", "publish", "key", string(key))
		return
	}
	p.inbox <- kafka.Message{
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	}
}

// Close stops intake; the loop flushes what is buffered and exits.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.inbox)
}

// WaitClosed blocks until the loop has flushed and closed the writer.
func (p *Producer) WaitClosed() { <-p.closeCh }
