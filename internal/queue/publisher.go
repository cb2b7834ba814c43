package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/neststay/internal/breaker"
	"github.com/iliyamo/neststay/internal/metrics"
)

// Publisher publishes booking events as persistent JSON messages to the
// default exchange, routed by queue name.  The broker connection is
// opened lazily and reopened after it drops.  Calls go through a
// circuit breaker so a dead broker costs one fast failure per request.
type Publisher struct {
	url     string
	log     *zap.Logger
	breaker *breaker.Breaker

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url string, log *zap.Logger) *Publisher {
	return &Publisher{
		url:     url,
		log:     log,
		breaker: breaker.New("rabbitmq", breaker.Options{}, log),
	}
}

// Publish sends ev to its queue.  Errors are returned for the caller to
// log; publishing never affects a committed booking.
func (p *Publisher) Publish(ctx context.Context, ev BookingEvent) error {
	if ev.Queue == "" {
		return errors.New("booking event has no queue")
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = p.breaker.Do(func() error {
		ch, err := p.channel()
		if err != nil {
			return err
		}
		err = ch.PublishWithContext(ctx, "", ev.Queue, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			MessageId:    ev.Reference + ":" + string(ev.Status),
			Body:         body,
		})
		if err != nil {
			p.reset()
		}
		return err
	})
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.EventsPublished.WithLabelValues(ev.Queue, result).Inc()
	return err
}

// channel returns the open channel, dialing and declaring queues first
// when needed.
func (p *Publisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, fmt.Errorf("dial broker: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if err := declareQueues(ch); err != nil {
		_ = ch.Close()
		return nil, err
	}
	p.ch = ch
	return ch, nil
}

func (p *Publisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}

// NopPublisher drops every event.  It is used when QUEUE_ENABLED=false.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, BookingEvent) error { return nil }

func declareQueues(ch *amqp.Channel) error {
	for _, q := range []string{QueueBookingConfirmed, QueueBookingCancelled} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
	}
	return nil
}
