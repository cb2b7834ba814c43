package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Consumer listens to both booking queues and appends one line per event
// to a log file.
type Consumer struct {
	url     string
	logPath string
	log     *zap.Logger
}

func NewConsumer(url, logPath string, log *zap.Logger) *Consumer {
	if logPath == "" {
		logPath = filepath.Join("logs", "booking.log")
	}
	return &Consumer{url: url, logPath: logPath, log: log}
}

// Run connects to the broker and consumes until ctx is cancelled.  Dial
// failures back off exponentially up to 30s; a dropped connection is
// redialed.  Bad messages are rejected without requeue so they cannot
// loop.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("booking consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("booking consumer: consume loop ended; reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("booking consumer: set QoS failed", zap.Error(err))
	}
	if err := declareQueues(ch); err != nil {
		return err
	}

	confirmed, err := ch.Consume(QueueBookingConfirmed, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", QueueBookingConfirmed, err)
	}
	cancelled, err := ch.Consume(QueueBookingCancelled, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", QueueBookingCancelled, err)
	}

	for {
		var (
			d  amqp.Delivery
			ok bool
			q  string
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-confirmed:
			q = QueueBookingConfirmed
		case d, ok = <-cancelled:
			q = QueueBookingCancelled
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := c.handleMessage(q, d.Body); err != nil {
			c.log.Error("booking consumer: handle message failed", zap.String("queue", q), zap.Error(err))
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
}

func (c *Consumer) handleMessage(queueName string, body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Reference == "" {
		return errors.New("event without reference")
	}
	if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
		return fmt.Errorf("mkdir log dir: %w", err)
	}
	f, err := os.OpenFile(c.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	title := "Booking confirmed"
	if queueName == QueueBookingCancelled {
		title = "Booking released"
	}
	line := fmt.Sprintf("[%s] %s | reference=%s | status=%s | guest_id=%d | room_type_id=%d | location_id=%d | stay=%s..%s | rooms=%d | nights=%d | total=%s",
		ev.OccurredAt, title, ev.Reference, ev.Status, ev.GuestID, ev.RoomTypeID, ev.LocationID,
		ev.CheckIn, ev.CheckOut, ev.NumRooms, ev.NightCount, ev.TotalPrice)
	if ev.Reason != "" {
		line += fmt.Sprintf(" | reason=%q", ev.Reason)
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
