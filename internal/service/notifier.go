package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/kanban-board/internal/logging"
	"github.com/iliyamo/kanban-board/internal/queue"
)

// Notifier delivers a reset code to a phone number.
type Notifier interface {
	SendOTP(ctx context.Context, ev queue.OTPRequestedEvent) error
}

// NewOTPEvent builds the event for a freshly issued code.
func NewOTPEvent(phone, code string, userID uint64, issuedAt time.Time) queue.OTPRequestedEvent {
	return queue.OTPRequestedEvent{
		EventID:  uuid.NewString(),
		Phone:    phone,
		Code:     code,
		UserID:   userID,
		IssuedAt: issuedAt.UTC().Format(time.RFC3339),
	}
}

// AMQPNotifier publishes OTPRequestedEvent messages to the otp.requested
// queue. A connection is opened per publish; reset requests are rare.
type AMQPNotifier struct {
	url string
	ttl time.Duration // message expiry; an undelivered code is useless afterwards
	log logging.Logger
}

func NewAMQPNotifier(url string, ttl time.Duration, log logging.Logger) *AMQPNotifier {
	return &AMQPNotifier{url: url, ttl: ttl, log: log}
}

func (n *AMQPNotifier) SendOTP(ctx context.Context, ev queue.OTPRequestedEvent) error {
	pub, err := otpPublishing(ev, time.Now(), n.ttl)
	if err != nil {
		return err
	}

	conn, err := amqp.Dial(n.url)
	if err != nil {
		n.log.Error(ctx, "rabbitmq: dial failed", "err", err)
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		n.log.Error(ctx, "rabbitmq: channel open failed", "err", err)
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so codes survive a broker restart until the consumer picks them up.
	if _, err := ch.QueueDeclare(queue.OTPQueueName, true, false, false, false, nil); err != nil {
		n.log.Error(ctx, "rabbitmq: queue declare failed", "err", err)
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.PublishWithContext(ctx, "", queue.OTPQueueName, false, false, pub); err != nil {
		n.log.Error(ctx, "rabbitmq: publish failed", "err", err)
		return fmt.Errorf("publish: %w", err)
	}
	n.log.Info(ctx, "otp event published", "event_id", ev.EventID, "user_id", ev.UserID)
	return nil
}

func otpPublishing(ev queue.OTPRequestedEvent, now time.Time, ttl time.Duration) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    ev.EventID,
		Timestamp:    now.UTC(),
		Body:         body,
	}
	if ttl > 0 {
		pub.Expiration = strconv.FormatInt(ttl.Milliseconds(), 10)
	}
	return pub, nil
}

// LogNotifier writes the SMS line directly to the delivery log without a
// broker. Used for local development.
type LogNotifier struct {
	delivery *queue.DeliveryLog
}

func NewLogNotifier(delivery *queue.DeliveryLog) *LogNotifier {
	return &LogNotifier{delivery: delivery}
}

func (n *LogNotifier) SendOTP(_ context.Context, ev queue.OTPRequestedEvent) error {
	return n.delivery.Deliver(ev)
}
