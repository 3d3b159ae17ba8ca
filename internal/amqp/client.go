package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"moneytracker/internal/core"
	"moneytracker/internal/log"
	"moneytracker/internal/notify"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
	dialAttempts   = 3
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type Config struct {
	URL                string
	Exchange           string
	ChangesQueue       string
	NotificationsQueue string
}

// Client publishes and consumes the service's messages over one RabbitMQ
// connection, reconnecting with exponential backoff when it drops.
type Client struct {
	url                string
	exchangeName       string
	changesQueue       string
	notificationsQueue string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time

	logger *log.Logger
}

func NewClient(cfg Config, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	c := &Client{
		url:                cfg.URL,
		exchangeName:       cfg.Exchange,
		changesQueue:       cfg.ChangesQueue,
		notificationsQueue: cfg.NotificationsQueue,
		logger:             logger.WithComponent(log.ComponentAMQP),
	}

	c.mu.Lock()
	err := c.connectLocked()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connectLocked() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := c.setup(channel); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queues: %w", err)
	}

	c.conn = conn
	c.channel = channel
	return nil
}

func (c *Client) setup(ch *amqp091.Channel) error {
	err := ch.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, queue := range []string{c.changesQueue, c.notificationsQueue} {
		if queue == "" {
			continue
		}
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
		// Routing key equals the queue name on the direct exchange
		if err := ch.QueueBind(queue, queue, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}
	return nil
}

// publishChannel returns an open channel, reconnecting if needed.
func (c *Client) publishChannel(ctx context.Context) (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	c.closeLocked()

	var err error
	for attempt := 0; attempt < dialAttempts; attempt++ {
		if err = c.connectLocked(); err == nil {
			c.logger.InfoContext(ctx, "Reconnected to AMQP broker", "attempt", attempt+1)
			return c.channel, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(exponentialBackoff(attempt)):
		}
	}
	return nil, err
}

func (c *Client) publish(ctx context.Context, routingKey, messageID string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("%w, message not published", ErrCircuitOpen)
	}

	ch, err := c.publishChannel(ctx)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("get channel: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		pubCtx,
		c.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		if isConnectionError(err) {
			c.mu.Lock()
			c.closeLocked()
			c.mu.Unlock()
		}
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}

	c.recordSuccess()
	return nil
}

// PublishTransactionChanged announces a committed write.
func (c *Client) PublishTransactionChanged(ctx context.Context, id int64, kind core.ChangeKind) error {
	msg := NewTransactionChangedMessage(id, kind)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, c.changesQueue, msg.MessageID, body); err != nil {
		return err
	}
	c.logger.DebugContext(ctx, "Published transaction change",
		log.FieldTransactionID, id,
		log.FieldOperation, string(kind),
		"message_id", msg.MessageID)
	return nil
}

// PublishNotification hands a notification to the process that shows it.
func (c *Client) PublishNotification(ctx context.Context, n notify.Notification) error {
	msg := NewNotificationMessage(n)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, c.notificationsQueue, msg.MessageID, body); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "Published notification",
		log.FieldNotification, n.ID,
		"message_id", msg.MessageID)
	return nil
}

// Notify implements notify.Notifier.
func (c *Client) Notify(ctx context.Context, n notify.Notification) error {
	return c.PublishNotification(ctx, n)
}

// ConsumeTransactionChanges delivers change messages to handler until ctx is
// done. A handler error requeues the message.
func (c *Client) ConsumeTransactionChanges(ctx context.Context, handler func(context.Context, *TransactionChangedMessage) error) error {
	return c.consume(ctx, c.changesQueue, func(ctx context.Context, body []byte) (bool, error) {
		msg, err := TransactionChangedMessageFromJSON(body)
		if err != nil {
			return false, err
		}
		return true, handler(ctx, msg)
	})
}

// ConsumeNotifications delivers notifications to handler until ctx is done.
func (c *Client) ConsumeNotifications(ctx context.Context, handler func(context.Context, notify.Notification) error) error {
	return c.consume(ctx, c.notificationsQueue, func(ctx context.Context, body []byte) (bool, error) {
		msg, err := NotificationMessageFromJSON(body)
		if err != nil {
			return false, err
		}
		return true, handler(ctx, msg.Notification)
	})
}

// consume runs one consumer on its own channel and re-establishes it when
// the broker connection drops. handle reports whether the body was decoded;
// undecodable messages are dropped, handler failures are requeued.
func (c *Client) consume(ctx context.Context, queue string, handle func(context.Context, []byte) (bool, error)) error {
	attempt := 0
	for {
		msgs, ch, err := c.startConsumer(ctx, queue)
		if err != nil {
			wait := exponentialBackoff(attempt)
			c.logger.WarnContext(ctx, "Failed to start consumer, retrying",
				"queue", queue,
				"retry_in", wait.String(),
				log.FieldError, err)
			attempt++
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		attempt = 0
		c.logger.InfoContext(ctx, "Started consuming", "queue", queue)

		if err := c.drain(ctx, msgs, handle); err != nil {
			ch.Close()
			return err
		}
		ch.Close()
		c.logger.WarnContext(ctx, "Delivery channel closed, reconnecting", "queue", queue)
	}
}

func (c *Client) startConsumer(ctx context.Context, queue string) (<-chan amqp091.Delivery, *amqp091.Channel, error) {
	if _, err := c.publishChannel(ctx); err != nil {
		return nil, nil, err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("open consumer channel: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("set qos: %w", err)
	}
	msgs, err := ch.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack (we want manual ack)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("start consuming: %w", err)
	}
	return msgs, ch, nil
}

// drain returns ctx.Err() when ctx ends and nil when deliveries stop.
func (c *Client) drain(ctx context.Context, msgs <-chan amqp091.Delivery, handle func(context.Context, []byte) (bool, error)) error {
	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return nil
			}
			decoded, err := handle(ctx, delivery.Body)
			switch {
			case !decoded:
				c.logger.ErrorContext(ctx, "Failed to unmarshal message",
					"message_id", delivery.MessageId,
					log.FieldError, err)
				delivery.Nack(false, false) // reject and don't requeue
			case err != nil:
				c.logger.ErrorContext(ctx, "Failed to handle message",
					"message_id", delivery.MessageId,
					log.FieldError, err)
				delivery.Nack(false, true) // reject and requeue
			default:
				delivery.Ack(false)
			}
		}
	}
}

func (c *Client) isCircuitOpen() bool {
	switch atomic.LoadInt32(&c.state) {
	case StateOpen:
		c.mu.Lock()
		elapsed := time.Since(c.lastFailure)
		c.mu.Unlock()
		if elapsed > openTimeout {
			atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
			return false
		}
		return true
	default:
		return false
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()

	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		if atomic.SwapInt32(&c.state, StateOpen) != StateOpen {
			c.logger.Warn("AMQP circuit breaker opened", "failures", n)
		}
	}
}

// exponentialBackoff returns 1s, 2s, 4s, ... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << uint(attempt)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection closed",
		"EOF",
		"broken pipe",
		"use of closed network connection",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
