package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rotisserie/eris"
)

// Publisher sends lifecycle events to the court.events queue.  Each call
// dials, publishes one persistent message and closes; events are rare
// enough that a long-lived channel is not worth the reconnect handling.
type Publisher struct {
	url         string
	dialTimeout time.Duration
}

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url, dialTimeout: 2 * time.Second}
}

// Publish delivers ev.  Errors are returned for the caller to log; they
// never affect the committed transition the event describes.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Dial:      amqp.DefaultDial(p.dialTimeout),
		Heartbeat: 10 * time.Second,
	})
	if err != nil {
		return eris.Wrap(err, "rabbitmq: dial")
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return eris.Wrap(err, "rabbitmq: open channel")
	}
	defer func() { _ = ch.Close() }()

	if _, err := declareEventsQueue(ch); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "rabbitmq: marshal event")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = ch.PublishWithContext(ctx,
		"",              // default exchange
		EventsQueueName, // routing key = queue name
		false,           // mandatory
		false,           // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Type:         ev.Type,
			Body:         body,
		},
	)
	return eris.Wrap(err, "rabbitmq: publish")
}

// declareEventsQueue makes sure the durable events queue exists.
func declareEventsQueue(ch *amqp.Channel) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		EventsQueueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	return q, eris.Wrap(err, "rabbitmq: declare queue")
}
