package natsadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// ChangeSubjects are the back-office change feeds that invalidate the scene.
var ChangeSubjects = map[string]string{
	"backoffice.orders.>":    "geoscene-orders",
	"backoffice.shipments.>": "geoscene-shipments",
	"backoffice.traffic.>":   "geoscene-traffic",
}

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber on conn and ensures the change stream
// exists.
func NewSubscriber(conn *nats.Conn) (*Subscriber, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	subjects := make([]string, 0, len(ChangeSubjects))
	for subject := range ChangeSubjects {
		subjects = append(subjects, subject)
	}
	err = ensureStreams(js, []nats.StreamConfig{{
		Name:      "BACKOFFICE_CHANGES",
		Subjects:  subjects,
		Retention: nats.InterestPolicy,
		MaxAge:    1 * time.Hour,
		Storage:   nats.FileStorage,
	}})
	if err != nil {
		return nil, err
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeChanges calls handler with the subject of every change event.
// Payloads are ignored; a change only means "refresh soon". A handler error
// naks the message for redelivery.
func (s *Subscriber) SubscribeChanges(ctx context.Context, handler func(ctx context.Context, subject string) error) error {
	for subject, durable := range ChangeSubjects {
		sub, err := s.js.Subscribe(subject, func(msg *nats.Msg) {
			if err := handler(ctx, msg.Subject); err != nil {
				_ = msg.Nak()
				return
			}
			_ = msg.Ack()
		},
			nats.Durable(durable),
			nats.ManualAck(),
			nats.MaxDeliver(3),
			nats.DeliverNew(),
		)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		s.subs = append(s.subs, sub)
	}
	return nil
}

// Close unsubscribes. The shared connection is drained by its owner.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = nil
}
