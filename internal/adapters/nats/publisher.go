package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/canopyops/geoscene/internal/core/domain"
)

// SubjectSceneUpdated is published after every refresh that changed the scene.
const SubjectSceneUpdated = "map.scene.updated"

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher enables JetStream on conn and ensures the scene stream exists.
func NewPublisher(conn *nats.Conn) (*Publisher, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	err = ensureStreams(js, []nats.StreamConfig{{
		Name:      "MAP_SCENE",
		Subjects:  []string{"map.scene.>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		MaxMsgs:   10_000,
		Storage:   nats.FileStorage,
	}})
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, js: js}, nil
}

// PublishSceneUpdated publishes the refresh summary as JSON.
func (p *Publisher) PublishSceneUpdated(ctx context.Context, summary domain.SceneSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectSceneUpdated, data, nats.Context(ctx))
	return err
}

// Connected reports whether the underlying connection is up.
func (p *Publisher) Connected() bool {
	return p.conn.IsConnected()
}
