package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/event-concierge/internal/model"
)

const (
	// StreamName is the name of the pipeline journal stream.
	StreamName = "CONCIERGE"

	// SubjectPrefix is the prefix for all journal subjects.
	SubjectPrefix = "concierge"
)

// StreamManager publishes pipeline activity to JetStream and replays it.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream creates the journal stream if it does not exist.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		Description: "Concierge messages and pipeline events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

var tokenReplacer = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_", "\t", "_", "\n", "_")

// token makes s safe to use as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return tokenReplacer.Replace(s)
}

// MessageSubject returns the subject for a conversation message.
func MessageSubject(userID, conversationID string, sender model.Sender) string {
	return fmt.Sprintf("%s.%s.%s.msg.%s", SubjectPrefix, token(userID), token(conversationID), sender)
}

// EventSubject returns the subject for a pipeline event.
func EventSubject(userID, conversationID string, eventType model.PipelineEventType) string {
	return fmt.Sprintf("%s.%s.%s.event.%s", SubjectPrefix, token(userID), token(conversationID), eventType)
}

// EventFilter returns the filter subject for every event in a conversation.
func EventFilter(userID, conversationID string) string {
	return fmt.Sprintf("%s.%s.%s.event.>", SubjectPrefix, token(userID), token(conversationID))
}

// RecordMessage journals a logged conversation message.
func (m *StreamManager) RecordMessage(ctx context.Context, msg *model.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if _, err := m.client.JetStream().Publish(ctx, MessageSubject(msg.UserID, msg.ConversationID, msg.Sender), data); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// RecordEvent journals a pipeline event.
func (m *StreamManager) RecordEvent(ctx context.Context, event *model.PipelineEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := m.client.JetStream().Publish(ctx, EventSubject(event.UserID, event.ConversationID, event.Type), data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// GetEvents replays a conversation's pipeline events after a stream
// sequence.
func (m *StreamManager) GetEvents(ctx context.Context, userID, conversationID string, afterSequence uint64, limit int) (*model.ListEventsResponse, error) {
	consumerConfig := jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{EventFilter(userID, conversationID)},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	}
	if afterSequence > 0 {
		consumerConfig.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
		consumerConfig.OptStartSeq = afterSequence + 1
	}

	consumer, err := m.client.JetStream().OrderedConsumer(ctx, StreamName, consumerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}

	resp := &model.ListEventsResponse{Events: []model.PipelineEvent{}, LastSequence: afterSequence}
	for msg := range batch.Messages() {
		var event model.PipelineEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			continue
		}
		if meta, err := msg.Metadata(); err == nil {
			event.Sequence = meta.Sequence.Stream
			resp.LastSequence = meta.Sequence.Stream
		}
		resp.Events = append(resp.Events, event)
	}

	if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, jetstream.ErrNoMessages) {
		return nil, fmt.Errorf("batch error: %w", err)
	}

	resp.HasMore = len(resp.Events) == limit
	return resp, nil
}
