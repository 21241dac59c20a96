package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"akshaya-auth/internal/bucketing"
	"akshaya-auth/internal/models"
	"akshaya-auth/internal/util"
)

// Producer is the slice of the Kafka client the publisher needs.
type Producer interface {
	ProduceMessage(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// Publisher writes auth events to the audit stream on a best-effort
// basis. Publishing failures are logged and swallowed; the auth flow
// never waits on or fails because of the stream. A nil producer disables
// publishing entirely.
type Publisher struct {
	producer Producer
	topic    string
	buckets  *bucketing.Manager
}

func NewPublisher(producer Producer, topic string, buckets *bucketing.Manager) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    topic,
		buckets:  buckets,
	}
}

// Publish emits one event keyed by the phone hash. userID and detail may
// be empty depending on the event type.
func (p *Publisher) Publish(eventType, phone, userID, clientID, detail string) {
	if p == nil || p.producer == nil {
		return
	}

	now := time.Now().UTC()
	phoneHash := util.PhoneHash(phone)

	event := models.AuthEvent{
		EventID:     uuid.New().String(),
		EventBucket: p.buckets.EventBucket(phoneHash),
		EventDate:   p.buckets.DateBucket(now),
		EventTime:   now,
		EventType:   eventType,
		PhoneHash:   phoneHash,
		UserID:      userID,
		ClientID:    clientID,
		Detail:      detail,
	}

	value, err := json.Marshal(event)
	if err != nil {
		util.Warn("Failed to marshal auth event", zap.Error(err))
		return
	}

	// Detached context: the request that triggered the event may already
	// be done
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	headers := map[string]string{"event_type": eventType}
	if err := p.producer.ProduceMessage(ctx, p.topic, []byte(phoneHash), value, headers); err != nil {
		util.Warn("Failed to publish auth event",
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}
