package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Evgesha-thunder/user-service/pkg/models"
	"github.com/Evgesha-thunder/user-service/pkg/redis"
)

var (
	ErrMissingMessageID = errors.New("message has no id")
	ErrInvalidKey       = errors.New("message key is not a user id")
	ErrUnknownOperation = errors.New("unknown operation")
)

// Delivery is a user event as received by a consumer, independent of the
// broker it came from.
type Delivery struct {
	MessageID     string
	Key           string
	CorrelationID string
	Timestamp     time.Time
	Body          []byte
}

// Received is a decoded and checked Delivery.
type Received struct {
	MessageID     string
	CorrelationID string
	UserID        int64
	Event         models.UserOperationEvent
	Timestamp     time.Time
}

func FromAMQP(d amqp.Delivery) Delivery {
	return Delivery{
		MessageID:     d.MessageId,
		Key:           d.RoutingKey,
		CorrelationID: d.CorrelationId,
		Timestamp:     d.Timestamp,
		Body:          d.Body,
	}
}

// FromStream converts a stream entry. Redis entry ids start with the
// millisecond they were added at, which becomes the timestamp.
func FromStream(msg redis.StreamMessage) Delivery {
	d := Delivery{
		MessageID:     msg.MessageID,
		Key:           msg.Key,
		CorrelationID: msg.CorrelationID,
		Body:          msg.Body,
	}
	if ms, _, ok := strings.Cut(msg.ID, "-"); ok {
		if v, err := strconv.ParseInt(ms, 10, 64); err == nil {
			d.Timestamp = time.UnixMilli(v)
		}
	}
	return d
}

// Decode checks the envelope and unmarshals the body.
func (d Delivery) Decode() (Received, error) {
	if d.MessageID == "" {
		return Received{}, ErrMissingMessageID
	}
	userID, err := strconv.ParseInt(d.Key, 10, 64)
	if err != nil {
		return Received{}, fmt.Errorf("%w: %q", ErrInvalidKey, d.Key)
	}

	var event models.UserOperationEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		return Received{}, fmt.Errorf("unmarshal event %s: %w", d.MessageID, err)
	}
	switch event.Operation {
	case models.OperationCreate, models.OperationDelete:
	default:
		return Received{}, fmt.Errorf("%w: %q", ErrUnknownOperation, event.Operation)
	}

	return Received{
		MessageID:     d.MessageID,
		CorrelationID: d.CorrelationID,
		UserID:        userID,
		Event:         event,
		Timestamp:     d.Timestamp,
	}, nil
}
