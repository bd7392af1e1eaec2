package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Evgesha-thunder/user-service/internal/events"
	"github.com/Evgesha-thunder/user-service/pkg/logger"
)

func makeDelivery(messageID, key, body string) events.Delivery {
	return events.FromAMQP(amqp.Delivery{
		MessageId:     messageID,
		RoutingKey:    key,
		CorrelationId: "corr-" + messageID,
		Timestamp:     time.Now(),
		Body:          []byte(body),
	})
}

func TestHandle_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	consumer := NewConsumer(db, logger.Discard())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO processed_messages").
		WithArgs(ConsumerName, "msg-001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_event_log").
		WithArgs("msg-001", "corr-msg-001", "CREATE", int64(1), "test@mail.com").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	d := makeDelivery("msg-001", "1", `{"operation":"CREATE","email":"test@mail.com"}`)
	if err := consumer.Handle(context.Background(), d); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestHandle_DuplicateMessage(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	consumer := NewConsumer(db, logger.Discard())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO processed_messages").
		WithArgs(ConsumerName, "msg-dup").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	d := makeDelivery("msg-dup", "2", `{"operation":"DELETE","email":"dup@mail.com"}`)
	if err := consumer.Handle(context.Background(), d); err != nil {
		t.Fatalf("expected no error for duplicate, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestHandle_InvalidJSON(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	consumer := NewConsumer(db, logger.Discard())

	d := makeDelivery("msg-bad", "3", "{invalid json")
	if err := consumer.Handle(context.Background(), d); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("database must not be touched: %v", err)
	}
}

func TestHandle_MissingMessageID(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	consumer := NewConsumer(db, logger.Discard())

	d := makeDelivery("", "3", `{"operation":"CREATE","email":"a@mail.com"}`)
	if err := consumer.Handle(context.Background(), d); !errors.Is(err, events.ErrMissingMessageID) {
		t.Fatalf("expected ErrMissingMessageID, got %v", err)
	}
}

func TestHandle_InsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	consumer := NewConsumer(db, logger.Discard())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO processed_messages").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_event_log").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	d := makeDelivery("msg-002", "4", `{"operation":"CREATE","email":"b@mail.com"}`)
	if err := consumer.Handle(context.Background(), d); err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}
