package mq

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopfront/apiserver/types"
)

type recordingBackend struct {
	topic string
	data  []byte
	attrs map[string]string
	err   error
}

func (b *recordingBackend) Publish(_ context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	b.topic, b.data, b.attrs = topic, data, attrs
	return "msg-1", b.err
}

func (b *recordingBackend) Subscribe(context.Context, string, Handler) error { return nil }
func (b *recordingBackend) Close() error                                    { return nil }

func TestPublishOrderEventRoundTrip(t *testing.T) {
	backend := &recordingBackend{}
	publisher := NewOrderEventPublisher(New(backend))

	order := types.Order{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		Status:  types.OrderPending,
		Payment: "card",
		Products: []types.Product{
			{ID: uuid.New(), Price: 50},
			{ID: uuid.New(), Price: 25.5},
		},
	}
	if err := publisher.PublishOrderEvent(context.Background(), NewOrderEvent(EventOrderCreated, order)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if backend.topic != TopicOrderEvents {
		t.Fatalf("expected topic %q, got %q", TopicOrderEvents, backend.topic)
	}
	if backend.attrs[AttrType] != EventOrderCreated {
		t.Fatalf("expected type attribute, got %v", backend.attrs)
	}

	event, err := DecodeOrderEvent(Message{Data: backend.data, Attributes: backend.attrs})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.OrderID != order.ID || event.Total != 75.5 || len(event.ProductIDs) != 2 {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestPublishOrderEventPropagatesBrokerError(t *testing.T) {
	backend := &recordingBackend{err: errors.New("broker down")}
	publisher := NewOrderEventPublisher(New(backend))
	if err := publisher.PublishOrderEvent(context.Background(), OrderEvent{Type: EventOrderDeleted}); err == nil {
		t.Fatalf("expected broker error")
	}
}

func TestDecodeOrderEventRejectsUntyped(t *testing.T) {
	if _, err := DecodeOrderEvent(Message{Data: []byte(`{"orderId":"` + uuid.NewString() + `"}`)}); err == nil {
		t.Fatalf("expected error for event without type")
	}
}
