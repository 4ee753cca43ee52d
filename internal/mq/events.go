package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopfront/apiserver/types"
)

// TopicOrderEvents carries every order lifecycle event.
const TopicOrderEvents = "order-events"

const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
	EventOrderDeleted = "order.deleted"
)

// OrderEvent is the payload published when an order changes.
type OrderEvent struct {
	Type       string            `json:"type"`
	OrderID    uuid.UUID         `json:"orderId"`
	UserID     uuid.UUID         `json:"userId"`
	Status     types.OrderStatus `json:"status"`
	Payment    string            `json:"payment"`
	ProductIDs []uuid.UUID       `json:"productIds"`
	Total      float64           `json:"total"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// NewOrderEvent snapshots order for the given event type.
func NewOrderEvent(eventType string, order types.Order) OrderEvent {
	ids := make([]uuid.UUID, 0, len(order.Products))
	for _, p := range order.Products {
		ids = append(ids, p.ID)
	}
	return OrderEvent{
		Type:       eventType,
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     order.Status,
		Payment:    order.Payment,
		ProductIDs: ids,
		Total:      order.Total(),
		OccurredAt: time.Now().UTC(),
	}
}

// OrderEventPublisher publishes order events to TopicOrderEvents.
type OrderEventPublisher struct {
	mq *MQ
}

func NewOrderEventPublisher(m *MQ) *OrderEventPublisher {
	return &OrderEventPublisher{mq: m}
}

// PublishOrderEvent encodes and sends event.
func (p *OrderEventPublisher) PublishOrderEvent(ctx context.Context, event OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode order event: %w", err)
	}
	_, err = p.mq.Publish(ctx, TopicOrderEvents, data, map[string]string{AttrType: event.Type})
	return err
}

// DecodeOrderEvent parses a message published by OrderEventPublisher.
func DecodeOrderEvent(msg Message) (OrderEvent, error) {
	var event OrderEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return OrderEvent{}, fmt.Errorf("decode order event: %w", err)
	}
	if event.Type == "" {
		event.Type = msg.Attributes[AttrType]
	}
	if event.Type == "" {
		return OrderEvent{}, errors.New("order event has no type")
	}
	return event, nil
}
