package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestBusRoundTrip(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := bus.Subscribe(ctx, TopicOrderPlaced)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := bus.Publish(TopicOrderPlaced, OrderEvent{OrderCode: "ORD-1-abc"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-messages:
		var ev OrderEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			t.Fatalf("Unmarshal payload: %v", err)
		}
		if ev.OrderCode != "ORD-1-abc" {
			t.Errorf("Expected ORD-1-abc, got %s", ev.OrderCode)
		}
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("No message received")
	}
}

func TestBusTopicsAreIndependent(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	placed, err := bus.Subscribe(ctx, TopicOrderPlaced)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := bus.Publish(TopicStockLow, StockLowEvent{ProductID: 1, Stock: 2, Threshold: 5}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-placed:
		t.Errorf("Unexpected message on orders.placed: %s", msg.Payload)
	case <-time.After(200 * time.Millisecond):
	}
}
