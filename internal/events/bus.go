package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Topics carried on the in-process bus. Publishing happens on the request
// path; subscribers run on their own goroutines, so fan-out work never
// delays the HTTP response.
const (
	TopicOrderPlaced   = "orders.placed"
	TopicOrderCanceled = "orders.canceled"
	TopicStockLow      = "stock.low"
)

// OrderEvent points a subscriber at an order; the dispatcher re-reads the
// record so it always works from current purchaser and admin contact data.
type OrderEvent struct {
	OrderCode string `json:"order_code"`
}

type StockLowEvent struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	Threshold int    `json:"threshold"`
}

// Publisher is the narrow interface the HTTP layer depends on.
type Publisher interface {
	Publish(topic string, payload any) error
}

// Bus wraps a gochannel Pub/Sub. There is no external broker; losing the
// process loses undelivered events, which is acceptable for best-effort
// notifications.
type Bus struct {
	pubSub *gochannel.GoChannel
}

func NewBus() *Bus {
	return &Bus{
		pubSub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, watermill.NopLogger{}),
	}
}

func (b *Bus) Publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return b.pubSub.Publish(topic, message.NewMessage(watermill.NewUUID(), data))
}

func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubSub.Subscribe(ctx, topic)
}

func (b *Bus) Close() error {
	return b.pubSub.Close()
}
