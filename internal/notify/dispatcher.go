package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/safar/go-shop-api/internal/events"
	"github.com/safar/go-shop-api/internal/invoice"
	"github.com/safar/go-shop-api/internal/models"
	"github.com/safar/go-shop-api/internal/store"
	"go.uber.org/zap"
)

// Event kinds recorded with each dispatch.
const (
	EventOrderPlaced   = "order_placed"
	EventOrderCanceled = "order_canceled"
	EventStockLow      = "stock_low"
)

// Result summarizes one fan-out: how many channels were attempted and how
// many succeeded. Channel failures never propagate to the mutation that
// triggered the dispatch.
type Result struct {
	Attempted int
	Succeeded int
}

func (r Result) Partial() bool { return r.Succeeded > 0 && r.Succeeded < r.Attempted }

// Dispatcher fans an order event out to customer email, admin email and
// WhatsApp. Channels are independent: one provider failing does not stop
// the others, and errors are logged, not returned to the order flow.
type Dispatcher struct {
	db          *sql.DB
	email       EmailSender
	text        TextSender
	logger      *zap.Logger
	adminEmails []string // fallback when no admin user carries an address
}

func NewDispatcher(db *sql.DB, email EmailSender, text TextSender, adminEmails []string, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		db:          db,
		email:       email,
		text:        text,
		logger:      logger,
		adminEmails: adminEmails,
	}
}

// Run consumes the bus until ctx is done. Each topic gets its own goroutine.
func (d *Dispatcher) Run(ctx context.Context, bus *events.Bus) error {
	topics := map[string]func(context.Context, *message.Message){
		events.TopicOrderPlaced:   d.handleOrderMessage(EventOrderPlaced),
		events.TopicOrderCanceled: d.handleOrderMessage(EventOrderCanceled),
		events.TopicStockLow:      d.handleStockLow,
	}

	for topic, handle := range topics {
		messages, err := bus.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		go func(topic string, handle func(context.Context, *message.Message)) {
			for msg := range messages {
				handle(ctx, msg)
				msg.Ack()
			}
		}(topic, handle)
	}

	return nil
}

func (d *Dispatcher) handleOrderMessage(kind string) func(context.Context, *message.Message) {
	return func(ctx context.Context, msg *message.Message) {
		var ev events.OrderEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			d.logger.Error("malformed order event", zap.Error(err))
			return
		}

		order, err := store.GetOrderByCode(ctx, d.db, ev.OrderCode)
		if err != nil {
			d.logger.Error("load order for dispatch", zap.String("order_code", ev.OrderCode), zap.Error(err))
			return
		}

		res := d.DispatchOrderEvent(ctx, order, kind)
		d.logger.Info("order notification dispatched",
			zap.String("order_code", order.Code),
			zap.String("event", kind),
			zap.Int("attempted", res.Attempted),
			zap.Int("succeeded", res.Succeeded))
	}
}

// DispatchOrderEvent performs the fan-out for one order event. The invoice
// is rendered first; if rendering fails the emails degrade to plain sends
// instead of blocking the whole notification.
func (d *Dispatcher) DispatchOrderEvent(ctx context.Context, order *models.Order, kind string) Result {
	var res Result

	pdf, err := invoice.Render(order)
	if err != nil {
		d.logger.Error("invoice rendering failed, sending without attachment",
			zap.String("order_code", order.Code), zap.Error(err))
		pdf = nil
	}

	name, email, phone := d.recipient(ctx, order)
	admins := d.adminRecipients(ctx)

	subject := fmt.Sprintf("Order %s %s", order.Code, strings.ReplaceAll(kind, "order_", ""))
	body := orderEmailBody(order, name, kind)

	if email != "" {
		res.Attempted++
		if d.trySend("email", order.Code, kind, email, func() error {
			return d.email.Send(EmailMessage{
				To:             email,
				Subject:        subject,
				Body:           body,
				Attachment:     pdf,
				AttachmentName: "invoice-" + order.Code + ".pdf",
			})
		}) {
			res.Succeeded++
		}
	}

	if len(admins.emails) > 0 {
		res.Attempted++
		if d.trySend("admin_email", order.Code, kind, admins.emails[0], func() error {
			return d.email.Send(EmailMessage{
				To:             admins.emails[0],
				Bcc:            admins.emails[1:],
				Subject:        "[admin] " + subject,
				Body:           body,
				Attachment:     pdf,
				AttachmentName: "invoice-" + order.Code + ".pdf",
			})
		}) {
			res.Succeeded++
		}
	}

	text := fmt.Sprintf("Order %s: %s. Total %s for %d item(s).",
		order.Code, strings.ReplaceAll(kind, "_", " "), order.TotalAmount.StringFixed(2), order.ItemCount)

	for _, to := range append(phoneList(phone), admins.phones...) {
		res.Attempted++
		if d.trySend("whatsapp", order.Code, kind, to, func() error {
			return d.text.Send(to, text)
		}) {
			res.Succeeded++
		}
	}

	return res
}

func (d *Dispatcher) handleStockLow(ctx context.Context, msg *message.Message) {
	var ev events.StockLowEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		d.logger.Error("malformed stock event", zap.Error(err))
		return
	}

	admins := d.adminRecipients(ctx)
	if len(admins.emails) == 0 {
		d.logger.Warn("low stock alert with no admin recipients", zap.Int64("product_id", ev.ProductID))
		return
	}

	body := fmt.Sprintf("<p>Product <b>%s</b> (id %d) is down to %d units (threshold %d).</p>",
		ev.Name, ev.ProductID, ev.Stock, ev.Threshold)

	d.trySend("admin_email", "", EventStockLow, admins.emails[0], func() error {
		return d.email.Send(EmailMessage{
			To:      admins.emails[0],
			Bcc:     admins.emails[1:],
			Subject: fmt.Sprintf("Low stock: %s", ev.Name),
			Body:    body,
		})
	})
}

// trySend runs one channel attempt, logs failures and records the outcome.
// It returns whether the attempt succeeded.
func (d *Dispatcher) trySend(channel, orderCode, event, recipient string, send func() error) bool {
	err := send()
	if err != nil {
		d.logger.Error("notification channel failed",
			zap.String("channel", channel),
			zap.String("recipient", recipient),
			zap.Error(err))
	}

	n := models.Notification{
		OrderCode: orderCode,
		Event:     event,
		Channel:   channel,
		Recipient: recipient,
		OK:        err == nil,
	}
	if err != nil {
		n.Detail = err.Error()
	}
	if recErr := store.RecordNotification(context.Background(), d.db, n); recErr != nil {
		d.logger.Error("record notification", zap.Error(recErr))
	}

	return err == nil
}

// recipient prefers the embedded guest contact and falls back to the stored
// purchaser record.
func (d *Dispatcher) recipient(ctx context.Context, order *models.Order) (name, email, phone string) {
	if order.Guest != nil {
		return order.Guest.Name, order.Guest.Email, order.Guest.Phone
	}
	if order.UserID == nil {
		return "", "", order.Phone
	}
	user, err := store.GetUser(ctx, d.db, *order.UserID)
	if err != nil {
		d.logger.Error("resolve purchaser contact", zap.Int64("user_id", *order.UserID), zap.Error(err))
		return "", "", order.Phone
	}
	phone = user.Phone
	if order.Phone != "" {
		phone = order.Phone
	}
	return user.Name, user.Email, phone
}

type adminSet struct {
	emails []string
	phones []string
}

// adminRecipients resolves the admin set at dispatch time.
func (d *Dispatcher) adminRecipients(ctx context.Context) adminSet {
	var set adminSet
	admins, err := store.ListAdmins(ctx, d.db)
	if err != nil {
		d.logger.Error("list admins for dispatch", zap.Error(err))
	}
	for _, a := range admins {
		if a.Email != "" {
			set.emails = append(set.emails, a.Email)
		}
		if a.Phone != "" {
			set.phones = append(set.phones, a.Phone)
		}
	}
	if len(set.emails) == 0 {
		set.emails = append(set.emails, d.adminEmails...)
	}
	return set
}

func phoneList(phone string) []string {
	if phone == "" {
		return nil
	}
	return []string{phone}
}

func orderEmailBody(order *models.Order, name, kind string) string {
	var b strings.Builder
	greeting := "Hello"
	if name != "" {
		greeting = "Hello " + name
	}
	fmt.Fprintf(&b, "<p>%s,</p>", greeting)
	switch kind {
	case EventOrderCanceled:
		fmt.Fprintf(&b, "<p>Your order <b>%s</b> was canceled.</p>", order.Code)
		if order.CancelReason != "" {
			fmt.Fprintf(&b, "<p>Reason: %s</p>", order.CancelReason)
		}
	default:
		fmt.Fprintf(&b, "<p>We received your order <b>%s</b>.</p>", order.Code)
	}
	fmt.Fprintf(&b, "<ul>")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "<li>%d x %s = %s</li>", item.Quantity, item.Name, item.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "</ul><p>Total: <b>%s</b></p>", order.TotalAmount.StringFixed(2))
	return b.String()
}
