package usecase

import (
	"context"

	"event-ticketing/internal/data/entity"

	"go.uber.org/zap"
)

// Notifier delivers purchase confirmations. Failures are logged by the
// caller and never undo the order.
type Notifier interface {
	OrderCompleted(ctx context.Context, order *entity.Order, tickets []*entity.Ticket) error
	BundlePurchased(ctx context.Context, order *entity.Order, bundle *entity.TicketBundle) error
}

// LogNotifier writes notifications to the log instead of sending them.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log.With(zap.String("service", "notifier"))}
}

func (n *LogNotifier) OrderCompleted(_ context.Context, order *entity.Order, tickets []*entity.Ticket) error {
	n.log.Info("Order confirmation",
		zap.String("order_number", order.OrderNumber),
		zap.String("email", order.BuyerEmail),
		zap.Int("tickets", len(tickets)),
		zap.String("total", order.Total.StringFixed(2)),
	)
	return nil
}

func (n *LogNotifier) BundlePurchased(_ context.Context, order *entity.Order, bundle *entity.TicketBundle) error {
	n.log.Info("Bundle purchase confirmation",
		zap.String("order_number", order.OrderNumber),
		zap.String("email", order.BuyerEmail),
		zap.String("bundle", bundle.Name),
		zap.Int("quantity", order.BundleQuantity),
	)
	return nil
}
