package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"

	"github.com/google/uuid"
)

type orderStore struct{ *store }

func copyOrder(o entity.Order) *entity.Order {
	o.Seats = slices.Clone(o.Seats)
	return &o
}

func (s *orderStore) Create(_ context.Context, order *entity.Order, items []*entity.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.ID]; ok {
		return repository.ErrDuplicate
	}
	s.orders[order.ID] = *copyOrder(*order)
	stored := make([]entity.OrderItem, 0, len(items))
	for _, item := range items {
		stored = append(stored, *item)
	}
	s.items[order.ID] = stored
	return nil
}

func (s *orderStore) FindByID(_ context.Context, id uuid.UUID) (*entity.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	return copyOrder(order), nil
}

func (s *orderStore) buyerOrders(buyerID string) []*entity.Order {
	var orders []*entity.Order
	for _, o := range s.orders {
		if o.BuyerID == buyerID {
			orders = append(orders, copyOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders
}

func (s *orderStore) FindByBuyer(_ context.Context, buyerID string, limit, offset int) ([]*entity.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paginate(s.buyerOrders(buyerID), limit, offset), nil
}

func (s *orderStore) CountByBuyer(_ context.Context, buyerID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.buyerOrders(buyerID))), nil
}

func (s *orderStore) FindItems(_ context.Context, orderID uuid.UUID) ([]*entity.OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.items[orderID]
	items := make([]*entity.OrderItem, 0, len(stored))
	for i := range stored {
		item := stored[i]
		items = append(items, &item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	return items, nil
}

func (s *orderStore) CompareAndSwap(_ context.Context, order *entity.Order, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.orders[order.ID]
	if !ok || stored.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	stored.Status = order.Status
	stored.PaymentMethod = order.PaymentMethod
	stored.PaymentReference = order.PaymentReference
	stored.ActivatedTickets = order.ActivatedTickets
	stored.HoldExpiresAt = order.HoldExpiresAt
	stored.CompletedAt = order.CompletedAt
	stored.CancelledAt = order.CancelledAt
	stored.ProcessingFee = order.ProcessingFee
	stored.Total = order.Total
	stored.Version++
	stored.UpdatedAt = s.clock.Now()
	s.orders[order.ID] = stored

	order.Version = stored.Version
	order.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *orderStore) FindExpiredCashOrders(_ context.Context, now time.Time, limit int) ([]*entity.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var orders []*entity.Order
	for _, o := range s.orders {
		if o.Status == entity.OrderStatusPendingPayment && o.HoldExpiresAt != nil && o.HoldExpiresAt.Before(now) {
			orders = append(orders, copyOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].HoldExpiresAt.Before(*orders[j].HoldExpiresAt) })
	return paginate(orders, limit, 0), nil
}

type ticketStore struct{ *store }

func (s *ticketStore) CreateBatch(_ context.Context, tickets []*entity.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tickets {
		if _, ok := s.tickets[t.ID]; ok {
			continue
		}
		if t.Code != nil {
			for _, existing := range s.tickets {
				if existing.Code != nil && *existing.Code == *t.Code {
					return repository.ErrDuplicate
				}
			}
		}
		s.tickets[t.ID] = *t
	}
	return nil
}

func (s *ticketStore) FindByID(_ context.Context, id uuid.UUID) (*entity.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *ticketStore) FindByCode(_ context.Context, code string) (*entity.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tickets {
		if t.Code != nil && *t.Code == code {
			return &t, nil
		}
	}
	return nil, nil
}

func (s *ticketStore) filter(match func(entity.Ticket) bool) []*entity.Ticket {
	var tickets []*entity.Ticket
	for _, t := range s.tickets {
		if match(t) {
			ticket := t
			tickets = append(tickets, &ticket)
		}
	}
	sort.Slice(tickets, func(i, j int) bool {
		if !tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].CreatedAt.Before(tickets[j].CreatedAt)
		}
		return tickets[i].ID.String() < tickets[j].ID.String()
	})
	return tickets
}

func (s *ticketStore) FindByOrderID(_ context.Context, orderID uuid.UUID) ([]*entity.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(t entity.Ticket) bool {
		return t.OrderID != nil && *t.OrderID == orderID
	}), nil
}

func (s *ticketStore) FindPendingActivationByBuyerEmail(_ context.Context, email string) ([]*entity.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(t entity.Ticket) bool {
		if t.Status != entity.TicketStatusPendingActivation || t.OrderID == nil {
			return false
		}
		order, ok := s.orders[*t.OrderID]
		return ok && strings.EqualFold(order.BuyerEmail, email)
	}), nil
}

func (s *ticketStore) FindLiveByCancelledOrders(_ context.Context, limit int) ([]*entity.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tickets := s.filter(func(t entity.Ticket) bool {
		if t.Status != entity.TicketStatusPendingActivation && t.Status != entity.TicketStatusValid {
			return false
		}
		if t.OrderID == nil {
			return false
		}
		order, ok := s.orders[*t.OrderID]
		return ok && order.Status == entity.OrderStatusCancelled
	})
	return paginate(tickets, limit, 0), nil
}

func (s *ticketStore) CompareAndSetStatus(_ context.Context, ticket *entity.Ticket, from entity.TicketStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tickets[ticket.ID]
	if !ok || stored.Status != from {
		return repository.ErrVersionConflict
	}
	stored.Status = ticket.Status
	stored.Code = ticket.Code
	stored.ActivatedAt = ticket.ActivatedAt
	stored.ScannedAt = ticket.ScannedAt
	stored.CancelledAt = ticket.CancelledAt
	stored.UpdatedAt = s.clock.Now()
	s.tickets[ticket.ID] = stored

	ticket.UpdatedAt = stored.UpdatedAt
	return nil
}
