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
	"github.com/shopspring/decimal"
)

type sessionStore struct{ *store }

func (s *sessionStore) Create(_ context.Context, session *entity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.Token]; ok {
		return repository.ErrDuplicate
	}
	s.sessions[session.Token] = *session
	return nil
}

func (s *sessionStore) FindValidSession(_ context.Context, token string) (*entity.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[token]
	if !ok || session.RevokedAt != nil || !s.clock.Now().Before(session.ExpiresAt) {
		return nil, nil
	}
	return &session, nil
}

func (s *sessionStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok || session.RevokedAt != nil {
		return repository.ErrNotFound
	}
	now := s.clock.Now()
	session.RevokedAt = &now
	s.sessions[token] = session
	return nil
}

func (s *sessionStore) CleanExpiredSessions(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.clock.Now().Add(-7 * 24 * time.Hour)
	for token, session := range s.sessions {
		if session.ExpiresAt.Before(cutoff) {
			delete(s.sessions, token)
		}
	}
	return nil
}

type eventStore struct{ *store }

func (s *eventStore) Create(_ context.Context, event *entity.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.ID]; ok {
		return repository.ErrDuplicate
	}
	s.events[event.ID] = *event
	return nil
}

func (s *eventStore) FindByID(_ context.Context, id uuid.UUID) (*entity.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[id]
	if !ok {
		return nil, nil
	}
	return &event, nil
}

type tierStore struct{ *store }

func copyTier(t entity.TicketTier) *entity.TicketTier {
	t.PricingTiers = slices.Clone(t.PricingTiers)
	return &t
}

func (s *tierStore) Create(_ context.Context, tier *entity.TicketTier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tiers[tier.ID]; ok {
		return repository.ErrDuplicate
	}
	s.tiers[tier.ID] = *copyTier(*tier)
	return nil
}

func (s *tierStore) FindByID(_ context.Context, id uuid.UUID) (*entity.TicketTier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tier, ok := s.tiers[id]
	if !ok {
		return nil, nil
	}
	return copyTier(tier), nil
}

func (s *tierStore) FindByEventID(_ context.Context, eventID uuid.UUID) ([]*entity.TicketTier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var tiers []*entity.TicketTier
	for _, t := range s.tiers {
		if t.EventID == eventID {
			tiers = append(tiers, copyTier(t))
		}
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].CreatedAt.Before(tiers[j].CreatedAt) })
	return tiers, nil
}

func (s *tierStore) CompareAndSetSold(_ context.Context, id uuid.UUID, expectedVersion int64, sold int, firstSaleAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tier, ok := s.tiers[id]
	if !ok || tier.Version != expectedVersion || sold < 0 || sold > tier.Quantity {
		return repository.ErrVersionConflict
	}
	tier.Sold = sold
	tier.Version++
	if tier.FirstSaleAt == nil && firstSaleAt != nil {
		at := *firstSaleAt
		tier.FirstSaleAt = &at
	}
	tier.UpdatedAt = s.clock.Now()
	s.tiers[id] = tier
	return nil
}

func (s *tierStore) Update(_ context.Context, tier *entity.TicketTier, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tiers[tier.ID]
	if !ok || stored.Version != expectedVersion || tier.Quantity < stored.Sold {
		return repository.ErrVersionConflict
	}
	stored.Name = tier.Name
	stored.Price = tier.Price
	stored.Quantity = tier.Quantity
	stored.SaleStart = tier.SaleStart
	stored.SaleEnd = tier.SaleEnd
	stored.SeatsPerUnit = tier.SeatsPerUnit
	stored.PricingTiers = slices.Clone(tier.PricingTiers)
	stored.IsActive = tier.IsActive
	stored.Version++
	stored.UpdatedAt = s.clock.Now()
	s.tiers[tier.ID] = stored

	tier.Version = stored.Version
	tier.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *tierStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tier, ok := s.tiers[id]
	if !ok || tier.Sold > 0 || s.tierReferenced(id) {
		return repository.ErrNotFound
	}
	delete(s.tiers, id)
	return nil
}

func (s *tierStore) tierReferenced(id uuid.UUID) bool {
	for _, items := range s.items {
		for _, item := range items {
			if item.TierID == id {
				return true
			}
		}
	}
	for _, t := range s.tickets {
		if t.TierID == id {
			return true
		}
	}
	for _, b := range s.bundles {
		for _, item := range b.Items {
			if item.TierID == id {
				return true
			}
		}
	}
	return false
}

type bundleStore struct{ *store }

func copyBundle(b entity.TicketBundle) *entity.TicketBundle {
	b.Items = slices.Clone(b.Items)
	return &b
}

func (s *bundleStore) Create(_ context.Context, bundle *entity.TicketBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bundles[bundle.ID]; ok {
		return repository.ErrDuplicate
	}
	s.bundles[bundle.ID] = *copyBundle(*bundle)
	return nil
}

func (s *bundleStore) FindByID(_ context.Context, id uuid.UUID) (*entity.TicketBundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bundle, ok := s.bundles[id]
	if !ok {
		return nil, nil
	}
	return copyBundle(bundle), nil
}

func (s *bundleStore) FindByEventID(_ context.Context, eventID uuid.UUID) ([]*entity.TicketBundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var bundles []*entity.TicketBundle
	for _, b := range s.bundles {
		if b.EventID == eventID {
			bundles = append(bundles, copyBundle(b))
		}
	}
	sort.Slice(bundles, func(i, j int) bool { return bundles[i].CreatedAt.Before(bundles[j].CreatedAt) })
	return bundles, nil
}

func (s *bundleStore) CompareAndSetSold(_ context.Context, id uuid.UUID, expectedVersion int64, sold int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bundle, ok := s.bundles[id]
	if !ok || bundle.Version != expectedVersion || sold < 0 || sold > bundle.TotalQuantity {
		return repository.ErrVersionConflict
	}
	bundle.Sold = sold
	bundle.Version++
	bundle.UpdatedAt = s.clock.Now()
	s.bundles[id] = bundle
	return nil
}

func (s *bundleStore) Update(_ context.Context, bundle *entity.TicketBundle, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.bundles[bundle.ID]
	if !ok || stored.Version != expectedVersion || bundle.TotalQuantity < stored.Sold {
		return repository.ErrVersionConflict
	}
	stored.Name = bundle.Name
	stored.Price = bundle.Price
	stored.TotalQuantity = bundle.TotalQuantity
	stored.RegularPrice = bundle.RegularPrice
	stored.Savings = bundle.Savings
	stored.SaleStart = bundle.SaleStart
	stored.SaleEnd = bundle.SaleEnd
	stored.IsActive = bundle.IsActive
	stored.Version++
	stored.UpdatedAt = s.clock.Now()
	s.bundles[bundle.ID] = stored

	bundle.Version = stored.Version
	bundle.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *bundleStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bundle, ok := s.bundles[id]
	if !ok || bundle.Sold > 0 {
		return repository.ErrNotFound
	}
	delete(s.bundles, id)
	return nil
}

type discountStore struct{ *store }

func (s *discountStore) Create(_ context.Context, code *entity.DiscountCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.discounts {
		if d.EventID == code.EventID && strings.EqualFold(d.Code, code.Code) {
			return repository.ErrDuplicate
		}
	}
	s.discounts[code.ID] = *code
	return nil
}

func (s *discountStore) FindByID(_ context.Context, id uuid.UUID) (*entity.DiscountCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.discounts[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (s *discountStore) FindByCode(_ context.Context, eventID uuid.UUID, code string) (*entity.DiscountCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.discounts {
		if d.EventID == eventID && strings.EqualFold(d.Code, code) {
			return &d, nil
		}
	}
	return nil, nil
}

func (s *discountStore) CompareAndSetUsed(_ context.Context, id uuid.UUID, expectedVersion int64, used int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.discounts[id]
	if !ok || d.Version != expectedVersion || (d.MaxUses != nil && used > *d.MaxUses) {
		return repository.ErrVersionConflict
	}
	d.UsedCount = max(used, 0)
	d.Version++
	d.UpdatedAt = s.clock.Now()
	s.discounts[id] = d
	return nil
}

type referralStore struct{ *store }

func (s *referralStore) Create(_ context.Context, code *entity.ReferralCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.referrals {
		if c.EventID == code.EventID && strings.EqualFold(c.Code, code.Code) {
			return repository.ErrDuplicate
		}
	}
	s.referrals[code.ID] = *code
	return nil
}

func (s *referralStore) FindByID(_ context.Context, id uuid.UUID) (*entity.ReferralCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.referrals[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *referralStore) FindByCode(_ context.Context, eventID uuid.UUID, code string) (*entity.ReferralCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.referrals {
		if c.EventID == eventID && strings.EqualFold(c.Code, code) {
			return &c, nil
		}
	}
	return nil, nil
}

func (s *referralStore) CompareAndSetSales(_ context.Context, id uuid.UUID, expectedVersion int64, ticketsSold int, commission decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.referrals[id]
	if !ok || c.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	c.TicketsSold = ticketsSold
	c.CommissionEarned = commission
	c.Version++
	c.UpdatedAt = s.clock.Now()
	s.referrals[id] = c
	return nil
}

type roomStore struct{ *store }

func (s *roomStore) CreateBlock(_ context.Context, block *entity.RoomBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blocks[block.ID]; ok {
		return repository.ErrDuplicate
	}
	s.blocks[block.ID] = *block
	return nil
}

func (s *roomStore) FindBlockByID(_ context.Context, id uuid.UUID) (*entity.RoomBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	block, ok := s.blocks[id]
	if !ok {
		return nil, nil
	}
	return &block, nil
}

func (s *roomStore) CompareAndSetHeld(_ context.Context, id uuid.UUID, expectedVersion int64, held int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	block, ok := s.blocks[id]
	if !ok || block.Version != expectedVersion || held < 0 || held > block.Quantity {
		return repository.ErrVersionConflict
	}
	block.Held = held
	block.Version++
	block.UpdatedAt = s.clock.Now()
	s.blocks[id] = block
	return nil
}

func (s *roomStore) CreateHold(_ context.Context, hold *entity.RoomHold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roomHolds[hold.ID]; ok {
		return repository.ErrDuplicate
	}
	s.roomHolds[hold.ID] = *hold
	return nil
}

func (s *roomStore) FindHoldByID(_ context.Context, id uuid.UUID) (*entity.RoomHold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hold, ok := s.roomHolds[id]
	if !ok {
		return nil, nil
	}
	return &hold, nil
}

func (s *roomStore) TransitionHold(_ context.Context, id uuid.UUID, from, to entity.RoomHoldStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hold, ok := s.roomHolds[id]
	if !ok || hold.Status != from {
		return false, nil
	}
	hold.Status = to
	s.roomHolds[id] = hold
	return true, nil
}

func (s *roomStore) FindExpiredHolds(_ context.Context, now time.Time, limit int) ([]*entity.RoomHold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var holds []*entity.RoomHold
	for _, h := range s.roomHolds {
		if h.Status == entity.RoomHoldPending && !now.Before(h.ExpiresAt) {
			hold := h
			holds = append(holds, &hold)
		}
	}
	sort.Slice(holds, func(i, j int) bool { return holds[i].ExpiresAt.Before(holds[j].ExpiresAt) })
	return paginate(holds, limit, 0), nil
}
