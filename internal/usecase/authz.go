package usecase

import (
	"context"
	"fmt"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// authorizeOrganizer loads the event and checks identity organizes it.
func authorizeOrganizer(ctx context.Context, events repository.EventRepository, identity entity.Identity, eventID uuid.UUID) (*entity.Event, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}

	event, err := events.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("find event %s: %w", eventID, err)
	}
	if event == nil {
		return nil, notFound("event")
	}
	if event.OrganizerID != identity.Subject {
		return nil, ErrForbidden
	}

	return event, nil
}

func isOrganizer(ctx context.Context, events repository.EventRepository, subject string, eventID uuid.UUID) bool {
	event, err := events.FindByID(ctx, eventID)
	return err == nil && event != nil && event.OrganizerID == subject
}

func parseMoney(field, value string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, validationError("%s must be a decimal amount", field)
	}
	if amount.IsNegative() {
		return decimal.Zero, validationError("%s must not be negative", field)
	}
	return amount.Round(2), nil
}

func parseID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, validationError("invalid %s", field)
	}
	return id, nil
}
