package usecase

import (
	"testing"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/dto/request"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_DeleteTierKeepsReferencedTiers(t *testing.T) {
	env := newTestEnv(t)

	unused := env.createTier(t, "Unused", "10.00", 5)
	resp, err := env.svc.Catalog.DeleteTier(env.ctx, env.organizer, unused)
	require.NoError(t, err)
	assert.Nil(t, resp)
	gone, err := env.repo.Tier.FindByID(env.ctx, unused)
	require.NoError(t, err)
	assert.Nil(t, gone)

	// a pending order still points at the tier
	general := env.createTier(t, "General", "10.00", 5)
	created, err := env.svc.Order.CreateOrder(env.ctx, env.buyer, &request.CreateOrderRequest{
		EventID: env.eventID.String(), Items: buy(general, 2), PaymentMethod: "card",
	})
	require.NoError(t, err)

	resp, err = env.svc.Catalog.DeleteTier(env.ctx, env.organizer, general)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.False(t, resp.IsActive)

	completed, err := env.svc.Order.CompleteOrder(env.ctx, env.buyer, uuid.MustParse(created.ID), &request.CompleteOrderRequest{})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCompleted, completed.Status)
	assert.Equal(t, 2, env.tier(t, general).Sold)

	// so does a bundle
	bundled := env.createTier(t, "Bundled", "10.00", 5)
	_, err = env.svc.Bundle.CreateBundle(env.ctx, env.organizer, env.eventID, &request.CreateBundleRequest{
		Name:          "Pair",
		Price:         "18.00",
		Items:         []request.BundleItemRequest{{TierID: bundled.String(), Quantity: 2}},
		TotalQuantity: 2,
	})
	require.NoError(t, err)

	resp, err = env.svc.Catalog.DeleteTier(env.ctx, env.organizer, bundled)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.False(t, env.tier(t, bundled).IsActive)

	_, err = env.svc.Catalog.DeleteTier(env.ctx, env.buyer, bundled)
	assert.ErrorIs(t, err, ErrForbidden)
}
