package usecase

import (
	"sync"
	"sync/atomic"
	"testing"

	"event-ticketing/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLedger_EndToEndScenario(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.svc.Ledger
	tierID := env.createTier(t, "General", "25.00", 2)

	// A reserves
	version, err := ledger.TryReserve(env.ctx, tierID, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// B reserves
	version, err = ledger.TryReserve(env.ctx, tierID, 1, version)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	// C is too late
	_, err = ledger.TryReserve(env.ctx, tierID, 1, version)
	assert.ErrorIs(t, err, ErrSoldOut)
	assert.Equal(t, 2, env.tier(t, tierID).Sold)

	// A cancels
	version, err = ledger.TryRelease(env.ctx, tierID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)
	assert.Equal(t, 1, env.tier(t, tierID).Sold)

	// D gets the freed unit
	version, err = ledger.TryReserve(env.ctx, tierID, 1, version)
	require.NoError(t, err)
	assert.Equal(t, int64(4), version)
	assert.Equal(t, 2, env.tier(t, tierID).Sold)
}

func TestLedger_StaleVersionConflicts(t *testing.T) {
	env := newTestEnv(t)
	tierID := env.createTier(t, "General", "25.00", 10)

	_, err := env.svc.Ledger.TryReserve(env.ctx, tierID, 1, 0)
	require.NoError(t, err)

	_, err = env.svc.Ledger.TryReserve(env.ctx, tierID, 1, 0)
	assert.ErrorIs(t, err, ErrConflict)

	tier := env.tier(t, tierID)
	assert.Equal(t, 1, tier.Sold)
	assert.Equal(t, int64(1), tier.Version)
	assert.NotNil(t, tier.FirstSaleAt)
}

func TestLedger_ReleaseFloorsAtZero(t *testing.T) {
	env := newTestEnv(t)
	tierID := env.createTier(t, "General", "25.00", 10)

	_, err := env.svc.Ledger.Reserve(env.ctx, tierID, 3)
	require.NoError(t, err)

	_, err = env.svc.Ledger.TryRelease(env.ctx, tierID, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, env.tier(t, tierID).Sold)

	// duplicate release
	version, err := env.svc.Ledger.TryRelease(env.ctx, tierID, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)
	assert.Equal(t, 0, env.tier(t, tierID).Sold)
}

func TestLedger_RejectsBadCounts(t *testing.T) {
	env := newTestEnv(t)
	tierID := env.createTier(t, "General", "25.00", 10)

	_, err := env.svc.Ledger.Reserve(env.ctx, tierID, 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.svc.Ledger.TryRelease(env.ctx, tierID, -1)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLedger_NoOversellUnderConcurrency(t *testing.T) {
	env := newTestEnv(t)
	tierID := env.createTier(t, "General", "25.00", 10)

	// Enough attempts that no caller gives up on conflicts
	ledger := NewLedgerService(env.repo.Tier, utils.InventoryConfig{MaxAttempts: 10000}, env.clock, zap.NewNop())

	const buyers = 50
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		soldOut   atomic.Int32
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Reserve(env.ctx, tierID, 1)
			switch {
			case err == nil:
				succeeded.Add(1)
			case assert.ErrorIs(t, err, ErrSoldOut):
				soldOut.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), succeeded.Load())
	assert.Equal(t, int32(buyers-10), soldOut.Load())

	tier := env.tier(t, tierID)
	assert.Equal(t, 10, tier.Sold)
	assert.Equal(t, int64(10), tier.Version)
}

func TestLedger_ReserveAllCompensates(t *testing.T) {
	env := newTestEnv(t)
	tierX := env.createTier(t, "Tier X", "20.00", 5)
	tierY := env.createTier(t, "Tier Y", "30.00", 1)

	_, err := env.svc.Ledger.Reserve(env.ctx, tierY, 1)
	require.NoError(t, err)

	err = env.svc.Ledger.ReserveAll(env.ctx, []Allocation{
		{TierID: tierX, Count: 2},
		{TierID: tierY, Count: 1},
	})
	assert.ErrorIs(t, err, ErrSoldOut)

	assert.Equal(t, 0, env.tier(t, tierX).Sold, "tier X must not keep stranded units")
	assert.Equal(t, 1, env.tier(t, tierY).Sold)
}
