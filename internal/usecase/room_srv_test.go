package usecase

import (
	"testing"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/dto/request"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRooms_HoldConfirmRelease(t *testing.T) {
	env := newTestEnv(t)
	block, err := env.svc.Catalog.CreateRoomBlock(env.ctx, env.organizer, env.eventID, &request.CreateRoomBlockRequest{
		Name:     "Hotel Norte",
		Quantity: 5,
	})
	require.NoError(t, err)
	blockID := uuid.MustParse(block.ID)

	first, err := env.svc.Rooms.HoldRooms(env.ctx, env.buyer, blockID, &request.HoldRoomsRequest{Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, entity.RoomHoldPending, first.Status)

	_, err = env.svc.Rooms.HoldRooms(env.ctx, env.buyer, blockID, &request.HoldRoomsRequest{Quantity: 3})
	assert.ErrorIs(t, err, ErrSoldOut)

	second, err := env.svc.Rooms.HoldRooms(env.ctx, env.buyer, blockID, &request.HoldRoomsRequest{Quantity: 2})
	require.NoError(t, err)

	confirmed, err := env.svc.Rooms.ConfirmRooms(env.ctx, env.buyer, uuid.MustParse(first.ID))
	require.NoError(t, err)
	assert.Equal(t, entity.RoomHoldConfirmed, confirmed.Status)

	_, err = env.svc.Rooms.ReleaseRooms(env.ctx, env.buyer, uuid.MustParse(first.ID))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stranger := entity.Identity{Subject: "stranger"}
	_, err = env.svc.Rooms.ReleaseRooms(env.ctx, stranger, uuid.MustParse(second.ID))
	assert.ErrorIs(t, err, ErrForbidden)

	// the organizer may release any hold of the block
	released, err := env.svc.Rooms.ReleaseRooms(env.ctx, env.organizer, uuid.MustParse(second.ID))
	require.NoError(t, err)
	assert.Equal(t, entity.RoomHoldReleased, released.Status)

	got, err := env.svc.Rooms.GetBlock(env.ctx, blockID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Held)
	assert.Equal(t, 2, got.Available)

	_, err = env.svc.Rooms.GetBlock(env.ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRooms_ConfirmAfterDeadlineFails(t *testing.T) {
	env := newTestEnv(t)
	block, err := env.svc.Catalog.CreateRoomBlock(env.ctx, env.organizer, env.eventID, &request.CreateRoomBlockRequest{
		Name:     "Hotel Sur",
		Quantity: 2,
	})
	require.NoError(t, err)
	blockID := uuid.MustParse(block.ID)

	hold, err := env.svc.Rooms.HoldRooms(env.ctx, env.buyer, blockID, &request.HoldRoomsRequest{Quantity: 2})
	require.NoError(t, err)

	// the sweeper has not run yet
	env.clock.Advance(env.cfg.Inventory.RoomHoldTTL + time.Minute)
	_, err = env.svc.Rooms.ConfirmRooms(env.ctx, env.buyer, uuid.MustParse(hold.ID))
	assert.ErrorIs(t, err, ErrOrderExpired)

	got, err := env.svc.Rooms.GetBlock(env.ctx, blockID)
	require.NoError(t, err)
	assert.Zero(t, got.Held)

	stored, err := env.repo.Room.FindHoldByID(env.ctx, uuid.MustParse(hold.ID))
	require.NoError(t, err)
	assert.Equal(t, entity.RoomHoldReleased, stored.Status)

	// the rooms are free for the next guest
	_, err = env.svc.Rooms.HoldRooms(env.ctx, env.buyer, blockID, &request.HoldRoomsRequest{Quantity: 2})
	require.NoError(t, err)
}
