package room

import (
	"context"
	"testing"

	"chatserver/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setup(t *testing.T) (Service, *utils.EventBus) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Room{}))

	bus := utils.NewEventBus()
	return NewService(NewRepository(db), nil, bus, zap.NewNop()), bus
}

func TestCreateRoomBroadcastsToEveryone(t *testing.T) {
	svc, bus := setup(t)
	ctx := context.Background()

	adminID := uint64(7)
	rm, err := svc.CreateRoom(ctx, "general", &adminID)
	require.NoError(t, err)
	require.NotNil(t, rm.AdminID)
	assert.EqualValues(t, 7, *rm.AdminID)

	ev := <-bus.Events()
	assert.Equal(t, "roomCreated", ev.Name)
	assert.Zero(t, ev.Room, "room creation is a global announcement")
}

func TestCreateRoomRequiresName(t *testing.T) {
	svc, _ := setup(t)

	_, err := svc.CreateRoom(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestGetRoomByID(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	rm, err := svc.CreateRoom(ctx, "general", nil)
	require.NoError(t, err)

	found, err := svc.GetRoomByID(ctx, rm.ID)
	require.NoError(t, err)
	assert.Equal(t, "general", found.Name)

	_, err = svc.GetRoomByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRoom(t *testing.T) {
	svc, bus := setup(t)
	ctx := context.Background()

	rm, err := svc.CreateRoom(ctx, "doomed", nil)
	require.NoError(t, err)
	<-bus.Events() // roomCreated

	require.NoError(t, svc.DeleteRoom(ctx, rm.ID))

	// Removal only requires existence and is never broadcast.
	select {
	case ev := <-bus.Events():
		t.Fatalf("unexpected broadcast %q after room delete", ev.Name)
	default:
	}

	assert.ErrorIs(t, svc.DeleteRoom(ctx, rm.ID), ErrNotFound)
}

func TestGetAllRoomsNewestFirst(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	first, err := svc.CreateRoom(ctx, "first", nil)
	require.NoError(t, err)
	second, err := svc.CreateRoom(ctx, "second", nil)
	require.NoError(t, err)

	rooms, err := svc.GetAllRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	// Newest first; equal timestamps keep both present either way.
	ids := []uint64{rooms[0].ID, rooms[1].ID}
	assert.ElementsMatch(t, []uint64{first.ID, second.ID}, ids)
}
