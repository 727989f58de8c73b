package message

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"chatserver/internal/app/room"
	"chatserver/internal/app/user"
	"chatserver/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	svc      Service
	repo     Repository
	roomRepo room.Repository
	userRepo user.Repository
	bus      *utils.EventBus
	db       *gorm.DB
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// The in-memory database exists per connection; pin the pool to
	// one so concurrent writers share the schema.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&room.Room{}, &user.User{}, &Message{}))

	bus := utils.NewEventBus()
	repo := NewRepository(db)
	roomRepo := room.NewRepository(db)
	userRepo := user.NewRepository(db)
	svc := NewService(repo, roomRepo, userRepo, nil, bus, zap.NewNop())

	return &fixture{
		svc:      svc,
		repo:     repo,
		roomRepo: roomRepo,
		userRepo: userRepo,
		bus:      bus,
		db:       db,
	}
}

// drain empties the event bus and returns what was published.
func (f *fixture) drain() []utils.Event {
	var events []utils.Event
	for {
		select {
		case ev := <-f.bus.Events():
			events = append(events, ev)
		default:
			return events
		}
	}
}

func (f *fixture) mustRoom(t *testing.T, name string, adminID *uint64) *room.Room {
	t.Helper()
	rm, err := f.roomRepo.CreateRoom(name, adminID)
	require.NoError(t, err)
	return rm
}

func (f *fixture) mustUser(t *testing.T, name string, isAdmin bool) *user.User {
	t.Helper()
	u, err := f.userRepo.CreateUser(name, isAdmin)
	require.NoError(t, err)
	return u
}

func TestPublishMessageValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rm := f.mustRoom(t, "general", nil)
	u := f.mustUser(t, "alice", false)

	_, err := f.svc.PublishMessage(ctx, rm.ID, u.ID, "", "", false)
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = f.svc.PublishMessage(ctx, rm.ID, 9999, "hi", "", false)
	assert.ErrorIs(t, err, user.ErrNotFound)

	_, err = f.svc.PublishMessage(ctx, 9999, u.ID, "hi", "", false)
	assert.ErrorIs(t, err, room.ErrNotFound)
}

func TestPublishMessageBroadcastsHydrated(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rm := f.mustRoom(t, "general", nil)
	u := f.mustUser(t, "alice", false)

	msg, err := f.svc.PublishMessage(ctx, rm.ID, u.ID, "hi", "", false)
	require.NoError(t, err)
	require.NotNil(t, msg.User)
	assert.Equal(t, "alice", msg.User.Name)
	assert.False(t, msg.IsAdmin)
	assert.Zero(t, msg.ReplyCount)

	events := f.drain()
	require.Len(t, events, 1)
	assert.Equal(t, "newMessage", events[0].Name)
	assert.Equal(t, rm.ID, events[0].Room)
}

func TestAdminFlagAsymmetry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	owner := f.mustUser(t, "owner", false)
	rm := f.mustRoom(t, "owned", &owner.ID)

	// Room ownership grants admin on top-level messages.
	msg, err := f.svc.PublishMessage(ctx, rm.ID, owner.ID, "mine", "", true)
	require.NoError(t, err)
	assert.True(t, msg.IsAdmin)

	// The same user requesting admin on a reply is downgraded.
	reply, err := f.svc.PublishThreadReply(ctx, rm.ID, msg.ID, owner.ID, "still mine", "", true)
	require.NoError(t, err)
	assert.False(t, reply.IsAdmin)

	// A global admin keeps the flag on replies.
	admin := f.mustUser(t, "root", true)
	adminReply, err := f.svc.PublishThreadReply(ctx, rm.ID, msg.ID, admin.ID, "ok", "", true)
	require.NoError(t, err)
	assert.True(t, adminReply.IsAdmin)
}

func TestNonAdminRequestIsDowngradedNotRejected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rm := f.mustRoom(t, "general", nil)
	u := f.mustUser(t, "bob", false)

	msg, err := f.svc.PublishMessage(ctx, rm.ID, u.ID, "hi", "", true)
	require.NoError(t, err)
	assert.False(t, msg.IsAdmin)
}

func TestThreadReplyCounter(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rm := f.mustRoom(t, "general", nil)
	u := f.mustUser(t, "alice", false)

	parent, err := f.svc.PublishMessage(ctx, rm.ID, u.ID, "root", "", false)
	require.NoError(t, err)

	r1, err := f.svc.PublishThreadReply(ctx, rm.ID, parent.ID, u.ID, "one", "", false)
	require.NoError(t, err)
	_, err = f.svc.PublishThreadReply(ctx, rm.ID, parent.ID, u.ID, "two", "", false)
	require.NoError(t, err)

	fresh, _, err := f.repo.FindMessageWithRoom(parent.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, fresh.ReplyCount)

	_, err = f.svc.DeleteMessage(ctx, r1.ID, u.ID)
	require.NoError(t, err)

	fresh, _, err = f.repo.FindMessageWithRoom(parent.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, fresh.ReplyCount)
}

func TestDoubleDeleteDecrementsOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rm := f.mustRoom(t, "general", nil)
	u := f.mustUser(t, "alice", false)

	parent, err := f.svc.PublishMessage(ctx, rm.ID, u.ID, "root", "", false)
	require.NoError(t, err)
	reply, err := f.svc.PublishThreadReply(ctx, rm.ID, parent.ID, u.ID, "gone soon", "", false)
	require.NoError(t, err)

	_, err = f.svc.DeleteMessage(ctx, reply.ID, u.ID)
	require.NoError(t, err)

	_, err = f.svc.DeleteMessage(ctx, reply.ID, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	fresh, _, err := f.repo.FindMessageWithRoom(parent.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, fresh.ReplyCount)
}

func TestNoNestedThreads(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rm := f.mustRoom(t, "general", nil)
	u := f.mustUser(t, "alice", false)

	parent, err := f.svc.PublishMessage(ctx, rm.ID, u.ID, "root", "", false)
	require.NoError(t, err)
	reply, err := f.svc.PublishThreadReply(ctx, rm.ID, parent.ID, u.ID, "flat", "", false)
	require.NoError(t, err)

	_, err = f.svc.PublishThreadReply(ctx, rm.ID, reply.ID, u.ID, "too deep", "", false)
	assert.ErrorIs(t, err, ErrNestedReply)
}

func TestDeleteAuthorization(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	roomAdmin := f.mustUser(t, "owner", false)
	rm := f.mustRoom(t, "owned", &roomAdmin.ID)
	author := f.mustUser(t, "author", false)
	bystander := f.mustUser(t, "bystander", false)
	globalAdmin := f.mustUser(t, "root", true)

	newMsg := func() *Message {
		m, err := f.svc.PublishMessage(ctx, rm.ID, author.ID, "target", "", false)
		require.NoError(t, err)
		return m
	}

	m := newMsg()
	_, err := f.svc.DeleteMessage(ctx, m.ID, bystander.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.DeleteMessage(ctx, m.ID, author.ID)
	assert.NoError(t, err)

	m = newMsg()
	_, err = f.svc.DeleteMessage(ctx, m.ID, roomAdmin.ID)
	assert.NoError(t, err)

	m = newMsg()
	_, err = f.svc.DeleteMessage(ctx, m.ID, globalAdmin.ID)
	assert.NoError(t, err)
}

func TestDeletionEvents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rm := f.mustRoom(t, "general", nil)
	u := f.mustUser(t, "alice", false)

	parent, err := f.svc.PublishMessage(ctx, rm.ID, u.ID, "root", "", false)
	require.NoError(t, err)
	reply, err := f.svc.PublishThreadReply(ctx, rm.ID, parent.ID, u.ID, "child", "", false)
	require.NoError(t, err)
	f.drain()

	del, err := f.svc.DeleteMessage(ctx, reply.ID, u.ID)
	require.NoError(t, err)
	require.NotNil(t, del.ParentID)
	assert.Equal(t, parent.ID, *del.ParentID)

	events := f.drain()
	require.Len(t, events, 1)
	assert.Equal(t, "threadMessageDeleted", events[0].Name)

	_, err = f.svc.DeleteMessage(ctx, parent.ID, u.ID)
	require.NoError(t, err)

	events = f.drain()
	require.Len(t, events, 1)
	assert.Equal(t, "messageDeleted", events[0].Name)
}

func TestJoinMessageIdempotency(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rm := f.mustRoom(t, "general", nil)

	msg, created, err := f.svc.EnsureJoinMessage(ctx, rm.ID, "alice")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, msg.IsSystem)
	assert.Nil(t, msg.UserID)
	assert.Equal(t, "alice has joined the room", msg.Text)

	// Rejoin storms must not spam the room.
	for i := 0; i < 5; i++ {
		_, created, err = f.svc.EnsureJoinMessage(ctx, rm.ID, "alice")
		require.NoError(t, err)
		assert.False(t, created)
	}

	var count int64
	f.db.Model(&Message{}).
		Where("room_id = ? AND is_system = ? AND text = ?", rm.ID, true, "alice has joined the room").
		Count(&count)
	assert.EqualValues(t, 1, count)

	// Exactly one broadcast for all six joins.
	events := f.drain()
	require.Len(t, events, 1)
	assert.Equal(t, "newMessage", events[0].Name)

	// A different user in the same room still gets a notice.
	_, created, err = f.svc.EnsureJoinMessage(ctx, rm.ID, "bob")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestRoomHistoryRoundTrip(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rm := f.mustRoom(t, "R", nil)
	alice := f.mustUser(t, "alice", false)

	_, _, err := f.svc.EnsureJoinMessage(ctx, rm.ID, "alice")
	require.NoError(t, err)
	_, err = f.svc.PublishMessage(ctx, rm.ID, alice.ID, "hi", "", false)
	require.NoError(t, err)

	// What a second joiner sees.
	history, err := f.svc.RoomHistory(ctx, rm.ID)
	require.NoError(t, err)

	var userMessages []*Message
	for _, m := range history {
		if !m.IsSystem {
			userMessages = append(userMessages, m)
		}
	}
	require.Len(t, userMessages, 1)
	assert.Equal(t, "hi", userMessages[0].Text)
	assert.EqualValues(t, 0, userMessages[0].ReplyCount)
	require.NotNil(t, userMessages[0].User)
	assert.Equal(t, "alice", userMessages[0].User.Name)
}

func TestRoomHistoryWindowAndOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rm := f.mustRoom(t, "busy", nil)
	u := f.mustUser(t, "alice", false)

	var parent *Message
	for i := 0; i < recentWindow+10; i++ {
		m, err := f.svc.PublishMessage(ctx, rm.ID, u.ID, fmt.Sprintf("msg-%03d", i), "", false)
		require.NoError(t, err)
		if i == recentWindow+5 {
			parent = m
		}
	}

	// Replies never show up in room history.
	_, err := f.svc.PublishThreadReply(ctx, rm.ID, parent.ID, u.ID, "hidden", "", false)
	require.NoError(t, err)

	history, err := f.svc.RoomHistory(ctx, rm.ID)
	require.NoError(t, err)
	require.Len(t, history, recentWindow)

	// Oldest first, and the window holds the newest entries.
	assert.Equal(t, "msg-010", history[0].Text)
	assert.Equal(t, fmt.Sprintf("msg-%03d", recentWindow+9), history[len(history)-1].Text)
	for _, m := range history {
		assert.Nil(t, m.ParentID)
	}

	// The replied-to message carries its count.
	for _, m := range history {
		if m.ID == parent.ID {
			assert.EqualValues(t, 1, m.ReplyCount)
		}
	}
}

func TestFetchThread(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rm := f.mustRoom(t, "general", nil)
	u := f.mustUser(t, "alice", false)

	parent, err := f.svc.PublishMessage(ctx, rm.ID, u.ID, "root", "", false)
	require.NoError(t, err)

	for _, text := range []string{"first", "second", "third"} {
		_, err = f.svc.PublishThreadReply(ctx, rm.ID, parent.ID, u.ID, text, "", false)
		require.NoError(t, err)
	}

	replies, err := f.svc.FetchThread(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, replies, 3)
	assert.Equal(t, "first", replies[0].Text)
	assert.Equal(t, "third", replies[2].Text)

	_, err = f.svc.FetchThread(ctx, 9999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestJoinNoticeUniqueUnderRacingInserts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rm := f.mustRoom(t, "general", nil)
	text := "alice has joined the room"

	// A competing writer committed the notice first, unseen by any
	// existence check this caller could have made.
	require.NoError(t, f.db.Create(&Message{RoomID: rm.ID, Text: text, IsSystem: true}).Error)

	msg, created, err := f.svc.EnsureJoinMessage(ctx, rm.ID, "alice")
	require.NoError(t, err)
	assert.False(t, created, "losing the insert race resolves to the existing notice")
	require.NotNil(t, msg)
	assert.Empty(t, f.drain(), "the loser broadcasts nothing")

	var count int64
	f.db.Model(&Message{}).Where("room_id = ? AND is_system = ?", rm.ID, true).Count(&count)
	assert.EqualValues(t, 1, count)

	// The index is the arbiter: a blind duplicate insert cannot land.
	err = f.db.Create(&Message{RoomID: rm.ID, Text: text, IsSystem: true}).Error
	assert.Error(t, err)

	// Only system notices are constrained; users may repeat themselves.
	u := f.mustUser(t, "alice", false)
	require.NoError(t, f.db.Create(&Message{RoomID: rm.ID, UserID: &u.ID, Text: "same words"}).Error)
	require.NoError(t, f.db.Create(&Message{RoomID: rm.ID, UserID: &u.ID, Text: "same words"}).Error)
}

func TestBroadcastOrderMatchesCommitOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	rm := f.mustRoom(t, "general", nil)
	u := f.mustUser(t, "alice", false)

	const writers = 20
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.PublishMessage(ctx, rm.ID, u.ID, fmt.Sprintf("m-%d", i), "", false)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	events := f.drain()
	require.Len(t, events, writers)

	// Commit order and bus order must agree within the room channel.
	var last uint64
	for _, ev := range events {
		msg, ok := ev.Data.(*Message)
		require.True(t, ok)
		assert.Greater(t, msg.ID, last)
		last = msg.ID
	}
}
