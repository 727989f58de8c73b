package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v uint64) *uint64 { return &v }

func TestCanSendAdminMessage(t *testing.T) {
	t.Run("global admin gets the flag", func(t *testing.T) {
		assert.True(t, CanSendAdminMessage(1, true, nil, true))
	})

	t.Run("room admin gets the flag", func(t *testing.T) {
		assert.True(t, CanSendAdminMessage(7, false, ptr(7), true))
	})

	t.Run("plain user is downgraded", func(t *testing.T) {
		assert.False(t, CanSendAdminMessage(7, false, ptr(8), true))
		assert.False(t, CanSendAdminMessage(7, false, nil, true))
	})

	t.Run("not requested means not admin", func(t *testing.T) {
		assert.False(t, CanSendAdminMessage(1, true, ptr(1), false))
	})
}

func TestCanSendAdminReplyAsymmetry(t *testing.T) {
	// Room ownership counts for top-level messages but not for
	// replies. Both branches pinned down explicitly.
	roomAdmin := ptr(7)

	assert.True(t, CanSendAdminMessage(7, false, roomAdmin, true),
		"room admin sends admin top-level messages")
	assert.False(t, CanSendAdminReply(false, true),
		"the same room admin gets a non-admin reply")
	assert.True(t, CanSendAdminReply(true, true),
		"a global admin keeps the flag on replies")
	assert.False(t, CanSendAdminReply(true, false))
}

func TestCanDeleteMessage(t *testing.T) {
	author := ptr(10)
	roomAdmin := ptr(20)

	assert.True(t, CanDeleteMessage(10, false, author, roomAdmin), "author")
	assert.True(t, CanDeleteMessage(20, false, author, roomAdmin), "room admin")
	assert.True(t, CanDeleteMessage(99, true, author, roomAdmin), "global admin")
	assert.False(t, CanDeleteMessage(30, false, author, roomAdmin), "bystander")
	assert.False(t, CanDeleteMessage(30, false, nil, nil), "system message, no room admin")
}

func TestCanGrantAdmin(t *testing.T) {
	assert.True(t, CanGrantAdmin("123456", "123456"))
	assert.False(t, CanGrantAdmin("wrong", "123456"))
	assert.False(t, CanGrantAdmin("", "123456"))
	assert.False(t, CanGrantAdmin("123456", ""))
}
