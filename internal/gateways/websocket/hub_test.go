package websocket

import (
	"testing"

	"chatserver/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHub() *Hub {
	return NewHub(zap.NewNop(), nil, nil, utils.NewEventBus())
}

func newTestClient(h *Hub, id string) *Client {
	c := &Client{
		hub:  h,
		send: make(chan outbound, 16),
		ID:   id,
	}
	h.addClient(c)
	return c
}

func received(t *testing.T, c *Client) []outbound {
	t.Helper()
	var out []outbound
	for {
		select {
		case env := <-c.send:
			out = append(out, env)
		default:
			return out
		}
	}
}

func TestFanOutToRoomChannel(t *testing.T) {
	h := newTestHub()
	inRoom := newTestClient(h, "a")
	alsoInRoom := newTestClient(h, "b")
	elsewhere := newTestClient(h, "c")

	h.JoinRoom(inRoom, 1)
	h.JoinRoom(alsoInRoom, 1)
	h.JoinRoom(elsewhere, 2)

	h.fanOut(utils.Event{Name: "newMessage", Room: 1, Data: "hello"})

	assert.Len(t, received(t, inRoom), 1, "sender's room peers get the event")
	assert.Len(t, received(t, alsoInRoom), 1)
	assert.Empty(t, received(t, elsewhere), "other rooms stay quiet")
}

func TestFanOutGlobal(t *testing.T) {
	h := newTestHub()
	a := newTestClient(h, "a")
	b := newTestClient(h, "b")
	h.JoinRoom(a, 1)
	// b never joined a room but still hears global announcements.

	h.fanOut(utils.Event{Name: "roomCreated", Room: 0, Data: "room"})

	require.Len(t, received(t, a), 1)
	require.Len(t, received(t, b), 1)
}

func TestFanOutExcludesSender(t *testing.T) {
	h := newTestHub()
	sender := newTestClient(h, "typist")
	peer := newTestClient(h, "peer")
	h.JoinRoom(sender, 1)
	h.JoinRoom(peer, 1)

	h.fanOut(utils.Event{Name: "userTyping", Room: 1, ExcludeID: "typist", Data: "..."})

	assert.Empty(t, received(t, sender), "typing never echoes to the sender")
	assert.Len(t, received(t, peer), 1)
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	h := newTestHub()
	c := newTestClient(h, "a")
	h.JoinRoom(c, 1)
	h.LeaveRoom(c, 1)

	h.fanOut(utils.Event{Name: "newMessage", Room: 1, Data: "x"})

	assert.Empty(t, received(t, c))
}

func TestRemoveClientReleasesMembership(t *testing.T) {
	h := newTestHub()
	c := newTestClient(h, "a")
	h.JoinRoom(c, 1)

	h.removeClient(c)

	h.mu.RLock()
	defer h.mu.RUnlock()
	assert.NotContains(t, h.clients, c)
	assert.Empty(t, h.rooms[uint64(1)])
}

func TestSlowClientIsSkippedNotBlocked(t *testing.T) {
	h := newTestHub()
	slow := &Client{hub: h, send: make(chan outbound), ID: "slow"}
	h.addClient(slow)
	h.JoinRoom(slow, 1)

	// An unbuffered, never-read channel must not wedge the fan-out.
	done := make(chan struct{})
	go func() {
		h.fanOut(utils.Event{Name: "newMessage", Room: 1, Data: "x"})
		close(done)
	}()
	<-done
}
