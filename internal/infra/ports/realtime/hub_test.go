package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/qrave1/RoomMeet/internal/domain/events"
	"github.com/qrave1/RoomMeet/internal/domain/models"
)

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.URL.Query().Get("user"))
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		hub.Serve(r.Context(), ws, userID)
	}))

	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
	})

	return srv
}

func dial(t *testing.T, srv *httptest.Server, userID uuid.UUID) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + userID.String()

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	t.Cleanup(func() { _ = ws.Close() })

	return ws
}

func send(t *testing.T, ws *websocket.Conn, msgType string, data any) {
	t.Helper()

	b, err := events.Encode(msgType, data)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func read(t *testing.T, ws *websocket.Conn) events.Message {
	t.Helper()

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg events.Message
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}

	return msg
}

func expectSilence(t *testing.T, ws *websocket.Conn) {
	t.Helper()

	_ = ws.SetReadDeadline(time.Now().Add(150 * time.Millisecond))

	var msg events.Message
	if err := ws.ReadJSON(&msg); err == nil {
		t.Fatalf("unexpected message %q", msg.Type)
	}
}

func joinRoom(t *testing.T, ws *websocket.Conn, meetingID uuid.UUID) {
	t.Helper()

	send(t, ws, events.TypeJoin, events.RoomEvent{MeetingID: meetingID})

	ack := read(t, ws)
	if ack.Type != events.TypeJoined {
		t.Fatalf("ack = %q", ack.Type)
	}

	var room events.RoomEvent
	if err := json.Unmarshal(ack.Data, &room); err != nil || room.MeetingID != meetingID {
		t.Fatalf("ack data = %s", ack.Data)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}

		time.Sleep(10 * time.Millisecond)
	}
}

func TestBroadcastReachesOnlyRoomMembers(t *testing.T) {
	hub := NewHub(DefaultOptions())
	srv := newTestServer(t, hub)
	roomA, roomB := uuid.New(), uuid.New()

	a1 := dial(t, srv, uuid.New())
	a2 := dial(t, srv, uuid.New())
	b1 := dial(t, srv, uuid.New())

	joinRoom(t, a1, roomA)
	joinRoom(t, a2, roomA)
	joinRoom(t, b1, roomB)

	// повторный join не дублирует членство
	joinRoom(t, a1, roomA)

	if n := hub.RoomSize(roomA); n != 2 {
		t.Fatalf("room size = %d", n)
	}

	actor := uuid.New()

	err := hub.Broadcast(context.Background(), roomA, events.HandRaised, events.Payload{
		MeetingID: roomA,
		UserID:    actor,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	for _, ws := range []*websocket.Conn{a1, a2} {
		msg := read(t, ws)
		if msg.Type != events.HandRaised {
			t.Fatalf("type = %q", msg.Type)
		}

		var payload events.Payload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			t.Fatalf("payload: %v", err)
		}

		if payload.MeetingID != roomA || payload.UserID != actor || payload.Timestamp.IsZero() {
			t.Fatalf("payload = %+v", payload)
		}
	}

	expectSilence(t, a1)
	expectSilence(t, b1)
}

func TestLeaveAndDisconnectCleanRooms(t *testing.T) {
	hub := NewHub(DefaultOptions())
	srv := newTestServer(t, hub)
	meetingID := uuid.New()

	c1 := dial(t, srv, uuid.New())
	c2 := dial(t, srv, uuid.New())

	joinRoom(t, c1, meetingID)
	joinRoom(t, c2, meetingID)

	send(t, c1, events.TypeLeave, events.RoomEvent{MeetingID: meetingID})

	if ack := read(t, c1); ack.Type != events.TypeLeft {
		t.Fatalf("leave ack = %q", ack.Type)
	}

	if n := hub.RoomSize(meetingID); n != 1 {
		t.Fatalf("room size after leave = %d", n)
	}

	_ = c2.Close()

	waitFor(t, func() bool { return hub.RoomSize(meetingID) == 0 })

	hub.mu.RLock()
	_, exists := hub.rooms[meetingID]
	hub.mu.RUnlock()

	if exists {
		t.Fatal("empty room must be discarded")
	}
}

func TestPingAndErrors(t *testing.T) {
	hub := NewHub(DefaultOptions())
	srv := newTestServer(t, hub)
	ws := dial(t, srv, uuid.New())

	send(t, ws, events.TypePing, nil)

	if msg := read(t, ws); msg.Type != events.TypePong {
		t.Fatalf("ping reply = %q", msg.Type)
	}

	send(t, ws, "dance", nil)

	if msg := read(t, ws); msg.Type != events.TypeError {
		t.Fatalf("unknown type reply = %q", msg.Type)
	}

	send(t, ws, events.TypeJoin, map[string]string{})

	msg := read(t, ws)

	var e events.ErrorEvent
	if err := json.Unmarshal(msg.Data, &e); msg.Type != events.TypeError || err != nil || e.Message == "" {
		t.Fatalf("join without meeting = %q %s", msg.Type, msg.Data)
	}
}

func TestSendToUserReconnection(t *testing.T) {
	hub := NewHub(DefaultOptions())
	srv := newTestServer(t, hub)
	userID, other := uuid.New(), uuid.New()

	mine := dial(t, srv, userID)
	theirs := dial(t, srv, other)

	waitFor(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()

		return len(hub.users[userID]) == 1 && len(hub.users[other]) == 1
	})

	hub.ReconnectionExhausted(models.ReconnectionState{UserID: userID, MeetingID: uuid.New(), AttemptCount: 10, MaxAttempts: 10})

	msg := read(t, mine)
	if msg.Type != events.ReconnectExhausted {
		t.Fatalf("type = %q", msg.Type)
	}

	var payload events.Payload
	if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.Reconnection == nil || payload.Reconnection.AttemptCount != 10 {
		t.Fatalf("payload = %s", msg.Data)
	}

	expectSilence(t, theirs)
}

func TestSlowConnectionIsDroppedWithoutBlocking(t *testing.T) {
	hub := NewHub(Options{SendBuffer: 1})
	meetingID := uuid.New()

	slow := newConn(nil, uuid.New(), 1)
	fast := newConn(nil, uuid.New(), 8)

	hub.register(slow)
	hub.register(fast)

	hub.mu.Lock()
	hub.rooms[meetingID] = map[*Conn]struct{}{slow: {}, fast: {}}
	slow.rooms[meetingID] = struct{}{}
	fast.rooms[meetingID] = struct{}{}
	hub.mu.Unlock()

	if res := hub.Publish(meetingID, []byte(`{}`)); res.SendTo != 2 || res.Dropped != 0 {
		t.Fatalf("first publish = %+v", res)
	}

	res := hub.Publish(meetingID, []byte(`{}`))
	if res.SendTo != 1 || res.Dropped != 1 {
		t.Fatalf("second publish = %+v", res)
	}

	select {
	case <-slow.Done():
	default:
		t.Fatal("slow connection must be closed")
	}

	hub.unregister(slow)

	if n := hub.RoomSize(meetingID); n != 1 {
		t.Fatalf("room size = %d", n)
	}
}
