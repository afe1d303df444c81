package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/qrave1/RoomMeet/internal/application/constant"
	"github.com/qrave1/RoomMeet/internal/application/metric"
	"github.com/qrave1/RoomMeet/internal/domain/events"
	"github.com/qrave1/RoomMeet/internal/domain/models"
)

const maxMessageSize = 64 << 10

type Options struct {
	PingInterval time.Duration
	PongTimeout  time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
}

func DefaultOptions() Options {
	return Options{
		PingInterval: 30 * time.Second,
		PongTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
		SendBuffer:   256,
	}
}

// PublishResult - итог рассылки в комнату
type PublishResult struct {
	SendTo  int
	Dropped int
}

// Hub держит комнаты встреч и рассылает в них события
type Hub struct {
	opts Options

	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*Conn]struct{}
	users map[uuid.UUID]map[*Conn]struct{}
}

func NewHub(opts Options) *Hub {
	return &Hub{
		opts:  opts,
		rooms: make(map[uuid.UUID]map[*Conn]struct{}),
		users: make(map[uuid.UUID]map[*Conn]struct{}),
	}
}

// Serve обслуживает аутентифицированное соединение до его закрытия или отмены ctx
func (h *Hub) Serve(ctx context.Context, ws *websocket.Conn, userID uuid.UUID) {
	c := newConn(ws, userID, h.opts.SendBuffer)

	h.register(c)
	defer h.unregister(c)

	go h.writePump(c)

	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()

	h.readPump(c)
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.users[c.UserID] == nil {
		h.users[c.UserID] = make(map[*Conn]struct{})
	}

	h.users[c.UserID][c] = struct{}{}

	metric.IncrementWSActiveConnections()

	slog.Debug("realtime connection opened", slog.Any(constant.UserID, c.UserID), slog.Any(constant.ConnID, c.ID))
}

// unregister - общий путь для отключения, ошибки чтения и таймаута
func (h *Hub) unregister(c *Conn) {
	c.Close()

	h.mu.Lock()
	defer h.mu.Unlock()

	for meetingID := range c.rooms {
		h.removeFromRoom(c, meetingID)
	}

	if conns, ok := h.users[c.UserID]; ok {
		delete(conns, c)

		if len(conns) == 0 {
			delete(h.users, c.UserID)
		}
	}

	metric.DecrementWSActiveConnections()

	slog.Debug("realtime connection closed", slog.Any(constant.UserID, c.UserID), slog.Any(constant.ConnID, c.ID))
}

// JoinRoom идемпотентен
func (h *Hub) JoinRoom(c *Conn, meetingID uuid.UUID) {
	h.mu.Lock()

	if h.rooms[meetingID] == nil {
		h.rooms[meetingID] = make(map[*Conn]struct{})
	}

	h.rooms[meetingID][c] = struct{}{}
	c.rooms[meetingID] = struct{}{}

	h.mu.Unlock()

	h.reply(c, events.TypeJoined, events.RoomEvent{MeetingID: meetingID})
}

func (h *Hub) LeaveRoom(c *Conn, meetingID uuid.UUID) {
	h.mu.Lock()
	h.removeFromRoom(c, meetingID)
	h.mu.Unlock()

	h.reply(c, events.TypeLeft, events.RoomEvent{MeetingID: meetingID})
}

// removeFromRoom вызывается под h.mu. Пустая комната удаляется.
func (h *Hub) removeFromRoom(c *Conn, meetingID uuid.UUID) {
	delete(c.rooms, meetingID)

	members, ok := h.rooms[meetingID]
	if !ok {
		return
	}

	delete(members, c)

	if len(members) == 0 {
		delete(h.rooms, meetingID)
	}
}

func (h *Hub) RoomSize(meetingID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms[meetingID])
}

// Broadcast реализует usecase.Broadcaster
func (h *Hub) Broadcast(_ context.Context, meetingID uuid.UUID, event string, payload events.Payload) error {
	data, err := events.Encode(event, payload)
	if err != nil {
		return err
	}

	res := h.Publish(meetingID, data)

	metric.IncBroadcastEvent(event)

	slog.Debug(
		"meeting event broadcast",
		slog.Any(constant.MeetingID, meetingID),
		slog.String(constant.Event, event),
		slog.Int("send_to", res.SendTo),
		slog.Int("dropped", res.Dropped),
	)

	return nil
}

// Publish ставит готовое сообщение в очередь каждому участнику комнаты.
// Медленное соединение не задерживает остальных: при полном буфере оно закрывается.
func (h *Hub) Publish(meetingID uuid.UUID, data []byte) PublishResult {
	h.mu.RLock()
	members := make([]*Conn, 0, len(h.rooms[meetingID]))
	for c := range h.rooms[meetingID] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	return h.deliver(members, data)
}

func (h *Hub) SendToUser(userID uuid.UUID, event string, payload events.Payload) PublishResult {
	data, err := events.Encode(event, payload)
	if err != nil {
		slog.Error("encode user event", slog.Any(constant.Error, err), slog.String(constant.Event, event))
		return PublishResult{}
	}

	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.users[userID]))
	for c := range h.users[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	return h.deliver(conns, data)
}

func (h *Hub) deliver(conns []*Conn, data []byte) PublishResult {
	var res PublishResult

	for _, c := range conns {
		if c.TrySend(data) {
			res.SendTo++
			continue
		}

		res.Dropped++

		slog.Warn(
			"realtime send buffer full, closing connection",
			slog.Any(constant.UserID, c.UserID),
			slog.Any(constant.ConnID, c.ID),
		)

		c.Close()
	}

	if res.Dropped > 0 {
		metric.AddBroadcastDropped(res.Dropped)
	}

	return res
}

func (h *Hub) ReconnectionReady(state models.ReconnectionState) {
	h.sendReconnection(events.ReconnectReady, state)
}

func (h *Hub) ReconnectionExhausted(state models.ReconnectionState) {
	h.sendReconnection(events.ReconnectExhausted, state)
}

func (h *Hub) sendReconnection(event string, state models.ReconnectionState) {
	h.SendToUser(state.UserID, event, events.Payload{
		MeetingID:    state.MeetingID,
		UserID:       state.UserID,
		Timestamp:    time.Now(),
		Reconnection: &state,
	})
}

// Shutdown закрывает все соединения, их Serve завершаются сами
func (h *Hub) Shutdown() {
	h.mu.RLock()
	var conns []*Conn
	for _, set := range h.users {
		for c := range set {
			conns = append(conns, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.Close()
	}
}

func (h *Hub) reply(c *Conn, msgType string, data any) {
	b, err := events.Encode(msgType, data)
	if err != nil {
		slog.Error("encode reply", slog.Any(constant.Error, err))
		return
	}

	if !c.TrySend(b) {
		c.Close()
	}
}

func (h *Hub) writePump(c *Conn) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer ticker.Stop()
	defer c.Close()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if err := h.write(c, websocket.TextMessage, data); err != nil {
				slog.Debug("realtime write", slog.Any(constant.Error, err), slog.Any(constant.ConnID, c.ID))
				return
			}
		case <-ticker.C:
			if err := h.write(c, websocket.PingMessage, nil); err != nil {
				slog.Debug("realtime ping", slog.Any(constant.Error, err), slog.Any(constant.ConnID, c.ID))
				return
			}
		}
	}
}

func (h *Hub) write(c *Conn, messageType int, data []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout)); err != nil {
		return err
	}

	return c.ws.WriteMessage(messageType, data)
}

func (h *Hub) readPump(c *Conn) {
	c.ws.SetReadLimit(maxMessageSize)

	_ = c.ws.SetReadDeadline(time.Now().Add(h.opts.PongTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(h.opts.PongTimeout))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			logReadError(c, err)
			return
		}

		// любое сообщение клиента тоже подтверждает, что он жив
		_ = c.ws.SetReadDeadline(time.Now().Add(h.opts.PongTimeout))

		h.handleMessage(c, data)
	}
}

func (h *Hub) handleMessage(c *Conn, data []byte) {
	var msg events.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		h.reply(c, events.TypeError, events.ErrorEvent{Message: "invalid message"})
		return
	}

	switch msg.Type {
	case events.TypeJoin, events.TypeLeave:
		var room events.RoomEvent
		if err := json.Unmarshal(msg.Data, &room); err != nil || room.MeetingID == uuid.Nil {
			h.reply(c, events.TypeError, events.ErrorEvent{Message: "meetingId is required"})
			return
		}

		if msg.Type == events.TypeJoin {
			h.JoinRoom(c, room.MeetingID)
		} else {
			h.LeaveRoom(c, room.MeetingID)
		}

	case events.TypePing:
		h.reply(c, events.TypePong, nil)

	default:
		h.reply(c, events.TypeError, events.ErrorEvent{Message: "unknown message type"})
	}
}

func logReadError(c *Conn, err error) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) &&
		(closeErr.Code == websocket.CloseNormalClosure || closeErr.Code == websocket.CloseGoingAway) {
		slog.Info("user disconnected from websocket", slog.Any(constant.UserID, c.UserID))
		return
	}

	slog.Debug("realtime read", slog.Any(constant.Error, err), slog.Any(constant.UserID, c.UserID))
}
