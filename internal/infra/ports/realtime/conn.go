package realtime

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Conn - одно соединение клиента. Все записи в сокет делает writePump.
type Conn struct {
	ID     uuid.UUID
	UserID uuid.UUID

	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once

	// комнаты соединения, защищены Hub.mu
	rooms map[uuid.UUID]struct{}
}

func newConn(ws *websocket.Conn, userID uuid.UUID, buffer int) *Conn {
	return &Conn{
		ID:     uuid.New(),
		UserID: userID,
		ws:     ws,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
		rooms:  make(map[uuid.UUID]struct{}),
	}
}

// TrySend ставит сообщение в очередь без блокировки. false - буфер полон или соединение закрыто.
func (c *Conn) TrySend(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.done)

		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
}

func (c *Conn) Done() <-chan struct{} {
	return c.done
}
