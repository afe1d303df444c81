package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/qrave1/RoomMeet/internal/application/constant"
	"github.com/qrave1/RoomMeet/internal/domain"
	"github.com/qrave1/RoomMeet/internal/infra/appctx"
	"github.com/qrave1/RoomMeet/internal/infra/ports/http/dto"
	"github.com/qrave1/RoomMeet/internal/infra/ports/realtime"
)

type WebSocketHandler struct {
	upgrader *websocket.Upgrader
	hub      *realtime.Hub
}

// NewWebSocketHandler. В debug режиме принимаются соединения с любого Origin.
func NewWebSocketHandler(debug bool, domainOrigin string, hub *realtime.Hub) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if debug {
					return true
				}

				return r.Header.Get("Origin") == domainOrigin
			},
		},
		hub: hub,
	}
}

// Handle держит соединение до отключения клиента
func (h *WebSocketHandler) Handle(c echo.Context) error {
	userID, ok := appctx.UserID(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid user", Code: domain.ErrUnauthorized.Code})
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"WebSocket upgrade error",
			slog.Any(constant.Error, err),
			slog.Any(constant.UserID, userID),
		)

		// ответ уже записан апгрейдером
		return nil
	}

	h.hub.Serve(c.Request().Context(), ws, userID)

	return nil
}
