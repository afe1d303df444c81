package handlers

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"strconv"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pion/webrtc/v4"

	"github.com/qrave1/RoomMeet/internal/application/config"
)

// ICECredentials выдает временные креды coturn (REST API use-auth-secret):
// username - время истечения, password - HMAC-SHA1 от username
type ICECredentials struct {
	turn  config.TurnConfig
	clock clockwork.Clock
}

func NewICECredentials(turn config.TurnConfig, clock clockwork.Clock) *ICECredentials {
	return &ICECredentials{turn: turn, clock: clock}
}

// Servers возвращает nil, если TURN не настроен
func (i *ICECredentials) Servers() []webrtc.ICEServer {
	if !i.turn.Enabled() {
		return nil
	}

	username := strconv.FormatInt(i.clock.Now().Add(i.turn.TTL).Unix(), 10)

	mac := hmac.New(sha1.New, []byte(i.turn.Secret))
	mac.Write([]byte(username))
	password := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	servers := i.turn.ICEServers()
	for n := range servers {
		servers[n].Username = username
		servers[n].Credential = password
	}

	return servers
}

type IceHandler struct {
	creds *ICECredentials
}

func NewIceHandler(creds *ICECredentials) *IceHandler {
	return &IceHandler{creds: creds}
}

// IceServers отдает список ICE серверов с кредами
func (h *IceHandler) IceServers(c echo.Context) error {
	servers := h.creds.Servers()
	if servers == nil {
		servers = []webrtc.ICEServer{}
	}

	return c.JSON(http.StatusOK, map[string][]webrtc.ICEServer{"iceServers": servers})
}
