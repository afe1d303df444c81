package server

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/qrave1/RoomMeet/internal/application/config"
	"github.com/qrave1/RoomMeet/internal/infra/ports/http/handlers"
	"github.com/qrave1/RoomMeet/internal/infra/ports/http/middleware"
)

// RateRules - правила ограничения по действиям
func RateRules(cfg config.RateLimitConfig) map[string]middleware.RateRule {
	rules := []middleware.RateRule{
		{Action: "create", Limit: cfg.Create, Window: 15 * time.Minute},
		{Action: "list", Limit: cfg.List, Window: time.Minute},
		{Action: "get", Limit: cfg.Get, Window: time.Minute},
		{Action: "join", Limit: cfg.Join, Window: 5 * time.Minute},
		{Action: "leave", Limit: cfg.Leave, Window: time.Minute},
		{Action: "hand", Limit: cfg.Hand, Window: time.Minute},
		{Action: "control", Limit: cfg.Control, Window: time.Minute},
	}

	m := make(map[string]middleware.RateRule, len(rules))
	for _, r := range rules {
		m[r.Action] = r
	}

	return m
}

func New(
	cfg *config.Config,
	meetingHandler *handlers.MeetingHandler,
	mediaHandler *handlers.MediaHandler,
	networkHandler *handlers.NetworkHandler,
	iceHandler *handlers.IceHandler,
	wsHandler *handlers.WebSocketHandler,
	newStore middleware.RateLimitStoreFactory,
) *echo.Echo {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.SlogLogger())
	e.Use(middleware.PrometheusMiddleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     allowOrigins(cfg),
		AllowCredentials: true,
	}))

	rules := RateRules(cfg.RateLimit)
	limit := func(action string) echo.MiddlewareFunc {
		if !cfg.RateLimit.Enabled || newStore == nil {
			return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
		}

		rule := rules[action]

		return middleware.RateLimit(rule, newStore(rule))
	}

	// хранилище на действие общее для всех маршрутов этого действия
	var (
		create  = limit("create")
		list    = limit("list")
		get     = limit("get")
		join    = limit("join")
		leave   = limit("leave")
		hand    = limit("hand")
		control = limit("control")
	)

	v1 := e.Group("/api/v1")
	v1.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	{
		v1.GET("/ice", iceHandler.IceServers)
		v1.GET("/ws", wsHandler.Handle)

		meetings := v1.Group("/meetings")
		{
			meetings.POST("", meetingHandler.CreateMeeting, create)
			meetings.GET("", meetingHandler.ListMeetings, list)
			meetings.GET("/:id", meetingHandler.GetMeeting, get)
			meetings.GET("/:id/state", meetingHandler.GetMeetingState, get)
			meetings.GET("/:id/participants", meetingHandler.ListParticipants, get)

			meetings.POST("/:id/join", meetingHandler.JoinMeeting, join)
			meetings.POST("/:id/leave", meetingHandler.LeaveMeeting, leave)
			meetings.POST("/:id/cancel", meetingHandler.CancelMeeting, control)
			meetings.POST("/:id/control", meetingHandler.ControlMeeting, control)
			meetings.POST("/:id/hand/raise", meetingHandler.RaiseHand, hand)
			meetings.POST("/:id/hand/lower", meetingHandler.LowerHand, hand)

			meetings.POST("/:id/music/start", mediaHandler.StartMusic, control)
			meetings.POST("/:id/music/stop", mediaHandler.StopMusic, control)
			meetings.PUT("/:id/music/volume", mediaHandler.UpdateMusicVolume, control)
			meetings.GET("/:id/music", mediaHandler.GetMusicState, get)

			meetings.POST("/:id/recording/start", mediaHandler.StartRecording, control)
			meetings.POST("/:id/recording/stop", mediaHandler.StopRecording, control)
			meetings.GET("/:id/recording", mediaHandler.GetRecordingState, get)

			meetings.POST("/:id/screenshare/start", mediaHandler.StartScreenshare, control)
			meetings.POST("/:id/screenshare/stop", mediaHandler.StopScreenshare, control)

			meetings.POST("/:id/resources", mediaHandler.ShareResource, control)
			meetings.GET("/:id/resources", mediaHandler.ListResources, get)

			meetings.POST("/:id/network/quality", networkHandler.ReportQuality)
			meetings.GET("/:id/network/quality", networkHandler.GetQuality, get)

			meetings.POST("/:id/reconnect/attempt", networkHandler.ReconnectAttempt)
			meetings.POST("/:id/reconnect/complete", networkHandler.ReconnectComplete, join)
		}
	}

	return e
}

func allowOrigins(cfg *config.Config) []string {
	if cfg.Debug {
		return []string{"*"}
	}

	return []string{cfg.Domain}
}
