package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/qrave1/RoomMeet/internal/domain"
	"github.com/qrave1/RoomMeet/internal/domain/input"
	"github.com/qrave1/RoomMeet/internal/domain/models"
	"github.com/qrave1/RoomMeet/internal/infra/appctx"
	"github.com/qrave1/RoomMeet/internal/infra/ports/http/dto"
	"github.com/qrave1/RoomMeet/internal/usecase"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

type MeetingHandler struct {
	meetingUsecase usecase.MeetingUsecase
	ice            *ICECredentials
}

func NewMeetingHandler(meetingUsecase usecase.MeetingUsecase, ice *ICECredentials) *MeetingHandler {
	return &MeetingHandler{
		meetingUsecase: meetingUsecase,
		ice:            ice,
	}
}

func (h *MeetingHandler) CreateMeeting(c echo.Context) error {
	userID, ok := appctx.UserID(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid user", Code: domain.ErrUnauthorized.Code})
	}

	var req input.CreateMeetingInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	meeting, err := h.meetingUsecase.CreateMeeting(c.Request().Context(), userID, req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, meeting)
}

// ListMeetings: ?hostId=<uuid|me>&status=<STATUS>&limit=<n>
func (h *MeetingHandler) ListMeetings(c echo.Context) error {
	userID, ok := appctx.UserID(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid user", Code: domain.ErrUnauthorized.Code})
	}

	filter := input.ListMeetingsFilter{Limit: defaultListLimit}

	switch host := c.QueryParam("hostId"); host {
	case "":
	case "me":
		filter.HostID = &userID
	default:
		hostID, err := uuid.Parse(host)
		if err != nil {
			return badRequest(c, "invalid hostId")
		}

		filter.HostID = &hostID
	}

	if s := c.QueryParam("status"); s != "" {
		status := models.MeetingStatus(s)
		if !status.Valid() {
			return badRequest(c, "invalid status")
		}

		filter.Status = &status
	}

	if l := c.QueryParam("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit <= 0 {
			return badRequest(c, "invalid limit")
		}

		filter.Limit = min(limit, maxListLimit)
	}

	meetings, err := h.meetingUsecase.ListMeetings(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, dto.ListMeetingsResponse{Meetings: meetings})
}

func (h *MeetingHandler) GetMeeting(c echo.Context) error {
	return withIDs(func(c echo.Context, _, meetingID uuid.UUID) error {
		meeting, err := h.meetingUsecase.GetMeeting(c.Request().Context(), meetingID)
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(http.StatusOK, meeting)
	})(c)
}

func (h *MeetingHandler) GetMeetingState(c echo.Context) error {
	return withIDs(func(c echo.Context, userID, meetingID uuid.UUID) error {
		state, err := h.meetingUsecase.GetMeetingState(c.Request().Context(), meetingID, userID)
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(http.StatusOK, state)
	})(c)
}

func (h *MeetingHandler) ListParticipants(c echo.Context) error {
	return withIDs(func(c echo.Context, _, meetingID uuid.UUID) error {
		participants, err := h.meetingUsecase.ListParticipants(c.Request().Context(), meetingID)
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(http.StatusOK, dto.ParticipantsResponse{Participants: participants})
	})(c)
}

func (h *MeetingHandler) JoinMeeting(c echo.Context) error {
	return withIDs(func(c echo.Context, userID, meetingID uuid.UUID) error {
		var req dto.JoinMeetingRequest
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request")
		}

		if req.Role != nil && !req.Role.Valid() {
			return badRequest(c, "invalid role")
		}

		res, err := h.meetingUsecase.JoinMeeting(c.Request().Context(), userID, meetingID, req.Role)
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(http.StatusOK, dto.NewJoinMeetingResponse(res, h.ice.Servers()))
	})(c)
}

func (h *MeetingHandler) LeaveMeeting(c echo.Context) error {
	return withIDs(func(c echo.Context, userID, meetingID uuid.UUID) error {
		if err := h.meetingUsecase.LeaveMeeting(c.Request().Context(), meetingID, userID); err != nil {
			return respondError(c, err)
		}

		return c.NoContent(http.StatusNoContent)
	})(c)
}

func (h *MeetingHandler) CancelMeeting(c echo.Context) error {
	return withIDs(func(c echo.Context, userID, meetingID uuid.UUID) error {
		if err := h.meetingUsecase.CancelMeeting(c.Request().Context(), meetingID, userID); err != nil {
			return respondError(c, err)
		}

		return c.NoContent(http.StatusNoContent)
	})(c)
}

func (h *MeetingHandler) ControlMeeting(c echo.Context) error {
	return withIDs(func(c echo.Context, userID, meetingID uuid.UUID) error {
		var req input.ControlMeetingInput
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request")
		}

		if err := h.meetingUsecase.ControlMeeting(c.Request().Context(), meetingID, userID, req); err != nil {
			return respondError(c, err)
		}

		return c.NoContent(http.StatusNoContent)
	})(c)
}

func (h *MeetingHandler) RaiseHand(c echo.Context) error {
	return withIDs(func(c echo.Context, userID, meetingID uuid.UUID) error {
		if err := h.meetingUsecase.RaiseHand(c.Request().Context(), meetingID, userID); err != nil {
			return respondError(c, err)
		}

		return c.NoContent(http.StatusNoContent)
	})(c)
}

func (h *MeetingHandler) LowerHand(c echo.Context) error {
	return withIDs(func(c echo.Context, userID, meetingID uuid.UUID) error {
		if err := h.meetingUsecase.LowerHand(c.Request().Context(), meetingID, userID); err != nil {
			return respondError(c, err)
		}

		return c.NoContent(http.StatusNoContent)
	})(c)
}
