package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/qrave1/RoomMeet/internal/domain/models"
	"github.com/qrave1/RoomMeet/internal/infra/ports/http/dto"
	"github.com/qrave1/RoomMeet/internal/usecase"
)

// NetworkHandler - телеметрия сети и переподключение
type NetworkHandler struct {
	networkUsecase usecase.NetworkUsecase
	meetingUsecase usecase.MeetingUsecase
}

func NewNetworkHandler(networkUsecase usecase.NetworkUsecase, meetingUsecase usecase.MeetingUsecase) *NetworkHandler {
	return &NetworkHandler{
		networkUsecase: networkUsecase,
		meetingUsecase: meetingUsecase,
	}
}

func (h *NetworkHandler) ReportQuality(c echo.Context) error {
	return withIDs(func(c echo.Context, userID, meetingID uuid.UUID) error {
		var req dto.QualityReportRequest
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request")
		}

		if _, err := h.meetingUsecase.GetMeeting(c.Request().Context(), meetingID); err != nil {
			return respondError(c, err)
		}

		rec, err := h.networkUsecase.ReportQuality(c.Request().Context(), models.NetworkQualitySample{
			UserID:     userID,
			MeetingID:  meetingID,
			Quality:    req.Quality,
			RTT:        req.RTT,
			PacketLoss: req.PacketLoss,
			Bandwidth:  req.Bandwidth,
			Timestamp:  req.Timestamp,
		})
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(http.StatusOK, rec)
	})(c)
}

func (h *NetworkHandler) GetQuality(c echo.Context) error {
	return withIDs(func(c echo.Context, userID, meetingID uuid.UUID) error {
		sample, ok, err := h.networkUsecase.GetQuality(c.Request().Context(), meetingID, userID)
		if err != nil {
			return respondError(c, err)
		}

		if !ok {
			return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "no recent network sample", Code: "NOT_FOUND"})
		}

		return c.JSON(http.StatusOK, dto.QualityResponse{
			Sample:         &sample,
			Recommendation: h.networkUsecase.Recommend(sample),
		})
	})(c)
}

// ReconnectAttempt засчитывает попытку, если окно ожидания прошло.
// Первый вызов заводит состояние переподключения для встречи.
func (h *NetworkHandler) ReconnectAttempt(c echo.Context) error {
	return withIDs(func(c echo.Context, userID, meetingID uuid.UUID) error {
		if _, err := h.meetingUsecase.GetMeeting(c.Request().Context(), meetingID); err != nil {
			return respondError(c, err)
		}

		state, ok := h.networkUsecase.State(userID)
		if !ok || state.MeetingID != meetingID {
			state = h.networkUsecase.Initialize(userID, meetingID)
		}

		should := h.networkUsecase.ShouldAttempt(state)
		if should {
			state, _ = h.networkUsecase.RecordAttempt(userID)
		}

		status := h.networkUsecase.Status(userID)
		if state.Exhausted() {
			status = models.ReconnectStatusExhausted
		}

		return c.JSON(http.StatusOK, dto.ReconnectAttemptResponse{
			State:         state,
			ShouldAttempt: should,
			Status:        status,
		})
	})(c)
}

// ReconnectComplete сбрасывает переподключение и отдает снимок встречи для ресинхронизации
func (h *NetworkHandler) ReconnectComplete(c echo.Context) error {
	return withIDs(func(c echo.Context, userID, meetingID uuid.UUID) error {
		h.networkUsecase.Clear(userID)

		state, err := h.meetingUsecase.GetMeetingState(c.Request().Context(), meetingID, userID)
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(http.StatusOK, state)
	})(c)
}
