package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/qrave1/RoomMeet/internal/domain"
	"github.com/qrave1/RoomMeet/internal/domain/input"
	"github.com/qrave1/RoomMeet/internal/infra/ports/http/dto"
	"github.com/qrave1/RoomMeet/internal/usecase"
)

// MediaHandler - музыка, запись, демонстрация экрана и ресурсы встречи
type MediaHandler struct {
	meetingUsecase usecase.MeetingUsecase
}

func NewMediaHandler(meetingUsecase usecase.MeetingUsecase) *MediaHandler {
	return &MediaHandler{meetingUsecase: meetingUsecase}
}

func (h *MediaHandler) StartMusic(c echo.Context) error {
	return withIDs(func(c echo.Context, userID, meetingID uuid.UUID) error {
		var req input.StartMusicInput
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request")
		}

		state, err := h.meetingUsecase.StartMusic(c.Request().Context(), meetingID, userID, req)
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(http.StatusOK, state)
	})(c)
}

func (h *MediaHandler) StopMusic(c echo.Context) error {
	return withIDs(func(c echo.Context, userID, meetingID uuid.UUID) error {
		if err := h.meetingUsecase.StopMusic(c.Request().Context(), meetingID, userID); err != nil {
			return respondError(c, err)
		}

		return c.NoContent(http.StatusNoContent)
	})(c)
}

func (h *MediaHandler) UpdateMusicVolume(c echo.Context) error {
	return withIDs(func(c echo.Context, userID, meetingID uuid.UUID) error {
		var req dto.VolumeRequest
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request")
		}

		if req.Volume == nil {
			return respondError(c, domain.ErrInvalidVolume)
		}

		state, err := h.meetingUsecase.UpdateMusicVolume(c.Request().Context(), meetingID, userID, *req.Volume)
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(http.StatusOK, state)
	})(c)
}

// GetMusicState отдает null, если музыка не играет
func (h *MediaHandler) GetMusicState(c echo.Context) error {
	return withIDs(func(c echo.Context, userID, meetingID uuid.UUID) error {
		state, err := h.meetingUsecase.GetMusicState(c.Request().Context(), meetingID, userID)
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(http.StatusOK, state)
	})(c)
}

func (h *MediaHandler) StartRecording(c echo.Context) error {
	return withIDs(func(c echo.Context, userID, meetingID uuid.UUID) error {
		state, err := h.meetingUsecase.StartRecording(c.Request().Context(), meetingID, userID)
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(http.StatusOK, state)
	})(c)
}

func (h *MediaHandler) StopRecording(c echo.Context) error {
	return withIDs(func(c echo.Context, userID, meetingID uuid.UUID) error {
		state, err := h.meetingUsecase.StopRecording(c.Request().Context(), meetingID, userID)
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(http.StatusOK, state)
	})(c)
}

func (h *MediaHandler) GetRecordingState(c echo.Context) error {
	return withIDs(func(c echo.Context, userID, meetingID uuid.UUID) error {
		state, err := h.meetingUsecase.GetRecordingState(c.Request().Context(), meetingID, userID)
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(http.StatusOK, state)
	})(c)
}

func (h *MediaHandler) StartScreenshare(c echo.Context) error {
	return withIDs(func(c echo.Context, userID, meetingID uuid.UUID) error {
		if err := h.meetingUsecase.StartScreenshare(c.Request().Context(), meetingID, userID); err != nil {
			return respondError(c, err)
		}

		return c.NoContent(http.StatusNoContent)
	})(c)
}

func (h *MediaHandler) StopScreenshare(c echo.Context) error {
	return withIDs(func(c echo.Context, userID, meetingID uuid.UUID) error {
		if err := h.meetingUsecase.StopScreenshare(c.Request().Context(), meetingID, userID); err != nil {
			return respondError(c, err)
		}

		return c.NoContent(http.StatusNoContent)
	})(c)
}

func (h *MediaHandler) ShareResource(c echo.Context) error {
	return withIDs(func(c echo.Context, userID, meetingID uuid.UUID) error {
		var req input.ShareResourceInput
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid request")
		}

		resource, err := h.meetingUsecase.ShareResource(c.Request().Context(), meetingID, userID, req)
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(http.StatusCreated, resource)
	})(c)
}

func (h *MediaHandler) ListResources(c echo.Context) error {
	return withIDs(func(c echo.Context, userID, meetingID uuid.UUID) error {
		resources, err := h.meetingUsecase.ListResources(c.Request().Context(), meetingID, userID)
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(http.StatusOK, dto.ResourcesResponse{Resources: resources})
	})(c)
}
