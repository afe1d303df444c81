package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/qrave1/RoomMeet/internal/application/constant"
	"github.com/qrave1/RoomMeet/internal/domain"
	"github.com/qrave1/RoomMeet/internal/infra/appctx"
	"github.com/qrave1/RoomMeet/internal/infra/ports/http/dto"
)

var errorStatus = map[*domain.Error]int{
	domain.ErrMeetingNotFound:            http.StatusNotFound,
	domain.ErrMeetingLocked:              http.StatusForbidden,
	domain.ErrMeetingFull:                http.StatusForbidden,
	domain.ErrNotParticipant:             http.StatusForbidden,
	domain.ErrInsufficientPermissions:    http.StatusForbidden,
	domain.ErrMeetingEnded:               http.StatusBadRequest,
	domain.ErrInvalidAction:              http.StatusBadRequest,
	domain.ErrInvalidVolume:              http.StatusBadRequest,
	domain.ErrValidation:                 http.StatusBadRequest,
	domain.ErrMusicNotActive:             http.StatusConflict,
	domain.ErrRecordingAlreadyActive:     http.StatusConflict,
	domain.ErrRecordingNotActive:         http.StatusConflict,
	domain.ErrUnauthorized:               http.StatusUnauthorized,
	domain.ErrMediaProviderNotConfigured: http.StatusServiceUnavailable,
	domain.ErrRecordingProviderFailed:    http.StatusBadGateway,
}

// StatusFor возвращает HTTP статус для ошибки usecase
func StatusFor(err error) int {
	if de, ok := domain.AsError(err); ok {
		if status, ok := errorStatus[de]; ok {
			return status
		}
	}

	return http.StatusInternalServerError
}

// respondError отдает доменную ошибку как {"error","code"}. Остальное - 500 без подробностей.
func respondError(c echo.Context, err error) error {
	status := StatusFor(err)

	de, ok := domain.AsError(err)
	if !ok || status == http.StatusInternalServerError {
		slog.Error(
			"request failed",
			slog.Any(constant.Error, err),
			slog.String("path", c.Path()),
		)

		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error", Code: "INTERNAL"})
	}

	if status >= http.StatusInternalServerError {
		slog.Error("media provider error", slog.Any(constant.Error, err), slog.String(constant.Code, de.Code))
	}

	return c.JSON(status, dto.ErrorResponse{Error: de.Message, Code: de.Code})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: msg, Code: domain.ErrValidation.Code})
}

var errNoIdentity = errors.New("no identity in request context")

// requestIDs достает пользователя из контекста и встречу из пути
func requestIDs(c echo.Context) (userID, meetingID uuid.UUID, err error) {
	userID, ok := appctx.UserID(c.Request().Context())
	if !ok {
		return uuid.Nil, uuid.Nil, errNoIdentity
	}

	meetingID, err = uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, domain.ErrMeetingNotFound
	}

	return userID, meetingID, nil
}

// withIDs оборачивает обработчик, которому нужны пользователь и встреча
func withIDs(fn func(c echo.Context, userID, meetingID uuid.UUID) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, meetingID, err := requestIDs(c)
		if errors.Is(err, errNoIdentity) {
			return c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid user", Code: domain.ErrUnauthorized.Code})
		}

		if err != nil {
			return respondError(c, err)
		}

		return fn(c, userID, meetingID)
	}
}
