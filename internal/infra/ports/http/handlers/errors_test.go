package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/qrave1/RoomMeet/internal/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrMeetingNotFound, http.StatusNotFound},
		{domain.ErrMeetingLocked, http.StatusForbidden},
		{domain.ErrMeetingFull, http.StatusForbidden},
		{domain.ErrNotParticipant, http.StatusForbidden},
		{domain.ErrInsufficientPermissions, http.StatusForbidden},
		{domain.ErrMeetingEnded, http.StatusBadRequest},
		{domain.ErrInvalidAction, http.StatusBadRequest},
		{domain.ErrInvalidVolume, http.StatusBadRequest},
		{fmt.Errorf("title is required: %w", domain.ErrValidation), http.StatusBadRequest},
		{domain.ErrMusicNotActive, http.StatusConflict},
		{domain.ErrRecordingAlreadyActive, http.StatusConflict},
		{domain.ErrRecordingNotActive, http.StatusConflict},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrMediaProviderNotConfigured, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: %w", domain.ErrRecordingProviderFailed, errors.New("timeout")), http.StatusBadGateway},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
