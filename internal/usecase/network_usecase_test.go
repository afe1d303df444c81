package usecase_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/qrave1/RoomMeet/internal/domain"
	"github.com/qrave1/RoomMeet/internal/domain/models"
	"github.com/qrave1/RoomMeet/internal/infra/adapters/memory"
	"github.com/qrave1/RoomMeet/internal/usecase"
)

type recordingObserver struct {
	mu        sync.Mutex
	ready     chan models.ReconnectionState
	exhausted []models.ReconnectionState
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{ready: make(chan models.ReconnectionState, 16)}
}

func (o *recordingObserver) ReconnectionReady(state models.ReconnectionState) {
	o.ready <- state
}

func (o *recordingObserver) ReconnectionExhausted(state models.ReconnectionState) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.exhausted = append(o.exhausted, state)
}

func newNetwork(opts usecase.NetworkOptions) (usecase.NetworkUsecase, *clockwork.FakeClock, *recordingObserver, *memory.NetworkQualityRepository) {
	clock := clockwork.NewFakeClock()
	observer := newRecordingObserver()
	repo := memory.NewNetworkQualityRepository()

	return usecase.NewNetworkUsecase(opts, clock, repo, observer), clock, observer, repo
}

func TestRecommendVeryBad(t *testing.T) {
	uc, _, _, _ := newNetwork(usecase.DefaultNetworkOptions())

	rec := uc.Recommend(models.NetworkQualitySample{
		Quality:    models.NetworkQualityVeryBad,
		RTT:        650,
		PacketLoss: 12,
		Bandwidth:  80,
	})

	if !rec.EnableAudioPriority || rec.RecommendedBitrateKbps != 100 || !rec.PacketLossAcceptable {
		t.Fatalf("recommendation = %+v", rec)
	}

	want := []string{
		"Enable audio-only mode",
		"Reduce bitrate to 100 kbps",
		"Packet loss detected but within tolerance",
		"High latency detected",
		"Low bandwidth - audio priority recommended",
	}

	if !slices.Equal(rec.Actions, want) {
		t.Fatalf("actions = %q", rec.Actions)
	}
}

func TestRecommend(t *testing.T) {
	uc, _, _, _ := newNetwork(usecase.DefaultNetworkOptions())

	tests := []struct {
		name          string
		sample        models.NetworkQualitySample
		audioPriority bool
		bitrate       int
		acceptable    bool
		actions       int
	}{
		{
			name:       "excellent",
			sample:     models.NetworkQualitySample{Quality: models.NetworkQualityExcellent, RTT: 20, Bandwidth: 5000},
			bitrate:    2000,
			acceptable: true,
		},
		{
			name:       "good",
			sample:     models.NetworkQualitySample{Quality: models.NetworkQualityGood, RTT: 80, PacketLoss: 1, Bandwidth: 2000},
			bitrate:    1000,
			acceptable: true,
		},
		{
			name:          "good with loss",
			sample:        models.NetworkQualitySample{Quality: models.NetworkQualityGood, PacketLoss: 6, Bandwidth: 2000},
			audioPriority: true,
			bitrate:       1000,
			acceptable:    true,
			actions:       2,
		},
		{
			name:          "down with heavy loss",
			sample:        models.NetworkQualitySample{Quality: models.NetworkQualityDown, PacketLoss: 90, Bandwidth: 0},
			audioPriority: true,
			bitrate:       0,
			acceptable:    false,
			actions:       4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := uc.Recommend(tt.sample)

			if rec.EnableAudioPriority != tt.audioPriority {
				t.Errorf("audio priority = %v", rec.EnableAudioPriority)
			}

			if rec.RecommendedBitrateKbps != tt.bitrate {
				t.Errorf("bitrate = %d", rec.RecommendedBitrateKbps)
			}

			if rec.PacketLossAcceptable != tt.acceptable {
				t.Errorf("acceptable = %v", rec.PacketLossAcceptable)
			}

			if len(rec.Actions) != tt.actions {
				t.Errorf("actions = %q", rec.Actions)
			}
		})
	}
}

func TestReportQuality(t *testing.T) {
	ctx := context.Background()
	uc, clock, _, _ := newNetwork(usecase.DefaultNetworkOptions())
	meetingID, userID := uuid.New(), uuid.New()

	_, err := uc.ReportQuality(ctx, models.NetworkQualitySample{MeetingID: meetingID, UserID: userID, Quality: "awful"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("invalid quality err = %v", err)
	}

	_, err = uc.ReportQuality(ctx, models.NetworkQualitySample{
		MeetingID:  meetingID,
		UserID:     userID,
		Quality:    models.NetworkQualityGood,
		PacketLoss: 101,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("invalid loss err = %v", err)
	}

	clientTime := clock.Now().Add(-time.Hour)

	if _, err := uc.ReportQuality(ctx, models.NetworkQualitySample{
		MeetingID: meetingID,
		UserID:    userID,
		Quality:   models.NetworkQualityPoor,
		RTT:       200,
		Bandwidth: 300,
		Timestamp: clientTime,
	}); err != nil {
		t.Fatalf("report: %v", err)
	}

	got, ok, err := uc.GetQuality(ctx, meetingID, userID)
	if err != nil || !ok {
		t.Fatalf("get = %v, %v", ok, err)
	}

	if !got.Timestamp.Equal(clock.Now()) {
		t.Fatalf("timestamp = %v, want server time", got.Timestamp)
	}
}

func TestBackoffIsMonotonicAndCapped(t *testing.T) {
	opts := usecase.DefaultNetworkOptions()
	opts.MaxAttempts = 20
	uc, clock, _, _ := newNetwork(opts)
	userID := uuid.New()

	uc.Initialize(userID, uuid.New())

	var prev time.Duration

	for i := 1; i < opts.MaxAttempts; i++ {
		state, ok := uc.RecordAttempt(userID)
		if !ok {
			t.Fatalf("attempt %d: state missing", i)
		}

		delay := state.NextAttempt.Sub(clock.Now())

		if delay < prev {
			t.Fatalf("attempt %d: delay %v < previous %v", i, delay, prev)
		}

		if delay > opts.MaxDelay {
			t.Fatalf("attempt %d: delay %v over cap", i, delay)
		}

		prev = delay
	}

	if prev != opts.MaxDelay {
		t.Fatalf("delay never reached the cap: %v", prev)
	}
}

func TestShouldAttempt(t *testing.T) {
	opts := usecase.DefaultNetworkOptions()
	opts.MaxAttempts = 2
	uc, clock, _, _ := newNetwork(opts)
	userID := uuid.New()

	state := uc.Initialize(userID, uuid.New())
	if !uc.ShouldAttempt(state) {
		t.Fatal("fresh state must allow an attempt")
	}

	state, _ = uc.RecordAttempt(userID)
	if uc.ShouldAttempt(state) {
		t.Fatal("attempt inside backoff window must be refused")
	}

	if got := uc.Status(userID); got != models.ReconnectStatusAwaitingBackoff {
		t.Fatalf("status = %s", got)
	}

	clock.Advance(state.NextAttempt.Sub(clock.Now()))

	if !uc.ShouldAttempt(state) {
		t.Fatal("attempt after backoff must be allowed")
	}

	state.AttemptCount = state.MaxAttempts
	if uc.ShouldAttempt(state) {
		t.Fatal("exhausted state must never attempt")
	}
}

func TestReconnectionExhausted(t *testing.T) {
	opts := usecase.DefaultNetworkOptions()
	opts.MaxAttempts = 3
	uc, _, observer, _ := newNetwork(opts)
	userID := uuid.New()

	uc.Initialize(userID, uuid.New())

	var last models.ReconnectionState
	for range opts.MaxAttempts {
		last, _ = uc.RecordAttempt(userID)
	}

	if !last.Exhausted() || last.AttemptCount != 3 {
		t.Fatalf("final state = %+v", last)
	}

	if got := uc.Status(userID); got != models.ReconnectStatusIdle {
		t.Fatalf("status after exhaustion = %s, want idle", got)
	}

	if _, ok := uc.RecordAttempt(userID); ok {
		t.Fatal("exhausted state must be deleted")
	}

	observer.mu.Lock()
	defer observer.mu.Unlock()

	if len(observer.exhausted) != 1 || observer.exhausted[0].UserID != userID {
		t.Fatalf("exhausted notifications = %+v", observer.exhausted)
	}
}

func TestReconnectionReadyFiresAfterBackoff(t *testing.T) {
	uc, clock, observer, _ := newNetwork(usecase.DefaultNetworkOptions())
	userID := uuid.New()

	uc.Initialize(userID, uuid.New())

	state, _ := uc.RecordAttempt(userID)

	clock.Advance(state.NextAttempt.Sub(clock.Now()))

	select {
	case got := <-observer.ready:
		if got.UserID != userID || got.AttemptCount != 1 {
			t.Fatalf("ready state = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reconnect-ready was not delivered")
	}
}

func TestClearCancelsTimer(t *testing.T) {
	uc, clock, observer, _ := newNetwork(usecase.DefaultNetworkOptions())
	userID := uuid.New()

	uc.Initialize(userID, uuid.New())
	uc.RecordAttempt(userID)
	uc.Clear(userID)

	clock.Advance(time.Hour)

	select {
	case got := <-observer.ready:
		t.Fatalf("timer fired after clear: %+v", got)
	case <-time.After(100 * time.Millisecond):
	}

	if got := uc.Status(userID); got != models.ReconnectStatusIdle {
		t.Fatalf("status = %s", got)
	}
}

func TestSweeperEvictsStaleSamples(t *testing.T) {
	opts := usecase.DefaultNetworkOptions()
	opts.StalenessWindow = 30 * time.Second
	opts.SweepInterval = time.Minute
	uc, clock, _, repo := newNetwork(opts)
	meetingID, userID := uuid.New(), uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := uc.ReportQuality(ctx, models.NetworkQualitySample{
		MeetingID: meetingID,
		UserID:    userID,
		Quality:   models.NetworkQualityGood,
		Bandwidth: 1000,
	}); err != nil {
		t.Fatalf("report: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- uc.RunSweeper(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()

	if err := clock.BlockUntilContext(waitCtx, 1); err != nil {
		t.Fatalf("sweeper did not start: %v", err)
	}

	clock.Advance(opts.SweepInterval)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok, _ := repo.Get(ctx, meetingID, userID); !ok {
			break
		}

		if time.Now().After(deadline) {
			t.Fatal("stale sample was not evicted")
		}

		time.Sleep(10 * time.Millisecond)
	}

	cancel()

	if err := <-done; err != nil {
		t.Fatalf("sweeper returned %v", err)
	}
}

func TestStateSnapshot(t *testing.T) {
	uc, _, _, _ := newNetwork(usecase.DefaultNetworkOptions())
	userID, meetingID := uuid.New(), uuid.New()

	if _, ok := uc.State(userID); ok {
		t.Fatal("unknown user must have no state")
	}

	uc.Initialize(userID, meetingID)
	uc.RecordAttempt(userID)

	state, ok := uc.State(userID)
	if !ok || state.MeetingID != meetingID || state.AttemptCount != 1 {
		t.Fatalf("state = %+v, %v", state, ok)
	}
}
