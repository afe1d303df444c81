package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/qrave1/RoomMeet/internal/application/constant"
	"github.com/qrave1/RoomMeet/internal/application/metric"
	"github.com/qrave1/RoomMeet/internal/domain"
	"github.com/qrave1/RoomMeet/internal/domain/models"
)

const (
	packetLossAudioPriority = 5.0
	packetLossTolerance     = 70.0
	highLatencyMs           = 500
	lowBandwidthKbps        = 100
	defaultBitrateKbps      = 1000
)

var bitrateByQuality = map[models.NetworkQuality]int{
	models.NetworkQualityExcellent: 2000,
	models.NetworkQualityGood:      1000,
	models.NetworkQualityPoor:      500,
	models.NetworkQualityBad:       200,
	models.NetworkQualityVeryBad:   100,
	models.NetworkQualityDown:      0,
}

type NetworkOptions struct {
	StalenessWindow   time.Duration
	SweepInterval     time.Duration
	MaxAttempts       int
	BackoffMultiplier float64
	BaseDelay         time.Duration
	MaxDelay          time.Duration
}

func DefaultNetworkOptions() NetworkOptions {
	return NetworkOptions{
		StalenessWindow:   5 * time.Minute,
		SweepInterval:     time.Minute,
		MaxAttempts:       10,
		BackoffMultiplier: 1.5,
		BaseDelay:         time.Second,
		MaxDelay:          60 * time.Second,
	}
}

// NetworkUsecase превращает телеметрию сети в рекомендации и ведет автомат переподключения
type NetworkUsecase interface {
	ReportQuality(ctx context.Context, sample models.NetworkQualitySample) (models.Recommendation, error)
	GetQuality(ctx context.Context, meetingID, userID uuid.UUID) (models.NetworkQualitySample, bool, error)
	Recommend(sample models.NetworkQualitySample) models.Recommendation

	Initialize(userID, meetingID uuid.UUID) models.ReconnectionState
	State(userID uuid.UUID) (models.ReconnectionState, bool)
	RecordAttempt(userID uuid.UUID) (models.ReconnectionState, bool)
	ShouldAttempt(state models.ReconnectionState) bool
	Status(userID uuid.UUID) models.ReconnectStatus
	Clear(userID uuid.UUID)

	// RunSweeper удаляет устаревшие замеры, пока ctx не отменен
	RunSweeper(ctx context.Context) error
}

type reconnection struct {
	state models.ReconnectionState
	timer clockwork.Timer
}

type networkUsecase struct {
	opts     NetworkOptions
	clock    clockwork.Clock
	quality  NetworkQualityRepository
	observer ReconnectionObserver

	mu            sync.Mutex
	reconnections map[uuid.UUID]*reconnection
}

// NewNetworkUsecase создает движок сетевой адаптации. observer может быть nil.
func NewNetworkUsecase(
	opts NetworkOptions,
	clock clockwork.Clock,
	quality NetworkQualityRepository,
	observer ReconnectionObserver,
) NetworkUsecase {
	return &networkUsecase{
		opts:          opts,
		clock:         clock,
		quality:       quality,
		observer:      observer,
		reconnections: make(map[uuid.UUID]*reconnection),
	}
}

func (u *networkUsecase) ReportQuality(
	ctx context.Context,
	sample models.NetworkQualitySample,
) (models.Recommendation, error) {
	if err := validateSample(sample); err != nil {
		return models.Recommendation{}, err
	}

	// время замера серверное
	sample.Timestamp = u.clock.Now()

	if err := u.quality.Save(ctx, sample); err != nil {
		return models.Recommendation{}, fmt.Errorf("save network quality: %w", err)
	}

	metric.IncNetworkQualityReport(string(sample.Quality))

	return u.Recommend(sample), nil
}

func validateSample(s models.NetworkQualitySample) error {
	switch {
	case !s.Quality.Valid():
		return fmt.Errorf("quality %q: %w", s.Quality, domain.ErrValidation)
	case s.PacketLoss < 0 || s.PacketLoss > 100:
		return fmt.Errorf("packet loss %.2f: %w", s.PacketLoss, domain.ErrValidation)
	case s.RTT < 0 || s.Bandwidth < 0:
		return fmt.Errorf("negative rtt or bandwidth: %w", domain.ErrValidation)
	}

	return nil
}

func (u *networkUsecase) GetQuality(
	ctx context.Context,
	meetingID, userID uuid.UUID,
) (models.NetworkQualitySample, bool, error) {
	s, ok, err := u.quality.Get(ctx, meetingID, userID)
	if err != nil {
		return models.NetworkQualitySample{}, false, fmt.Errorf("get network quality: %w", err)
	}

	return s, ok, nil
}

func (u *networkUsecase) Recommend(s models.NetworkQualitySample) models.Recommendation {
	bitrate, ok := bitrateByQuality[s.Quality]
	if !ok {
		bitrate = defaultBitrateKbps
	}

	rec := models.Recommendation{
		EnableAudioPriority: s.Quality.Degraded() ||
			s.PacketLoss > packetLossAudioPriority ||
			s.RTT > highLatencyMs ||
			s.Bandwidth < lowBandwidthKbps,
		RecommendedBitrateKbps: bitrate,
		PacketLossAcceptable:   s.PacketLoss <= packetLossTolerance,
		Actions:                []string{},
	}

	if rec.EnableAudioPriority {
		rec.Actions = append(rec.Actions, "Enable audio-only mode")
	}

	if bitrate < defaultBitrateKbps {
		rec.Actions = append(rec.Actions, fmt.Sprintf("Reduce bitrate to %d kbps", bitrate))
	}

	switch {
	case s.PacketLoss > packetLossTolerance:
		rec.Actions = append(rec.Actions, "High packet loss - connection may be unstable")
	case s.PacketLoss > packetLossAudioPriority:
		rec.Actions = append(rec.Actions, "Packet loss detected but within tolerance")
	}

	if s.RTT > highLatencyMs {
		rec.Actions = append(rec.Actions, "High latency detected")
	}

	if s.Bandwidth < lowBandwidthKbps {
		rec.Actions = append(rec.Actions, "Low bandwidth - audio priority recommended")
	}

	return rec
}

func (u *networkUsecase) Initialize(userID, meetingID uuid.UUID) models.ReconnectionState {
	u.mu.Lock()
	defer u.mu.Unlock()

	if prev, ok := u.reconnections[userID]; ok {
		stopTimer(prev)
	}

	state := models.ReconnectionState{
		UserID:            userID,
		MeetingID:         meetingID,
		MaxAttempts:       u.opts.MaxAttempts,
		BackoffMultiplier: u.opts.BackoffMultiplier,
		NextAttempt:       u.clock.Now(),
	}

	u.reconnections[userID] = &reconnection{state: state}

	return state
}

func (u *networkUsecase) State(userID uuid.UUID) (models.ReconnectionState, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	r, ok := u.reconnections[userID]
	if !ok {
		return models.ReconnectionState{}, false
	}

	return r.state, true
}

// RecordAttempt засчитывает попытку и назначает следующую.
// После исчерпания попыток состояние удаляется, наблюдатель получает финальное состояние.
func (u *networkUsecase) RecordAttempt(userID uuid.UUID) (models.ReconnectionState, bool) {
	u.mu.Lock()

	r, ok := u.reconnections[userID]
	if !ok {
		u.mu.Unlock()
		return models.ReconnectionState{}, false
	}

	stopTimer(r)

	now := u.clock.Now()
	r.state.AttemptCount++
	r.state.LastAttempt = now

	delay := u.backoff(r.state.AttemptCount, r.state.BackoffMultiplier)
	r.state.NextAttempt = now.Add(delay)
	state := r.state

	metric.IncReconnectionAttempt()

	if state.Exhausted() {
		delete(u.reconnections, userID)
		u.mu.Unlock()

		metric.IncReconnectionExhausted()
		slog.Info(
			"reconnection attempts exhausted",
			slog.Any(constant.UserID, userID),
			slog.Any(constant.MeetingID, state.MeetingID),
		)

		if u.observer != nil {
			u.observer.ReconnectionExhausted(state)
		}

		return state, true
	}

	r.timer = u.clock.AfterFunc(delay, func() {
		u.fireReady(userID, r, state.AttemptCount)
	})
	u.mu.Unlock()

	return state, true
}

// backoff = min(base * multiplier^attempt, max)
func (u *networkUsecase) backoff(attempt int, multiplier float64) time.Duration {
	d := float64(u.opts.BaseDelay) * math.Pow(multiplier, float64(attempt))
	if d > float64(u.opts.MaxDelay) {
		return u.opts.MaxDelay
	}

	return time.Duration(d)
}

func (u *networkUsecase) fireReady(userID uuid.UUID, r *reconnection, attempt int) {
	u.mu.Lock()
	cur, ok := u.reconnections[userID]
	if !ok || cur != r || cur.state.AttemptCount != attempt {
		u.mu.Unlock()
		return
	}
	state := cur.state
	u.mu.Unlock()

	if u.observer != nil {
		u.observer.ReconnectionReady(state)
	}
}

func (u *networkUsecase) ShouldAttempt(state models.ReconnectionState) bool {
	return state.AttemptCount < state.MaxAttempts && !u.clock.Now().Before(state.NextAttempt)
}

func (u *networkUsecase) Status(userID uuid.UUID) models.ReconnectStatus {
	u.mu.Lock()
	defer u.mu.Unlock()

	r, ok := u.reconnections[userID]
	if !ok {
		return models.ReconnectStatusIdle
	}

	return r.state.StatusAt(u.clock.Now())
}

func (u *networkUsecase) Clear(userID uuid.UUID) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if r, ok := u.reconnections[userID]; ok {
		stopTimer(r)
		delete(u.reconnections, userID)
	}
}

func stopTimer(r *reconnection) {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (u *networkUsecase) RunSweeper(ctx context.Context) error {
	ticker := u.clock.NewTicker(u.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			cutoff := u.clock.Now().Add(-u.opts.StalenessWindow)

			n, err := u.quality.EvictOlderThan(ctx, cutoff)
			if err != nil {
				slog.Error("evict stale network samples", slog.Any(constant.Error, err))
				continue
			}

			if n > 0 {
				slog.Debug("evicted stale network samples", slog.Int("count", n))
			}
		}
	}
}
