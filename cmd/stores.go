package cmd

import (
	"context"
	"fmt"
	"log/slog"

	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/qrave1/RoomMeet/internal/application/config"
	"github.com/qrave1/RoomMeet/internal/application/constant"
	"github.com/qrave1/RoomMeet/internal/application/metric"
	"github.com/qrave1/RoomMeet/internal/infra/adapters/memory"
	"github.com/qrave1/RoomMeet/internal/infra/adapters/postgres"
	"github.com/qrave1/RoomMeet/internal/infra/adapters/postgres/repository"
	redisstore "github.com/qrave1/RoomMeet/internal/infra/adapters/redis"
	"github.com/qrave1/RoomMeet/internal/infra/ports/http/middleware"
	"github.com/qrave1/RoomMeet/internal/usecase"
)

// stores - хранилища, выбранные конфигурацией при старте
type stores struct {
	meetings  usecase.MeetingRepository
	music     usecase.MusicStateRepository
	recording usecase.RecordingStateRepository
	resources usecase.ResourceShareRepository
	quality   usecase.NetworkQualityRepository

	rateLimitStore middleware.RateLimitStoreFactory
	checks         map[string]metric.HealthCheck
	closers        []func() error
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			slog.Error("close store", slog.Any(constant.Error, err))
		}
	}
}

func newStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	s := &stores{checks: make(map[string]metric.HealthCheck)}

	switch cfg.PersistenceBackend {
	case config.BackendPostgres:
		db, err := postgres.NewPostgres(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, err
		}

		s.closers = append(s.closers, db.Close)
		s.checks["postgres"] = postgres.HealthCheck(db)
		s.meetings = repository.NewMeetingRepository(db)
	default:
		s.meetings = memory.NewMeetingRepository()
	}

	switch cfg.StateBackend {
	case config.BackendRedis:
		client, err := redisstore.NewClient(ctx, redisstore.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}

		s.closers = append(s.closers, client.Close)
		s.checks["redis"] = redisstore.HealthCheck(client)

		s.music = redisstore.NewMusicStateRepository(client)
		s.recording = redisstore.NewRecordingStateRepository(client)
		s.resources = redisstore.NewResourceShareRepository(client)
		s.quality = redisstore.NewNetworkQualityRepository(client)
		s.rateLimitStore = func(rule middleware.RateRule) echomw.RateLimiterStore {
			return redisstore.NewRateLimiter(client, rule.Action, rule.Limit, rule.Window)
		}
	default:
		s.music = memory.NewMusicStateRepository()
		s.recording = memory.NewRecordingStateRepository()
		s.resources = memory.NewResourceShareRepository()
		s.quality = memory.NewNetworkQualityRepository()
		s.rateLimitStore = middleware.MemoryRateLimitStore
	}

	slog.Info(
		"stores selected",
		slog.String("persistence", cfg.PersistenceBackend),
		slog.String(constant.Backend, cfg.StateBackend),
	)

	return s, nil
}
