package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/qrave1/RoomMeet/internal/application/config"
	"github.com/qrave1/RoomMeet/internal/application/constant"
	"github.com/qrave1/RoomMeet/internal/application/metric"
	"github.com/qrave1/RoomMeet/internal/infra/adapters/kafka"
	"github.com/qrave1/RoomMeet/internal/infra/adapters/media"
	"github.com/qrave1/RoomMeet/internal/infra/ports/http/handlers"
	"github.com/qrave1/RoomMeet/internal/infra/ports/http/server"
	"github.com/qrave1/RoomMeet/internal/infra/ports/realtime"
	"github.com/qrave1/RoomMeet/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

func runApp() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.New()
	if err != nil {
		slog.Error("parse config", slog.Any(constant.Error, err))
		return err
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(
		slog.New(
			slog.NewJSONHandler(
				os.Stdout,
				&slog.HandlerOptions{Level: level},
			),
		),
	)

	st, err := newStores(ctx, cfg)
	if err != nil {
		slog.Error("init stores", slog.Any(constant.Error, err))
		return err
	}
	defer st.Close()

	clock := clockwork.NewRealClock()

	hub := realtime.NewHub(realtime.Options{
		PingInterval: cfg.Realtime.PingInterval,
		PongTimeout:  cfg.Realtime.PongTimeout,
		WriteTimeout: cfg.Realtime.WriteTimeout,
		SendBuffer:   cfg.Realtime.SendBuffer,
	})

	broadcasters := usecase.Broadcasters{hub}

	var publisher *kafka.Publisher
	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewAsyncProducer(cfg.Kafka.Brokers)
		if err != nil {
			slog.Error("init kafka", slog.Any(constant.Error, err))
			return err
		}

		publisher = kafka.NewPublisher(producer, cfg.Kafka.Topic)
		broadcasters = append(broadcasters, publisher)
	}

	provider := media.NewCloudProvider(media.Options{
		BaseURL:        cfg.Media.BaseURL,
		AppID:          cfg.Media.AppID,
		AppCertificate: cfg.Media.AppCertificate,
		CustomerID:     cfg.Media.CustomerID,
		CustomerSecret: cfg.Media.CustomerSecret,
		TokenTTL:       cfg.Media.TokenTTL,
		Timeout:        cfg.Media.Timeout,
	}, clock)
	if !provider.Configured() {
		slog.Warn("media provider is not configured, joins get placeholder tokens and recording is disabled")
	}

	networkUsecase := usecase.NewNetworkUsecase(
		usecase.NetworkOptions{
			StalenessWindow:   cfg.Network.StalenessWindow,
			SweepInterval:     cfg.Network.SweepInterval,
			MaxAttempts:       cfg.Network.MaxAttempts,
			BackoffMultiplier: cfg.Network.BackoffMultiplier,
			BaseDelay:         cfg.Network.BaseDelay,
			MaxDelay:          cfg.Network.MaxDelay,
		},
		clock,
		st.quality,
		hub,
	)

	meetingUsecase := usecase.NewMeetingUsecase(
		st.meetings,
		st.music,
		st.recording,
		st.resources,
		provider,
		broadcasters,
		networkUsecase,
		clock,
	)

	ice := handlers.NewICECredentials(cfg.Turn, clock)

	echoSrv := server.New(
		cfg,
		handlers.NewMeetingHandler(meetingUsecase, ice),
		handlers.NewMediaHandler(meetingUsecase),
		handlers.NewNetworkHandler(networkUsecase, meetingUsecase),
		handlers.NewIceHandler(ice),
		handlers.NewWebSocketHandler(cfg.Debug, cfg.Domain, hub),
		st.rateLimitStore,
	)

	metricsSrv := metric.NewServer(st.checks)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("HTTP server started", slog.String("port", cfg.Port))

		if err := echoSrv.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		if err := metricsSrv.Start(":" + cfg.MetricPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		return networkUsecase.RunSweeper(gctx)
	})

	if publisher != nil {
		g.Go(func() error {
			return publisher.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		slog.Info("Shutting down servers")

		timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer timeoutCancel()

		hub.Shutdown()

		if err := echoSrv.Shutdown(timeoutCtx); err != nil {
			slog.Error("Failed to gracefully shutdown HTTP server", slog.Any(constant.Error, err))
		}

		if err := metricsSrv.Shutdown(timeoutCtx); err != nil {
			slog.Error("Failed to gracefully shutdown metric server", slog.Any(constant.Error, err))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server stopped with error", slog.Any(constant.Error, err))
		return err
	}

	return nil
}
