package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/roomrec/internal/adapters/http"
	"github.com/dkeye/roomrec/internal/adapters/rtc"
	signaling "github.com/dkeye/roomrec/internal/adapters/signal"
	"github.com/dkeye/roomrec/internal/app"
	"github.com/dkeye/roomrec/internal/app/record"
	"github.com/dkeye/roomrec/internal/config"
	"github.com/dkeye/roomrec/internal/core"
	"github.com/dkeye/roomrec/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("recorder stopped")
	}
	log.Info().Msg("Recorder exited gracefully")
}

func run(ctx context.Context, cfg *config.Config) error {
	roomID, err := signaling.RoomHash(cfg.Room, cfg.Password, cfg.Server)
	if err != nil {
		return err
	}
	policy, err := app.PolicyByName(cfg.AmbiguousOffer)
	if err != nil {
		return err
	}
	chains, err := record.NewSelector(record.Options{
		Room:      cfg.Room,
		OutputDir: cfg.OutputDir,
		AudioMode: record.AudioMode(cfg.AudioMode),
	})
	if err != nil {
		return err
	}
	engine, err := rtc.NewEngine(rtc.Options{
		ICEServers:  cfg.ICEServers,
		VideoWidth:  cfg.VideoWidth,
		VideoHeight: cfg.VideoHeight,
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	streams := make([]domain.StreamID, 0, len(cfg.Streams))
	for _, s := range cfg.Streams {
		streams = append(streams, domain.StreamID(s))
	}

	// The client delivers into the manager, which sends through the client.
	var manager *app.SessionManager
	client := signaling.NewClient(signaling.Options{
		URL:                  cfg.Server,
		RoomID:               roomID,
		ReadLimit:            cfg.ReadLimit,
		PingPeriod:           cfg.PingPeriod,
		MaxReconnectInterval: cfg.ReconnectMaxInterval,
		PlayLimit:            cfg.PlayLimit,
	}, func(ctx context.Context, msg core.Message) error {
		return manager.Deliver(ctx, msg)
	})
	metrics := app.NewMetrics()
	manager = app.NewSessionManager(engine, client, chains, metrics, app.Options{
		Room:            cfg.Room,
		IdleTimeout:     cfg.IdleTimeout,
		DisconnectGrace: cfg.DisconnectGrace,
		SweepInterval:   cfg.SweepInterval,
		Streams:         streams,
		Policy:          policy,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return manager.Run(ctx) })
	g.Go(func() error { return client.Run(ctx) })

	if cfg.Port > 0 {
		addr := fmt.Sprintf(":%d", cfg.Port)
		srv := &http.Server{
			Addr:              addr,
			Handler:           router.SetupRouter(cfg.Mode, manager, metrics.Registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info().Str("addr", addr).Msg("status server started")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Server forced to shutdown")
			}
			return nil
		})
	}

	log.Info().Str("room", cfg.Room).Str("server", cfg.Server).Str("output_dir", cfg.OutputDir).Msg("Recorder started")
	return g.Wait()
}
