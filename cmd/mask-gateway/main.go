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

	"github.com/zachmartin/gaming-capture/host/mask-gateway/internal/api"
	"github.com/zachmartin/gaming-capture/host/mask-gateway/internal/config"
	"github.com/zachmartin/gaming-capture/host/mask-gateway/internal/filter"
	"github.com/zachmartin/gaming-capture/host/mask-gateway/internal/gsthost"
	"github.com/zachmartin/gaming-capture/host/mask-gateway/internal/logging"
	"github.com/zachmartin/gaming-capture/host/mask-gateway/internal/mask"
	"github.com/zachmartin/gaming-capture/host/mask-gateway/internal/media"
	"github.com/zachmartin/gaming-capture/host/mask-gateway/internal/preview"
	"github.com/zachmartin/gaming-capture/host/mask-gateway/internal/store"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	log := logging.New(cfg.LogLevel)
	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("gateway failed")
		os.Exit(1)
	}
	log.Info().Msg("gateway stopped")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	log.Info().Str("config", cfg.String()).Msg("mask gateway starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	masker := mask.New(log)
	masker.SetConfiguration(cfg.MaskPoints)

	apiOpts := api.Options{
		Masker:         masker,
		AllowedOrigins: cfg.AllowedOrigins,
		Log:            log,
	}

	if cfg.HasStore() {
		st, err := openStore(ctx, cfg, masker, log)
		if err != nil {
			return err
		}
		defer st.Close()
		apiOpts.Store = st

		go func() {
			err := st.Watch(ctx, func(text string) {
				if text != masker.Configuration() {
					masker.SetConfiguration(text)
				}
			})
			if err != nil {
				log.Error().Err(err).Msg("mask store watch stopped")
			}
		}()
	}

	var broadcaster *preview.Broadcaster
	if cfg.PreviewEnabled {
		var err error
		broadcaster, err = preview.NewBroadcaster(preview.Options{ICEServers: cfg.PreviewICEServers}, log)
		if err != nil {
			return err
		}
		defer broadcaster.Close()
		apiOpts.Preview = broadcaster
	}

	errCh := make(chan error, 2)

	switch cfg.Source {
	case config.SourceGst:
		opts := gsthost.Options{Pipeline: cfg.GstPipeline, PreviewFPS: cfg.PreviewFPS}
		if broadcaster != nil {
			opts.Preview = broadcaster
		}
		host, err := gsthost.New(opts, masker, log)
		if err != nil {
			return err
		}
		defer host.Stop()
		apiOpts.PipelineStats = func() any { return host.Stats() }
		go func() { errCh <- sourceDone("gst pipeline", host.Run(ctx)) }()

	default:
		var sink filter.Sink = filter.Discard{}
		if cfg.IPCOutputPath != "" {
			producer := media.NewIPCProducer(cfg.IPCOutputPath, log)
			defer producer.Close()
			sink = producer
		}
		f := filter.New(masker, sink, log)
		apiOpts.PipelineStats = func() any { return f.Stats() }

		if cfg.IsSynthetic() {
			source := media.NewSyntheticSource(cfg.SyntheticWidth, cfg.SyntheticHeight, cfg.SyntheticFPS,
				media.Pattern(cfg.SyntheticPattern), log)
			go func() { errCh <- sourceDone("synthetic source", source.Run(ctx, f)) }()
		} else {
			consumer := media.NewIPCConsumer(cfg.IPCSocketPath, f, log)
			if err := consumer.Start(); err != nil {
				return fmt.Errorf("failed to start IPC consumer: %w", err)
			}
			defer consumer.Stop()
		}
	}

	server := &http.Server{
		Addr:              cfg.HTTPListenAddr,
		Handler:           api.NewServer(apiOpts),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPListenAddr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP shutdown incomplete")
	}

	return runErr
}

// openStore connects to Redis and reconciles the initial mask: a stored
// configuration wins over the configured one, and a configured one seeds an
// empty store.
func openStore(ctx context.Context, cfg *config.Config, masker *mask.Masker, log zerolog.Logger) (*store.Store, error) {
	st := store.New(store.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Key:      cfg.RedisKey,
	}, log)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := st.Ping(pingCtx); err != nil {
		st.Close()
		return nil, fmt.Errorf("mask store unreachable: %w", err)
	}

	text, ok, err := st.Load(pingCtx)
	if err != nil {
		st.Close()
		return nil, err
	}
	switch {
	case ok:
		masker.SetConfiguration(text)
		log.Info().Str("mask", masker.Configuration()).Msg("mask loaded from store")
	case cfg.MaskPoints != "":
		if err := st.Save(pingCtx, masker.Configuration()); err != nil {
			log.Warn().Err(err).Msg("failed to seed mask store")
		}
	}
	return st, nil
}

// sourceDone turns a clean source exit into a shutdown signal.
func sourceDone(name string, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
