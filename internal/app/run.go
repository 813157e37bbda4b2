package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"dronectl-server/internal/config"
	"dronectl-server/internal/httpapi"
	"dronectl-server/internal/modules/sensors"
	"dronectl-server/internal/modules/sensors/health"
	"dronectl-server/internal/modules/sensors/service"
	"dronectl-server/internal/modules/sensors/store"
	"dronectl-server/internal/mqtt"
	"dronectl-server/internal/observability"
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"mqttEnabled", cfg.MQTTEnabled,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
		"healthProvider", cfg.HealthProvider,
	)

	var provider health.Provider = health.StaticProvider{}
	if cfg.HealthProvider == "host" {
		provider = health.HostProvider{DiskPath: cfg.DiskPath}
	}

	sensorStore := store.New(provider)
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	sensorService := service.New(sensorStore, metrics)

	mux := httpapi.NewMux(sensorStore)
	sensors.RegisterFeature(mux, sensorService)

	var subscriber *mqtt.Subscriber
	if cfg.MQTTEnabled {
		// Set the frame handler before Connect so the OnConnect subscription
		// delivers queued frames straight into the decoder.
		subscriber = mqtt.NewSubscriber(cfg)
		sensors.RegisterFrameHandler(subscriber, sensorService)

		// Short timeout for the initial connect so a down broker does not
		// block startup; the HTTP ingestion path works regardless.
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err := subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	}

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if subscriber != nil {
		slog.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err := <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
