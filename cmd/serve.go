package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/seerrbridge/dispatch"
	"github.com/s0up4200/seerrbridge/events"
	"github.com/s0up4200/seerrbridge/filter"
	"github.com/s0up4200/seerrbridge/mqtt"
	"github.com/s0up4200/seerrbridge/scheduler"
	"github.com/s0up4200/seerrbridge/sensor"
	"github.com/s0up4200/seerrbridge/server"
	"github.com/s0up4200/seerrbridge/stream"
	"github.com/s0up4200/seerrbridge/webhook"
)

const (
	pollTaskID      = "sensor-poll"
	shutdownTimeout = 10 * time.Second
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the bridge: sensors, webhook receiver, HTTP API and MQTT",
	PreRunE: initializeApp,
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := newSeerrClient()
	if err != nil {
		return err
	}
	logger.Info().Str("url", client.BaseURL()).Msg("Connected to Seerr")

	sensors := sensor.NewSet(client, logger)
	bus := events.NewBus(logger)

	hub := stream.NewHub(logger)
	bus.Subscribe("stream", hub)
	sensors.Subscribe(hub.PublishReading)

	if cfg.MQTT.Enabled {
		sink, err := newMQTTSink(ctx, sensors.Sensors())
		if err != nil {
			return err
		}
		defer sink.Close()

		bus.Subscribe("mqtt", sink)
		sensors.Subscribe(sink.PublishReading)
	}

	var receiver *webhook.Receiver
	if cfg.Webhook.Enabled {
		id := cfg.Webhook.ID
		if id == "" {
			credential := cfg.Seerr.APIKey
			if credential == "" {
				credential = cfg.Seerr.Username
			}
			id = webhook.DefaultID(cfg.Seerr.BaseURL(), credential)
			logger.Info().Str("webhook_id", id).Msg("No webhook.id configured, derived one from the Seerr connection")
		}
		receiver = webhook.New(webhook.Options{ID: id, AuthHeader: cfg.Webhook.AuthHeader}, sensors, bus, logger)
		logger.Info().Str("path", "/api/webhook/"+id).Msg("Webhook receiver enabled")
	}

	sched, err := scheduler.New(logger)
	if err != nil {
		return err
	}
	if err := sched.RegisterTask(scheduler.TaskConfig{
		ID:         pollTaskID,
		Name:       "Refresh Seerr sensors",
		Interval:   cfg.Seerr.ScanInterval,
		RunOnStart: true,
		Func: func(ctx context.Context) error {
			sensors.RefreshAll(ctx)
			return nil
		},
	}); err != nil {
		return err
	}

	srv := server.New(server.Options{
		Sensors:    sensors,
		Dispatcher: dispatch.New(client, logger, dispatchOptions()),
		Webhook:    receiver,
		Stream:     hub,
		Tasks:      sched,
		PollTaskID: pollTaskID,
		Version:    version,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		if err := srv.Start(cfg.Server.Addr()); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown failed")
		}
		if err := sched.Stop(); err != nil {
			logger.Error().Err(err).Msg("Scheduler shutdown failed")
		}
		sensors.Wait()
		return nil
	})

	sched.Start()

	err = g.Wait()
	logger.Info().Msg("Stopped")
	return err
}

func newMQTTSink(ctx context.Context, sensors []*sensor.Sensor) (*mqtt.Sink, error) {
	var eventFilter *filter.Filter
	if cfg.MQTT.EventFilter != "" {
		f, err := filter.Compile(cfg.MQTT.EventFilter)
		if err != nil {
			return nil, fmt.Errorf("invalid mqtt.event_filter: %w", err)
		}
		eventFilter = f
	}

	sink := mqtt.New(mqtt.Config{
		Broker:          cfg.MQTT.Broker,
		ClientID:        cfg.MQTT.ClientID,
		Username:        cfg.MQTT.Username,
		Password:        cfg.MQTT.Password,
		TopicPrefix:     cfg.MQTT.TopicPrefix,
		Discovery:       cfg.MQTT.Discovery,
		DiscoveryPrefix: cfg.MQTT.DiscoveryPrefix,
		Filter:          eventFilter,
	}, sensors, logger)

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := sink.Connect(connectCtx); err != nil {
		return nil, err
	}
	return sink, nil
}
