package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/dropdash/internal/api"
	"github.com/nerrad567/dropdash/internal/arrangement"
	"github.com/nerrad567/dropdash/internal/board"
	"github.com/nerrad567/dropdash/internal/dashboard"
	"github.com/nerrad567/dropdash/internal/eventloop"
	"github.com/nerrad567/dropdash/internal/infrastructure/config"
	"github.com/nerrad567/dropdash/internal/infrastructure/database"
	"github.com/nerrad567/dropdash/internal/infrastructure/influxdb"
	"github.com/nerrad567/dropdash/internal/infrastructure/logging"
	"github.com/nerrad567/dropdash/internal/infrastructure/metrics"
	"github.com/nerrad567/dropdash/internal/infrastructure/mqtt"
	"github.com/nerrad567/dropdash/internal/rpc"
	"github.com/nerrad567/dropdash/internal/stream"
	"github.com/nerrad567/dropdash/internal/telemetry"
	"github.com/nerrad567/dropdash/migrations"
)

const (
	// boardFetchTimeout bounds the startup get_board_definition call.
	boardFetchTimeout = 15 * time.Second

	// shutdownTimeout bounds closing the stream and dashboard on the loop.
	shutdownTimeout = 5 * time.Second
)

// RunCmd starts the dashboard core.
type RunCmd struct{}

// Run implements the run command.
func (c *RunCmd) Run(g *Globals) error {
	return serve(g.Context, g.Config)
}

// serve wires every component and blocks until ctx is cancelled or a
// supervised component fails.
func serve(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting dropdash",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	checks := map[string]api.HealthChecker{"database": db}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		pr := metrics.NewPrometheusRecorder(prom.NewRegistry())
		recorder = pr
		metricsHandler = pr.Handler()
	}

	device := rpc.NewClient(rpcURL(cfg.Device), &http.Client{
		Timeout: time.Duration(cfg.Device.RPCTimeout) * time.Second,
	})

	fetchCtx, cancelFetch := context.WithTimeout(ctx, boardFetchTimeout)
	b, err := board.Load(fetchCtx, cfg.Board.File, device)
	cancelFetch()
	if err != nil {
		return fmt.Errorf("loading board: %w", err)
	}
	log.Info("board loaded",
		"source", boardSource(cfg.Board),
		"electrodes", b.Layout.ElectrodeCount(),
		"grids", b.Layout.Grids(),
		"registration", b.Registration != nil,
		"fiducials", b.Reference != nil,
	)

	var sinks []dashboard.Sink

	var relay *dashboard.Relay
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		relay = dashboard.NewRelay(mqttClient, mqttClient.Topics(), dashboard.DefaultRelayQueue)
		relay.SetLogger(log.Component("relay"))
		relay.OnError(func(error) {
			recorder.IncSinkError(dashboard.SinkMQTT)
		})
		sinks = append(sinks, relay)
		checks["mqtt"] = mqttClient
	} else {
		log.Info("MQTT relay disabled")
	}

	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		influxClient.SetOnError(func(err error) {
			recorder.IncSinkError(dashboard.SinkInfluxDB)
			log.Error("InfluxDB write error", "error", err)
		})
		sinks = append(sinks, dashboard.NewHistory(influxClient))
		checks["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	loop := eventloop.New(eventloop.WithLogger(log.Component("eventloop")))

	dash := dashboard.New(dashboard.Config{
		Scheduler:       loop,
		Layout:          b.Layout,
		MaxBrush:        cfg.Render.MaxBrush,
		MinRenderPeriod: time.Duration(cfg.Render.MinRenderPeriodMS) * time.Millisecond,
		ImageExpiry:     time.Duration(cfg.Render.ImageExpiryMS) * time.Millisecond,
		Device:          device,
		Recorder:        recorder,
		Sinks:           sinks,
		Registration:    b.Registration,
	})
	dash.SetLogger(log.Component("dashboard"))

	dialer := stream.NewWebsocketDialer(eventURL(cfg.Device))
	if cfg.Stream.ReadLimit > 0 {
		dialer.ReadLimit = cfg.Stream.ReadLimit
	}
	synchronizer := stream.New(stream.Config{
		Scheduler: loop,
		Dialer:    dialer,
		Codec:     codecFor(cfg.Stream.Codec),
		Handler:   dash,
		Backoff:   time.Duration(cfg.Stream.ReconnectBackoffMS) * time.Millisecond,
	})
	synchronizer.SetLogger(log.Component("stream"))
	synchronizer.SetRecorder(recorder)
	synchronizer.OnStateChange(dash.SetStreamState)

	var repo arrangement.Repository = arrangement.NewSQLiteRepository(db.DB, arrangement.DefaultKey)

	srv, err := api.New(api.Deps{
		Config:       cfg.API,
		WS:           cfg.WebSocket,
		Render:       cfg.Render,
		Logger:       log.Component("api"),
		Loop:         loop,
		Dashboard:    dash,
		Arrangements: repo,
		Metrics:      metricsHandler,
		Checks:       checks,
		Version:      version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	var watcher *board.Watcher
	if cfg.Board.Watch && cfg.Board.File != "" {
		watcher, err = board.NewWatcher(cfg.Board.File,
			time.Duration(cfg.Board.DebounceMS)*time.Millisecond,
			func(nb *board.Board) {
				loop.Post(func() { dash.SetLayout(nb.Layout) })
			})
		if err != nil {
			return fmt.Errorf("watching board file: %w", err)
		}
		watcher.SetLogger(log.Component("board"))
	}

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return loop.Run(context.Background())
	})
	loop.Post(func() {
		if startErr := synchronizer.Start(); startErr != nil {
			log.Error("starting telemetry stream", "error", startErr)
		}
	})

	if relay != nil {
		group.Go(func() error { return relay.Run(gctx) })
	}

	if watcher != nil {
		group.Go(func() error { return watcher.Run(gctx) })
		log.Info("watching board file", "path", cfg.Board.File)
	}

	if err := srv.Start(gctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}

	group.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, cleaning up")

		closeErr := srv.Close()

		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if doErr := loop.Do(stopCtx, func() {
			synchronizer.Close()
			dash.Close()
		}); doErr != nil {
			log.Warn("closing stream on event loop", "error", doErr)
		}
		loop.Stop()
		return closeErr
	})

	log.Info("initialisation complete",
		"api", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		"device", cfg.Device.Host,
	)

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("dropdash stopped")
	return nil
}

// rpcURL returns the device's JSON-RPC endpoint.
func rpcURL(d config.DeviceConfig) string {
	return fmt.Sprintf("http://%s:%d%s", d.Host, d.RPCPort, d.RPCPath)
}

// eventURL returns the device's telemetry websocket endpoint.
func eventURL(d config.DeviceConfig) string {
	return fmt.Sprintf("ws://%s:%d%s", d.Host, d.EventPort, d.EventPath)
}

func codecFor(name string) telemetry.Codec {
	if name == "json" {
		return telemetry.JSONCodec{}
	}
	return telemetry.ProtoCodec{}
}

func boardSource(b config.BoardConfig) string {
	if b.File != "" {
		return b.File
	}
	return "device"
}

// healthCheck verifies every dependency, reporting the first failure.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for name, c := range checks {
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
