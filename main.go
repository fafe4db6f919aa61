package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.bug.st/serial"
	"golang.org/x/sync/errgroup"

	"i4.energy/across/smsgw/modem"
)

func main() {
	flag.String("serial-port", "/dev/ttyUSB0", "Serial port to connect to the modem")
	flag.Int("baud-rate", 115200, "Baud rate for serial communication")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("sim-pin", "", "SIM card PIN code (if required)")
	flag.Int("rate-per-min", 20, "Maximum SMS sends accepted per rolling minute")
	flag.Int("max-retries", 3, "Maximum retry attempts for a failed send")
	flag.String("metrics-addr", "", "Bind address for the Prometheus metrics server (empty disables it)")
	flag.String("mqtt-broker", "", "MQTT broker URL (empty disables the MQTT submission bridge)")
	flag.String("mqtt-client-id", "smsgw", "MQTT client ID")
	flag.String("mqtt-topic", "smsgw/send", "MQTT topic to subscribe to for outgoing SMS requests")
	flag.String("mqtt-user", "", "MQTT username")
	flag.String("mqtt-pass", "", "MQTT password")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	modemConfig, err := modem.NewConfigBuilder().
		WithATTimeout(5 * time.Second).
		WithInitTimeout(30 * time.Second).
		WithMaxRetries(5).
		WithMinSendInterval(10 * time.Second).
		WithSimPIN(config.SimPIN).
		WithDialer(modem.SerialDialer{
			PortName: config.SerialPort,
			Mode:     &serial.Mode{BaudRate: config.BaudRate},
		}).
		Build()
	if err != nil {
		logger.Error("Failed to create modem config", "error", err)
		os.Exit(1)
	}

	bgCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	m, err := modem.New(bgCtx, modemConfig)
	if err != nil {
		logger.Error("Failed to create modem", "error", err)
		os.Exit(1)
	}
	defer m.Close()

	logger.Info("Starting SMS Gateway", "port", config.SerialPort, "baud", config.BaudRate)

	metricsCollector := NewMetrics()

	gw := NewGateway(GatewayConfig{
		RatePerMin: config.RatePerMin,
		MaxRetries: config.MaxRetries,
	}, m, metricsCollector, logger.With("component", "gateway"))

	httpServer := &http.Server{
		Addr: config.BindAddress,
		Handler: &Server{
			Logger:  logger.With("component", "server"),
			Gateway: gw,
		},
	}

	var mqttBridge *MQTTBridge
	if config.MQTTBroker != "" {
		mqttBridge = NewMQTTBridge(config, gw, logger.With("component", "mqtt"))
	}

	metricsServer := newMetricsServer(config.MetricsAddr)

	g, ctx := errgroup.WithContext(bgCtx)

	g.Go(func() error {
		if err := m.Loop(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	})

	g.Go(func() error {
		gw.Run(ctx)
		return nil
	})

	if mqttBridge != nil {
		g.Go(func() error {
			return mqttBridge.Run(ctx)
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if metricsServer != nil {
		g.Go(func() error {
			logger.Info("Starting metrics server", "address", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to gracefully shutdown HTTP server", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to gracefully shutdown metrics server", "error", err)
		}
	}
	if mqttBridge != nil {
		mqttBridge.Close()
	}

	if err := g.Wait(); err != nil {
		logger.Error("Gateway exited with error", "error", err)
		os.Exit(1)
	}
}
