package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/benmeehan/telemetry-bridge/internal/constants"
	"github.com/benmeehan/telemetry-bridge/internal/observability"
	"github.com/benmeehan/telemetry-bridge/internal/payload"
	"github.com/benmeehan/telemetry-bridge/internal/services"
	"github.com/benmeehan/telemetry-bridge/internal/sources"
	"github.com/benmeehan/telemetry-bridge/internal/utils"
	"github.com/benmeehan/telemetry-bridge/pkg/file"
	"github.com/benmeehan/telemetry-bridge/pkg/identity"
	"github.com/benmeehan/telemetry-bridge/pkg/mqtt"
	"github.com/benmeehan/telemetry-bridge/pkg/serial"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
}

func run(args []string) error {
	fileClient := file.NewFileService()

	// Load configuration, then let flags override it
	config, configErr := loadConfig(args, fileClient)
	if config == nil {
		return configErr
	}

	log, logFile, err := newLogger(config)
	if err != nil {
		return err
	}
	defer logFile.Close()

	if configErr != nil {
		log.Warn().Err(configErr).Msg("Configuration file not found, using defaults")
	}

	// Optional identity file supplies the default gmid
	deviceInfo := identity.NewDeviceInfo(config.Identity.DeviceFile, fileClient)
	if err := deviceInfo.LoadDeviceInfo(); err != nil {
		log.Warn().Err(err).Str("file", config.Identity.DeviceFile).Msg("Failed to load device identity")
	}
	defaultID := deviceInfo.GetDeviceID()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	status := observability.NewStatusBoard()

	resolver := newResolver(config, fileClient, defaultID, metrics, log)
	defer resolver.Close()

	status.Set(observability.StatusBackend, string(resolver.Kind()))
	status.Set(observability.StatusPort, config.Serial.Port)

	log.Info().
		Str("backend", string(resolver.Kind())).
		Bool("stale", resolver.Kind().Stale()).
		Str("port", config.Serial.Port).
		Int("baud", config.Serial.BaudRate).
		Dur("transmit_interval", config.Bridge.TransmitInterval).
		Bool("event_monitoring", config.Bridge.EventMonitoring).
		Msg("Telemetry bridge initializing")

	// Handle graceful shutdown, including signals that arrive while the
	// port or the MQTT connection is still being set up
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	transport := serial.NewTransport(serial.Config{
		Name:        config.Serial.Port,
		Baud:        config.Serial.BaudRate,
		ReadTimeout: config.Serial.ReadTimeout,
	}, log, serial.WithSettleDelay(constants.PortSettleDelay))

	if err := transport.Open(); err != nil {
		log.Error().Err(err).Msg("Cannot continue without serial port. Exiting.")
		return err
	}
	defer transport.Close()

	var mirrors []services.PayloadMirror
	if live, ok := resolver.Backend().(*sources.LiveStore); ok && config.Bridge.MirrorPayload {
		mirrors = append(mirrors, live)
	}

	if config.MQTT.Enabled {
		mqttClient := mqtt.NewMqttService(fileClient)
		clientID := config.MQTT.ClientID + "-" + uuid.New().String()
		if err := mqttClient.Initialize(config.MQTT.Broker, clientID, config.MQTT.CACertificate); err != nil {
			log.Error().Err(err).Str("broker", config.MQTT.Broker).Msg("Failed to connect to MQTT broker, payload will not be published")
		} else {
			defer mqttClient.Disconnect(250)
			log.Info().Str("client_id", clientID).Str("topic", config.MQTT.Topic).Msg("Publishing payload over MQTT")
			mirrors = append(mirrors, mqtt.NewPayloadPublisher(mqttClient, config.MQTT.Topic, config.MQTT.QOS))
		}
	}

	if config.Metrics.Enabled {
		server := observability.NewStatusServer(config.Metrics.Addr, registry, status, log)
		if err := server.Start(); err != nil {
			log.Error().Err(err).Str("addr", config.Metrics.Addr).Msg("Failed to start status server")
		} else {
			defer server.Stop()
		}
	}

	bridge := services.NewBridgeService(services.BridgeConfig{
		PollInterval:     config.Bridge.PollInterval,
		TransmitInterval: config.Bridge.TransmitInterval,
		ReadTimeout:      config.Sources.ProbeTimeout,
		EventMonitoring:  config.Bridge.EventMonitoring,
	}, resolver, payload.NewBuilder(config.Bridge.ProfilePath, fileClient, log), transport, log,
		services.WithMirrors(mirrors...),
		services.WithObservability(metrics, status),
	)

	if err := bridge.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Unexpected error in main loop")
		return err
	}

	log.Info().Msg("Shutting down gracefully, bridge stopped by user")
	return nil
}

// loadConfig returns the configuration and, when the file was missing, the
// error that caused defaults to be used.
func loadConfig(args []string, fileClient file.FileOperations) (*utils.Config, error) {
	flagSet := pflag.NewFlagSet("bridge", pflag.ContinueOnError)
	configPath := flagSet.String("config", constants.DefaultConfigFile, "path to the YAML configuration file")
	port := flagSet.String("port", "", "serial device path")
	baud := flagSet.Int("baud", 0, "serial baud rate")
	interval := flagSet.Duration("interval", 0, "transmit interval")
	eventMonitoring := flagSet.Bool("event-monitoring", false, "only transmit on fault or active mode")
	logLevel := flagSet.String("log-level", "", "log level (debug, info, warn, error)")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}

	config, err := utils.LoadConfig(*configPath, fileClient)
	var missing error
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		config = utils.DefaultConfig()
		missing = err
	}

	if flagSet.Changed("port") {
		config.Serial.Port = *port
	}
	if flagSet.Changed("baud") {
		config.Serial.BaudRate = *baud
	}
	if flagSet.Changed("interval") {
		config.Bridge.TransmitInterval = *interval
	}
	if flagSet.Changed("event-monitoring") {
		config.Bridge.EventMonitoring = *eventMonitoring
	}
	if flagSet.Changed("log-level") {
		config.Logging.Level = *logLevel
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, missing
}

// newLogger writes human-readable lines to stdout and JSON lines to the
// persistent log file.
func newLogger(config *utils.Config) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(config.Logging.Level)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("invalid log level %q: %w", config.Logging.Level, err)
	}

	logFile, err := os.OpenFile(config.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	writer := zerolog.MultiLevelWriter(zerolog.ConsoleWriter{Out: os.Stdout}, logFile)
	logger := zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Str("session_id", uuid.New().String()).
		Logger()

	return logger, logFile, nil
}

func newResolver(config *utils.Config, fileClient file.FileOperations, defaultID string,
	metrics *observability.Metrics, log zerolog.Logger) *sources.Resolver {

	redisClient := redis.NewClient(&redis.Options{
		Addr:         config.Sources.RedisAddr,
		DB:           config.Sources.RedisDB,
		DialTimeout:  config.Sources.ProbeTimeout,
		ReadTimeout:  config.Sources.ProbeTimeout,
		WriteTimeout: config.Sources.ProbeTimeout,
	})
	live := sources.NewLiveStore(redisClient, config.Sources.ContKey, config.Sources.AlarmsKey,
		config.Sources.PayloadKey, defaultID)

	snapshot := sources.NewSnapshotFile(config.Sources.SnapshotPath, defaultID, fileClient)

	var backup sources.Backend
	if store, err := sources.OpenBackupStore(config.Sources.BackupPath, config.Sources.BackupTable, defaultID, fileClient); err != nil {
		log.Warn().Err(err).Msg("Backup store unavailable")
	} else {
		backup = store
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.Sources.ProbeTimeout)
	defer cancel()

	return sources.NewResolver(ctx, live, snapshot, backup, defaultID, log,
		sources.WithDegradedHook(func(kind sources.Kind, _ error) {
			metrics.ObserveSourceDegraded(string(kind))
		}))
}
