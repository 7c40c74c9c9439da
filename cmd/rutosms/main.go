package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rutosms/internal/archive"
	"rutosms/internal/config"
	"rutosms/internal/constants"
	"rutosms/internal/retry"
	"rutosms/internal/service"
	"rutosms/pkg/mqttbus"
	"rutosms/pkg/rutos"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	configPath = flag.String("config", "config.yaml", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("rutosms %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting rutosms")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
			logger.SetLevel(logrus.InfoLevel)
		} else {
			logger.SetLevel(level)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  cfg.Retry.MaxAttempts,
		Jitter:       true,
	})

	// Optional archive, opened with retry like any local database.
	var arch *archive.Archive
	if cfg.Archive.Path != "" {
		err = backoff.Retry(ctx, func() error {
			var openErr error
			arch, openErr = archive.Open(cfg.Archive.Path)
			if openErr != nil {
				logger.Warnf("Failed to open archive: %v", openErr)
			}
			return openErr
		})
		if err != nil {
			return fmt.Errorf("failed to open archive after retries: %w", err)
		}
		defer arch.Close()
		logger.WithField("path", cfg.Archive.Path).Info("Message archive enabled")
	}

	httpClient := &http.Client{
		Timeout: time.Duration(cfg.Router.TimeoutSec) * time.Second,
	}
	apiClient := rutos.NewClient(cfg.Router.Host, cfg.Router.Port, cfg.Router.Username, cfg.Router.Password, httpClient, logger)

	bus := mqttbus.NewClient(mqttbus.Options{
		BrokerURL:    cfg.MQTT.BrokerURL,
		ClientID:     cfg.MQTT.ClientID,
		Username:     cfg.MQTT.Username,
		Password:     cfg.MQTT.Password,
		QoS:          byte(cfg.MQTT.QoS),
		KeepAliveSec: cfg.MQTT.KeepAliveSec,
		WillTopic:    constants.TopicOnline,
	}, logger)

	err = backoff.Retry(ctx, func() error {
		if connectErr := bus.Connect(ctx); connectErr != nil {
			logger.Warnf("Failed to connect to broker: %v", connectErr)
			return connectErr
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to connect to broker after retries: %w", err)
	}
	defer bus.Disconnect()

	if err := bus.PublishRetained(constants.TopicOnline, []byte("1")); err != nil {
		logger.WithError(err).Warn("Failed to publish online state")
	}

	ledger := service.NewLedger()
	sched := service.NewDeletionScheduler()

	// A nil *Archive must stay a nil interface for the engine.
	var msgArchive service.MessageArchive
	if arch != nil {
		msgArchive = arch
	}

	dispatcher := service.NewDispatcher(apiClient, bus, sched, msgArchive, logger)
	if err := dispatcher.Subscribe(); err != nil {
		return fmt.Errorf("failed to subscribe to command topics: %w", err)
	}
	logger.Info("Command dispatcher subscribed")

	poller := service.NewPoller(
		apiClient, bus, ledger, sched, msgArchive,
		time.Duration(cfg.PollIntervalSec)*time.Second,
		cfg.DeleteAfterDuration,
		logger,
	)
	if err := poller.Start(ctx); err != nil {
		return fmt.Errorf("failed to start poller: %w", err)
	}
	defer poller.Stop()

	serverErrCh := make(chan error, 1)
	var server *Server
	if cfg.Server.Port > 0 {
		server = NewServer(cfg.Server.Port, apiClient, bus, ledger, sched, arch, logger)
		go func() {
			if err := server.Start(); err != nil && err != http.ErrServerClosed {
				serverErrCh <- fmt.Errorf("status server error: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	if err := bus.PublishRetained(constants.TopicOnline, []byte("0")); err != nil {
		logger.WithError(err).Warn("Failed to publish offline state")
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultGracefulShutdownSec*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown status server gracefully: %w", err)
		}
	}

	logger.Info("Shutdown completed")
	return nil
}
