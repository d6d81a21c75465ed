package bootstrap

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/voxtype/voxtype/internal/capture"
	"github.com/voxtype/voxtype/internal/clipboard"
	"github.com/voxtype/voxtype/internal/connection"
	"github.com/voxtype/voxtype/internal/decode"
	"github.com/voxtype/voxtype/internal/history"
	"github.com/voxtype/voxtype/internal/metrics"
	"github.com/voxtype/voxtype/internal/notify"
	"github.com/voxtype/voxtype/internal/stream"
)

func ProvideCaptureConfig(cfg *Config) capture.Config {
	return capture.Config{
		DeviceSampleRate: cfg.DeviceSampleRate,
		DeviceChannels:   cfg.DeviceChannels,
	}
}

func ProvideCaptureSource() capture.Source {
	return capture.NewPortAudioSource()
}

func ProvideCapture(cfg capture.Config, source capture.Source, logger *slog.Logger, m *metrics.Metrics) *capture.Capture {
	return capture.New(cfg, source, logger, m)
}

func ProvideDecoder(logger *slog.Logger, m *metrics.Metrics) *decode.Decoder {
	return decode.New(logger, m)
}

func ProvideConnectionConfig(cfg *Config) connection.Config {
	return connection.Config{
		APIBaseURL:     cfg.APIBaseURL,
		ConnectTimeout: cfg.ConnectTimeout,
		HealthInterval: cfg.HealthInterval,
		StaleThreshold: cfg.StaleThreshold,
		Policy:         connection.DefaultRetryPolicy(),
	}
}

func ProvideCoordinator(capt *capture.Capture, dec *decode.Decoder, connCfg connection.Config, logger *slog.Logger, m *metrics.Metrics) *stream.Coordinator {
	return stream.New(capt, dec, connCfg, logger, m)
}

func ProvideRecorder(store *history.Store, logger *slog.Logger) *history.Recorder {
	return history.NewRecorder(store, logger)
}

func ProvideClipboardWriter(logger *slog.Logger) *clipboard.Writer {
	return clipboard.New(logger)
}

func ProvideNotifier(cfg *Config, logger *slog.Logger) *notify.Notifier {
	return notify.New(cfg.Notifications, logger)
}

// StartPipeline wires the collaborators onto the coordinator and runs the
// streaming session across the application lifecycle.
func StartPipeline(
	lc fx.Lifecycle,
	cfg *Config,
	coordinator *stream.Coordinator,
	recorder *history.Recorder,
	clip *clipboard.Writer,
	notifier *notify.Notifier,
	logger *slog.Logger,
) {
	log := logger.With("component", "bootstrap")

	coordinator.Subscribe(recorder.Listener())
	coordinator.Subscribe(notifier.Listener())
	if cfg.Clipboard {
		coordinator.Subscribe(clip.Listener())
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if cfg.APIKey == "" {
				log.Warn("no API key configured, transcription idle until configured")
				return nil
			}
			if err := coordinator.Configure(stream.Config{
				Credential:    cfg.APIKey,
				Model:         cfg.Model,
				Language:      cfg.Language,
				AutoReconnect: cfg.AutoReconnect,
			}); err != nil {
				return err
			}
			if _, err := recorder.Begin(ctx, cfg.Model, cfg.Language); err != nil {
				return err
			}
			clip.Reset()
			if err := coordinator.Start(); err != nil {
				return err
			}
			notifier.Announce("Recording started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			coordinator.Stop()
			if err := recorder.End(ctx); err != nil {
				log.Warn("closing history session", "error", err)
			}
			coordinator.Close()
			return nil
		},
	})
}

var PipelineModule = fx.Options(
	fx.Provide(
		ProvideCaptureConfig,
		ProvideCaptureSource,
		ProvideCapture,
		ProvideDecoder,
		ProvideConnectionConfig,
		ProvideCoordinator,
		ProvideRecorder,
		ProvideClipboardWriter,
		ProvideNotifier,
	),
	fx.Invoke(StartPipeline),
)
