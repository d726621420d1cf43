package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.uber.org/fx"

	"github.com/EduardoFdeM/pitchai-backend/internal/audio"
	"github.com/EduardoFdeM/pitchai-backend/internal/call"
	"github.com/EduardoFdeM/pitchai-backend/internal/capture"
	"github.com/EduardoFdeM/pitchai-backend/internal/gateway"
	"github.com/EduardoFdeM/pitchai-backend/internal/model"
	"github.com/EduardoFdeM/pitchai-backend/internal/transcription"
)

func ProvideResolver(cfg *Config, logger *slog.Logger) *model.Resolver {
	return model.NewResolver(model.ResolverConfig{
		BaseURL:      cfg.DecoderURL,
		DefaultModel: cfg.DecoderModel,
		Language:     cfg.DecoderLanguage,
		Disabled:     cfg.DisableRealDecoder,
		Logger:       logger,
	})
}

func ProvideTranscriptionService(cfg *Config, resolver *model.Resolver, logger *slog.Logger) *transcription.Service {
	return transcription.NewService(resolver, transcription.Config{
		Window:        time.Duration(cfg.WindowMS) * time.Millisecond,
		Overlap:       time.Duration(cfg.OverlapMS) * time.Millisecond,
		MinDecode:     time.Duration(cfg.MinDecodeMS) * time.Millisecond,
		Model:         cfg.DecoderModel,
		QueueCapacity: cfg.QueueCapacity,
		Logger:        logger,
	})
}

// ProvideSessionFactory builds capture sessions from the configured
// endpoints. Sources without an input run on silent synthetic devices, so
// the pair is always complete.
func ProvideSessionFactory(cfg *Config, logger *slog.Logger) call.SessionFactory {
	return func() *capture.Session {
		devices := make(map[audio.Source]capture.Device, 2)
		if cfg.MicInput != "" {
			devices[audio.SourceMicrophone] = capture.NewFFmpegDevice(capture.FFmpegConfig{
				Binary:  cfg.FFmpegBinary,
				Backend: cfg.CaptureBackend,
				Input:   cfg.MicInput,
			})
		}
		if cfg.LoopbackInput != "" {
			devices[audio.SourceLoopback] = capture.NewFFmpegDevice(capture.FFmpegConfig{
				Binary:  cfg.FFmpegBinary,
				Backend: cfg.CaptureBackend,
				Input:   cfg.LoopbackInput,
			})
		}
		return capture.NewSession(capture.SessionConfig{
			Devices: devices,
			Logger:  logger,
		})
	}
}

func ProvideCallManager(
	lc fx.Lifecycle,
	factory call.SessionFactory,
	svc *transcription.Service,
	store *call.Store,
	metrics *call.MetricsStore,
	sink *gateway.Sink,
	logger *slog.Logger,
) *call.Manager {
	m := call.NewManager(factory, svc, store, metrics, sink, logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_, err := m.StopCall(ctx, "")
			if err != nil && !errors.Is(err, call.ErrNoActiveCall) {
				return err
			}
			return nil
		},
	})
	return m
}

var PipelineModule = fx.Options(
	fx.Provide(
		ProvideResolver,
		ProvideTranscriptionService,
		ProvideSessionFactory,
		ProvideCallManager,
	),
)
