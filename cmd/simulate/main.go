package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/EduardoFdeM/pitchai-backend/internal/audio"
	"github.com/EduardoFdeM/pitchai-backend/internal/capture"
	"github.com/EduardoFdeM/pitchai-backend/internal/model"
	"github.com/EduardoFdeM/pitchai-backend/internal/transcription"
)

// Runs the capture and transcription pipeline fully in-process on synthetic
// devices. No server, database or sidecar required.
func main() {
	duration := flag.Duration("duration", 10*time.Second, "how long to capture")
	micTone := flag.Float64("mic-tone", 440, "microphone tone in Hz, 0 for silence")
	loopTone := flag.Float64("loopback-tone", 330, "loopback tone in Hz, 0 for silence")
	seed := flag.Uint64("seed", 0, "simulated decoder seed, 0 seeds from the clock")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	resolver := model.NewResolver(model.ResolverConfig{
		Disabled: true,
		Logger:   logger,
	})
	svc := transcription.NewService(resolver, transcription.Config{
		SimulatedSeed: *seed,
		Logger:        logger,
	})

	sess := capture.NewSession(capture.SessionConfig{
		Devices: map[audio.Source]capture.Device{
			audio.SourceMicrophone: capture.NewSyntheticDevice(capture.SyntheticConfig{
				Name:   "sim:microphone",
				ToneHz: *micTone,
				Paced:  true,
			}),
			audio.SourceLoopback: capture.NewSyntheticDevice(capture.SyntheticConfig{
				Name:   "sim:loopback",
				ToneHz: *loopTone,
				Paced:  true,
			}),
		},
		Logger: logger,
	})

	callID, err := sess.Start()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start capture: %v\n", err)
		os.Exit(1)
	}
	if err := svc.Start(context.Background(), callID); err != nil {
		sess.Stop()
		fmt.Fprintf(os.Stderr, "Failed to start transcription: %v\n", err)
		os.Exit(1)
	}

	svc.AddObserver(func(t transcription.Chunk) {
		marker := " "
		if t.Final {
			marker = "*"
		}
		fmt.Printf("[%6d-%6dms]%s %-8s %.2f  %s\n",
			t.TSStartMS, t.TSEndMS, marker, t.Speaker, t.Confidence, t.Text)
	})
	sess.AddCallback(func(c audio.Chunk) {
		svc.Ingest(c)
	})

	fmt.Printf("call %s: capturing for %s\n\n", callID, *duration)
	time.Sleep(*duration)

	sess.Stop()
	if err := svc.Stop(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to stop transcription: %v\n", err)
		os.Exit(1)
	}

	sm := sess.Metrics()
	tm := svc.Metrics()
	fmt.Printf("\ncaptured %d chunks over %dms, max drift %dms\n",
		sm.ChunksEmitted, sm.DurationMS, sm.MaxSyncDriftMS)
	fmt.Printf("decoded %d windows (%d empty), avg latency %.1fms, dropped %d\n",
		tm.ChunksProcessed, tm.EmptyChunks, tm.AvgLatencyMS, tm.DroppedChunks)
}
