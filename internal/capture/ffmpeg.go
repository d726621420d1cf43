package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/EduardoFdeM/pitchai-backend/internal/audio"
)

const ffmpegShutdownTimeout = 3 * time.Second

// FFmpegConfig configures a subprocess capture endpoint.
type FFmpegConfig struct {
	// Binary is the ffmpeg executable. Defaults to "ffmpeg" on PATH.
	Binary string

	// Backend is the ffmpeg input format, e.g. "pulse", "alsa",
	// "avfoundation" or "dshow". Defaults to "pulse".
	Backend string

	// Input is the device identifier handed to -i. For loopback capture
	// on PulseAudio this is typically a ".monitor" source.
	Input string
}

// FFmpegDevice captures one endpoint by running ffmpeg with raw s16le output
// on stdout. ffmpeg performs the down-mix and resample to the canonical
// format, so ReadBlock always delivers 16kHz mono.
type FFmpegDevice struct {
	cfg FFmpegConfig

	mu      sync.Mutex
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	stdout  io.ReadCloser
	stderr  lockedBuffer
	done    chan struct{}
	byteBuf []byte
}

// lockedBuffer guards stderr against concurrent writes from the subprocess
// and reads from the capture loop.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *lockedBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// NewFFmpegDevice creates a device from cfg, defaulting the binary and
// backend.
func NewFFmpegDevice(cfg FFmpegConfig) *FFmpegDevice {
	if cfg.Binary == "" {
		cfg.Binary = "ffmpeg"
	}
	if cfg.Backend == "" {
		cfg.Backend = "pulse"
	}
	return &FFmpegDevice{cfg: cfg}
}

func (d *FFmpegDevice) Open(ctx context.Context) (Format, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cmd != nil {
		return Format{}, fmt.Errorf("capture: device %q already open", d.cfg.Input)
	}

	// The process lives until Close, not until the opening context ends.
	procCtx, cancel := context.WithCancel(context.Background())

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", d.cfg.Backend,
		"-i", d.cfg.Input,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", strconv.Itoa(audio.CanonicalChannels),
		"-ar", strconv.Itoa(audio.CanonicalSampleRate),
		"-",
	}
	cmd := exec.CommandContext(procCtx, d.cfg.Binary, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = ffmpegShutdownTimeout

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return Format{}, fmt.Errorf("capture: stdout pipe: %w", err)
	}
	d.stderr.Reset()
	cmd.Stderr = &d.stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return Format{}, fmt.Errorf("capture: start %s: %w", d.cfg.Binary, err)
	}

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	d.cmd = cmd
	d.cancel = cancel
	d.stdout = stdout
	d.done = done

	return Format{SampleRate: audio.CanonicalSampleRate, Channels: audio.CanonicalChannels}, nil
}

func (d *FFmpegDevice) ReadBlock(dst []int16) error {
	d.mu.Lock()
	stdout := d.stdout
	if cap(d.byteBuf) < len(dst)*2 {
		d.byteBuf = make([]byte, len(dst)*2)
	}
	buf := d.byteBuf[:len(dst)*2]
	d.mu.Unlock()

	if stdout == nil {
		return errDeviceClosed
	}

	if _, err := io.ReadFull(stdout, buf); err != nil {
		if tail := d.stderrTail(); tail != "" {
			return fmt.Errorf("capture: read %q: %s: %w", d.cfg.Input, tail, err)
		}
		return fmt.Errorf("capture: read %q: %w", d.cfg.Input, err)
	}

	copy(dst, audio.PCMBytesToInt16(buf))
	return nil
}

func (d *FFmpegDevice) Close() error {
	d.mu.Lock()
	cancel := d.cancel
	done := d.done
	d.cancel = nil
	d.cmd = nil
	d.stdout = nil
	d.done = nil
	d.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (d *FFmpegDevice) Name() string {
	return d.cfg.Backend + ":" + d.cfg.Input
}

// stderrTail returns the last non-empty stderr line, which is where ffmpeg
// reports the actual failure.
func (d *FFmpegDevice) stderrTail() string {
	lines := strings.Split(strings.TrimSpace(d.stderr.String()), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
