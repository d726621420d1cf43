package bootstrap

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr string `validate:"required"`
	LogLevel   string `validate:"oneof=debug info warn error"`

	DatabaseDSN string `validate:"required"`

	RedisAddr     string `validate:"required"`
	RedisPassword string
	RedisDB       int `validate:"gte=0"`

	// Decoder sidecar. An unreachable sidecar is not an error; the
	// pipeline falls back to the simulated decoder.
	DecoderURL         string `validate:"required,url"`
	DecoderModel       string
	DecoderLanguage    string
	DisableRealDecoder bool

	// Capture endpoints. An empty input leaves that source on a silent
	// synthetic device.
	FFmpegBinary   string `validate:"required"`
	CaptureBackend string `validate:"required"`
	MicInput       string
	LoopbackInput  string

	// Sliding window geometry, milliseconds.
	WindowMS    int `validate:"gte=500"`
	OverlapMS   int `validate:"gte=0,ltfield=WindowMS"`
	MinDecodeMS int `validate:"gte=0"`

	QueueCapacity int `validate:"gte=1"`
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		DatabaseDSN: getEnv("DATABASE_DSN",
			"host=localhost user=postgres password=postgres dbname=pitchai port=5432 sslmode=disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		DecoderURL:         getEnv("DECODER_URL", "http://localhost:8580"),
		DecoderModel:       getEnv("DECODER_MODEL", ""),
		DecoderLanguage:    getEnv("DECODER_LANGUAGE", "pt"),
		DisableRealDecoder: getEnv("DISABLE_REAL_DECODER", "false") == "true",

		FFmpegBinary:   getEnv("FFMPEG_BINARY", "ffmpeg"),
		CaptureBackend: getEnv("CAPTURE_BACKEND", "pulse"),
		MicInput:       getEnv("MIC_INPUT", ""),
		LoopbackInput:  getEnv("LOOPBACK_INPUT", ""),

		WindowMS:    getEnvInt("WINDOW_MS", 3000),
		OverlapMS:   getEnvInt("OVERLAP_MS", 500),
		MinDecodeMS: getEnvInt("MIN_DECODE_MS", 500),

		QueueCapacity: getEnvInt("QUEUE_CAPACITY", 8),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
