package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"github.com/haguro/elevenlabs-go"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"voxdesk/internal/config"
	"voxdesk/internal/dialogue"
	"voxdesk/internal/filter"
	"voxdesk/internal/platform"
	"voxdesk/internal/proxy"
	"voxdesk/internal/speech"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}

	log.Debug("Loaded configuration")

	// fresh scratch area for this run's recordings and synthesized speech
	if err := os.RemoveAll(cfg.AudioDir); err != nil {
		log.Error("Failed to clear audio directory", "err", err)
		os.Exit(1)
	}
	for _, dir := range []string{cfg.AudioDir, cfg.TranscriptDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error("Failed to prepare directory", "dir", dir, "err", err)
			os.Exit(1)
		}
	}

	httpClient, err := proxy.HTTPClient(cfg.SocksProxy)
	if err != nil {
		log.Error("Failed to build upstream http client", "proxy", cfg.SocksProxy, "err", err)
		os.Exit(1)
	}

	openaiClient := openai.NewClient(
		option.WithAPIKey(cfg.OpenAIAPIKey),
		option.WithHTTPClient(httpClient),
	)
	ttsClient := elevenlabs.NewClient(context.Background(), cfg.ElevenLabsAPIKey, 30*time.Second)

	logger := log.Default()
	engine := dialogue.NewEngine(openaiClient, logger)
	synth := speech.NewSynthesizer(ttsClient, cfg.ElevenLabsVoiceID, cfg.AudioDir, logger)
	stt := speech.NewTranscriber(openaiClient, logger)
	blocked := filter.Load(cfg.BannedWordsFile)

	log.Debug("Loaded components", "blocked_words", len(blocked.Words()))

	bot, err := platform.NewBot(cfg, engine, synth, stt, blocked, logger)
	if err != nil {
		log.Error("Failed to create bot", "err", err)
		os.Exit(1)
	}
	if err := bot.Open(); err != nil {
		log.Error("Failed to connect to gateway", "err", err)
		os.Exit(1)
	}
	defer bot.Close()

	log.Info("Boot up - successful")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")
}
