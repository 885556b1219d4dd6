// Package config collects the process configuration from the environment.
// Missing required credentials are fatal at startup; nothing is re-read
// later.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

type Config struct {
	DiscordBotToken   string
	OpenAIAPIKey      string
	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string

	// TicketChannelID is the review channel transcripts and ticket cards go
	// to.
	TicketChannelID string

	// BannedWordsFile is optional; a missing file disables the content
	// filter.
	BannedWordsFile string

	// AudioDir is the scratch area for recordings and synthesized speech.
	AudioDir string
	// TranscriptDir is where durable transcript files land.
	TranscriptDir string

	// SocksProxy optionally routes upstream API traffic through a SOCKS5
	// proxy ("host:port").
	SocksProxy string
}

func FromEnv() Config {
	cfg := Config{
		DiscordBotToken:   os.Getenv("DISCORD_BOT_TOKEN"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		ElevenLabsAPIKey:  os.Getenv("ELEVEN_LABS_API_KEY"),
		ElevenLabsVoiceID: os.Getenv("ELEVEN_LABS_VOICE_ID"),
		TicketChannelID:   os.Getenv("HELP_TICKET_CHANNEL_ID"),
		BannedWordsFile:   os.Getenv("BANNED_WORDS_FILE"),
		AudioDir:          os.Getenv("AUDIO_DIR"),
		TranscriptDir:     os.Getenv("TRANSCRIPT_DIR"),
		SocksProxy:        os.Getenv("SOCKS_PROXY"),
	}
	if cfg.AudioDir == "" {
		cfg.AudioDir = "audio"
	}
	if cfg.TranscriptDir == "" {
		cfg.TranscriptDir = "transcripts"
	}
	return cfg
}

// Validate reports every missing required setting at once.
func (c Config) Validate() error {
	var missing []string
	for name, value := range map[string]string{
		"DISCORD_BOT_TOKEN":      c.DiscordBotToken,
		"OPENAI_API_KEY":         c.OpenAIAPIKey,
		"ELEVEN_LABS_API_KEY":    c.ElevenLabsAPIKey,
		"ELEVEN_LABS_VOICE_ID":   c.ElevenLabsVoiceID,
		"HELP_TICKET_CHANNEL_ID": c.TicketChannelID,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}
