// Package platform is the Discord-facing glue: gateway session, command and
// event handlers, and the wiring that turns a mention into a live voice
// session.
package platform

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"voxdesk/internal/audio"
	"voxdesk/internal/config"
	"voxdesk/internal/dialogue"
	"voxdesk/internal/filter"
	"voxdesk/internal/session"
	"voxdesk/internal/speech"
	"voxdesk/internal/ticket"
)

type Bot struct {
	s         *discordgo.Session
	cfg       config.Config
	manager   *session.Manager
	publisher *ticket.Publisher
	engine    *dialogue.Engine
	synth     *speech.Synthesizer
	stt       *speech.Transcriber
	blocked   *filter.List
	log       *slog.Logger
}

func NewBot(cfg config.Config, engine *dialogue.Engine, synth *speech.Synthesizer, stt *speech.Transcriber, blocked *filter.List, log *slog.Logger) (*Bot, error) {
	s, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildMessageReactions

	b := &Bot{
		s:       s,
		cfg:     cfg,
		manager: session.NewManager(log),
		engine:  engine,
		synth:   synth,
		stt:     stt,
		blocked: blocked,
		log:     log,
	}
	b.publisher = ticket.NewPublisher(&messenger{s: s}, engine, cfg.TicketChannelID, cfg.TranscriptDir, log)

	s.AddHandler(b.handleReady)
	s.AddHandler(b.handleMessageCreate)
	s.AddHandler(b.handleVoiceStateUpdate)
	s.AddHandler(b.handleReactionAdd)
	return b, nil
}

func (b *Bot) Open() error {
	if err := b.s.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	return nil
}

func (b *Bot) Close() error { return b.s.Close() }

func (b *Bot) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.log.Info("logged in", "user", r.User.Username)
}

// handleMessageCreate starts a session when a member mentions the bot while
// sitting in a voice channel.
func (b *Bot) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}
	if !mentionsMe(s, m) {
		return
	}

	vs, err := s.State.VoiceState(m.GuildID, m.Author.ID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		b.reply(m, "You need to join a voice channel first!")
		return
	}

	if _, busy := b.manager.Get(vs.ChannelID); busy {
		b.reply(m, "I'm already in a call on that channel.")
		return
	}

	if err := b.startSession(s, m, vs.ChannelID); err != nil {
		b.log.Error("failed to start session", "err", err, "channel", vs.ChannelID)
		b.reply(m, "Sorry, I couldn't join your voice channel.")
		return
	}
	b.reply(m, "Joined your voice channel!")
}

func (b *Bot) startSession(s *discordgo.Session, m *discordgo.MessageCreate, voiceChannelID string) error {
	vc, err := s.ChannelVoiceJoin(m.GuildID, voiceChannelID, false, false)
	if err != nil {
		return fmt.Errorf("join voice channel: %w", err)
	}
	link := newVoiceLink(vc)

	serverName := m.GuildID
	if guild, err := s.State.Guild(m.GuildID); err == nil {
		serverName = guild.Name
	}

	userName := m.Author.Username
	if member, err := s.State.Member(m.GuildID, m.Author.ID); err == nil && member.Nick != "" {
		userName = member.Nick
	}

	cfg := session.Config{
		ID:        newID(),
		GuildID:   m.GuildID,
		ChannelID: voiceChannelID,
		UserID:    m.Author.ID,
		UserName:  userName,
		Persona: dialogue.Persona{
			BotName:    s.State.User.Username,
			ServerName: serverName,
		},
		Filter: b.blocked,
	}

	recorder := audio.NewRecorder(link.Packets(), link.AcceptUser(m.Author.ID), audio.RecorderConfig{
		Dir: b.cfg.AudioDir,
	}, b.log)

	sess := session.New(cfg, session.Deps{
		Recorder:    recorder,
		Synthesizer: b.synth,
		Transcriber: b.stt,
		Player:      audio.NewPlayer(link, b.log),
		Dialogue:    b.engine,
		Flusher:     b.publisher,
		Conn:        link,
		Log:         b.log,
	})
	return b.manager.Add(sess)
}

// handleVoiceStateUpdate watches for a session's channel emptying out.
func (b *Bot) handleVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.UserID == s.State.User.ID {
		return
	}
	if v.BeforeUpdate == nil || v.BeforeUpdate.ChannelID == "" || v.BeforeUpdate.ChannelID == v.ChannelID {
		return
	}
	left := v.BeforeUpdate.ChannelID

	if _, tracked := b.manager.Get(left); !tracked {
		return
	}

	guild, err := s.State.Guild(v.GuildID)
	if err != nil {
		return
	}
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == left && vs.UserID != s.State.User.ID {
			return // still occupied
		}
	}
	b.manager.ChannelEmpty(left)
}

func (b *Bot) handleReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	b.publisher.HandleReaction(s.State.User.ID, r)
}

func (b *Bot) reply(m *discordgo.MessageCreate, content string) {
	if _, err := b.s.ChannelMessageSendReply(m.ChannelID, content, m.Reference()); err != nil {
		b.log.Warn("reply failed", "err", err)
	}
}

func mentionsMe(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	for _, u := range m.Mentions {
		if u.ID == s.State.User.ID {
			return true
		}
	}
	return false
}

func newID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
