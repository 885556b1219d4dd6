// Package session owns the voice-session state machine: one active session
// per voice channel, sequencing greet, listen, respond, escalate and
// cleanup. All external collaborators hide behind narrow interfaces so the
// machine itself stays testable.
package session

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"

	"voxdesk/internal/audio"
	"voxdesk/internal/dialogue"
	"voxdesk/internal/filter"
	"voxdesk/internal/transcript"
	"voxdesk/pkg/textutil"
)

// State tracks where a session is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateGreeting
	StateListening
	StateResponding
	StateEscalating
	StateEnding
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateGreeting:
		return "greeting"
	case StateListening:
		return "listening"
	case StateResponding:
		return "responding"
	case StateEscalating:
		return "escalating"
	case StateEnding:
		return "ending"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Recorder captures one bounded utterance.
type Recorder interface {
	Record(ctx context.Context) (*audio.Recording, error)
}

// Synthesizer turns a line of text into a playable file.
type Synthesizer interface {
	Synthesize(text string) (string, error)
}

// Transcriber turns a recorded utterance into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Player plays one audio file to the channel, returning when playback is
// handed off completely.
type Player interface {
	Play(ctx context.Context, path string) error
}

// Dialogue produces the next assistant turn. It never returns an error; on
// upstream failure it yields a fixed apology so the session keeps going.
type Dialogue interface {
	Continue(ctx context.Context, conv *transcript.Transcript, p dialogue.Persona, speaker, utterance string) string
}

// Flusher persists and posts the transcript, optionally opening a ticket.
type Flusher interface {
	Flush(ctx context.Context, conv *transcript.Transcript, openTicket bool) error
}

// Connection is the session's voice-channel handle.
type Connection interface {
	Disconnect() error
}

type Config struct {
	ID        string
	GuildID   string
	ChannelID string
	UserID    string
	UserName  string

	Persona      dialogue.Persona
	Greeting     string
	SegmentLimit int
	Filter       *filter.List
}

type Deps struct {
	Recorder    Recorder
	Synthesizer Synthesizer
	Transcriber Transcriber
	Player      Player
	Dialogue    Dialogue
	Flusher     Flusher
	Conn        Connection
	Log         *slog.Logger
}

// Session is one live support call. It owns its transcript, connection and
// temporary files; nothing is shared with other sessions.
type Session struct {
	cfg  Config
	deps Deps
	conv *transcript.Transcript
	log  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	state State

	flushOnce sync.Once
	endOnce   sync.Once
	done      chan struct{}

	// onTerminate releases the channel's session slot.
	onTerminate func(channelID string)
}

func New(cfg Config, deps Deps) *Session {
	if cfg.SegmentLimit <= 0 {
		cfg.SegmentLimit = textutil.DefaultSegmentLimit
	}
	if cfg.Filter == nil {
		cfg.Filter = filter.Load("")
	}
	if cfg.Greeting == "" {
		cfg.Greeting = strings.ReplaceAll(GreetingTemplate, "{bot_username}", cfg.Persona.BotName)
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		cfg:    cfg,
		deps:   deps,
		conv:   transcript.New(),
		log:    deps.Log.With("session", cfg.ID, "channel", cfg.ChannelID),
		ctx:    ctx,
		cancel: cancel,
		state:  StateConnecting,
		done:   make(chan struct{}),
	}
}

// Start launches the session loop. The connection is expected to be ready.
func (s *Session) Start() {
	go s.run()
}

// Done closes once the session has fully terminated.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
	s.log.Debug("state transition", "state", next.String())
}

// NotifyChannelEmpty forces the session toward Ending, exactly as if the
// caller had said the end phrase. Safe to call repeatedly and after
// termination; later events are no-ops.
func (s *Session) NotifyChannelEmpty() {
	s.log.Info("voice channel emptied, ending session")
	s.cancel()
}

func (s *Session) run() {
	defer close(s.done)
	defer s.terminate()

	s.setState(StateGreeting)
	s.sayLine(s.cfg.Greeting)

	s.setState(StateListening)
	for s.ctx.Err() == nil {
		text, ok := s.listenOnce()
		if !ok {
			continue
		}

		lower := strings.ToLower(text)
		switch {
		case s.cfg.Filter.Blocked(text):
			s.log.Info("utterance blocked by content filter")
			s.sayLine(refusalLine)

		case strings.Contains(lower, escalatePhraseA), strings.Contains(lower, escalatePhraseB):
			s.escalate()
			return

		case strings.Contains(lower, endPhrase):
			s.log.Info("caller ended the conversation")
			return

		default:
			s.respond(text)
		}
		s.setState(StateListening)
	}
}

// listenOnce runs one record-and-transcribe cycle. A capture or encode
// failure aborts only this cycle; an empty transcription silently re-listens.
func (s *Session) listenOnce() (string, bool) {
	rec, err := s.deps.Recorder.Record(s.ctx)
	if err != nil {
		if s.ctx.Err() == nil {
			s.log.Warn("listen cycle failed", "err", err)
		}
		return "", false
	}
	defer rec.Cleanup()

	text, err := s.deps.Transcriber.Transcribe(s.ctx, rec.Path)
	if err != nil {
		// treated the same as no usable speech
		return "", false
	}
	if text == "" {
		s.log.Debug("no usable speech, listening again")
		return "", false
	}

	s.log.Info("heard", "text", text)
	return text, true
}

func (s *Session) respond(text string) {
	s.setState(StateResponding)

	reply := s.deps.Dialogue.Continue(s.ctx, s.conv, s.cfg.Persona, s.cfg.UserName, text)

	// each segment fully plays before the next is synthesized
	for _, segment := range textutil.SplitResponse(reply, s.cfg.SegmentLimit) {
		if s.ctx.Err() != nil {
			return
		}
		s.say(segment)
	}
}

// escalate walks the fixed question sequence, appends the caller's answers
// to the transcript without consulting the dialogue engine, opens a ticket
// and says goodbye.
func (s *Session) escalate() {
	s.setState(StateEscalating)
	s.log.Info("caller requested escalation")

	for _, question := range escalationQuestions {
		if s.ctx.Err() != nil {
			break
		}
		s.sayLine(question)

		answer, ok := s.listenOnce()
		if ok {
			s.conv.AppendUser(s.cfg.UserName, answer)
		}
	}

	// the flush clears the conversation, so the goodbye has to be on the
	// record first
	s.conv.AppendAssistant(s.cfg.Persona.BotName, goodbyeLine)
	s.flush(true)
	s.say(goodbyeLine)
}

// sayLine speaks a fixed line and records it as an assistant turn.
func (s *Session) sayLine(text string) {
	s.conv.AppendAssistant(s.cfg.Persona.BotName, text)
	s.say(text)
}

// say synthesizes and plays one text segment. Synthesis and playback
// failures are absorbed here: logged, line skipped, session continues.
func (s *Session) say(text string) {
	path, err := s.deps.Synthesizer.Synthesize(text)
	if err != nil {
		s.log.Warn("skipping line, synthesis failed", "err", err)
		return
	}
	defer os.Remove(path)

	if err := s.deps.Player.Play(s.ctx, path); err != nil && s.ctx.Err() == nil {
		s.log.Warn("playback failed", "err", err)
	}
}

// flush writes and posts the transcript exactly once per session lifetime,
// whichever termination path gets here first.
func (s *Session) flush(openTicket bool) {
	s.flushOnce.Do(func() {
		// deliberately not the session context: the flush must complete
		// even when the session was canceled by a disconnect
		if err := s.deps.Flusher.Flush(context.Background(), s.conv, openTicket); err != nil {
			s.log.Error("transcript flush failed", "err", err)
		}
	})
}

// terminate tears the session down: flush, release the voice connection,
// clear the channel slot. Guarded so concurrent disconnect and end events
// cannot run it twice.
func (s *Session) terminate() {
	s.endOnce.Do(func() {
		s.setState(StateEnding)
		s.cancel()

		s.flush(false)

		if err := s.deps.Conn.Disconnect(); err != nil {
			s.log.Warn("voice disconnect failed", "err", err)
		}

		s.setState(StateTerminated)
		if s.onTerminate != nil {
			s.onTerminate(s.cfg.ChannelID)
		}
	})
}
