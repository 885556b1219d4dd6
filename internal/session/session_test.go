package session

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxdesk/internal/audio"
	"voxdesk/internal/dialogue"
	"voxdesk/internal/filter"
	"voxdesk/internal/transcript"
)

// fakeRecorder hands out empty recordings while the transcriber script
// lasts, then blocks until the session is canceled.
type fakeRecorder struct {
	mu      sync.Mutex
	calls   int
	errOn   map[int]error // call number (1-based) -> error
	scripts *fakeTranscriber
}

func (r *fakeRecorder) Record(ctx context.Context) (*audio.Recording, error) {
	r.mu.Lock()
	r.calls++
	n := r.calls
	r.mu.Unlock()

	if err, ok := r.errOn[n]; ok {
		return nil, err
	}
	if r.scripts != nil && r.scripts.exhausted() {
		<-ctx.Done()
		return nil, &audio.CaptureError{Err: ctx.Err()}
	}
	return &audio.Recording{}, nil
}

type fakeTranscriber struct {
	mu     sync.Mutex
	script []string
	i      int
}

func (f *fakeTranscriber) Transcribe(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.i >= len(f.script) {
		return "", nil
	}
	text := f.script[f.i]
	f.i++
	return text, nil
}

func (f *fakeTranscriber) exhausted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.i >= len(f.script)
}

type fakeSynth struct {
	mu     sync.Mutex
	spoken []string
	err    error
}

func (f *fakeSynth) Synthesize(text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.spoken = append(f.spoken, text)
	return "", nil
}

func (f *fakeSynth) lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

type fakePlayer struct {
	mu    sync.Mutex
	plays int
}

func (f *fakePlayer) Play(context.Context, string) error {
	f.mu.Lock()
	f.plays++
	f.mu.Unlock()
	return nil
}

type fakeDialogue struct {
	mu    sync.Mutex
	calls int
	reply string
}

func (f *fakeDialogue) Continue(_ context.Context, conv *transcript.Transcript, p dialogue.Persona, speaker, utterance string) string {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	conv.EnsureSystem("system", p.Render())
	conv.AppendUser(speaker, utterance)
	conv.AppendAssistant(p.BotName, f.reply)
	return f.reply
}

func (f *fakeDialogue) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeFlusher struct {
	mu      sync.Mutex
	tickets []bool
	turns   int
	texts   []string
}

func (f *fakeFlusher) Flush(_ context.Context, conv *transcript.Transcript, openTicket bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickets = append(f.tickets, openTicket)
	f.turns = conv.Len()
	f.texts = f.texts[:0]
	for _, turn := range conv.Turns() {
		f.texts = append(f.texts, turn.Text)
	}
	return nil
}

func (f *fakeFlusher) flushes() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.tickets...)
}

// flushedTexts is the turn-text snapshot taken at flush time.
func (f *fakeFlusher) flushedTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type fakeConn struct {
	mu    sync.Mutex
	count int
}

func (f *fakeConn) Disconnect() error {
	f.mu.Lock()
	f.count++
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) disconnects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

type harness struct {
	sess   *Session
	rec    *fakeRecorder
	stt    *fakeTranscriber
	synth  *fakeSynth
	player *fakePlayer
	dlg    *fakeDialogue
	flush  *fakeFlusher
	conn   *fakeConn
}

func newHarness(t *testing.T, script []string, cfg Config) *harness {
	t.Helper()

	stt := &fakeTranscriber{script: script}
	h := &harness{
		stt:    stt,
		rec:    &fakeRecorder{scripts: stt},
		synth:  &fakeSynth{},
		player: &fakePlayer{},
		dlg:    &fakeDialogue{reply: "of course, happy to help"},
		flush:  &fakeFlusher{},
		conn:   &fakeConn{},
	}

	if cfg.ID == "" {
		cfg.ID = "sess-1"
	}
	if cfg.ChannelID == "" {
		cfg.ChannelID = "chan-1"
	}
	if cfg.UserName == "" {
		cfg.UserName = "alice"
	}
	if cfg.Persona.BotName == "" {
		cfg.Persona = dialogue.Persona{BotName: "Helper", ServerName: "Guild"}
	}

	h.sess = New(cfg, Deps{
		Recorder:    h.rec,
		Synthesizer: h.synth,
		Transcriber: h.stt,
		Player:      h.player,
		Dialogue:    h.dlg,
		Flusher:     h.flush,
		Conn:        h.conn,
		Log:         slog.New(slog.DiscardHandler),
	})
	return h
}

func (h *harness) wait(t *testing.T) {
	t.Helper()
	select {
	case <-h.sess.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not terminate")
	}
}

func TestEndPhraseTerminatesAndFlushesOnce(t *testing.T) {
	h := newHarness(t, []string{"my mouse is broken", "okay goodbye"}, Config{})
	h.sess.Start()
	h.wait(t)

	assert.Equal(t, StateTerminated, h.sess.State())
	assert.Equal(t, []bool{false}, h.flush.flushes())
	assert.Equal(t, 1, h.conn.disconnects())
	assert.Equal(t, 1, h.dlg.callCount())
}

func TestEscalationPhraseRoutesToEscalating(t *testing.T) {
	h := newHarness(t, []string{
		"i need higher support",
		"my name is alice",
		"the printer caught fire",
		"nothing else",
	}, Config{})
	h.sess.Start()
	h.wait(t)

	// ticket opened exactly once, never the plain flush
	assert.Equal(t, []bool{true}, h.flush.flushes())
	// escalation answers bypass the dialogue engine
	assert.Zero(t, h.dlg.callCount())

	lines := h.synth.lines()
	require.NotEmpty(t, lines)
	assert.Equal(t, goodbyeLine, lines[len(lines)-1])
	assert.Subset(t, lines, escalationQuestions)
}

func TestEscalationAnswersLandInTranscript(t *testing.T) {
	h := newHarness(t, []string{
		"let me speak to a human",
		"alice",
		"broken printer",
		"no",
	}, Config{})
	h.sess.Start()
	h.wait(t)

	var answers []string
	for _, turn := range h.sess.conv.Turns() {
		if turn.Role == transcript.RoleUser {
			answers = append(answers, turn.Text)
		}
	}
	assert.Equal(t, []string{"alice", "broken printer", "no"}, answers)
}

func TestGoodbyeLandsInTicketFlush(t *testing.T) {
	h := newHarness(t, []string{
		"i need higher support",
		"alice",
		"printer on fire",
		"no",
	}, Config{})
	h.sess.Start()
	h.wait(t)

	// the publisher resets the conversation after flushing, so anything
	// recorded later is lost; the goodbye must already be in the snapshot
	texts := h.flush.flushedTexts()
	require.NotEmpty(t, texts)
	assert.Equal(t, goodbyeLine, texts[len(texts)-1])
}

func TestChannelEmptyEndsWithoutFurtherListening(t *testing.T) {
	h := newHarness(t, nil, Config{})
	h.sess.Start()
	h.sess.NotifyChannelEmpty()
	h.wait(t)

	assert.Equal(t, StateTerminated, h.sess.State())
	assert.Equal(t, []bool{false}, h.flush.flushes())
	assert.Zero(t, h.dlg.callCount())
}

func TestConcurrentTerminationFlushesOnce(t *testing.T) {
	h := newHarness(t, []string{"goodbye"}, Config{})
	h.sess.Start()
	go h.sess.NotifyChannelEmpty()
	go h.sess.NotifyChannelEmpty()
	h.wait(t)

	assert.Equal(t, []bool{false}, h.flush.flushes())
	assert.Equal(t, 1, h.conn.disconnects())
}

func TestFilteredUtteranceGetsRefusal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocked.txt")
	require.NoError(t, os.WriteFile(path, []byte("badword\n"), 0o644))

	h := newHarness(t, []string{"you total badword", "goodbye"}, Config{
		Filter: filter.Load(path),
	})
	h.sess.Start()
	h.wait(t)

	assert.Zero(t, h.dlg.callCount())
	assert.Contains(t, h.synth.lines(), refusalLine)
}

func TestSynthesisFailureNeverCrashesSession(t *testing.T) {
	h := newHarness(t, []string{"hello", "goodbye"}, Config{})
	h.synth.err = errors.New("tts down")
	h.sess.Start()
	h.wait(t)

	assert.Equal(t, StateTerminated, h.sess.State())
	assert.Equal(t, []bool{false}, h.flush.flushes())
	assert.Zero(t, h.player.plays)
}

func TestCaptureErrorRetriesListening(t *testing.T) {
	h := newHarness(t, []string{"goodbye"}, Config{})
	h.rec.errOn = map[int]error{1: &audio.CaptureError{Err: errors.New("stream hiccup")}}
	h.sess.Start()
	h.wait(t)

	assert.Equal(t, StateTerminated, h.sess.State())
	assert.GreaterOrEqual(t, h.rec.calls, 2)
}

func TestResponseSegmentsSpokenInOrder(t *testing.T) {
	h := newHarness(t, []string{"help me", "goodbye"}, Config{SegmentLimit: 10})
	h.dlg.reply = "The quick brown fox jumps over the lazy dog"
	h.sess.Start()
	h.wait(t)

	lines := h.synth.lines()
	var segments []string
	for _, l := range lines {
		switch l {
		case "The quick", "brown fox", "jumps over", "the lazy", "dog":
			segments = append(segments, l)
		}
	}
	assert.Equal(t, []string{"The quick", "brown fox", "jumps over", "the lazy", "dog"}, segments)
}

func TestManagerOneSessionPerChannel(t *testing.T) {
	m := NewManager(slog.New(slog.DiscardHandler))

	h := newHarness(t, []string{"goodbye"}, Config{ChannelID: "chan-9"})
	require.NoError(t, m.Add(h.sess))

	dup := newHarness(t, nil, Config{ChannelID: "chan-9"})
	assert.Error(t, m.Add(dup.sess))

	h.wait(t)
	// slot cleared after termination
	assert.Eventually(t, func() bool {
		_, ok := m.Get("chan-9")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestManagerChannelEmptyRouting(t *testing.T) {
	m := NewManager(slog.New(slog.DiscardHandler))
	h := newHarness(t, nil, Config{ChannelID: "chan-2"})
	require.NoError(t, m.Add(h.sess))

	m.ChannelEmpty("other-channel") // no-op
	m.ChannelEmpty("chan-2")
	h.wait(t)
	assert.Equal(t, StateTerminated, h.sess.State())
}
