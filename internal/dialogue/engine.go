// Package dialogue drives the language-model side of a support session: it
// grows the conversation transcript turn by turn and produces ticket
// summaries for finished conversations.
package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/openai/openai-go/v3"

	"voxdesk/internal/transcript"
)

const (
	// Apology is spoken when the language model cannot be reached. It is a
	// return value, never an error: the session keeps going.
	Apology = "Sorry, I'm having trouble thinking right now. Could you repeat that in a moment?"

	// SummaryUnavailable stands in for a ticket summary when the upstream
	// call fails.
	SummaryUnavailable = "Summary unavailable."
)

const personaTemplate = "You are {bot_username}, a friendly voice support agent " +
	"for the {server_name} Discord server. Keep answers short and conversational: " +
	"your replies are read out loud by a text-to-speech service, so never use " +
	"markup, lists or formatting. If you cannot help, suggest the caller ask " +
	"for higher support."

const summaryInstruction = "Summarize the following support conversation in a " +
	"few sentences for a human reviewer. State the caller's problem and what " +
	"was attempted. Transcript:\n\n"

// Persona identifies the bot to the language model for one session.
type Persona struct {
	BotName    string
	ServerName string
}

// Render fills the persona template.
func (p Persona) Render() string {
	s := strings.ReplaceAll(personaTemplate, "{bot_username}", p.BotName)
	return strings.ReplaceAll(s, "{server_name}", p.ServerName)
}

type Engine struct {
	client      openai.Client
	log         *slog.Logger
	model       openai.ChatModel
	temperature float64
}

func NewEngine(client openai.Client, log *slog.Logger) *Engine {
	return &Engine{
		client:      client,
		log:         log,
		model:       openai.ChatModelGPT4o,
		temperature: 0.7,
	}
}

// Continue appends the caller's utterance to the conversation and asks the
// model for the next assistant turn. The first call seeds the persona system
// turn. On success exactly one user and one assistant turn are recorded; on
// upstream failure the user turn is kept, no assistant turn is recorded and
// a fixed apology is returned so the caller still hears something.
func (e *Engine) Continue(ctx context.Context, conv *transcript.Transcript, p Persona, speaker, utterance string) string {
	conv.EnsureSystem("system", p.Render())
	conv.AppendUser(speaker, utterance)

	reply, err := e.complete(ctx, messagesFrom(conv))
	if err != nil {
		e.log.Warn("chat completion failed", "err", err)
		return Apology
	}

	conv.AppendAssistant(p.BotName, reply)
	return reply
}

// Summarize produces a standalone summary of a finished conversation. It
// neither reads engine state nor mutates the transcript: the rendered text
// goes upstream as a single user turn with a distinct instruction.
func (e *Engine) Summarize(ctx context.Context, conv *transcript.Transcript) string {
	msgs := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(summaryInstruction + conv.Render()),
	}

	summary, err := e.complete(ctx, msgs)
	if err != nil {
		e.log.Warn("summary generation failed", "err", err)
		return SummaryUnavailable
	}
	return summary
}

func (e *Engine) complete(ctx context.Context, msgs []openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    msgs,
		Model:       e.model,
		Temperature: openai.Float(e.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty message content")
	}
	return content, nil
}

func messagesFrom(conv *transcript.Transcript) []openai.ChatCompletionMessageParamUnion {
	turns := conv.Turns()
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case transcript.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(turn.Text))
		case transcript.RoleUser:
			msgs = append(msgs, openai.UserMessage(turn.Text))
		case transcript.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(turn.Text))
		}
	}
	return msgs
}
