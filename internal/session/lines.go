package session

// Fixed lines spoken by the agent. Everything here goes through the same
// synthesis path as generated replies.
const (
	// GreetingTemplate is rendered with the bot's username at session start.
	GreetingTemplate = "Hi, I'm {bot_username}, your support assistant. How can I help you today?"

	refusalLine = "I'm sorry, but I can't help with that. Let's keep things friendly."

	goodbyeLine = "Thanks for calling. A member of our team will review your ticket shortly. Goodbye!"
)

// Phrase triggers, matched as case-insensitive substrings of the transcribed
// utterance. Voice transcripts rarely match whole sentences verbatim, so
// containment is the practical test.
const (
	endPhrase = "goodbye"

	escalatePhraseA = "higher support"
	escalatePhraseB = "speak to a human"
)

// escalationQuestions are asked in order once a caller requests escalation.
// Answers land in the transcript but are never fed back to the language
// model.
var escalationQuestions = []string{
	"Could you tell me your username, so the team can reach you?",
	"Please describe your issue in as much detail as you can.",
	"Is there anything else the support team should know?",
}
