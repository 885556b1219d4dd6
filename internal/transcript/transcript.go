// Package transcript holds the running record of one voice session's
// conversation as an ordered list of role-tagged turns.
package transcript

import (
	"fmt"
	"strings"
)

// Role tags who produced a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one unit of conversation. Turns are append-only and never mutated
// once recorded.
type Turn struct {
	Role    Role
	Speaker string
	Text    string
}

// Transcript is the ordered sequence of turns for a single session. It is
// owned by one session and not safe for concurrent use.
type Transcript struct {
	turns []Turn
}

func New() *Transcript { return &Transcript{} }

// EnsureSystem seeds the persona turn once. The system turn always sits
// ahead of every user turn, even when fixed assistant lines were recorded
// before the first dialogue call.
func (t *Transcript) EnsureSystem(speaker, text string) {
	for _, turn := range t.turns {
		if turn.Role == RoleSystem {
			return
		}
	}
	t.turns = append([]Turn{{Role: RoleSystem, Speaker: speaker, Text: text}}, t.turns...)
}

func (t *Transcript) AppendUser(speaker, text string) {
	t.turns = append(t.turns, Turn{Role: RoleUser, Speaker: speaker, Text: text})
}

func (t *Transcript) AppendAssistant(speaker, text string) {
	t.turns = append(t.turns, Turn{Role: RoleAssistant, Speaker: speaker, Text: text})
}

// Turns returns the recorded turns in order of occurrence.
func (t *Transcript) Turns() []Turn { return t.turns }

func (t *Transcript) Len() int { return len(t.turns) }

// Render serializes the transcript as one "speaker: text" line per turn.
func (t *Transcript) Render() string {
	lines := make([]string, 0, len(t.turns))
	for _, turn := range t.turns {
		speaker := turn.Speaker
		if speaker == "" {
			speaker = string(turn.Role)
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, turn.Text))
	}
	return strings.Join(lines, "\n")
}

// Reset drops all turns, returning the transcript to its initial state.
func (t *Transcript) Reset() {
	t.turns = nil
}
