package domain

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// MaxHistoryTurns bounds the stored conversation per chat: 20 turns,
// i.e. 10 user/model exchanges. Older turns are dropped from the head.
const MaxHistoryTurns = 20

// ConversationTurn is one role-tagged message unit within a chat history.
// Parts is ordered; only text parts are persisted.
type ConversationTurn struct {
	Role  string   `json:"role"`
	Parts []string `json:"parts"`
}

func NewTurn(role, text string) ConversationTurn {
	return ConversationTurn{Role: role, Parts: []string{text}}
}

// Text joins the turn's parts into the flat text the AI backend expects.
func (t ConversationTurn) Text() string {
	switch len(t.Parts) {
	case 0:
		return ""
	case 1:
		return t.Parts[0]
	}
	out := t.Parts[0]
	for _, p := range t.Parts[1:] {
		out += p
	}
	return out
}

// History is an ordered conversation, oldest turn first.
type History []ConversationTurn

// Append adds a turn and drops the oldest entries so that the history
// never exceeds MaxHistoryTurns.
func (h History) Append(turn ConversationTurn) History {
	h = append(h, turn)
	if len(h) > MaxHistoryTurns {
		h = h[len(h)-MaxHistoryTurns:]
	}
	return h
}
