package server

// Commands understood by a session. Matching is exact and case-sensitive.
const (
	CmdExit = "EXIT"
	CmdStop = "STOP"

	ReplyExit = "BYE"
	ReplyStop = "STOPPING SERVER"
)

// Transform maps an inbound line to its reply. It must be pure and defined
// for every input, including the empty string.
type Transform func(string) string

// Reverse returns s with its sequence of characters reversed.
func Reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

// Action tells a session what to do after sending a Reply.
type Action int

const (
	// ActionReply keeps the connection open.
	ActionReply Action = iota
	// ActionExit closes the connection.
	ActionExit
	// ActionStop closes the connection and requests server shutdown.
	ActionStop
)

func (a Action) String() string {
	switch a {
	case ActionReply:
		return "reply"
	case ActionExit:
		return "exit"
	case ActionStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Reply is the response to one message and what the session does next.
type Reply struct {
	Text   string
	Action Action
}

// Handler decides the outcome of a single message.
type Handler struct {
	// Transform is applied to every non-command message. Nil means Reverse.
	Transform Transform
}

// Handle returns the reply for msg.
func (h Handler) Handle(msg string) Reply {
	switch msg {
	case CmdExit:
		return Reply{Text: ReplyExit, Action: ActionExit}
	case CmdStop:
		return Reply{Text: ReplyStop, Action: ActionStop}
	}
	t := h.Transform
	if t == nil {
		t = Reverse
	}
	return Reply{Text: t(msg), Action: ActionReply}
}
