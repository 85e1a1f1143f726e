package server

import (
	"strings"

	. "github.com/flynn/go-check"
)

func (S) TestReverse(c *C) {
	table := []struct {
		in, want string
	}{
		{"", ""},
		{"a", "a"},
		{"hello", "olleh"},
		{"hello world", "dlrow olleh"},
		{"racecar", "racecar"},
		{"héllo", "olléh"},
		{"日本語", "語本日"},
		{"ab✓", "✓ba"},
		{" EXIT", "TIXE "},
	}
	for _, test := range table {
		c.Assert(Reverse(test.in), Equals, test.want, Commentf("input %q", test.in))
		c.Assert(Reverse(Reverse(test.in)), Equals, test.in)
	}
}

func (S) TestHandleCommands(c *C) {
	var h Handler
	c.Assert(h.Handle("EXIT"), DeepEquals, Reply{Text: "BYE", Action: ActionExit})
	c.Assert(h.Handle("STOP"), DeepEquals, Reply{Text: "STOPPING SERVER", Action: ActionStop})
	c.Assert(h.Handle("hello"), DeepEquals, Reply{Text: "olleh", Action: ActionReply})
	c.Assert(h.Handle(""), DeepEquals, Reply{Text: "", Action: ActionReply})
}

func (S) TestHandleIsCaseSensitive(c *C) {
	var h Handler
	for _, msg := range []string{"exit", "Exit", "stop", "Stop", "EXIT ", " STOP", "EXITS", "STOPSTOP"} {
		reply := h.Handle(msg)
		c.Assert(reply.Action, Equals, ActionReply, Commentf("message %q", msg))
		c.Assert(reply.Text, Equals, Reverse(msg))
	}
}

func (S) TestHandleCustomTransform(c *C) {
	h := Handler{Transform: strings.ToUpper}
	c.Assert(h.Handle("hello"), DeepEquals, Reply{Text: "HELLO", Action: ActionReply})
	c.Assert(h.Handle("EXIT").Action, Equals, ActionExit)
}

func (S) TestActionString(c *C) {
	c.Assert(ActionReply.String(), Equals, "reply")
	c.Assert(ActionExit.String(), Equals, "exit")
	c.Assert(ActionStop.String(), Equals, "stop")
	c.Assert(Action(42).String(), Equals, "unknown")
}
