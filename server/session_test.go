package server

import (
	"io"
	"net"
	"strings"

	. "github.com/flynn/go-check"
	"github.com/flynn/linerev/pkg/shutdown"
	"github.com/inconshreveable/log15"
	"github.com/pkg/errors"
)

// fakeConn reads from a fixed input and records writes. Once the input is
// drained Read returns readErr, or io.EOF when readErr is nil.
type fakeConn struct {
	net.Conn

	r        *strings.Reader
	readErr  error
	writeErr error

	writes []string
	closed bool
}

func newFakeConn(input string) *fakeConn {
	return &fakeConn{r: strings.NewReader(input)}
}

func (f *fakeConn) Read(p []byte) (int, error) {
	if f.r.Len() == 0 {
		if f.readErr != nil {
			return 0, f.readErr
		}
		return 0, io.EOF
	}
	return f.r.Read(p)
}

func (f *fakeConn) Write(p []byte) (int, error) {
	f.writes = append(f.writes, string(p))
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return len(p), nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func (f *fakeConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5000}
}

func runSession(conn *fakeConn, stop *shutdown.Signal) (*session, *logRecorder) {
	logs := &logRecorder{}
	logger := log15.New()
	logger.SetHandler(logs.handler())
	sess := newSession(conn, Handler{}, stop, logger)
	sess.serve()
	return sess, logs
}

func (S) TestSessionContinuesAfterWriteError(c *C) {
	conn := newFakeConn("ab\ncd\nef\nEXIT\n")
	conn.writeErr = errors.New("broken pipe")

	sess, logs := runSession(conn, shutdown.NewSignal())
	c.Assert(sess.messages, Equals, 4)
	c.Assert(conn.writes, DeepEquals, []string{"ba\n", "dc\n", "fe\n", "BYE\n"})
	c.Assert(logs.has("failed to send response"), Equals, true)
	c.Assert(conn.closed, Equals, true)
}

func (S) TestSessionEndsOnReadError(c *C) {
	conn := newFakeConn("ab\n")
	conn.readErr = errors.New("connection reset by peer")

	sess, logs := runSession(conn, shutdown.NewSignal())
	c.Assert(sess.messages, Equals, 1)
	c.Assert(conn.writes, DeepEquals, []string{"ba\n"})
	c.Assert(logs.has("error reading from connection"), Equals, true)
	c.Assert(conn.closed, Equals, true)
}

func (S) TestSessionStopSendsSignal(c *C) {
	conn := newFakeConn("STOP\nnever read\n")
	stop := shutdown.NewSignal()

	sess, _ := runSession(conn, stop)
	c.Assert(sess.messages, Equals, 1)
	c.Assert(conn.writes, DeepEquals, []string{"STOPPING SERVER\n"})
	c.Assert(stop.Send(), Equals, false)
}
