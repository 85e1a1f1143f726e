package server

import (
	"io"
	"net"

	"github.com/dustin/go-humanize"
	"github.com/flynn/linerev/pkg/linecodec"
	"github.com/flynn/linerev/pkg/shutdown"
	"github.com/inconshreveable/log15"
)

// session owns one accepted connection until it is closed.
type session struct {
	conn    net.Conn
	remote  net.Addr
	handler Handler
	stop    *shutdown.Signal
	log     log15.Logger

	messages int
}

func newSession(conn net.Conn, handler Handler, stop *shutdown.Signal, logger log15.Logger) *session {
	remote := conn.RemoteAddr()
	return &session{
		conn:    conn,
		remote:  remote,
		handler: handler,
		stop:    stop,
		log:     logger.New("remote", remote.String()),
	}
}

func (s *session) serve() {
	defer s.conn.Close()
	s.log.Debug("got connection")

	dec := linecodec.NewDecoder(s.conn)
	enc := linecodec.NewEncoder(s.conn)
	defer func() {
		s.log.Debug("connection closed", "messages", s.messages, "received", humanize.Bytes(uint64(dec.BytesRead())))
	}()

	for {
		line, err := dec.Decode()
		if err == io.EOF {
			return
		} else if linecodec.IsDecodeError(err) {
			s.log.Error("error decoding line", "err", err)
			continue
		} else if err != nil {
			s.log.Error("error reading from connection", "err", err)
			return
		}
		s.messages++
		s.log.Debug("received line", "line", line)

		reply := s.handler.Handle(line)
		switch reply.Action {
		case ActionExit:
			enc.Encode(reply.Text)
			return
		case ActionStop:
			if !s.stop.Send() {
				s.log.Debug("shutdown already requested")
			}
			enc.Encode(reply.Text)
			return
		}

		s.log.Debug("response", "line", reply.Text)
		if err := enc.Encode(reply.Text); err != nil {
			s.log.Error("failed to send response", "err", err)
		}
	}
}
