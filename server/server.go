// Package server implements the line reversal protocol: a TCP listener that
// serves each connection in its own goroutine and stops accepting new
// connections once any client sends STOP.
package server

import (
	"net"
	"sync"
	"time"

	"github.com/flynn/linerev/pkg/keepalive"
	"github.com/flynn/linerev/pkg/shutdown"
	"github.com/inconshreveable/log15"
	"github.com/pkg/errors"
	"golang.org/x/net/netutil"
)

// DefaultAddr is the address the server listens on when none is configured.
const DefaultAddr = "127.0.0.1:12345"

// ErrServerClosed is returned by Serve after Close, or when the server has
// already stopped.
var ErrServerClosed = errors.New("server: closed")

var errNotListening = errors.New("server: Serve called before Listen")

type Config struct {
	// Addr is the host:port to listen on. Defaults to DefaultAddr.
	Addr string

	// Transform is applied to every non-command line. Defaults to Reverse.
	Transform Transform

	// Logger defaults to a logger that discards everything.
	Logger log15.Logger

	// KeepAlive enables TCP keepalive on accepted connections.
	KeepAlive bool

	// ReusePort binds Addr with SO_REUSEPORT.
	ReusePort bool

	// MaxConns caps the number of concurrently open connections. Accept
	// blocks while the cap is reached. Zero means unlimited.
	MaxConns int
}

// Server accepts connections on a single listener. Sessions are never
// tracked or closed by the server: after shutdown they run until their
// clients disconnect.
type Server struct {
	addr    string
	handler Handler
	log     log15.Logger

	keepAlive bool
	reusePort bool
	maxConns  int

	ln       net.Listener
	stop     *shutdown.Signal
	stopping chan struct{}
	done     chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

// New returns an unstarted server.
func New(conf Config) *Server {
	if conf.Addr == "" {
		conf.Addr = DefaultAddr
	}
	if conf.Logger == nil {
		conf.Logger = log15.New()
		conf.Logger.SetHandler(log15.DiscardHandler())
	}
	return &Server{
		addr:      conf.Addr,
		handler:   Handler{Transform: conf.Transform},
		log:       conf.Logger,
		keepAlive: conf.KeepAlive,
		reusePort: conf.ReusePort,
		maxConns:  conf.MaxConns,
		stop:      shutdown.NewSignal(),
		stopping:  make(chan struct{}),
		done:      make(chan struct{}),
		closed:    make(chan struct{}),
	}
}

// Listen binds the listen address. A bind failure is not retried.
func (s *Server) Listen() error {
	listen := net.Listen
	if s.reusePort {
		listen = keepalive.ReusableListen
	}
	ln, err := listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "error binding %s", s.addr)
	}
	if s.keepAlive {
		ln = keepalive.Listener(ln)
	}
	if s.maxConns > 0 {
		ln = netutil.LimitListener(ln, s.maxConns)
	}
	s.ln = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ListenAndServe binds the listen address and serves until shutdown.
func (s *Server) ListenAndServe() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Done is closed once Serve has returned.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Close closes the listener, ending Serve with ErrServerClosed. Open
// sessions are left running.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.ln == nil {
			return
		}
		select {
		case <-s.stopping:
			// the shutdown request already closed the listener
		default:
			err = s.ln.Close()
		}
	})
	return err
}

// Serve accepts connections until a session requests shutdown, spawning a
// session goroutine for each one. It returns nil after a shutdown request.
func (s *Server) Serve() error {
	if s.ln == nil {
		return errNotListening
	}
	select {
	case <-s.done:
		return ErrServerClosed
	default:
	}
	defer close(s.done)

	log := s.log.New("fn", "Serve", "addr", s.ln.Addr().String())
	log.Info("server started")

	go s.waitShutdown(log)

	var tempDelay time.Duration
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.stopping:
				log.Info("server stopped")
				return nil
			case <-s.closed:
				log.Info("server closed")
				return ErrServerClosed
			default:
			}
			if isClosed(err) {
				log.Error("listener closed unexpectedly", "err", err)
				return ErrServerClosed
			}
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay *= 2
			}
			if max := time.Second; tempDelay > max {
				tempDelay = max
			}
			log.Error("error accepting connection", "err", err, "retry", tempDelay)
			time.Sleep(tempDelay)
			continue
		}
		tempDelay = 0

		go newSession(conn, s.handler, s.stop, s.log).serve()
	}
}

// waitShutdown closes the listener once shutdown is requested, which
// unblocks the pending Accept.
func (s *Server) waitShutdown(log log15.Logger) {
	select {
	case <-s.stop.C():
		log.Info("shutdown command received")
		close(s.stopping)
		s.ln.Close()
	case <-s.closed:
	}
}

func isClosed(err error) bool {
	oe, ok := err.(*net.OpError)
	return ok && oe.Err == net.ErrClosed
}
