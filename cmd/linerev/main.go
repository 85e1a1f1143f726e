package main

import (
	"io"
	"net"
	"os"
	"strconv"

	docopt "github.com/flynn/go-docopt"
	"github.com/flynn/linerev/config"
	"github.com/flynn/linerev/pkg/shutdown"
	"github.com/flynn/linerev/server"
	"github.com/inconshreveable/log15"
	"github.com/pkg/errors"
)

// set at build time with -ldflags "-X main.version=..."
var version = "dev"

const usage = `usage: linerev [options]

Serve the line reversal protocol over TCP. Each line received is answered
with the same line reversed. EXIT closes the connection, STOP closes the
connection and stops the server.

Options:
  -h, --help               Show this message
  --version                Show current version
  -c, --config=PATH        TOML config file
  -a, --addr=ADDR          listen address
  --log-level=LEVEL        log level (debug, info, warn, error, crit)
  --log-format=FORMAT      log format (logfmt, json, terminal)
  --log-file=PATH          write logs to a rotated file instead of stderr
  --max-conns=N            maximum concurrent connections (0 = unlimited)
  --reuse-port             bind the listen address with SO_REUSEPORT
  --no-keepalive           disable TCP keepalive on accepted connections
`

func main() {
	defer shutdown.Exit()

	m := NewMain()
	shutdown.BeforeExit(func() { m.Close() })
	if err := m.Run(os.Args[1:]...); err != nil {
		shutdown.Fatal(err)
	}
}

// Main represents the main program.
type Main struct {
	server  *server.Server
	closers []io.Closer

	Logger log15.Logger

	// Getenv looks up configuration overrides.
	Getenv func(string) string

	Stdout io.Writer
	Stderr io.Writer
}

// NewMain returns a new instance of Main.
func NewMain() *Main {
	return &Main{
		Getenv: os.Getenv,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// ParseFlags builds the configuration from defaults, the config file, the
// environment and the command line flags, in increasing order of precedence.
func (m *Main) ParseFlags(args ...string) (*config.Config, error) {
	// docopt falls back to os.Args when given nil
	if args == nil {
		args = []string{}
	}
	opts, err := docopt.Parse(usage, args, true, version, false)
	if err != nil {
		return nil, err
	}

	conf := config.Default()
	if path := opts.String["--config"]; path != "" {
		if conf, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if err := conf.ApplyEnv(m.Getenv); err != nil {
		return nil, err
	}

	if v := opts.String["--addr"]; v != "" {
		conf.Addr = v
	}
	if v := opts.String["--log-level"]; v != "" {
		conf.Log.Level = v
	}
	if v := opts.String["--log-format"]; v != "" {
		conf.Log.Format = v
	}
	if v := opts.String["--log-file"]; v != "" {
		conf.Log.File = v
	}
	if v := opts.String["--max-conns"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.Wrap(err, "invalid --max-conns")
		}
		conf.MaxConns = n
	}
	if opts.Bool["--reuse-port"] {
		conf.ReusePort = true
	}
	if opts.Bool["--no-keepalive"] {
		conf.KeepAlive = false
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Open sets up logging and binds the listen address.
func (m *Main) Open(conf *config.Config) error {
	logger, err := m.openLogger(conf)
	if err != nil {
		return errors.Wrap(err, "error setting up logger")
	}
	m.Logger = logger
	log := logger.New("fn", "Open")

	m.server = server.New(server.Config{
		Addr:      conf.Addr,
		Logger:    logger,
		KeepAlive: conf.KeepAlive,
		ReusePort: conf.ReusePort,
		MaxConns:  conf.MaxConns,
	})
	log.Info("binding listen address", "addr", conf.Addr)
	if err := m.server.Listen(); err != nil {
		log.Error("error binding listen address", "err", err)
		return err
	}
	return nil
}

// Addr returns the address the server is bound to.
func (m *Main) Addr() net.Addr {
	if m.server == nil {
		return nil
	}
	return m.server.Addr()
}

// Serve runs the server until a client sends STOP.
func (m *Main) Serve() error {
	if m.server == nil {
		return errors.New("linerev: Serve called before Open")
	}
	return m.server.Serve()
}

// Run executes the program.
func (m *Main) Run(args ...string) error {
	conf, err := m.ParseFlags(args...)
	if err != nil {
		return err
	}
	if err := m.Open(conf); err != nil {
		return err
	}
	return m.Serve()
}

// Close releases the listener and the log file. Open sessions are not
// interrupted.
func (m *Main) Close() error {
	var err error
	if m.server != nil {
		if e := m.server.Close(); e != nil {
			err = e
		}
	}
	for i := len(m.closers) - 1; i >= 0; i-- {
		if e := m.closers[i].Close(); e != nil && err == nil {
			err = e
		}
	}
	m.closers = nil
	return err
}
