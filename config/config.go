package config

import (
	"net"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	units "github.com/docker/go-units"
	"github.com/inconshreveable/log15"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

const (
	DefaultAddr       = "127.0.0.1:12345"
	DefaultLogLevel   = "info"
	DefaultMaxSize    = "100MB"
	DefaultMaxBackups = 3
	DefaultMaxAge     = 28
)

// Log formats. An empty format picks terminal output when logging to a
// terminal and logfmt otherwise.
const (
	FormatLogfmt   = "logfmt"
	FormatJSON     = "json"
	FormatTerminal = "terminal"
)

type Config struct {
	Addr      string `toml:"listen_addr"`
	KeepAlive bool   `toml:"keepalive"`
	ReusePort bool   `toml:"reuse_port"`
	MaxConns  int    `toml:"max_conns"`
	Log       Log    `toml:"log"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`

	// File, when set, sends logs to a size-rotated file instead of stderr.
	File       string `toml:"file"`
	MaxSize    string `toml:"max_size"`
	MaxBackups int    `toml:"max_backups"`
	MaxAge     int    `toml:"max_age"` // days
}

func Default() *Config {
	return &Config{
		Addr:      DefaultAddr,
		KeepAlive: true,
		Log: Log{
			Level:      DefaultLogLevel,
			MaxSize:    DefaultMaxSize,
			MaxBackups: DefaultMaxBackups,
			MaxAge:     DefaultMaxAge,
		},
	}
}

// Load reads a TOML config file on top of the defaults.
func Load(path string) (*Config, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	conf := Default()
	md, err := toml.DecodeFile(path, conf)
	if err != nil {
		return nil, errors.Wrapf(err, "error decoding config file %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.Errorf("unknown keys in config file %s: %s", path, strings.Join(keys, ", "))
	}
	return conf, nil
}

// ApplyEnv overrides settings from environment variables, looked up with
// getenv (usually os.Getenv).
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("LISTEN_ADDR"); v != "" {
		c.Addr = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := getenv("LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := getenv("MAX_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "invalid MAX_CONNS")
		}
		c.MaxConns = n
	}
	return nil
}

func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return errors.Wrapf(err, "invalid listen address %q", c.Addr)
	}
	if c.MaxConns < 0 {
		return errors.Errorf("invalid max_conns %d: must not be negative", c.MaxConns)
	}
	if _, err := log15.LvlFromString(c.Log.Level); err != nil {
		return errors.Wrapf(err, "invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "", FormatLogfmt, FormatJSON, FormatTerminal:
	default:
		return errors.Errorf("invalid log format %q", c.Log.Format)
	}
	if c.Log.File != "" {
		if _, err := c.MaxSizeMB(); err != nil {
			return err
		}
		if c.Log.MaxBackups < 0 || c.Log.MaxAge < 0 {
			return errors.New("log max_backups and max_age must not be negative")
		}
	}
	return nil
}

// LogFile returns the log file path with ~ expanded.
func (c *Config) LogFile() (string, error) {
	return homedir.Expand(c.Log.File)
}

// MaxSizeMB returns Log.MaxSize in whole megabytes, rounding up.
func (c *Config) MaxSizeMB() (int, error) {
	size, err := units.RAMInBytes(c.Log.MaxSize)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid log max_size %q", c.Log.MaxSize)
	}
	if size <= 0 {
		return 0, errors.Errorf("invalid log max_size %q: must be positive", c.Log.MaxSize)
	}
	return int((size + units.MiB - 1) / units.MiB), nil
}
