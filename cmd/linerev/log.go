package main

import (
	"os"

	"github.com/flynn/linerev/config"
	"github.com/inconshreveable/log15"
	colorable "github.com/mattn/go-colorable"
	isatty "github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

func (m *Main) openLogger(conf *config.Config) (log15.Logger, error) {
	lvl, err := log15.LvlFromString(conf.Log.Level)
	if err != nil {
		return nil, err
	}

	w := m.Stderr
	format := conf.Log.Format
	if conf.Log.File != "" {
		path, err := conf.LogFile()
		if err != nil {
			return nil, err
		}
		maxSize, err := conf.MaxSizeMB()
		if err != nil {
			return nil, err
		}
		l := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSize,
			MaxBackups: conf.Log.MaxBackups,
			MaxAge:     conf.Log.MaxAge,
		}
		m.closers = append(m.closers, l)
		w = l
	} else if format == "" {
		if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			format = config.FormatTerminal
			if f == os.Stderr {
				w = colorable.NewColorableStderr()
			}
		}
	}

	var fmtr log15.Format
	switch format {
	case config.FormatTerminal:
		fmtr = log15.TerminalFormat()
	case config.FormatJSON:
		fmtr = log15.JsonFormat()
	default:
		fmtr = log15.LogfmtFormat()
	}

	logger := log15.New("app", "linerev", "pid", os.Getpid())
	logger.SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(w, fmtr)))
	return logger, nil
}
