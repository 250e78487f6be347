// Package logger provides leveled logging for dicoevent with a console backend,
// an application log file and an error-only log file.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dicoevent/dicoevent/config"
	"github.com/op/go-logging"
)

const (
	module         = "dicoevent"
	appLogFileName = "application.log"
	errLogFileName = "error.log"
	timeFormat     = "2006-01-02 15:04:05.000"
)

var (
	logger   = logging.MustGetLogger(module)
	current  logging.LeveledBackend
	logFiles []*os.File
)

func init() {
	logger.ExtraCalldepth = 1
	// Usable before InitLogger runs, e.g. from tests and CLI subcommands.
	backend := logging.NewBackendFormatter(logging.NewLogBackend(os.Stderr, "", 0), newFormatter())
	leveled := logging.AddModuleLevel(backend)
	leveled.SetLevel(logging.INFO, module)
	setBackend(leveled)
}

func setBackend(b logging.LeveledBackend) {
	current = b
	logger.SetBackend(b)
}

// UseBackend sends every record to b until restore is called, which brings
// back the previous backend.
func UseBackend(b logging.Backend) (restore func()) {
	prev := current
	leveled := logging.AddModuleLevel(b)
	leveled.SetLevel(logging.DEBUG, module)
	setBackend(leveled)
	return func() { setBackend(prev) }
}

// InitLogger wires the console backend at the given level, the application
// file at the same level and the error file at ERROR.
func InitLogger(level logging.Level) {
	CloseLogger()

	backends := make([]logging.Backend, 0, 3)
	backends = append(backends, leveledBackend(logging.NewLogBackend(os.Stdout, "", 0), level))

	if file := openLogFile(appLogFileName); file != nil {
		backends = append(backends, leveledBackend(logging.NewLogBackend(file, "", 0), level))
	}
	if file := openLogFile(errLogFileName); file != nil {
		backends = append(backends, leveledBackend(logging.NewLogBackend(file, "", 0), logging.ERROR))
	}

	setBackend(logging.MultiLogger(backends...))
}

// ParseLevel maps a configured level name to a go-logging level.
func ParseLevel(level config.LogLevel) (logging.Level, error) {
	switch level {
	case config.Debug:
		return logging.DEBUG, nil
	case config.Info:
		return logging.INFO, nil
	case config.Notice:
		return logging.NOTICE, nil
	case config.Warn:
		return logging.WARNING, nil
	case config.Error:
		return logging.ERROR, nil
	}
	return logging.INFO, fmt.Errorf("unknown log level: %s", level)
}

func leveledBackend(backend logging.Backend, level logging.Level) logging.LeveledBackend {
	leveled := logging.AddModuleLevel(logging.NewBackendFormatter(backend, newFormatter()))
	leveled.SetLevel(level, module)
	return leveled
}

func openLogFile(name string) *os.File {
	logDir := config.GetLogFolder()
	if err := os.MkdirAll(logDir, 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log folder %s: %v\n", logDir, err)
		return nil
	}
	logPath := filepath.Join(logDir, name)
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o660)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file %s: %v\n", logPath, err)
		return nil
	}
	logFiles = append(logFiles, file)
	return file
}

func newFormatter() logging.Formatter {
	return logging.MustStringFormatter(`%{time:` + timeFormat + `} | %{level:-8s} | %{shortfile} - %{message}`)
}

// CloseLogger closes the log files. Should be called during shutdown.
func CloseLogger() {
	for _, file := range logFiles {
		_ = file.Close()
	}
	logFiles = nil
}

func Debug(args ...any) {
	logger.Debug(args...)
}

func Debugf(format string, args ...any) {
	logger.Debugf(format, args...)
}

func Info(args ...any) {
	logger.Info(args...)
}

func Infof(format string, args ...any) {
	logger.Infof(format, args...)
}

func Notice(args ...any) {
	logger.Notice(args...)
}

func Noticef(format string, args ...any) {
	logger.Noticef(format, args...)
}

func Warning(args ...any) {
	logger.Warning(args...)
}

func Warningf(format string, args ...any) {
	logger.Warningf(format, args...)
}

func Error(args ...any) {
	logger.Error(args...)
}

func Errorf(format string, args ...any) {
	logger.Errorf(format, args...)
}
