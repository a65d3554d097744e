/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

// Package log wraps logrus with the plain text layout used by every gpu-info binary.
package log

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
)

const (
	defaultMaxSize    = 20
	defaultMaxBackups = 10
	defaultMaxAge     = 30
	timestampFormat   = "2006-01-02 15:04:05.000"
)

var logger = newLogger()

// Options configures InitLogging. A zero MaxSize, MaxBackups or MaxAge takes the default.
type Options struct {
	Level string
	// Console copies every entry to stdout/stderr
	Console bool
	// File is the log file path, empty disables file output
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&PlainTextFormatter{TimestampFormat: timestampFormat, pid: os.Getpid()})
	return l
}

func (o *Options) withDefaults() {
	if o.MaxSize == 0 {
		o.MaxSize = defaultMaxSize
	}
	if o.MaxBackups == 0 {
		o.MaxBackups = defaultMaxBackups
	}
	if o.MaxAge == 0 {
		o.MaxAge = defaultMaxAge
	}
}

func (o *Options) validate() error {
	if o.MaxSize < 0 {
		return errors.New("the max-size is invalid")
	}
	if o.MaxAge < 0 {
		return errors.New("the max-age is invalid")
	}
	if o.MaxBackups < 0 {
		return errors.New("the max-backups is invalid")
	}
	return nil
}

// InitLogging configures the package logger. The file is the main output; the console
// is attached as a hook since logrus has a single writer. Without a file the console is always on.
func InitLogging(opts Options) error {
	opts.withDefaults()
	if err := opts.validate(); err != nil {
		return err
	}
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}

	l := logrus.New()
	l.SetLevel(level)
	formatter := &PlainTextFormatter{TimestampFormat: timestampFormat, pid: os.Getpid()}
	l.SetFormatter(formatter)
	if opts.File != "" {
		l.SetOutput(&FileLogger{
			fileName:   opts.File,
			maxSize:    opts.MaxSize,
			maxBackups: opts.MaxBackups,
			maxAge:     opts.MaxAge,
		})
	} else {
		l.SetOutput(io.Discard)
		opts.Console = true
	}
	if opts.Console {
		l.AddHook(newConsoleHook(formatter))
	}

	old := logger
	logger = l
	if fileLogger, ok := old.Out.(*FileLogger); ok {
		_ = fileLogger.Close()
	}
	return nil
}

// SetLevel changes the level of the running logger.
func SetLevel(name string) error {
	level, err := ParseLevel(name)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	return nil
}

// ParseLevel parses debug, info, warning, error or fatal.
func ParseLevel(name string) (logrus.Level, error) {
	switch name {
	case "debug":
		return logrus.DebugLevel, nil
	case "info", "":
		return logrus.InfoLevel, nil
	case "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	case "fatal":
		return logrus.FatalLevel, nil
	default:
		return logrus.FatalLevel, fmt.Errorf("invalid logging level [%v]", name)
	}
}

// PlainTextFormatter is a formatter to ensure formatted logging output
type PlainTextFormatter struct {
	TimestampFormat string
	pid             int
}

var _ logrus.Formatter = &PlainTextFormatter{}

// Format renders "<time> <pid> [key:value] [LEVEL]: message".
func (f *PlainTextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}

	if _, err := fmt.Fprintf(b, "%s %d ", entry.Time.Format(f.TimestampFormat), f.pid); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(entry.Data))
	for key := range entry.Data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, err := fmt.Fprintf(b, "[%s:%v] ", key, entry.Data[key]); err != nil {
			return nil, err
		}
	}

	if _, err := fmt.Fprintf(b, "%s %s\n", getLogLevel(entry.Level), entry.Message); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func getLogLevel(level logrus.Level) string {
	switch level {
	case logrus.DebugLevel:
		return "[DEBUG]:"
	case logrus.InfoLevel:
		return "[INFO]:"
	case logrus.WarnLevel:
		return "[WARNING]:"
	case logrus.ErrorLevel:
		return "[ERROR]:"
	case logrus.FatalLevel:
		return "[FATAL]:"
	default:
		return "[UNKNOWN]:"
	}
}

// WithField returns an entry carrying key, printed before the level.
func WithField(key string, value interface{}) *logrus.Entry {
	return logger.WithField(key, value)
}

// Debugf ensures output of Debugf logs
func Debugf(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

// Infof ensures output of Infof logs
func Infof(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

// Infoln ensures output of Infoln logs
func Infoln(args ...interface{}) {
	logger.Infoln(args...)
}

// Warningf ensures output of Warningf logs
func Warningf(format string, args ...interface{}) {
	logger.Warningf(format, args...)
}

// Errorf ensures output of Errorf logs
func Errorf(format string, args ...interface{}) {
	logger.Errorf(format, args...)
}
