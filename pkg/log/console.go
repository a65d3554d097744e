/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

package log

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// ConsoleHook copies log entries to the terminal: errors to stderr, the rest to stdout.
type ConsoleHook struct {
	formatter logrus.Formatter
	stdout    io.Writer
	stderr    io.Writer
}

func newConsoleHook(logFormat logrus.Formatter) *ConsoleHook {
	return &ConsoleHook{formatter: logFormat, stdout: os.Stdout, stderr: os.Stderr}
}

// Levels returns all levels.
func (hook *ConsoleHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire writes the formatted entry to the stream chosen by its level
func (hook *ConsoleHook) Fire(logEntry *logrus.Entry) error {
	var logWriter io.Writer
	switch logEntry.Level {
	case logrus.TraceLevel, logrus.DebugLevel, logrus.InfoLevel, logrus.WarnLevel:
		logWriter = hook.stdout
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		logWriter = hook.stderr
	default:
		return fmt.Errorf("unknown log level: %v", logEntry.Level)
	}
	lineBytes, err := hook.formatter.Format(logEntry)
	if err != nil {
		return fmt.Errorf("format log entry: %w", err)
	}
	_, err = logWriter.Write(lineBytes)
	return err
}
