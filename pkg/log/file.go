/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

package log

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	backupTimeFormat = "20060102T150405.000"
	compressSuffix   = ".gz"
	defaultLogPath   = "/var/log/gpu-info"

	fileModeArchiveLog = 0440
	fileModeWritingLog = 0640
	dirModeLogDir      = 0750
	hoursPerDay        = 24
)

var _ io.WriteCloser = (*FileLogger)(nil)

// replaced in tests
var (
	currentTime = time.Now
	megabyte    = 1024 * 1024
)

// FileLogger writes logs into a file and rolls it once it reaches maxSize MB.
// A rolled file is renamed with a timestamp and gzip compressed. At most maxBackups
// archives younger than maxAge days are kept.
type FileLogger struct {
	fileName   string
	maxSize    int
	maxBackups int
	maxAge     int

	mutex      sync.Mutex
	file       *os.File
	writtenLen int64
}

// Write implements io.Writer.
func (l *FileLogger) Write(p []byte) (int, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	writeLen := int64(len(p))
	if writeLen > l.maxLen() {
		return 0, fmt.Errorf("write length %d exceeds maximum file length %d", writeLen, l.maxLen())
	}
	if l.file == nil {
		if err := l.openExistingOrNew(writeLen); err != nil {
			return 0, err
		}
	}
	if l.writtenLen+writeLen > l.maxLen() {
		if err := l.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := l.file.Write(p)
	l.writtenLen += int64(n)
	return n, err
}

// Close implements io.Closer.
func (l *FileLogger) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.close()
}

func (l *FileLogger) close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *FileLogger) rotate() error {
	if err := l.close(); err != nil {
		return err
	}
	if err := l.openNew(); err != nil {
		return err
	}
	return l.cleanBackups()
}

// openNew archives the current file, if any, and starts an empty one.
func (l *FileLogger) openNew() error {
	if err := os.MkdirAll(l.dir(), dirModeLogDir); err != nil {
		return fmt.Errorf("can't make directories for new logfile: %w", err)
	}

	name := l.filename()
	if _, err := os.Stat(name); err == nil {
		backup := backupName(name)
		if err := os.Rename(name, backup); err != nil {
			return fmt.Errorf("can't rename log file: %w", err)
		}
		if err := compressLogFile(backup, backup+compressSuffix); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileModeWritingLog)
	if err != nil {
		return fmt.Errorf("can't open new logfile: %w", err)
	}
	l.file = f
	l.writtenLen = 0
	return nil
}

func (l *FileLogger) openExistingOrNew(writeLen int64) error {
	name := l.filename()
	info, err := os.Stat(name)
	if os.IsNotExist(err) {
		return l.openNew()
	}
	if err != nil {
		return fmt.Errorf("error getting log file info: %w", err)
	}
	if info.Size()+writeLen > l.maxLen() {
		return l.rotate()
	}

	f, err := os.OpenFile(name, os.O_APPEND|os.O_WRONLY, fileModeWritingLog)
	if err != nil {
		return l.openNew()
	}
	l.file = f
	l.writtenLen = info.Size()
	return nil
}

// backupName inserts a UTC timestamp between the file name and its extension
func backupName(name string) string {
	dir := filepath.Dir(name)
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	prefix := base[:len(base)-len(ext)]
	timestamp := currentTime().UTC().Format(backupTimeFormat)
	return filepath.Join(dir, fmt.Sprintf("%s-%s%s", prefix, timestamp, ext))
}

// filename keeps relative names inside the default log directory
func (l *FileLogger) filename() string {
	name := filepath.Clean(l.fileName)
	if !filepath.IsAbs(name) {
		name = filepath.Join(defaultLogPath, filepath.Base(name))
	}
	return name
}

func (l *FileLogger) dir() string {
	return filepath.Dir(l.filename())
}

func (l *FileLogger) maxLen() int64 {
	if l.maxSize <= 0 {
		return int64(defaultMaxSize) * int64(megabyte)
	}
	return int64(l.maxSize) * int64(megabyte)
}

type backupFile struct {
	name      string
	timestamp time.Time
}

// backups lists the archives of this log, newest first.
func (l *FileLogger) backups() ([]backupFile, error) {
	entries, err := os.ReadDir(l.dir())
	if err != nil {
		return nil, fmt.Errorf("can't read log file directory: %w", err)
	}
	base := filepath.Base(l.filename())
	ext := filepath.Ext(base)
	prefix := base[:len(base)-len(ext)] + "-"
	suffix := ext + compressSuffix

	var files []backupFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		ts, err := time.Parse(backupTimeFormat, name[len(prefix):len(name)-len(suffix)])
		if err != nil {
			continue
		}
		files = append(files, backupFile{name: name, timestamp: ts})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].timestamp.After(files[j].timestamp) })
	return files, nil
}

func (l *FileLogger) cleanBackups() error {
	files, err := l.backups()
	if err != nil {
		return err
	}
	cutoff := currentTime().Add(-time.Duration(l.maxAge) * hoursPerDay * time.Hour)
	for i, f := range files {
		tooMany := l.maxBackups > 0 && i >= l.maxBackups
		tooOld := l.maxAge > 0 && f.timestamp.Before(cutoff)
		if !tooMany && !tooOld {
			continue
		}
		if rmErr := os.Remove(filepath.Join(l.dir(), f.name)); rmErr != nil {
			err = rmErr
		}
	}
	return err
}

// compressLogFile gzips src into dst and removes src on success.
func compressLogFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open log file failed: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fileModeArchiveLog)
	if err != nil {
		return fmt.Errorf("open compressed log file failed: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	gz := gzip.NewWriter(out)
	if _, err = io.Copy(gz, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("compress log file failed: %w", err)
	}
	if err = gz.Close(); err != nil {
		_ = out.Close()
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}
	if err = in.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
