/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/agiledragon/gomonkey/v2"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huawei.com/gpu-info/collector/gpuservice"
	"huawei.com/gpu-info/pkg/config"
	"huawei.com/gpu-info/pkg/gonvml"
	"huawei.com/gpu-info/pkg/telemetry"
	"huawei.com/gpu-info/server"
	"huawei.com/gpu-info/versions"
	"huawei.com/gpu-info/watchers"
)

// emptySession reports a driver without devices, other queries are never reached.
type emptySession struct {
	telemetry.Querier
	shutdowns int
}

func (e *emptySession) SystemGetDriverVersion() (string, error) { return "550.54.15", nil }

func (e *emptySession) DeviceGetCount() (uint32, error) { return 0, nil }

func (e *emptySession) Shutdown() error {
	e.shutdowns++
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content = "log:\n  file: " + filepath.Join(dir, "gpu-info.log") + "\n" + content
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func useSession(s session, err error) *gomonkey.Patches {
	return gomonkey.ApplyGlobalVar(&openSession, func(...gonvml.Option) (session, error) { return s, err })
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, versions.BuildName+" version "+versions.BuildVersion+"\n", out)
}

func TestSnapshotJSON(t *testing.T) {
	s := &emptySession{}
	patches := useSession(s, nil)
	defer patches.Reset()

	out, err := execute(t, "snapshot", "--config", writeConfig(t, ""), "--format", "json")
	require.NoError(t, err)
	var snap telemetry.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, "550.54.15", snap.DriverVersion)
	assert.Empty(t, snap.Devices)
	assert.Equal(t, 1, s.shutdowns)
}

func TestSnapshotFormatFromConfig(t *testing.T) {
	patches := useSession(&emptySession{}, nil)
	defer patches.Reset()
	patches.ApplyGlobalVar(&isTerminal, func(io.Writer) bool { return false })

	out, err := execute(t, "snapshot", "-c", writeConfig(t, "format: cbor\n"))
	require.NoError(t, err)
	snap, err := telemetry.UnmarshalCBOR([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "550.54.15", snap.DriverVersion)
}

func TestSnapshotErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		terminal bool
		openErr  error
		want     string
	}{
		{name: "open fails", args: []string{"--format", "text"}, openErr: gonvml.ErrLibraryNotFound,
			want: "open nvml"},
		{name: "unknown format", args: []string{"--format", "xml"}, want: "invalid"},
		{name: "cbor to terminal", args: []string{"--format", "cbor"}, terminal: true, want: "terminal"},
		{name: "forced cbor reaches nvml", args: []string{"--format", "cbor", "--force"}, terminal: true,
			openErr: gonvml.ErrDriverNotLoaded, want: "open nvml"},
		{name: "bad log level", args: []string{"--log-level", "loud"}, want: "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s session
			if tt.openErr == nil {
				s = &emptySession{}
			}
			patches := useSession(s, tt.openErr)
			defer patches.Reset()
			terminal := tt.terminal
			patches.ApplyGlobalVar(&isTerminal, func(io.Writer) bool { return terminal })

			args := append([]string{"snapshot", "--config", writeConfig(t, "")}, tt.args...)
			_, err := execute(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestServeOptions(t *testing.T) {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	o := &serveOptions{}
	addServeFlags(fs, o)
	require.NoError(t, fs.Parse([]string{"--port", "9400", "--update-time", "10"}))

	c := config.Default()
	c.Exporter.Ip = "10.0.0.1"
	require.NoError(t, o.apply(fs, c))
	assert.Equal(t, 9400, c.Exporter.Port)
	assert.Equal(t, 10, c.Exporter.UpdateTime)
	assert.Equal(t, "10.0.0.1", c.Exporter.Ip)

	require.NoError(t, fs.Parse([]string{"--update-time", "0"}))
	assert.Error(t, o.apply(fs, c))
}

func TestServeInvalidParams(t *testing.T) {
	patches := useSession(&emptySession{}, nil)
	defer patches.Reset()
	_, err := execute(t, "serve", "--config", writeConfig(t, "exporter:\n  ip: 127.0.0.1\n"), "--port", "80")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Port")
}

type failingSource struct{}

func (failingSource) Sample() (*telemetry.Snapshot, error) {
	return nil, gonvml.ErrUnknown
}

func TestReload(t *testing.T) {
	path := writeConfig(t, "exporter:\n  updateTime: 5\n")
	loaded, err := config.Load(path)
	require.NoError(t, err)
	cfg = loaded
	logLevel = ""

	serverHandler := server.NewExporterServer(cfg.Exporter)
	require.NoError(t, serverHandler.RegisterCollectorService(gpuservice.New(gpuservice.CollectorName, failingSource{})))
	serverHandler.CreateCollector(time.Minute, 5*time.Second)

	content := "log:\n  level: debug\n  file: " + filepath.Join(filepath.Dir(path), "gpu-info.log") +
		"\nexporter:\n  updateTime: 7\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	reload(serverHandler)
	assert.Equal(t, 7, cfg.Exporter.UpdateTime)
	assert.Equal(t, "debug", cfg.Log.Level)

	require.NoError(t, os.WriteFile(path, []byte("exporter:\n  updateTime: 99\n"), 0o600))
	reload(serverHandler)
	assert.Equal(t, 7, cfg.Exporter.UpdateTime)
}

func TestWatchFallsBackToSignals(t *testing.T) {
	stops := 0
	watcher := &watchers.Watcher{
		ConfigPath:    filepath.Join(t.TempDir(), "missing", "config.yaml"),
		ReloadSignals: []os.Signal{syscall.SIGHUP},
		Reload:        func() {},
		Stop:          func() { stops++ },
	}
	sigs := make(chan os.Signal, 1)
	sigs <- syscall.SIGTERM

	done := make(chan struct{})
	go func() {
		watch(context.Background(), watcher, sigs)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop on SIGTERM")
	}
	assert.Empty(t, watcher.ConfigPath)
	assert.Equal(t, 1, stops)
}
