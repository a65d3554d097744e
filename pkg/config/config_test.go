/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agiledragon/gomonkey/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huawei.com/gpu-info/pkg/gonvml"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func noHostIP() *gomonkey.Patches {
	return gomonkey.ApplyGlobalVar(&lookupEnv, func(string) (string, bool) { return "", false })
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, gonvml.DefaultLibraryPath, cfg.Nvml.LibraryPath)
	assert.Equal(t, uint32(gonvml.DefaultProcessCapacity), cfg.Nvml.ProcessCapacity)
	assert.Equal(t, FormatText, cfg.Format)
}

func TestLoad(t *testing.T) {
	patches := noHostIP()
	defer patches.Reset()

	path := writeConfig(t, `
log:
  level: debug
  console: true
nvml:
  libraryPath: /usr/lib64/libnvidia-ml.so.1
  processCapacity: 0
exporter:
  ip: 127.0.0.1
  port: 9400
  updateTime: 10
format: cbor
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Console)
	assert.Equal(t, defaultLogFile, cfg.Log.File)
	assert.Equal(t, "/usr/lib64/libnvidia-ml.so.1", cfg.Nvml.LibraryPath)
	assert.Equal(t, uint32(0), cfg.Nvml.ProcessCapacity)
	assert.Equal(t, "127.0.0.1", cfg.Exporter.Ip)
	assert.Equal(t, 9400, cfg.Exporter.Port)
	assert.Equal(t, 10, cfg.Exporter.UpdateTime)
	assert.Equal(t, defaultLimitIPReq, cfg.Exporter.LimitIPReq)
	assert.Equal(t, FormatCBOR, cfg.Format)
	assert.Equal(t, path, cfg.Path)
	assert.Len(t, cfg.NvmlOptions(), 2)
	assert.Equal(t, "debug", cfg.LogOptions().Level)
}

func TestLoadInvalid(t *testing.T) {
	patches := noHostIP()
	defer patches.Reset()

	tests := []struct {
		name    string
		content string
	}{
		{name: "bad level", content: "log:\n  level: loud\n"},
		{name: "capacity above maximum", content: "nvml:\n  processCapacity: 101\n"},
		{name: "update time zero", content: "exporter:\n  updateTime: 0\n"},
		{name: "update time above a minute", content: "exporter:\n  updateTime: 61\n"},
		{name: "unknown format", content: "format: xml\n"},
		{name: "unknown field", content: "colour: blue\n"},
		{name: "not yaml", content: "log: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
	_, err = Load(t.TempDir())
	assert.Error(t, err)
}

func TestHostIPEnv(t *testing.T) {
	patches := gomonkey.ApplyGlobalVar(&lookupEnv, func(key string) (string, bool) {
		if key == HostIPEnv {
			return "192.168.1.10", true
		}
		return "", false
	})
	defer patches.Reset()

	cfg, err := Load(writeConfig(t, "format: json\n"))
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.10", cfg.Exporter.Ip)

	cfg, err = Load(writeConfig(t, "exporter:\n  ip: 10.0.0.1\n"))
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", cfg.Exporter.Ip)
}
