/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

// Package config defines the configuration of gpu-info
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"huawei.com/gpu-info/pkg/gonvml"
	"huawei.com/gpu-info/pkg/log"
)

const (
	// DefaultPath the config file read when --config is not given and the file exists
	DefaultPath = "/etc/gpu-info/config.yaml"
	// HostIPEnv supplies the listen ip when the file leaves it empty
	HostIPEnv = "HOST_IP"

	defaultLogFile      = "/var/log/gpu-info/gpu-info.log"
	defaultPort         = 8082
	defaultUpdateTime   = 5
	defaultConcurrency  = 5
	defaultConnection   = 20
	defaultLimitIPReq   = "20/1"
	minUpdateTime       = 1
	maxUpdateTime       = 60
	maxConfigFileLength = 1024 * 1024
)

// Output formats of the snapshot command
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCBOR = "cbor"
)

// replaced in tests
var lookupEnv = os.LookupEnv

// LogConfig is passed to log.InitLogging
type LogConfig struct {
	Level      string `yaml:"level"`
	Console    bool   `yaml:"console"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"maxSize"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAge     int    `yaml:"maxAge"`
}

// NvmlConfig controls how the library is loaded
type NvmlConfig struct {
	LibraryPath     string `yaml:"libraryPath"`
	ProcessCapacity uint32 `yaml:"processCapacity"`
}

// ExporterConfig mirrors the flags of the prometheus exporter
type ExporterConfig struct {
	Ip             string `yaml:"ip"`
	Port           int    `yaml:"port"`
	UpdateTime     int    `yaml:"updateTime"`
	Concurrency    int    `yaml:"concurrency"`
	LimitIPConn    int    `yaml:"limitIPConn"`
	LimitTotalConn int    `yaml:"limitTotalConn"`
	LimitIPReq     string `yaml:"limitIPReq"`
}

// Config is the content of the yaml config file
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Nvml     NvmlConfig     `yaml:"nvml"`
	Exporter ExporterConfig `yaml:"exporter"`
	Format   string         `yaml:"format"`
	// Path is the file the config was read from, empty for the defaults
	Path string `yaml:"-"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", File: defaultLogFile},
		Nvml: NvmlConfig{
			LibraryPath:     gonvml.DefaultLibraryPath,
			ProcessCapacity: gonvml.DefaultProcessCapacity,
		},
		Exporter: ExporterConfig{
			Port:           defaultPort,
			UpdateTime:     defaultUpdateTime,
			Concurrency:    defaultConcurrency,
			LimitIPConn:    defaultConcurrency,
			LimitTotalConn: defaultConnection,
			LimitIPReq:     defaultLimitIPReq,
		},
		Format: FormatText,
	}
}

// Load reads path over the defaults and validates the result. An empty path uses
// DefaultPath when it exists and the defaults otherwise.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat(DefaultPath); err != nil {
			cfg.applyEnv()
			return cfg, cfg.Validate()
		}
		path = DefaultPath
	}

	content, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.UnmarshalStrict(content, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config %s: %w", path, err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg.Path = path
	log.Debugf("config loaded from %s", path)
	return cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config %s is a directory", path)
	}
	if info.Size() > maxConfigFileLength {
		return nil, fmt.Errorf("config %s is larger than %d bytes", path, maxConfigFileLength)
	}
	return os.ReadFile(filepath.Clean(path))
}

func (c *Config) applyEnv() {
	if c.Exporter.Ip != "" {
		return
	}
	if ip, ok := lookupEnv(HostIPEnv); ok {
		c.Exporter.Ip = ip
	}
}

// Validate reports the first invalid field. Listen address and limits are checked by the server.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Nvml.ProcessCapacity > gonvml.MaxProcessCount {
		return fmt.Errorf("the processCapacity %d is invalid, range[0-%d]",
			c.Nvml.ProcessCapacity, gonvml.MaxProcessCount)
	}
	if c.Exporter.UpdateTime > maxUpdateTime || c.Exporter.UpdateTime < minUpdateTime {
		return errors.New("the updateTime is invalid, range[1-60]")
	}
	switch c.Format {
	case FormatText, FormatJSON, FormatCBOR:
	default:
		return fmt.Errorf("the format [%s] is invalid, range[text,json,cbor]", c.Format)
	}
	return nil
}

// LogOptions converts the log section for log.InitLogging.
func (c *Config) LogOptions() log.Options {
	return log.Options{
		Level:      c.Log.Level,
		Console:    c.Log.Console,
		File:       c.Log.File,
		MaxSize:    c.Log.MaxSize,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAge,
	}
}

// NvmlOptions converts the nvml section for gonvml.Open.
func (c *Config) NvmlOptions() []gonvml.Option {
	return []gonvml.Option{
		gonvml.WithLibraryPath(c.Nvml.LibraryPath),
		gonvml.WithProcessCapacity(c.Nvml.ProcessCapacity),
	}
}
