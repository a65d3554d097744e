/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"huawei.com/gpu-info/pkg/config"
	"huawei.com/gpu-info/pkg/gonvml"
	"huawei.com/gpu-info/pkg/log"
	"huawei.com/gpu-info/pkg/telemetry"
)

// session is the part of *gonvml.Session the commands use
type session interface {
	telemetry.Querier
	Shutdown() error
}

// replaced in tests
var openSession = func(opts ...gonvml.Option) (session, error) {
	s, err := gonvml.Open(opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

var (
	configPath string
	logLevel   string
	cfg        *config.Config
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gpu-info",
		Short: "Read NVIDIA GPU telemetry through NVML",
		Long: `gpu-info loads libnvidia-ml at runtime and reads device, memory, power,
clock, PCIe and process information, either once (snapshot) or
continuously as a Prometheus exporter (serve).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path of the yaml config file, "+config.DefaultPath+" is read when it exists")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override the log level of the config file (debug, info, warning, error, fatal)")

	rootCmd.AddCommand(newSnapshotCmd(), newServeCmd(), newVersionCmd())
	return rootCmd
}

func setup() error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		if _, err := log.ParseLevel(logLevel); err != nil {
			return err
		}
		loaded.Log.Level = logLevel
	}
	if err := log.InitLogging(loaded.LogOptions()); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	cfg = loaded
	return nil
}
