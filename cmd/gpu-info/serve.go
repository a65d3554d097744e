/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"huawei.com/gpu-info/collector/gpuservice"
	"huawei.com/gpu-info/pkg/config"
	"huawei.com/gpu-info/pkg/log"
	"huawei.com/gpu-info/pkg/telemetry"
	"huawei.com/gpu-info/server"
	"huawei.com/gpu-info/versions"
	"huawei.com/gpu-info/watchers"
)

const (
	cacheTime   = 65 * time.Second
	serviceMask = 0o027
)

type serveOptions struct {
	ip         string
	port       int
	updateTime int
}

func addServeFlags(fs *pflag.FlagSet, o *serveOptions) {
	fs.StringVar(&o.ip, "ip", "",
		"The listen ip of the service,0.0.0.0 is not recommended when install on Multi-NIC host")
	fs.IntVar(&o.port, "port", 0, "The server port of the http service, range[1025-40000]")
	fs.IntVar(&o.updateTime, "update-time", 0, "Interval (seconds) to sample the gpus, range[1-60]")
}

// apply copies the flags set on the command line over the config file.
func (o *serveOptions) apply(fs *pflag.FlagSet, c *config.Config) error {
	if fs.Changed("ip") {
		c.Exporter.Ip = o.ip
	}
	if fs.Changed("port") {
		c.Exporter.Port = o.port
	}
	if fs.Changed("update-time") {
		c.Exporter.UpdateTime = o.updateTime
	}
	return c.Validate()
}

func newServeCmd() *cobra.Command {
	o := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Export GPU metrics to Prometheus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := o.apply(cmd.Flags(), cfg); err != nil {
				return err
			}
			return runServe(cmd.Context())
		},
	}
	addServeFlags(cmd.Flags(), o)
	return cmd
}

func runServe(parent context.Context) error {
	unix.Umask(serviceMask)
	log.Infof("gpu-info exporter starting and the version is %s", versions.BuildVersion)

	serverHandler := server.NewExporterServer(cfg.Exporter)
	if err := serverHandler.VerifyServerParams(); err != nil {
		return err
	}

	s, err := openSession(cfg.NvmlOptions()...)
	if err != nil {
		return fmt.Errorf("open nvml: %w", err)
	}
	defer func() {
		if err := s.Shutdown(); err != nil {
			log.Errorf("nvml shutdown failed: %v", err)
		}
	}()

	service := gpuservice.New(gpuservice.CollectorName, telemetry.NewSampler(s))
	if err := serverHandler.RegisterCollectorService(service); err != nil {
		return err
	}
	c := serverHandler.CreateCollector(cacheTime, time.Duration(cfg.Exporter.UpdateTime)*time.Second)
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	watcher := &watchers.Watcher{
		ConfigPath:    cfg.Path,
		ReloadSignals: []os.Signal{unix.SIGHUP},
		Reload:        func() { reload(serverHandler) },
		Stop:          cancel,
	}
	sigs := watchers.NewOSWatcher(unix.SIGHUP, unix.SIGINT, unix.SIGTERM, unix.SIGQUIT)
	defer signal.Stop(sigs)

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		serverHandler.StartCollect(ctx, cancel)
	}()
	wg.Add(1)
	var serveErr error
	go func() {
		defer wg.Done()
		serveErr = serverHandler.StartServe(ctx, cancel, reg)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		watch(ctx, watcher, sigs)
	}()
	wg.Wait()
	log.Infoln("gpu-info exporter stopped")
	return serveErr
}

// watch runs watcher, falling back to signals only when the config file cannot be watched.
func watch(ctx context.Context, watcher *watchers.Watcher, sigs <-chan os.Signal) {
	err := watcher.Run(ctx, sigs)
	if err == nil {
		return
	}
	log.Warningf("watch config %s failed, only signals are watched: %v", watcher.ConfigPath, err)
	watcher.ConfigPath = ""
	if err := watcher.Run(ctx, sigs); err != nil {
		log.Errorf("watch signals failed: %v", err)
	}
}

// reload applies the log level and update time of the config file to the running exporter.
// Listen address and limits need a restart.
func reload(serverHandler *server.ExporterServer) {
	loaded, err := config.Load(cfg.Path)
	if err != nil {
		log.Errorf("reload config failed, keep the running one: %v", err)
		return
	}
	if logLevel == "" {
		if err := log.SetLevel(loaded.Log.Level); err != nil {
			log.Errorf("reload log level failed: %v", err)
		}
	}
	if loaded.Exporter.UpdateTime != cfg.Exporter.UpdateTime {
		serverHandler.SetUpdateTime(time.Duration(loaded.Exporter.UpdateTime) * time.Second)
	}
	cfg.Log.Level = loaded.Log.Level
	cfg.Exporter.UpdateTime = loaded.Exporter.UpdateTime
}
