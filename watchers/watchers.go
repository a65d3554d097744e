/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

// Package watchers create FSWatcher and OSWatcher
package watchers

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"huawei.com/gpu-info/pkg/log"
)

// NewFSWatcher new file watcher
func NewFSWatcher(files ...string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		err = watcher.Add(f)
		if err != nil {
			watcher.Close()
			return nil, err
		}
	}

	return watcher, nil
}

// NewOSWatcher new os signal watcher
func NewOSWatcher(sigs ...os.Signal) chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, sigs...)
	return sigChan
}

// Watcher turns config file changes and signals into Reload and Stop calls.
type Watcher struct {
	// ConfigPath is watched through its directory so that replacing the file is seen. Empty disables it.
	ConfigPath string
	// ReloadSignals trigger Reload, any other received signal triggers Stop
	ReloadSignals []os.Signal
	Reload        func()
	Stop          func()
}

func (w *Watcher) isReload(sig os.Signal) bool {
	for _, s := range w.ReloadSignals {
		if s == sig {
			return true
		}
	}
	return false
}

func (w *Watcher) configEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(w.ConfigPath) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

// Run blocks until ctx is done or a stop signal arrives on sigs.
func (w *Watcher) Run(ctx context.Context, sigs <-chan os.Signal) error {
	var events <-chan fsnotify.Event
	var errs <-chan error
	if w.ConfigPath != "" {
		fsWatcher, err := NewFSWatcher(filepath.Dir(w.ConfigPath))
		if err != nil {
			return err
		}
		defer fsWatcher.Close()
		events, errs = fsWatcher.Events, fsWatcher.Errors
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if w.configEvent(event) {
				log.Infof("inotify: %s changed, reloading", event.Name)
				w.Reload()
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Warningf("inotify: %v", err)
		case sig := <-sigs:
			if w.isReload(sig) {
				log.Infof("received signal %v, reloading", sig)
				w.Reload()
				continue
			}
			log.Infof("received signal %v, shutting down", sig)
			w.Stop()
			return nil
		}
	}
}
