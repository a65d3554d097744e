/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

package gonvml

import (
	"fmt"
	"sync"

	"huawei.com/gpu-info/pkg/log"
)

// DefaultLibraryPath is the soname installed by the NVIDIA driver.
const DefaultLibraryPath = "libnvidia-ml.so.1"

// replaced in tests
var (
	openNative  = openNativeLibrary
	closeNative = closeNativeLibrary
)

// library is the process-wide handle on the shared object, shared by every Session.
// calls is held around every native call so that NVML is entered by one goroutine at a time,
// whichever session the call comes from.
type library struct {
	sync.Mutex
	calls    sync.Mutex
	refcount Refcount
	api      nativeAPI
	path     string
}

var libnvml = newLibrary()

func newLibrary() *library {
	return &library{}
}

func (l *library) load(path string) (api nativeAPI, err error) {
	l.Lock()
	defer l.Unlock()

	defer func() { l.refcount.IncNoError(err) }()
	if l.refcount > 0 {
		if path != l.path {
			log.Warningf("nvml already loaded from %s, ignoring %s", l.path, path)
		}
		return l.api, nil
	}

	api, err = openNative(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}
	l.api = api
	l.path = path
	log.Debugf("nvml library %s loaded", path)
	return api, nil
}

func (l *library) close() (err error) {
	l.Lock()
	defer l.Unlock()

	defer func() { l.refcount.DecNoError(err) }()
	if l.refcount != 1 {
		return nil
	}

	if err := closeNative(); err != nil {
		return fmt.Errorf("error closing %s: %w", l.path, err)
	}
	log.Debugf("nvml library %s unloaded", l.path)
	l.api = nil
	return nil
}

func (l *library) invoke(fn func() NvmlRetType) NvmlRetType {
	l.calls.Lock()
	defer l.calls.Unlock()
	return fn()
}

func (l *library) references() int {
	l.Lock()
	defer l.Unlock()
	return int(l.refcount)
}
