/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

package gonvml

import (
	"fmt"
	"sync"

	"huawei.com/gpu-info/pkg/log"
)

// DefaultProcessCapacity is the first buffer size used for running process lists.
const DefaultProcessCapacity = 32

type options struct {
	libraryPath     string
	processCapacity uint32
}

// Option customizes Open.
type Option func(*options)

// WithLibraryPath loads NVML from path instead of DefaultLibraryPath.
func WithLibraryPath(path string) Option {
	return func(o *options) {
		o.libraryPath = path
	}
}

// WithProcessCapacity sets the first buffer size for running process lists, at most MaxProcessCount.
func WithProcessCapacity(capacity uint32) Option {
	return func(o *options) {
		o.processCapacity = capacity
	}
}

// Session spans one nvmlInit / nvmlShutdown pair. Native calls are serialized process wide,
// across every open Session, and NVML is not assumed to be thread safe.
// A zero Session, or one that has been shut down, answers every call with ErrUninitialized.
type Session struct {
	mu              sync.Mutex
	api             nativeAPI
	lib             *library
	processCapacity uint32
}

// Open loads the library and initializes NVML.
func Open(opts ...Option) (*Session, error) {
	o := options{libraryPath: DefaultLibraryPath, processCapacity: DefaultProcessCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	if o.libraryPath == "" {
		o.libraryPath = DefaultLibraryPath
	}
	if o.processCapacity > MaxProcessCount {
		return nil, fmt.Errorf("process capacity %d exceeds %d: %w",
			o.processCapacity, MaxProcessCount, ErrInvalidArgument)
	}

	lib := libnvml
	api, err := lib.load(o.libraryPath)
	if err != nil {
		return nil, err
	}
	if err := errorFromReturn(lib.invoke(api.Init)); err != nil {
		if closeErr := lib.close(); closeErr != nil {
			log.Warningf("release nvml library after failed init: %v", closeErr)
		}
		return nil, fmt.Errorf("nvml init: %w", err)
	}
	log.Infof("nvml initialized from %s", o.libraryPath)
	return &Session{api: api, lib: lib, processCapacity: o.processCapacity}, nil
}

// Shutdown calls nvmlShutdown and releases the library. The session stays usable if the
// library refuses to shut down.
func (s *Session) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.api == nil {
		return ErrUninitialized
	}
	if err := errorFromReturn(s.lib.invoke(s.api.Shutdown)); err != nil {
		return err
	}
	s.api = nil
	if err := s.lib.close(); err != nil {
		return err
	}
	log.Infof("nvml shut down")
	return nil
}

// call runs fn against the native table while holding the session and library locks.
func (s *Session) call(fn func(api nativeAPI) NvmlRetType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.api == nil {
		return ErrUninitialized
	}
	return errorFromReturn(s.lib.invoke(func() NvmlRetType { return fn(s.api) }))
}

// deviceCall is call for device scoped queries; the zero Device never reaches the library.
func (s *Session) deviceCall(d Device, fn func(api nativeAPI, h nvmlDevice) NvmlRetType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.api == nil {
		return ErrUninitialized
	}
	if d.isEmpty() {
		return ErrInvalidArgument
	}
	return errorFromReturn(s.lib.invoke(func() NvmlRetType { return fn(s.api, d.handle) }))
}
