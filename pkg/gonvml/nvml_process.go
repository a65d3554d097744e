/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

package gonvml

import (
	"fmt"

	"huawei.com/gpu-info/pkg/log"
)

type processQuery func(api nativeAPI, device nvmlDevice, infoCount *uint32, infos []ProcessInfo) NvmlRetType

// DeviceGetComputeRunningProcesses returns the processes holding a compute context on the device.
func (s *Session) DeviceGetComputeRunningProcesses(d Device) ([]ProcessInfo, error) {
	return s.runningProcesses("compute", d, nativeAPI.DeviceGetComputeRunningProcesses)
}

// DeviceGetGraphicsRunningProcesses returns the processes holding a graphics context on the device.
func (s *Session) DeviceGetGraphicsRunningProcesses(d Device) ([]ProcessInfo, error) {
	return s.runningProcesses("graphics", d, nativeAPI.DeviceGetGraphicsRunningProcesses)
}

// runningProcesses asks with the session capacity first. When the library answers
// InsufficientSize it has stored the real count, which is fetched with one more call.
// The result holds exactly the reported entries.
func (s *Session) runningProcesses(kind string, d Device, query processQuery) ([]ProcessInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.api == nil {
		return nil, ErrUninitialized
	}
	if d.isEmpty() {
		return nil, ErrInvalidArgument
	}

	capacity := s.processCapacity
	count := capacity
	infos := make([]ProcessInfo, capacity)
	ret := s.lib.invoke(func() NvmlRetType { return query(s.api, d.handle, &count, infos) })
	if ret == ErrorInsufficientSize {
		if count > MaxProcessCount {
			return nil, &ProcessLimitError{Reported: count}
		}
		log.Debugf("%s process list holds %d entries, buffer had %d, retrying", kind, count, capacity)
		capacity = count
		infos = make([]ProcessInfo, capacity)
		ret = s.lib.invoke(func() NvmlRetType { return query(s.api, d.handle, &count, infos) })
	}
	if err := errorFromReturn(ret); err != nil {
		return nil, err
	}
	if count > capacity {
		return nil, fmt.Errorf("%s process list reported %d entries for a buffer of %d: %w",
			kind, count, capacity, ErrInsufficientSize)
	}

	processes := make([]ProcessInfo, count)
	copy(processes, infos[:count])
	return processes, nil
}
