/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

package telemetry

import (
	"fmt"
	"strconv"
	"time"

	"huawei.com/gpu-info/common/cache"
	"huawei.com/gpu-info/pkg/gonvml"
	"huawei.com/gpu-info/pkg/log"
)

const (
	processNameCacheSize = 1024
	processNameCacheTime = time.Minute
)

var clockDomains = []gonvml.ClockType{gonvml.ClockGraphics, gonvml.ClockSM, gonvml.ClockMem, gonvml.ClockVideo}

// Querier is the part of *gonvml.Session the sampler reads.
type Querier interface {
	SystemGetDriverVersion() (string, error)
	SystemGetProcessName(pid uint32) (string, error)
	DeviceGetCount() (uint32, error)
	DeviceGetHandleByIndex(index uint32) (gonvml.Device, error)
	DeviceGetIndex(d gonvml.Device) (uint32, error)
	DeviceGetUUID(d gonvml.Device) (string, error)
	DeviceGetName(d gonvml.Device) (string, error)
	DeviceGetMinorNumber(d gonvml.Device) (uint32, error)
	DeviceGetPciInfo(d gonvml.Device) (gonvml.PciInfo, error)
	DeviceGetMaxPcieLinkGeneration(d gonvml.Device) (uint32, error)
	DeviceGetMemoryInfo(d gonvml.Device) (gonvml.Memory, error)
	DeviceGetPowerManagementLimit(d gonvml.Device) (uint32, error)
	DeviceGetClockInfo(d gonvml.Device, clockType gonvml.ClockType) (uint32, error)
	DeviceGetMaxClockInfo(d gonvml.Device, clockType gonvml.ClockType) (uint32, error)
	DeviceGetTemperature(d gonvml.Device, sensor gonvml.TemperatureSensors) (uint32, error)
	DeviceGetFanSpeed(d gonvml.Device) (uint32, error)
	DeviceGetPowerUsage(d gonvml.Device) (uint32, error)
	DeviceGetPcieThroughput(d gonvml.Device, counter gonvml.PcieUtilCounter) (uint32, error)
	DeviceGetUtilizationRates(d gonvml.Device) (gonvml.Utilization, error)
	DeviceGetComputeRunningProcesses(d gonvml.Device) ([]gonvml.ProcessInfo, error)
	DeviceGetGraphicsRunningProcesses(d gonvml.Device) ([]gonvml.ProcessInfo, error)
}

var _ Querier = (*gonvml.Session)(nil)

// Sampler reads snapshots from a Querier, remembering process names between samples.
// A name is forgotten as soon as its pid is missing from a sample. A Sampler is not safe
// for concurrent use.
type Sampler struct {
	q     Querier
	names *cache.ConcurrencyLRUCache
	now   func() time.Time
	// pids with a cached name, and the pids listed by the running sample
	cached map[uint32]struct{}
	seen   map[uint32]struct{}
}

// NewSampler creates a Sampler reading from q.
func NewSampler(q Querier) *Sampler {
	return &Sampler{
		q:      q,
		names:  cache.New(processNameCacheSize),
		now:    time.Now,
		cached: map[uint32]struct{}{},
	}
}

// Sample reads every device once with a fresh Sampler.
func Sample(q Querier) (*Snapshot, error) {
	return NewSampler(q).Sample()
}

// Sample reads the driver version and every device. A metric the device does not
// support is listed in DeviceStats.Unsupported; any other failure aborts the sample.
func (s *Sampler) Sample() (*Snapshot, error) {
	snap := &Snapshot{Timestamp: s.now()}
	s.seen = map[uint32]struct{}{}

	version, err := s.q.SystemGetDriverVersion()
	if err != nil && !gonvml.IsUnsupported(err) {
		return nil, fmt.Errorf("get driver version: %w", err)
	}
	snap.DriverVersion = version

	count, err := s.q.DeviceGetCount()
	if err != nil {
		return nil, fmt.Errorf("get device count: %w", err)
	}
	snap.Devices = make([]DeviceStats, 0, count)
	for i := uint32(0); i < count; i++ {
		d, err := s.q.DeviceGetHandleByIndex(i)
		if err != nil {
			return nil, fmt.Errorf("get handle of device %d: %w", i, err)
		}
		stats, err := s.sampleDevice(i, d)
		if err != nil {
			return nil, err
		}
		snap.Devices = append(snap.Devices, *stats)
	}
	s.forgetExited()
	return snap, nil
}

// forgetExited drops the names of pids the last sample did not list, a new process may reuse the pid.
func (s *Sampler) forgetExited() {
	for pid := range s.cached {
		if _, ok := s.seen[pid]; ok {
			continue
		}
		s.names.Delete(processNameKey(pid))
		delete(s.cached, pid)
	}
}

func processNameKey(pid uint32) string {
	return "pid-" + strconv.FormatUint(uint64(pid), 10)
}

// read stores the value of get through set, or records metric as unsupported.
func read[T any](stats *DeviceStats, metric string, get func() (T, error), set func(T)) error {
	v, err := get()
	if err == nil {
		set(v)
		return nil
	}
	if gonvml.IsUnsupported(err) {
		log.WithField("gpu", stats.Index).Debugf("%s not supported: %v", metric, err)
		stats.Unsupported = append(stats.Unsupported, metric)
		return nil
	}
	return fmt.Errorf("device %d %s: %w", stats.Index, metric, err)
}

func (s *Sampler) sampleDevice(index uint32, d gonvml.Device) (*DeviceStats, error) {
	q := s.q
	stats := &DeviceStats{Index: index}

	name, err := q.DeviceGetName(d)
	if err != nil {
		return nil, fmt.Errorf("device %d name: %w", index, err)
	}
	stats.Name = name

	steps := []func() error{
		func() error {
			return read(stats, MetricIndex, func() (uint32, error) { return q.DeviceGetIndex(d) },
				func(v uint32) { stats.Index = v })
		},
		func() error {
			return read(stats, MetricUUID, func() (string, error) { return q.DeviceGetUUID(d) },
				func(v string) { stats.UUID = v })
		},
		func() error {
			return read(stats, MetricMinorNumber, func() (uint32, error) { return q.DeviceGetMinorNumber(d) },
				func(v uint32) { stats.MinorNumber = v })
		},
		func() error {
			return read(stats, MetricPciInfo, func() (gonvml.PciInfo, error) { return q.DeviceGetPciInfo(d) },
				func(v gonvml.PciInfo) { stats.PciBusId, stats.PciDeviceId = v.BusId, v.PciDeviceId })
		},
		func() error {
			return read(stats, MetricPcieGeneration, func() (uint32, error) { return q.DeviceGetMaxPcieLinkGeneration(d) },
				func(v uint32) { stats.PcieGeneration = v })
		},
		func() error {
			return read(stats, MetricMemory, func() (gonvml.Memory, error) { return q.DeviceGetMemoryInfo(d) },
				func(v gonvml.Memory) { stats.MemoryTotal, stats.MemoryFree, stats.MemoryUsed = v.Total, v.Free, v.Used })
		},
		func() error {
			return read(stats, MetricPowerLimit, func() (uint32, error) { return q.DeviceGetPowerManagementLimit(d) },
				func(v uint32) { stats.PowerLimit = v })
		},
		func() error {
			return read(stats, MetricPowerUsage, func() (uint32, error) { return q.DeviceGetPowerUsage(d) },
				func(v uint32) { stats.PowerUsage = v })
		},
		func() error {
			return read(stats, MetricTemperature, func() (uint32, error) {
				return q.DeviceGetTemperature(d, gonvml.TemperatureGpu)
			}, func(v uint32) { stats.Temperature = v })
		},
		func() error {
			return read(stats, MetricFanSpeed, func() (uint32, error) { return q.DeviceGetFanSpeed(d) },
				func(v uint32) { stats.FanSpeed = v })
		},
		func() error {
			return read(stats, MetricPcieTx, func() (uint32, error) {
				return q.DeviceGetPcieThroughput(d, gonvml.PcieUtilTxBytes)
			}, func(v uint32) { stats.PcieTx = v })
		},
		func() error {
			return read(stats, MetricPcieRx, func() (uint32, error) {
				return q.DeviceGetPcieThroughput(d, gonvml.PcieUtilRxBytes)
			}, func(v uint32) { stats.PcieRx = v })
		},
		func() error {
			return read(stats, MetricUtilization, func() (gonvml.Utilization, error) { return q.DeviceGetUtilizationRates(d) },
				func(v gonvml.Utilization) { stats.GpuUtil, stats.MemoryUtil = v.Gpu, v.Memory })
		},
		func() error { return s.sampleClocks(stats, d) },
		func() error { return s.sampleProcesses(stats, d) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func (s *Sampler) sampleClocks(stats *DeviceStats, d gonvml.Device) error {
	stats.Clocks = make([]Clock, 0, len(clockDomains))
	for _, domain := range clockDomains {
		clock := Clock{Domain: domain.String()}
		if err := read(stats, ClockMetric(clock.Domain), func() (uint32, error) {
			return s.q.DeviceGetClockInfo(d, domain)
		}, func(v uint32) { clock.Current = v }); err != nil {
			return err
		}
		if err := read(stats, MaxClockMetric(clock.Domain), func() (uint32, error) {
			return s.q.DeviceGetMaxClockInfo(d, domain)
		}, func(v uint32) { clock.Max = v }); err != nil {
			return err
		}
		stats.Clocks = append(stats.Clocks, clock)
	}
	return nil
}

func (s *Sampler) sampleProcesses(stats *DeviceStats, d gonvml.Device) error {
	stats.Processes = []Process{}
	lists := []struct {
		metric string
		kind   string
		get    func(gonvml.Device) ([]gonvml.ProcessInfo, error)
	}{
		{MetricComputeProcesses, ProcessCompute, s.q.DeviceGetComputeRunningProcesses},
		{MetricGraphicsProcesses, ProcessGraphics, s.q.DeviceGetGraphicsRunningProcesses},
	}
	for _, list := range lists {
		err := read(stats, list.metric, func() ([]gonvml.ProcessInfo, error) { return list.get(d) },
			func(infos []gonvml.ProcessInfo) {
				for _, info := range infos {
					stats.Processes = append(stats.Processes, Process{
						Pid:               info.Pid,
						Name:              s.processName(info.Pid),
						Type:              list.kind,
						UsedMemory:        info.UsedGpuMemory,
						GpuInstanceId:     info.GpuInstanceId,
						ComputeInstanceId: info.ComputeInstanceId,
					})
				}
			})
		if err != nil {
			return err
		}
	}
	return nil
}

// processName returns "" when the name cannot be read; processes may exit between the two calls.
func (s *Sampler) processName(pid uint32) string {
	if s.seen != nil {
		s.seen[pid] = struct{}{}
	}
	key := processNameKey(pid)
	if v, err := s.names.Get(key); err == nil {
		if name, ok := v.(string); ok {
			return name
		}
	}
	name, err := s.q.SystemGetProcessName(pid)
	if err != nil {
		log.Debugf("get name of process %d: %v", pid, err)
		return ""
	}
	if err := s.names.Set(key, name, processNameCacheTime); err != nil {
		log.Warningf("cache name of process %d: %v", pid, err)
		return name
	}
	s.cached[pid] = struct{}{}
	return name
}
