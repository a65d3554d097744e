/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

package telemetry

import (
	"huawei.com/gpu-info/pkg/gonvml"
)

type fakeDevice struct {
	name     string
	uuid     string
	minor    uint32
	busID    string
	memory   gonvml.Memory
	util     gonvml.Utilization
	clock    uint32
	maxClock uint32
	compute  []gonvml.ProcessInfo
	graphics []gonvml.ProcessInfo
	// errs overrides the result of a metric with an error
	errs map[string]error
}

// fakeQuerier serves devices in index order. Device handles are opaque, so the
// device answering queries is the one last requested by index.
type fakeQuerier struct {
	driver     string
	driverErr  error
	countErr   error
	devices    []*fakeDevice
	names      map[uint32]string
	current    int
	nameLookup map[uint32]int
}

var _ Querier = (*fakeQuerier)(nil)

func newFakeQuerier(devices ...*fakeDevice) *fakeQuerier {
	return &fakeQuerier{
		driver:     "550.54.15",
		devices:    devices,
		names:      map[uint32]string{},
		nameLookup: map[uint32]int{},
	}
}

func (f *fakeQuerier) dev() *fakeDevice {
	return f.devices[f.current]
}

func (f *fakeQuerier) err(metric string) error {
	return f.dev().errs[metric]
}

func (f *fakeQuerier) SystemGetDriverVersion() (string, error) {
	if f.driverErr != nil {
		return "", f.driverErr
	}
	return f.driver, nil
}

func (f *fakeQuerier) SystemGetProcessName(pid uint32) (string, error) {
	f.nameLookup[pid]++
	name, ok := f.names[pid]
	if !ok {
		return "", gonvml.ErrNotFound
	}
	return name, nil
}

func (f *fakeQuerier) DeviceGetCount() (uint32, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return uint32(len(f.devices)), nil
}

func (f *fakeQuerier) DeviceGetHandleByIndex(index uint32) (gonvml.Device, error) {
	if int(index) >= len(f.devices) {
		return gonvml.Device{}, gonvml.ErrInvalidArgument
	}
	f.current = int(index)
	return gonvml.Device{}, nil
}

func (f *fakeQuerier) DeviceGetIndex(gonvml.Device) (uint32, error) {
	return uint32(f.current), f.err(MetricIndex)
}

func (f *fakeQuerier) DeviceGetUUID(gonvml.Device) (string, error) {
	if err := f.err(MetricUUID); err != nil {
		return "", err
	}
	return f.dev().uuid, nil
}

func (f *fakeQuerier) DeviceGetName(gonvml.Device) (string, error) {
	if err := f.err("name"); err != nil {
		return "", err
	}
	return f.dev().name, nil
}

func (f *fakeQuerier) DeviceGetMinorNumber(gonvml.Device) (uint32, error) {
	if err := f.err(MetricMinorNumber); err != nil {
		return 0, err
	}
	return f.dev().minor, nil
}

func (f *fakeQuerier) DeviceGetPciInfo(gonvml.Device) (gonvml.PciInfo, error) {
	if err := f.err(MetricPciInfo); err != nil {
		return gonvml.PciInfo{}, err
	}
	return gonvml.PciInfo{BusId: f.dev().busID, PciDeviceId: 0x20b010de}, nil
}

func (f *fakeQuerier) DeviceGetMaxPcieLinkGeneration(gonvml.Device) (uint32, error) {
	if err := f.err(MetricPcieGeneration); err != nil {
		return 0, err
	}
	return 4, nil
}

func (f *fakeQuerier) DeviceGetMemoryInfo(gonvml.Device) (gonvml.Memory, error) {
	if err := f.err(MetricMemory); err != nil {
		return gonvml.Memory{}, err
	}
	return f.dev().memory, nil
}

func (f *fakeQuerier) DeviceGetPowerManagementLimit(gonvml.Device) (uint32, error) {
	if err := f.err(MetricPowerLimit); err != nil {
		return 0, err
	}
	return 300000, nil
}

func (f *fakeQuerier) DeviceGetClockInfo(_ gonvml.Device, clockType gonvml.ClockType) (uint32, error) {
	if err := f.err(ClockMetric(clockType.String())); err != nil {
		return 0, err
	}
	return f.dev().clock, nil
}

func (f *fakeQuerier) DeviceGetMaxClockInfo(_ gonvml.Device, clockType gonvml.ClockType) (uint32, error) {
	if err := f.err(MaxClockMetric(clockType.String())); err != nil {
		return 0, err
	}
	return f.dev().maxClock, nil
}

func (f *fakeQuerier) DeviceGetTemperature(gonvml.Device, gonvml.TemperatureSensors) (uint32, error) {
	if err := f.err(MetricTemperature); err != nil {
		return 0, err
	}
	return 45, nil
}

func (f *fakeQuerier) DeviceGetFanSpeed(gonvml.Device) (uint32, error) {
	if err := f.err(MetricFanSpeed); err != nil {
		return 0, err
	}
	return 30, nil
}

func (f *fakeQuerier) DeviceGetPowerUsage(gonvml.Device) (uint32, error) {
	if err := f.err(MetricPowerUsage); err != nil {
		return 0, err
	}
	return 75500, nil
}

func (f *fakeQuerier) DeviceGetPcieThroughput(_ gonvml.Device, counter gonvml.PcieUtilCounter) (uint32, error) {
	metric := MetricPcieTx
	if counter == gonvml.PcieUtilRxBytes {
		metric = MetricPcieRx
	}
	if err := f.err(metric); err != nil {
		return 0, err
	}
	if counter == gonvml.PcieUtilRxBytes {
		return 200, nil
	}
	return 100, nil
}

func (f *fakeQuerier) DeviceGetUtilizationRates(gonvml.Device) (gonvml.Utilization, error) {
	if err := f.err(MetricUtilization); err != nil {
		return gonvml.Utilization{}, err
	}
	return f.dev().util, nil
}

func (f *fakeQuerier) DeviceGetComputeRunningProcesses(gonvml.Device) ([]gonvml.ProcessInfo, error) {
	if err := f.err(MetricComputeProcesses); err != nil {
		return nil, err
	}
	return f.dev().compute, nil
}

func (f *fakeQuerier) DeviceGetGraphicsRunningProcesses(gonvml.Device) ([]gonvml.ProcessInfo, error) {
	if err := f.err(MetricGraphicsProcesses); err != nil {
		return nil, err
	}
	return f.dev().graphics, nil
}

func sampleDevices() []*fakeDevice {
	return []*fakeDevice{
		{
			name:     "NVIDIA A100-SXM4-40GB",
			uuid:     "GPU-0a1b2c3d",
			minor:    0,
			busID:    "00000000:07:00.0",
			memory:   gonvml.Memory{Total: 40 << 30, Free: 30 << 30, Used: 10 << 30},
			util:     gonvml.Utilization{Gpu: 55, Memory: 20},
			clock:    1410,
			maxClock: 1410,
			compute:  []gonvml.ProcessInfo{{Pid: 100, UsedGpuMemory: 512 << 20}},
		},
		{
			name:     "NVIDIA T4",
			uuid:     "GPU-4e5f6a7b",
			minor:    1,
			busID:    "00000000:3B:00.0",
			memory:   gonvml.Memory{Total: 16 << 30, Free: 16 << 30},
			clock:    300,
			maxClock: 1590,
			graphics: []gonvml.ProcessInfo{{Pid: 200, UsedGpuMemory: 64 << 20}},
			errs:     map[string]error{MetricFanSpeed: gonvml.ErrNotSupported},
		},
	}
}
