/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

// Package gonvml implements accessing the NVML library using the go
package gonvml

import "unsafe"

// nvmlDevice is the raw nvmlDevice_t handle, only ever passed back to the library.
type nvmlDevice unsafe.Pointer

// Memory mirrors nvmlMemory_t, all values in bytes.
type Memory struct {
	Total uint64
	Free  uint64
	Used  uint64
}

// Utilization mirrors nvmlUtilization_t, values in percent.
type Utilization struct {
	Gpu    uint32
	Memory uint32
}

// ProcessInfo mirrors nvmlProcessInfo_v2_t.
// GpuInstanceId and ComputeInstanceId are 0xFFFFFFFF when MIG is disabled.
type ProcessInfo struct {
	Pid               uint32
	UsedGpuMemory     uint64
	GpuInstanceId     uint32
	ComputeInstanceId uint32
}

// nvmlPciInfo mirrors nvmlPciInfo_t, bus ids are NUL terminated.
type nvmlPciInfo struct {
	BusIdLegacy    [DevicePciBusIdBufferV2Size]byte
	Domain         uint32
	Bus            uint32
	Device         uint32
	PciDeviceId    uint32
	PciSubSystemId uint32
	BusId          [DevicePciBusIdBufferSize]byte
}

// PciInfo is the PCI location of a device.
type PciInfo struct {
	// BusId is domain:bus:device.function, e.g. "00000000:3B:00.0"
	BusId       string
	BusIdLegacy string
	Domain      uint32
	Bus         uint32
	Device      uint32
	// PciDeviceId combines the 16-bit device id and the 16-bit vendor id
	PciDeviceId    uint32
	PciSubSystemId uint32
}

// nativeAPI is the flat function table exported by libnvidia-ml.
// Out-parameters must be zeroed by the caller; buffers are passed with their full length.
type nativeAPI interface {
	Init() NvmlRetType
	Shutdown() NvmlRetType
	SystemGetDriverVersion(version []byte) NvmlRetType
	SystemGetProcessName(pid uint32, name []byte) NvmlRetType
	DeviceGetCount(count *uint32) NvmlRetType
	DeviceGetHandleByIndex(index uint32, device *nvmlDevice) NvmlRetType
	DeviceGetIndex(device nvmlDevice, index *uint32) NvmlRetType
	DeviceGetName(device nvmlDevice, name []byte) NvmlRetType
	DeviceGetUUID(device nvmlDevice, uuid []byte) NvmlRetType
	DeviceGetMinorNumber(device nvmlDevice, minor *uint32) NvmlRetType
	DeviceGetPciInfo(device nvmlDevice, pci *nvmlPciInfo) NvmlRetType
	DeviceGetMaxPcieLinkGeneration(device nvmlDevice, maxLinkGen *uint32) NvmlRetType
	DeviceGetMemoryInfo(device nvmlDevice, memory *Memory) NvmlRetType
	DeviceGetPowerManagementLimit(device nvmlDevice, limit *uint32) NvmlRetType
	DeviceGetClockInfo(device nvmlDevice, clockType ClockType, clockMHz *uint32) NvmlRetType
	DeviceGetMaxClockInfo(device nvmlDevice, clockType ClockType, clockMHz *uint32) NvmlRetType
	DeviceGetTemperature(device nvmlDevice, sensor TemperatureSensors, temp *uint32) NvmlRetType
	DeviceGetFanSpeed(device nvmlDevice, speed *uint32) NvmlRetType
	DeviceGetPowerUsage(device nvmlDevice, power *uint32) NvmlRetType
	DeviceGetPcieThroughput(device nvmlDevice, counter PcieUtilCounter, value *uint32) NvmlRetType
	DeviceGetUtilizationRates(device nvmlDevice, utilization *Utilization) NvmlRetType
	// infoCount carries the buffer capacity in and the number of existing processes out.
	DeviceGetComputeRunningProcesses(device nvmlDevice, infoCount *uint32, infos []ProcessInfo) NvmlRetType
	DeviceGetGraphicsRunningProcesses(device nvmlDevice, infoCount *uint32, infos []ProcessInfo) NvmlRetType
}
