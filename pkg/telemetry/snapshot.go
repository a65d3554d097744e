/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

// Package telemetry samples every GPU of a gonvml session into a plain snapshot
package telemetry

import "time"

// Metric names recorded in DeviceStats.Unsupported
const (
	MetricIndex             = "index"
	MetricUUID              = "uuid"
	MetricMinorNumber       = "minor_number"
	MetricPciInfo           = "pci_info"
	MetricPcieGeneration    = "pcie_generation"
	MetricMemory            = "memory"
	MetricPowerLimit        = "power_limit"
	MetricPowerUsage        = "power_usage"
	MetricTemperature       = "temperature"
	MetricFanSpeed          = "fan_speed"
	MetricPcieTx            = "pcie_tx"
	MetricPcieRx            = "pcie_rx"
	MetricUtilization       = "utilization"
	MetricComputeProcesses  = "compute_processes"
	MetricGraphicsProcesses = "graphics_processes"
	clockPrefix             = "clock_"
	maxClockPrefix          = "max_clock_"
)

// Process types
const (
	ProcessCompute  = "compute"
	ProcessGraphics = "graphics"
)

// Snapshot is the state of all GPUs at one point in time.
type Snapshot struct {
	Timestamp     time.Time     `json:"timestamp" cbor:"timestamp"`
	DriverVersion string        `json:"driverVersion" cbor:"driverVersion"`
	Devices       []DeviceStats `json:"devices" cbor:"devices"`
}

// Clock of one domain, in MHz
type Clock struct {
	Domain  string `json:"domain" cbor:"domain"`
	Current uint32 `json:"current" cbor:"current"`
	Max     uint32 `json:"max" cbor:"max"`
}

// Process holding a context on a GPU
type Process struct {
	Pid               uint32 `json:"pid" cbor:"pid"`
	Name              string `json:"name" cbor:"name"`
	Type              string `json:"type" cbor:"type"`
	UsedMemory        uint64 `json:"usedMemory" cbor:"usedMemory"`
	GpuInstanceId     uint32 `json:"gpuInstanceId" cbor:"gpuInstanceId"`
	ComputeInstanceId uint32 `json:"computeInstanceId" cbor:"computeInstanceId"`
}

// DeviceStats holds one GPU. Metrics named in Unsupported are left zero.
type DeviceStats struct {
	Index          uint32    `json:"index" cbor:"index"`
	UUID           string    `json:"uuid" cbor:"uuid"`
	Name           string    `json:"name" cbor:"name"`
	MinorNumber    uint32    `json:"minorNumber" cbor:"minorNumber"`
	PciBusId       string    `json:"pciBusId" cbor:"pciBusId"`
	PciDeviceId    uint32    `json:"pciDeviceId" cbor:"pciDeviceId"`
	PcieGeneration uint32    `json:"pcieGeneration" cbor:"pcieGeneration"`
	MemoryTotal    uint64    `json:"memoryTotal" cbor:"memoryTotal"`
	MemoryFree     uint64    `json:"memoryFree" cbor:"memoryFree"`
	MemoryUsed     uint64    `json:"memoryUsed" cbor:"memoryUsed"`
	PowerLimit     uint32    `json:"powerLimit" cbor:"powerLimit"`
	PowerUsage     uint32    `json:"powerUsage" cbor:"powerUsage"`
	Temperature    uint32    `json:"temperature" cbor:"temperature"`
	FanSpeed       uint32    `json:"fanSpeed" cbor:"fanSpeed"`
	PcieTx         uint32    `json:"pcieTx" cbor:"pcieTx"`
	PcieRx         uint32    `json:"pcieRx" cbor:"pcieRx"`
	GpuUtil        uint32    `json:"gpuUtil" cbor:"gpuUtil"`
	MemoryUtil     uint32    `json:"memoryUtil" cbor:"memoryUtil"`
	Clocks         []Clock   `json:"clocks" cbor:"clocks"`
	Processes      []Process `json:"processes" cbor:"processes"`
	Unsupported    []string  `json:"unsupported,omitempty" cbor:"unsupported,omitempty"`
}

// Supported reports whether metric was read from the device.
func (d *DeviceStats) Supported(metric string) bool {
	for _, m := range d.Unsupported {
		if m == metric {
			return false
		}
	}
	return true
}

// ClockMetric is the Unsupported name of the current clock of domain.
func ClockMetric(domain string) string {
	return clockPrefix + domain
}

// MaxClockMetric is the Unsupported name of the max clock of domain.
func MaxClockMetric(domain string) string {
	return maxClockPrefix + domain
}
