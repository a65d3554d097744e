/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

//Package gpuservice for Prometheus

package gpuservice

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"huawei.com/gpu-info/common/cache"
	"huawei.com/gpu-info/pkg/log"
	"huawei.com/gpu-info/pkg/telemetry"
	"huawei.com/gpu-info/versions"
)

const (
	gpuUUid       = "gpu_uuid"
	nodeName      = "node_name"
	nvmlIndex     = "nvml_index"
	model         = "model"
	driverVersion = "driver_version"
	clockType     = "clock_type"
	processType   = "process_type"
	pid           = "pid"
	processName   = "process_name"
	direction     = "direction"
	gpuInstance   = "gpu_instance_id"
	computeInst   = "compute_instance_id"
	pciBusID      = "pci_bus_id"
	minorNumber   = "minor_number"

	// instance id reported when MIG is disabled
	noInstance = 0xFFFFFFFF
)

var (
	gpuLabel     = []string{gpuUUid, nodeName, nvmlIndex, model}
	clockLabel   = append(append([]string{}, gpuLabel...), clockType)
	processLabel = append(append([]string{}, gpuLabel...), pid, processName, processType, gpuInstance, computeInst)
	deviceLabel  = append(append([]string{}, gpuLabel...), pciBusID, minorNumber)
	numLabel     = append(append([]string{}, gpuLabel...), processType)
	pcieLabel    = append(append([]string{}, gpuLabel...), direction)
)

var (
	versionInfoDesc = prometheus.NewDesc("gpu_info_exporter_version_info",
		"exporter version with value '1'", []string{"exporterVersion"}, nil)
	driverInfoDesc = prometheus.NewDesc("gpu_info_driver_info",
		"driver version with value '1'", []string{nodeName, driverVersion}, nil)
	gpuNumberDesc = prometheus.NewDesc("gpu_info_gpu_num",
		"number of gpus", []string{nodeName}, nil)
	gpuDeviceInfoDesc = prometheus.NewDesc("gpu_info_gpu_device_info",
		"pci location and minor number of gpu with value '1'", deviceLabel, nil)
	gpuUtilizationDesc = prometheus.NewDesc("gpu_info_gpu_util",
		"the utilization rate of computing power for a single gpu", gpuLabel, nil)
	gpuMemoryUtilizationDesc = prometheus.NewDesc("gpu_info_gpu_mem_util",
		"the utilization rate of memory for a single gpu", gpuLabel, nil)
	gpuMemoryTotalDesc = prometheus.NewDesc("gpu_info_gpu_mem_total_bytes",
		"memory size of gpu", gpuLabel, nil)
	gpuMemoryUsedDesc = prometheus.NewDesc("gpu_info_gpu_mem_used_bytes",
		"used memory of gpu", gpuLabel, nil)
	gpuMemoryFreeDesc = prometheus.NewDesc("gpu_info_gpu_mem_free_bytes",
		"free memory of gpu", gpuLabel, nil)
	gpuPowerUsageDesc = prometheus.NewDesc("gpu_info_gpu_power_usage",
		"power usage of gpu, the unit is milliwatts", gpuLabel, nil)
	gpuPowerLimitDesc = prometheus.NewDesc("gpu_info_gpu_power_limit",
		"power management limit of gpu, the unit is milliwatts", gpuLabel, nil)
	gpuTemperatureDesc = prometheus.NewDesc("gpu_info_gpu_temperature",
		"temperature of gpu, the unit is Celsius", gpuLabel, nil)
	gpuFanSpeedDesc = prometheus.NewDesc("gpu_info_gpu_fan_speed",
		"fan speed of gpu in percent of the maximum", gpuLabel, nil)
	gpuPcieGenerationDesc = prometheus.NewDesc("gpu_info_gpu_pcie_max_generation",
		"max pcie link generation of gpu", gpuLabel, nil)
	gpuPcieThroughputDesc = prometheus.NewDesc("gpu_info_gpu_pcie_throughput",
		"pcie throughput of gpu, the unit is KB/s", pcieLabel, nil)
	gpuClockDesc = prometheus.NewDesc("gpu_info_gpu_clock",
		"current clock of gpu, the unit is MHz", clockLabel, nil)
	gpuMaxClockDesc = prometheus.NewDesc("gpu_info_gpu_max_clock",
		"max clock of gpu, the unit is MHz", clockLabel, nil)
	gpuProcessNumberDesc = prometheus.NewDesc("gpu_info_gpu_process_num",
		"real time quantity of processes on gpu", numLabel, nil)
	gpuProcessMemoryDesc = prometheus.NewDesc("gpu_info_gpu_process_mem_bytes",
		"gpu memory used by a process", processLabel, nil)

	descriptions = []*prometheus.Desc{versionInfoDesc, driverInfoDesc, gpuNumberDesc, gpuDeviceInfoDesc,
		gpuUtilizationDesc, gpuMemoryUtilizationDesc, gpuMemoryTotalDesc, gpuMemoryUsedDesc, gpuMemoryFreeDesc,
		gpuPowerUsageDesc, gpuPowerLimitDesc, gpuTemperatureDesc, gpuFanSpeedDesc, gpuPcieGenerationDesc,
		gpuPcieThroughputDesc, gpuClockDesc, gpuMaxClockDesc, gpuProcessNumberDesc, gpuProcessMemoryDesc}
)

const (
	cacheSize = 128
)

type gpuCollector struct {
	cache      *cache.ConcurrencyLRUCache
	source     SnapshotSource
	nodeName   string
	updateTime time.Duration
	cacheTime  time.Duration
	// serializes sampling between the ticker and a cache miss in Collect
	mu sync.Mutex
}

// Describe implements prometheus.Collector
func (n *gpuCollector) Describe(ch chan<- *prometheus.Desc) {
	if ch == nil {
		log.Warningf("Invalid param in function Describe")
		return
	}
	for _, desc := range descriptions {
		ch <- desc
	}
}

// Collect implements prometheus.Collector
func (n *gpuCollector) Collect(ch chan<- prometheus.Metric) {
	if ch == nil {
		log.Warningf("Invalid param in function Collect")
		return
	}

	ch <- prometheus.MustNewConstMetric(versionInfoDesc, prometheus.GaugeValue, 1,
		[]string{versions.BuildVersion}...)
	snap := n.getSnapshotInCache()
	if snap == nil {
		return
	}

	ch <- prometheus.MustNewConstMetric(driverInfoDesc, prometheus.GaugeValue, 1, n.nodeName, snap.DriverVersion)
	ch <- prometheus.MustNewConstMetric(gpuNumberDesc, prometheus.GaugeValue, float64(len(snap.Devices)),
		n.nodeName)
	for i := range snap.Devices {
		n.updateGpuDeviceInfo(ch, &snap.Devices[i])
	}
}

// refresh samples the source and stores the encoded snapshot for cacheTime.
func (n *gpuCollector) refresh() ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	snap, err := n.source.Sample()
	if err != nil {
		return nil, err
	}
	data, err := telemetry.MarshalCBOR(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if err = n.cache.Set(snapshotCacheKey, data, n.cacheTime); err != nil {
		log.Errorf("no cache for prometheus, try to build cache failed, error is: %v", err)
	}
	return data, nil
}

func (n *gpuCollector) getSnapshotInCache() *telemetry.Snapshot {
	obj, err := n.cache.Get(snapshotCacheKey)
	if err != nil {
		log.Warningf("no cache, start to sample gpus and rebuild cache.")
		data, err := n.refresh()
		if err != nil {
			log.Errorf("sample gpus error: %v", err)
			return nil
		}
		obj = data
	}

	data, ok := obj.([]byte)
	if !ok {
		log.Errorf("snapshot cache holds %T", obj)
		return nil
	}
	snap, err := telemetry.UnmarshalCBOR(data)
	if err != nil {
		log.Errorf("snapshot cache convert failed: %v", err)
		return nil
	}
	return snap
}

func gauge(ch chan<- prometheus.Metric, d *telemetry.DeviceStats, metric string, desc *prometheus.Desc,
	value float64, labels ...string) {
	if !d.Supported(metric) {
		return
	}
	ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, value, labels...)
}

func (n *gpuCollector) updateGpuDeviceInfo(ch chan<- prometheus.Metric, d *telemetry.DeviceStats) {
	labels := []string{d.UUID, n.nodeName, strconv.Itoa(int(d.Index)), d.Name}
	with := func(extra ...string) []string {
		return append(append([]string{}, labels...), extra...)
	}

	minor := ""
	if d.Supported(telemetry.MetricMinorNumber) {
		minor = strconv.Itoa(int(d.MinorNumber))
	}
	ch <- prometheus.MustNewConstMetric(gpuDeviceInfoDesc, prometheus.GaugeValue, 1, with(d.PciBusId, minor)...)

	gauge(ch, d, telemetry.MetricUtilization, gpuUtilizationDesc, float64(d.GpuUtil), labels...)
	gauge(ch, d, telemetry.MetricUtilization, gpuMemoryUtilizationDesc, float64(d.MemoryUtil), labels...)
	gauge(ch, d, telemetry.MetricMemory, gpuMemoryTotalDesc, float64(d.MemoryTotal), labels...)
	gauge(ch, d, telemetry.MetricMemory, gpuMemoryUsedDesc, float64(d.MemoryUsed), labels...)
	gauge(ch, d, telemetry.MetricMemory, gpuMemoryFreeDesc, float64(d.MemoryFree), labels...)
	gauge(ch, d, telemetry.MetricPowerUsage, gpuPowerUsageDesc, float64(d.PowerUsage), labels...)
	gauge(ch, d, telemetry.MetricPowerLimit, gpuPowerLimitDesc, float64(d.PowerLimit), labels...)
	gauge(ch, d, telemetry.MetricTemperature, gpuTemperatureDesc, float64(d.Temperature), labels...)
	gauge(ch, d, telemetry.MetricFanSpeed, gpuFanSpeedDesc, float64(d.FanSpeed), labels...)
	gauge(ch, d, telemetry.MetricPcieGeneration, gpuPcieGenerationDesc, float64(d.PcieGeneration), labels...)
	gauge(ch, d, telemetry.MetricPcieTx, gpuPcieThroughputDesc, float64(d.PcieTx), with("tx")...)
	gauge(ch, d, telemetry.MetricPcieRx, gpuPcieThroughputDesc, float64(d.PcieRx), with("rx")...)

	for _, c := range d.Clocks {
		gauge(ch, d, telemetry.ClockMetric(c.Domain), gpuClockDesc, float64(c.Current), with(c.Domain)...)
		gauge(ch, d, telemetry.MaxClockMetric(c.Domain), gpuMaxClockDesc, float64(c.Max), with(c.Domain)...)
	}

	counts := map[string]int{}
	for _, p := range d.Processes {
		counts[p.Type]++
	}
	for _, p := range processMemory(d.Processes) {
		ch <- prometheus.MustNewConstMetric(gpuProcessMemoryDesc, prometheus.GaugeValue, float64(p.UsedMemory),
			with(strconv.Itoa(int(p.Pid)), p.Name, p.Type, instanceID(p.GpuInstanceId),
				instanceID(p.ComputeInstanceId))...)
	}
	gauge(ch, d, telemetry.MetricComputeProcesses, gpuProcessNumberDesc,
		float64(counts[telemetry.ProcessCompute]), with(telemetry.ProcessCompute)...)
	gauge(ch, d, telemetry.MetricGraphicsProcesses, gpuProcessNumberDesc,
		float64(counts[telemetry.ProcessGraphics]), with(telemetry.ProcessGraphics)...)
}

func instanceID(id uint32) string {
	if id == noInstance {
		return ""
	}
	return strconv.FormatUint(uint64(id), 10)
}

// processMemory merges the entries sharing pid, type and instances, keeping the first order.
func processMemory(processes []telemetry.Process) []telemetry.Process {
	type key struct {
		pid, gpuInstance, computeInstance uint32
		kind                              string
	}
	merged := make([]telemetry.Process, 0, len(processes))
	index := make(map[key]int, len(processes))
	for _, p := range processes {
		k := key{pid: p.Pid, gpuInstance: p.GpuInstanceId, computeInstance: p.ComputeInstanceId, kind: p.Type}
		if i, ok := index[k]; ok {
			merged[i].UsedMemory += p.UsedMemory
			continue
		}
		index[k] = len(merged)
		merged = append(merged, p)
	}
	return merged
}
