/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

package gonvml

// SystemGetDriverVersion returns the version of the installed driver.
func (s *Session) SystemGetDriverVersion() (string, error) {
	version := make([]byte, SystemDriverVersionBufferSize)
	if err := s.call(func(api nativeAPI) NvmlRetType {
		return api.SystemGetDriverVersion(version)
	}); err != nil {
		return "", err
	}
	return decodeCString("driver version", version)
}

// SystemGetProcessName returns the name of the process with the given pid.
func (s *Session) SystemGetProcessName(pid uint32) (string, error) {
	name := make([]byte, SystemProcessNameBufferSize)
	if err := s.call(func(api nativeAPI) NvmlRetType {
		return api.SystemGetProcessName(pid, name)
	}); err != nil {
		return "", err
	}
	return decodeCString("process name", name)
}

// DeviceGetCount returns the number of GPUs visible to NVML.
func (s *Session) DeviceGetCount() (uint32, error) {
	var count uint32
	if err := s.call(func(api nativeAPI) NvmlRetType {
		return api.DeviceGetCount(&count)
	}); err != nil {
		return 0, err
	}
	return count, nil
}

// DeviceGetHandleByIndex returns the device at index, 0 <= index < DeviceGetCount.
func (s *Session) DeviceGetHandleByIndex(index uint32) (Device, error) {
	var handle nvmlDevice
	if err := s.call(func(api nativeAPI) NvmlRetType {
		return api.DeviceGetHandleByIndex(index, &handle)
	}); err != nil {
		return Device{}, err
	}
	if handle == nil {
		return Device{}, ErrUnknown
	}
	return Device{handle: handle}, nil
}

// DeviceGetIndex returns the NVML index of the device.
func (s *Session) DeviceGetIndex(d Device) (uint32, error) {
	var index uint32
	if err := s.deviceCall(d, func(api nativeAPI, h nvmlDevice) NvmlRetType {
		return api.DeviceGetIndex(h, &index)
	}); err != nil {
		return 0, err
	}
	return index, nil
}

// DeviceGetName returns the product name, e.g. "Tesla T4".
func (s *Session) DeviceGetName(d Device) (string, error) {
	name := make([]byte, DeviceNameBufferSize)
	if err := s.deviceCall(d, func(api nativeAPI, h nvmlDevice) NvmlRetType {
		return api.DeviceGetName(h, name)
	}); err != nil {
		return "", err
	}
	return decodeCString("device name", name)
}

// DeviceGetUUID returns the globally unique immutable identifier of the device.
func (s *Session) DeviceGetUUID(d Device) (string, error) {
	uuid := make([]byte, DeviceUUIDBufferSize)
	if err := s.deviceCall(d, func(api nativeAPI, h nvmlDevice) NvmlRetType {
		return api.DeviceGetUUID(h, uuid)
	}); err != nil {
		return "", err
	}
	return decodeCString("device uuid", uuid)
}

// DeviceGetMaxPcieLinkGeneration returns the highest PCIe generation the device and system support.
func (s *Session) DeviceGetMaxPcieLinkGeneration(d Device) (uint32, error) {
	var gen uint32
	if err := s.deviceCall(d, func(api nativeAPI, h nvmlDevice) NvmlRetType {
		return api.DeviceGetMaxPcieLinkGeneration(h, &gen)
	}); err != nil {
		return 0, err
	}
	return gen, nil
}

// DeviceGetMemoryInfo returns the frame buffer usage in bytes.
func (s *Session) DeviceGetMemoryInfo(d Device) (Memory, error) {
	var memory Memory
	if err := s.deviceCall(d, func(api nativeAPI, h nvmlDevice) NvmlRetType {
		return api.DeviceGetMemoryInfo(h, &memory)
	}); err != nil {
		return Memory{}, err
	}
	return memory, nil
}

// DeviceGetPowerManagementLimit returns the power limit in milliwatts.
func (s *Session) DeviceGetPowerManagementLimit(d Device) (uint32, error) {
	var limit uint32
	if err := s.deviceCall(d, func(api nativeAPI, h nvmlDevice) NvmlRetType {
		return api.DeviceGetPowerManagementLimit(h, &limit)
	}); err != nil {
		return 0, err
	}
	return limit, nil
}

// DeviceGetClockInfo returns the current clock of the domain in MHz.
func (s *Session) DeviceGetClockInfo(d Device, clockType ClockType) (uint32, error) {
	var clock uint32
	if err := s.deviceCall(d, func(api nativeAPI, h nvmlDevice) NvmlRetType {
		return api.DeviceGetClockInfo(h, clockType, &clock)
	}); err != nil {
		return 0, err
	}
	return clock, nil
}

// DeviceGetMaxClockInfo returns the maximum clock of the domain in MHz.
func (s *Session) DeviceGetMaxClockInfo(d Device, clockType ClockType) (uint32, error) {
	var clock uint32
	if err := s.deviceCall(d, func(api nativeAPI, h nvmlDevice) NvmlRetType {
		return api.DeviceGetMaxClockInfo(h, clockType, &clock)
	}); err != nil {
		return 0, err
	}
	return clock, nil
}

// DeviceGetTemperature returns the sensor reading in degrees Celsius.
func (s *Session) DeviceGetTemperature(d Device, sensor TemperatureSensors) (uint32, error) {
	var temp uint32
	if err := s.deviceCall(d, func(api nativeAPI, h nvmlDevice) NvmlRetType {
		return api.DeviceGetTemperature(h, sensor, &temp)
	}); err != nil {
		return 0, err
	}
	return temp, nil
}

// DeviceGetFanSpeed returns the intended fan speed as a percentage of the maximum.
func (s *Session) DeviceGetFanSpeed(d Device) (uint32, error) {
	var speed uint32
	if err := s.deviceCall(d, func(api nativeAPI, h nvmlDevice) NvmlRetType {
		return api.DeviceGetFanSpeed(h, &speed)
	}); err != nil {
		return 0, err
	}
	return speed, nil
}

// DeviceGetPowerUsage returns the power draw in milliwatts.
func (s *Session) DeviceGetPowerUsage(d Device) (uint32, error) {
	var power uint32
	if err := s.deviceCall(d, func(api nativeAPI, h nvmlDevice) NvmlRetType {
		return api.DeviceGetPowerUsage(h, &power)
	}); err != nil {
		return 0, err
	}
	return power, nil
}

// DeviceGetPcieThroughput returns the PCIe traffic of the counter in KB/s.
func (s *Session) DeviceGetPcieThroughput(d Device, counter PcieUtilCounter) (uint32, error) {
	var value uint32
	if err := s.deviceCall(d, func(api nativeAPI, h nvmlDevice) NvmlRetType {
		return api.DeviceGetPcieThroughput(h, counter, &value)
	}); err != nil {
		return 0, err
	}
	return value, nil
}

// DeviceGetUtilizationRates returns the GPU and memory utilization of the last sample period.
func (s *Session) DeviceGetUtilizationRates(d Device) (Utilization, error) {
	var utilization Utilization
	if err := s.deviceCall(d, func(api nativeAPI, h nvmlDevice) NvmlRetType {
		return api.DeviceGetUtilizationRates(h, &utilization)
	}); err != nil {
		return Utilization{}, err
	}
	return utilization, nil
}

// DeviceGetMinorNumber returns the minor number of the device, /dev/nvidia<minor>.
func (s *Session) DeviceGetMinorNumber(d Device) (uint32, error) {
	var minor uint32
	if err := s.deviceCall(d, func(api nativeAPI, h nvmlDevice) NvmlRetType {
		return api.DeviceGetMinorNumber(h, &minor)
	}); err != nil {
		return 0, err
	}
	return minor, nil
}

// DeviceGetPciInfo returns the PCI location of the device.
func (s *Session) DeviceGetPciInfo(d Device) (PciInfo, error) {
	var raw nvmlPciInfo
	if err := s.deviceCall(d, func(api nativeAPI, h nvmlDevice) NvmlRetType {
		return api.DeviceGetPciInfo(h, &raw)
	}); err != nil {
		return PciInfo{}, err
	}
	busID, err := decodeCString("pci bus id", raw.BusId[:])
	if err != nil {
		return PciInfo{}, err
	}
	legacy, err := decodeCString("legacy pci bus id", raw.BusIdLegacy[:])
	if err != nil {
		return PciInfo{}, err
	}
	return PciInfo{
		BusId:          busID,
		BusIdLegacy:    legacy,
		Domain:         raw.Domain,
		Bus:            raw.Bus,
		Device:         raw.Device,
		PciDeviceId:    raw.PciDeviceId,
		PciSubSystemId: raw.PciSubSystemId,
	}, nil
}
