/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

// The gonvml constant definition is implemented in this file.

package gonvml

// NvmlRetType the type of nvml api return value
type NvmlRetType int32

// The letter case of the constant name is the same as that in nvml.h.
const (
	// DeviceNameBufferSize as defined in nvml/nvml.h
	DeviceNameBufferSize = 96

	// DeviceUUIDBufferSize as defined in nvml/nvml.h
	DeviceUUIDBufferSize = 96

	// SystemProcessNameBufferSize buffer size used for nvmlSystemGetProcessName
	SystemProcessNameBufferSize = 96

	// SystemDriverVersionBufferSize as defined in nvml/nvml.h
	SystemDriverVersionBufferSize = 80

	// DevicePciBusIdBufferSize as defined in nvml/nvml.h
	DevicePciBusIdBufferSize = 32

	// DevicePciBusIdBufferV2Size as defined in nvml/nvml.h
	DevicePciBusIdBufferV2Size = 16

	// MaxProcessCount upper bound of a running process list
	MaxProcessCount = 100
)

// Return enumeration from nvml/nvml.h
const (
	Success NvmlRetType = iota
	ErrorUninitialized
	ErrorInvalidArgument
	ErrorNotSupported
	ErrorNoPermission
	ErrorAlreadyInitialized
	ErrorNotFound
	ErrorInsufficientSize
	ErrorInsufficientPower
	ErrorDriverNotLoaded
	ErrorTimeout
	ErrorIrqIssue
	ErrorLibraryNotFound
	ErrorFunctionNotFound
	ErrorCorruptedInforom
	ErrorGpuIsLost
	ErrorResetRequired
	ErrorOperatingSystem
	ErrorLibRmVersionMismatch
	ErrorInUse
	ErrorMemory
	ErrorNoData
	ErrorVgpuEccNotSupported
	ErrorInsufficientResources
	ErrorFreqNotSupported
	ErrorArgumentVersionMismatch
	ErrorDeprecated
	ErrorUnknown NvmlRetType = 999
)

// ClockType as declared in nvml/nvml.h
type ClockType int32

// ClockType enumeration from nvml/nvml.h
const (
	ClockGraphics ClockType = iota
	ClockSM
	ClockMem
	ClockVideo
	ClockCount
)

var clockNames = [...]string{"graphics", "sm", "mem", "video"}

// String returns the lower case clock domain name.
func (c ClockType) String() string {
	if c < 0 || int(c) >= len(clockNames) {
		return "unknown"
	}
	return clockNames[c]
}

// TemperatureSensors as declared in nvml/nvml.h
type TemperatureSensors int32

const (
	TemperatureGpu TemperatureSensors = iota
	TemperatureCount
)

// PcieUtilCounter as declared in nvml/nvml.h
type PcieUtilCounter int32

const (
	PcieUtilTxBytes PcieUtilCounter = iota
	PcieUtilRxBytes
	PcieUtilCount
)
