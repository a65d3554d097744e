//go:build linux && cgo

/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

// In this file, the cgo feature is used to invoke the NVML library.
// The library is opened with dlopen so that the binary does not depend on libnvidia-ml.so.1 at link time.

package gonvml

// #cgo CFLAGS: -fstack-protector-all
// #cgo LDFLAGS: -ldl
/*
#include <stddef.h>
#include <stdio.h>
#include <stdlib.h>
#include <dlfcn.h>

#define NVML_SUCCESS                  0
#define NVML_ERROR_LIBRARY_NOT_FOUND  12
#define NVML_ERROR_FUNCTION_NOT_FOUND 13
#define NVML_ERROR_UNKNOWN            999

// Shapes below follow nvml.h exactly: field order, width and packing.
typedef int nvmlReturn_t;
typedef int nvmlClockType_t;
typedef int nvmlTemperatureSensors_t;
typedef int nvmlPcieUtilCounter_t;
typedef struct nvmlDevice_st *nvmlDevice_t;

typedef struct nvmlMemory_st {
    unsigned long long total;
    unsigned long long free;
    unsigned long long used;
} nvmlMemory_t;

typedef struct nvmlUtilization_st {
    unsigned int gpu;
    unsigned int memory;
} nvmlUtilization_t;

typedef struct nvmlProcessInfo_v2_st {
    unsigned int pid;
    unsigned long long usedGpuMemory;
    unsigned int gpuInstanceId;
    unsigned int computeInstanceId;
} nvmlProcessInfo_t;

typedef struct nvmlPciInfo_st {
    char busIdLegacy[16];
    unsigned int domain;
    unsigned int bus;
    unsigned int device;
    unsigned int pciDeviceId;
    unsigned int pciSubSystemId;
    char busId[32];
} nvmlPciInfo_t;

enum { offsetof_nvmlPciInfo_busId = offsetof(nvmlPciInfo_t, busId) };

typedef nvmlReturn_t (*NvmlInitFunc)(void);
typedef nvmlReturn_t (*NvmlShutdownFunc)(void);
typedef nvmlReturn_t (*NvmlSystemGetDriverVersionFunc)(char *version, unsigned int length);
typedef nvmlReturn_t (*NvmlSystemGetProcessNameFunc)(unsigned int pid, char *name, unsigned int length);
typedef nvmlReturn_t (*NvmlDeviceGetCountFunc)(unsigned int *deviceCount);
typedef nvmlReturn_t (*NvmlDeviceGetHandleByIndexFunc)(unsigned int index, nvmlDevice_t *device);
typedef nvmlReturn_t (*NvmlDeviceGetIndexFunc)(nvmlDevice_t device, unsigned int *index);
typedef nvmlReturn_t (*NvmlDeviceGetNameFunc)(nvmlDevice_t device, char *name, unsigned int length);
typedef nvmlReturn_t (*NvmlDeviceGetUUIDFunc)(nvmlDevice_t device, char *uuid, unsigned int length);
typedef nvmlReturn_t (*NvmlDeviceGetMinorNumberFunc)(nvmlDevice_t device, unsigned int *minorNumber);
typedef nvmlReturn_t (*NvmlDeviceGetPciInfoFunc)(nvmlDevice_t device, nvmlPciInfo_t *pci);
typedef nvmlReturn_t (*NvmlDeviceGetMaxPcieLinkGenerationFunc)(nvmlDevice_t device, unsigned int *maxLinkGen);
typedef nvmlReturn_t (*NvmlDeviceGetMemoryInfoFunc)(nvmlDevice_t device, nvmlMemory_t *memory);
typedef nvmlReturn_t (*NvmlDeviceGetPowerManagementLimitFunc)(nvmlDevice_t device, unsigned int *limit);
typedef nvmlReturn_t (*NvmlDeviceGetClockInfoFunc)(nvmlDevice_t device, nvmlClockType_t type, unsigned int *clock);
typedef nvmlReturn_t (*NvmlDeviceGetTemperatureFunc)(nvmlDevice_t device, nvmlTemperatureSensors_t sensorType, unsigned int *temp);
typedef nvmlReturn_t (*NvmlDeviceGetFanSpeedFunc)(nvmlDevice_t device, unsigned int *speed);
typedef nvmlReturn_t (*NvmlDeviceGetPowerUsageFunc)(nvmlDevice_t device, unsigned int *power);
typedef nvmlReturn_t (*NvmlDeviceGetPcieThroughputFunc)(nvmlDevice_t device, nvmlPcieUtilCounter_t counter, unsigned int *value);
typedef nvmlReturn_t (*NvmlDeviceGetUtilizationRatesFunc)(nvmlDevice_t device, nvmlUtilization_t *utilization);
typedef nvmlReturn_t (*NvmlDeviceGetRunningProcessesFunc)(nvmlDevice_t device, unsigned int *infoCount, nvmlProcessInfo_t *infos);

static void *nvmlHandle = NULL;
static char dlErrorBuf[256];

static NvmlInitFunc nvmlInitFunc = NULL;
static NvmlShutdownFunc nvmlShutdownFunc = NULL;
static NvmlSystemGetDriverVersionFunc nvmlSystemGetDriverVersionFunc = NULL;
static NvmlSystemGetProcessNameFunc nvmlSystemGetProcessNameFunc = NULL;
static NvmlDeviceGetCountFunc nvmlDeviceGetCountFunc = NULL;
static NvmlDeviceGetHandleByIndexFunc nvmlDeviceGetHandleByIndexFunc = NULL;
static NvmlDeviceGetIndexFunc nvmlDeviceGetIndexFunc = NULL;
static NvmlDeviceGetNameFunc nvmlDeviceGetNameFunc = NULL;
static NvmlDeviceGetUUIDFunc nvmlDeviceGetUUIDFunc = NULL;
static NvmlDeviceGetMinorNumberFunc nvmlDeviceGetMinorNumberFunc = NULL;
static NvmlDeviceGetPciInfoFunc nvmlDeviceGetPciInfoFunc = NULL;
static NvmlDeviceGetMaxPcieLinkGenerationFunc nvmlDeviceGetMaxPcieLinkGenerationFunc = NULL;
static NvmlDeviceGetMemoryInfoFunc nvmlDeviceGetMemoryInfoFunc = NULL;
static NvmlDeviceGetPowerManagementLimitFunc nvmlDeviceGetPowerManagementLimitFunc = NULL;
static NvmlDeviceGetClockInfoFunc nvmlDeviceGetClockInfoFunc = NULL;
static NvmlDeviceGetClockInfoFunc nvmlDeviceGetMaxClockInfoFunc = NULL;
static NvmlDeviceGetTemperatureFunc nvmlDeviceGetTemperatureFunc = NULL;
static NvmlDeviceGetFanSpeedFunc nvmlDeviceGetFanSpeedFunc = NULL;
static NvmlDeviceGetPowerUsageFunc nvmlDeviceGetPowerUsageFunc = NULL;
static NvmlDeviceGetPcieThroughputFunc nvmlDeviceGetPcieThroughputFunc = NULL;
static NvmlDeviceGetUtilizationRatesFunc nvmlDeviceGetUtilizationRatesFunc = NULL;
static NvmlDeviceGetRunningProcessesFunc nvmlDeviceGetComputeRunningProcessesFunc = NULL;
static NvmlDeviceGetRunningProcessesFunc nvmlDeviceGetGraphicsRunningProcessesFunc = NULL;

static nvmlReturn_t nvmlInit(void) {
    return (nvmlInitFunc == NULL) ? NVML_ERROR_FUNCTION_NOT_FOUND : nvmlInitFunc();
}

static nvmlReturn_t nvmlShutdown(void) {
    return (nvmlShutdownFunc == NULL) ? NVML_ERROR_FUNCTION_NOT_FOUND : nvmlShutdownFunc();
}

static nvmlReturn_t nvmlSystemGetDriverVersion(char *version, unsigned int length) {
    return (nvmlSystemGetDriverVersionFunc == NULL) ? NVML_ERROR_FUNCTION_NOT_FOUND :
        nvmlSystemGetDriverVersionFunc(version, length);
}

static nvmlReturn_t nvmlSystemGetProcessName(unsigned int pid, char *name, unsigned int length) {
    return (nvmlSystemGetProcessNameFunc == NULL) ? NVML_ERROR_FUNCTION_NOT_FOUND :
        nvmlSystemGetProcessNameFunc(pid, name, length);
}

static nvmlReturn_t nvmlDeviceGetCount(unsigned int *deviceCount) {
    return (nvmlDeviceGetCountFunc == NULL) ? NVML_ERROR_FUNCTION_NOT_FOUND : nvmlDeviceGetCountFunc(deviceCount);
}

static nvmlReturn_t nvmlDeviceGetHandleByIndex(unsigned int index, nvmlDevice_t *device) {
    return (nvmlDeviceGetHandleByIndexFunc == NULL) ? NVML_ERROR_FUNCTION_NOT_FOUND :
        nvmlDeviceGetHandleByIndexFunc(index, device);
}

static nvmlReturn_t nvmlDeviceGetIndex(nvmlDevice_t device, unsigned int *index) {
    return (nvmlDeviceGetIndexFunc == NULL) ? NVML_ERROR_FUNCTION_NOT_FOUND : nvmlDeviceGetIndexFunc(device, index);
}

static nvmlReturn_t nvmlDeviceGetName(nvmlDevice_t device, char *name, unsigned int length) {
    return (nvmlDeviceGetNameFunc == NULL) ? NVML_ERROR_FUNCTION_NOT_FOUND :
        nvmlDeviceGetNameFunc(device, name, length);
}

static nvmlReturn_t nvmlDeviceGetUUID(nvmlDevice_t device, char *uuid, unsigned int length) {
    return (nvmlDeviceGetUUIDFunc == NULL) ? NVML_ERROR_FUNCTION_NOT_FOUND :
        nvmlDeviceGetUUIDFunc(device, uuid, length);
}

static nvmlReturn_t nvmlDeviceGetMinorNumber(nvmlDevice_t device, unsigned int *minorNumber) {
    return (nvmlDeviceGetMinorNumberFunc == NULL) ? NVML_ERROR_FUNCTION_NOT_FOUND :
        nvmlDeviceGetMinorNumberFunc(device, minorNumber);
}

static nvmlReturn_t nvmlDeviceGetPciInfo(nvmlDevice_t device, nvmlPciInfo_t *pci) {
    return (nvmlDeviceGetPciInfoFunc == NULL) ? NVML_ERROR_FUNCTION_NOT_FOUND : nvmlDeviceGetPciInfoFunc(device, pci);
}

static nvmlReturn_t nvmlDeviceGetMaxPcieLinkGeneration(nvmlDevice_t device, unsigned int *maxLinkGen) {
    return (nvmlDeviceGetMaxPcieLinkGenerationFunc == NULL) ? NVML_ERROR_FUNCTION_NOT_FOUND :
        nvmlDeviceGetMaxPcieLinkGenerationFunc(device, maxLinkGen);
}

static nvmlReturn_t nvmlDeviceGetMemoryInfo(nvmlDevice_t device, nvmlMemory_t *memory) {
    return (nvmlDeviceGetMemoryInfoFunc == NULL) ? NVML_ERROR_FUNCTION_NOT_FOUND :
        nvmlDeviceGetMemoryInfoFunc(device, memory);
}

static nvmlReturn_t nvmlDeviceGetPowerManagementLimit(nvmlDevice_t device, unsigned int *limit) {
    return (nvmlDeviceGetPowerManagementLimitFunc == NULL) ? NVML_ERROR_FUNCTION_NOT_FOUND :
        nvmlDeviceGetPowerManagementLimitFunc(device, limit);
}

static nvmlReturn_t nvmlDeviceGetClockInfo(nvmlDevice_t device, nvmlClockType_t type, unsigned int *clock) {
    return (nvmlDeviceGetClockInfoFunc == NULL) ? NVML_ERROR_FUNCTION_NOT_FOUND :
        nvmlDeviceGetClockInfoFunc(device, type, clock);
}

static nvmlReturn_t nvmlDeviceGetMaxClockInfo(nvmlDevice_t device, nvmlClockType_t type, unsigned int *clock) {
    return (nvmlDeviceGetMaxClockInfoFunc == NULL) ? NVML_ERROR_FUNCTION_NOT_FOUND :
        nvmlDeviceGetMaxClockInfoFunc(device, type, clock);
}

static nvmlReturn_t nvmlDeviceGetTemperature(nvmlDevice_t device, nvmlTemperatureSensors_t sensorType, unsigned int *temp) {
    return (nvmlDeviceGetTemperatureFunc == NULL) ? NVML_ERROR_FUNCTION_NOT_FOUND :
        nvmlDeviceGetTemperatureFunc(device, sensorType, temp);
}

static nvmlReturn_t nvmlDeviceGetFanSpeed(nvmlDevice_t device, unsigned int *speed) {
    return (nvmlDeviceGetFanSpeedFunc == NULL) ? NVML_ERROR_FUNCTION_NOT_FOUND : nvmlDeviceGetFanSpeedFunc(device, speed);
}

static nvmlReturn_t nvmlDeviceGetPowerUsage(nvmlDevice_t device, unsigned int *power) {
    return (nvmlDeviceGetPowerUsageFunc == NULL) ? NVML_ERROR_FUNCTION_NOT_FOUND :
        nvmlDeviceGetPowerUsageFunc(device, power);
}

static nvmlReturn_t nvmlDeviceGetPcieThroughput(nvmlDevice_t device, nvmlPcieUtilCounter_t counter, unsigned int *value) {
    return (nvmlDeviceGetPcieThroughputFunc == NULL) ? NVML_ERROR_FUNCTION_NOT_FOUND :
        nvmlDeviceGetPcieThroughputFunc(device, counter, value);
}

static nvmlReturn_t nvmlDeviceGetUtilizationRates(nvmlDevice_t device, nvmlUtilization_t *utilization) {
    return (nvmlDeviceGetUtilizationRatesFunc == NULL) ? NVML_ERROR_FUNCTION_NOT_FOUND :
        nvmlDeviceGetUtilizationRatesFunc(device, utilization);
}

static nvmlReturn_t nvmlDeviceGetComputeRunningProcesses(nvmlDevice_t device, unsigned int *infoCount, nvmlProcessInfo_t *infos) {
    return (nvmlDeviceGetComputeRunningProcessesFunc == NULL) ? NVML_ERROR_FUNCTION_NOT_FOUND :
        nvmlDeviceGetComputeRunningProcessesFunc(device, infoCount, infos);
}

static nvmlReturn_t nvmlDeviceGetGraphicsRunningProcesses(nvmlDevice_t device, unsigned int *infoCount, nvmlProcessInfo_t *infos) {
    return (nvmlDeviceGetGraphicsRunningProcessesFunc == NULL) ? NVML_ERROR_FUNCTION_NOT_FOUND :
        nvmlDeviceGetGraphicsRunningProcessesFunc(device, infoCount, infos);
}

static void loadSymbol(const char *symbolName, void **symbolPtr) {
    *symbolPtr = dlsym(nvmlHandle, symbolName);
}

static const char *dlErrorMessage(void) {
    return dlErrorBuf;
}

static nvmlReturn_t loadDlFunction(const char *path) {
    nvmlHandle = dlopen(path, RTLD_LAZY);
    if (nvmlHandle == NULL) {
        const char *msg = dlerror();
        snprintf(dlErrorBuf, sizeof(dlErrorBuf), "%s", msg == NULL ? "unknown dlopen error" : msg);
        return NVML_ERROR_LIBRARY_NOT_FOUND;
    }

    loadSymbol("nvmlInit_v2", (void**)(&nvmlInitFunc));
    loadSymbol("nvmlShutdown", (void**)(&nvmlShutdownFunc));
    loadSymbol("nvmlSystemGetDriverVersion", (void**)(&nvmlSystemGetDriverVersionFunc));
    loadSymbol("nvmlSystemGetProcessName", (void**)(&nvmlSystemGetProcessNameFunc));
    loadSymbol("nvmlDeviceGetCount_v2", (void**)(&nvmlDeviceGetCountFunc));
    loadSymbol("nvmlDeviceGetHandleByIndex_v2", (void**)(&nvmlDeviceGetHandleByIndexFunc));
    loadSymbol("nvmlDeviceGetIndex", (void**)(&nvmlDeviceGetIndexFunc));
    loadSymbol("nvmlDeviceGetName", (void**)(&nvmlDeviceGetNameFunc));
    loadSymbol("nvmlDeviceGetUUID", (void**)(&nvmlDeviceGetUUIDFunc));
    loadSymbol("nvmlDeviceGetMinorNumber", (void**)(&nvmlDeviceGetMinorNumberFunc));
    loadSymbol("nvmlDeviceGetPciInfo_v3", (void**)(&nvmlDeviceGetPciInfoFunc));
    loadSymbol("nvmlDeviceGetMaxPcieLinkGeneration", (void**)(&nvmlDeviceGetMaxPcieLinkGenerationFunc));
    loadSymbol("nvmlDeviceGetMemoryInfo", (void**)(&nvmlDeviceGetMemoryInfoFunc));
    loadSymbol("nvmlDeviceGetPowerManagementLimit", (void**)(&nvmlDeviceGetPowerManagementLimitFunc));
    loadSymbol("nvmlDeviceGetClockInfo", (void**)(&nvmlDeviceGetClockInfoFunc));
    loadSymbol("nvmlDeviceGetMaxClockInfo", (void**)(&nvmlDeviceGetMaxClockInfoFunc));
    loadSymbol("nvmlDeviceGetTemperature", (void**)(&nvmlDeviceGetTemperatureFunc));
    loadSymbol("nvmlDeviceGetFanSpeed", (void**)(&nvmlDeviceGetFanSpeedFunc));
    loadSymbol("nvmlDeviceGetPowerUsage", (void**)(&nvmlDeviceGetPowerUsageFunc));
    loadSymbol("nvmlDeviceGetPcieThroughput", (void**)(&nvmlDeviceGetPcieThroughputFunc));
    loadSymbol("nvmlDeviceGetUtilizationRates", (void**)(&nvmlDeviceGetUtilizationRatesFunc));
    loadSymbol("nvmlDeviceGetComputeRunningProcesses_v2", (void**)(&nvmlDeviceGetComputeRunningProcessesFunc));
    loadSymbol("nvmlDeviceGetGraphicsRunningProcesses_v2", (void**)(&nvmlDeviceGetGraphicsRunningProcessesFunc));
    return NVML_SUCCESS;
}

static nvmlReturn_t unloadDlFunction(void) {
    if (nvmlHandle == NULL) {
        return NVML_SUCCESS;
    }
    if (dlclose(nvmlHandle) != 0) {
        return NVML_ERROR_UNKNOWN;
    }
    nvmlHandle = NULL;
    nvmlInitFunc = NULL;
    nvmlShutdownFunc = NULL;
    nvmlSystemGetDriverVersionFunc = NULL;
    nvmlSystemGetProcessNameFunc = NULL;
    nvmlDeviceGetCountFunc = NULL;
    nvmlDeviceGetHandleByIndexFunc = NULL;
    nvmlDeviceGetIndexFunc = NULL;
    nvmlDeviceGetNameFunc = NULL;
    nvmlDeviceGetUUIDFunc = NULL;
    nvmlDeviceGetMinorNumberFunc = NULL;
    nvmlDeviceGetPciInfoFunc = NULL;
    nvmlDeviceGetMaxPcieLinkGenerationFunc = NULL;
    nvmlDeviceGetMemoryInfoFunc = NULL;
    nvmlDeviceGetPowerManagementLimitFunc = NULL;
    nvmlDeviceGetClockInfoFunc = NULL;
    nvmlDeviceGetMaxClockInfoFunc = NULL;
    nvmlDeviceGetTemperatureFunc = NULL;
    nvmlDeviceGetFanSpeedFunc = NULL;
    nvmlDeviceGetPowerUsageFunc = NULL;
    nvmlDeviceGetPcieThroughputFunc = NULL;
    nvmlDeviceGetUtilizationRatesFunc = NULL;
    nvmlDeviceGetComputeRunningProcessesFunc = NULL;
    nvmlDeviceGetGraphicsRunningProcessesFunc = NULL;
    return NVML_SUCCESS;
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// dlLibrary is the nativeAPI backed by the dlopen-ed libnvidia-ml.
type dlLibrary struct{}

var _ nativeAPI = dlLibrary{}

func checkLayout() error {
	if unsafe.Sizeof(Memory{}) != uintptr(C.sizeof_nvmlMemory_t) ||
		unsafe.Sizeof(Utilization{}) != uintptr(C.sizeof_nvmlUtilization_t) ||
		unsafe.Sizeof(ProcessInfo{}) != uintptr(C.sizeof_nvmlProcessInfo_t) ||
		unsafe.Sizeof(nvmlPciInfo{}) != uintptr(C.sizeof_nvmlPciInfo_t) ||
		unsafe.Offsetof(nvmlPciInfo{}.BusId) != uintptr(C.offsetof_nvmlPciInfo_busId) {
		return fmt.Errorf("go structures do not match the nvml record layout")
	}
	return nil
}

func openNativeLibrary(path string) (nativeAPI, error) {
	if err := checkLayout(); err != nil {
		return nil, err
	}
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	if ret := NvmlRetType(C.loadDlFunction(cPath)); ret != Success {
		return nil, fmt.Errorf("dlopen %s: %s: %w", path, C.GoString(C.dlErrorMessage()), ErrLibraryNotFound)
	}
	return dlLibrary{}, nil
}

func closeNativeLibrary() error {
	return errorFromReturn(NvmlRetType(C.unloadDlFunction()))
}

func charPtr(buf []byte) (*C.char, C.uint) {
	return (*C.char)(unsafe.Pointer(&buf[0])), C.uint(len(buf))
}

func processInfoPtr(infos []ProcessInfo) *C.nvmlProcessInfo_t {
	if len(infos) == 0 {
		return nil
	}
	return (*C.nvmlProcessInfo_t)(unsafe.Pointer(&infos[0]))
}

func (dlLibrary) Init() NvmlRetType {
	return NvmlRetType(C.nvmlInit())
}

func (dlLibrary) Shutdown() NvmlRetType {
	return NvmlRetType(C.nvmlShutdown())
}

func (dlLibrary) SystemGetDriverVersion(version []byte) NvmlRetType {
	if len(version) == 0 {
		return ErrorInvalidArgument
	}
	cVersion, cLength := charPtr(version)
	return NvmlRetType(C.nvmlSystemGetDriverVersion(cVersion, cLength))
}

func (dlLibrary) SystemGetProcessName(pid uint32, name []byte) NvmlRetType {
	if len(name) == 0 {
		return ErrorInvalidArgument
	}
	cName, cLength := charPtr(name)
	return NvmlRetType(C.nvmlSystemGetProcessName(C.uint(pid), cName, cLength))
}

func (dlLibrary) DeviceGetCount(count *uint32) NvmlRetType {
	return NvmlRetType(C.nvmlDeviceGetCount((*C.uint)(unsafe.Pointer(count))))
}

func (dlLibrary) DeviceGetHandleByIndex(index uint32, device *nvmlDevice) NvmlRetType {
	var handle C.nvmlDevice_t
	ret := NvmlRetType(C.nvmlDeviceGetHandleByIndex(C.uint(index), &handle))
	*device = nvmlDevice(handle)
	return ret
}

func (dlLibrary) DeviceGetIndex(device nvmlDevice, index *uint32) NvmlRetType {
	return NvmlRetType(C.nvmlDeviceGetIndex(C.nvmlDevice_t(device), (*C.uint)(unsafe.Pointer(index))))
}

func (dlLibrary) DeviceGetName(device nvmlDevice, name []byte) NvmlRetType {
	if len(name) == 0 {
		return ErrorInvalidArgument
	}
	cName, cLength := charPtr(name)
	return NvmlRetType(C.nvmlDeviceGetName(C.nvmlDevice_t(device), cName, cLength))
}

func (dlLibrary) DeviceGetUUID(device nvmlDevice, uuid []byte) NvmlRetType {
	if len(uuid) == 0 {
		return ErrorInvalidArgument
	}
	cUUID, cLength := charPtr(uuid)
	return NvmlRetType(C.nvmlDeviceGetUUID(C.nvmlDevice_t(device), cUUID, cLength))
}

func (dlLibrary) DeviceGetMinorNumber(device nvmlDevice, minor *uint32) NvmlRetType {
	return NvmlRetType(C.nvmlDeviceGetMinorNumber(C.nvmlDevice_t(device), (*C.uint)(unsafe.Pointer(minor))))
}

func (dlLibrary) DeviceGetPciInfo(device nvmlDevice, pci *nvmlPciInfo) NvmlRetType {
	return NvmlRetType(C.nvmlDeviceGetPciInfo(C.nvmlDevice_t(device), (*C.nvmlPciInfo_t)(unsafe.Pointer(pci))))
}

func (dlLibrary) DeviceGetMaxPcieLinkGeneration(device nvmlDevice, maxLinkGen *uint32) NvmlRetType {
	return NvmlRetType(C.nvmlDeviceGetMaxPcieLinkGeneration(C.nvmlDevice_t(device),
		(*C.uint)(unsafe.Pointer(maxLinkGen))))
}

func (dlLibrary) DeviceGetMemoryInfo(device nvmlDevice, memory *Memory) NvmlRetType {
	return NvmlRetType(C.nvmlDeviceGetMemoryInfo(C.nvmlDevice_t(device), (*C.nvmlMemory_t)(unsafe.Pointer(memory))))
}

func (dlLibrary) DeviceGetPowerManagementLimit(device nvmlDevice, limit *uint32) NvmlRetType {
	return NvmlRetType(C.nvmlDeviceGetPowerManagementLimit(C.nvmlDevice_t(device), (*C.uint)(unsafe.Pointer(limit))))
}

func (dlLibrary) DeviceGetClockInfo(device nvmlDevice, clockType ClockType, clockMHz *uint32) NvmlRetType {
	return NvmlRetType(C.nvmlDeviceGetClockInfo(C.nvmlDevice_t(device), C.nvmlClockType_t(clockType),
		(*C.uint)(unsafe.Pointer(clockMHz))))
}

func (dlLibrary) DeviceGetMaxClockInfo(device nvmlDevice, clockType ClockType, clockMHz *uint32) NvmlRetType {
	return NvmlRetType(C.nvmlDeviceGetMaxClockInfo(C.nvmlDevice_t(device), C.nvmlClockType_t(clockType),
		(*C.uint)(unsafe.Pointer(clockMHz))))
}

func (dlLibrary) DeviceGetTemperature(device nvmlDevice, sensor TemperatureSensors, temp *uint32) NvmlRetType {
	return NvmlRetType(C.nvmlDeviceGetTemperature(C.nvmlDevice_t(device), C.nvmlTemperatureSensors_t(sensor),
		(*C.uint)(unsafe.Pointer(temp))))
}

func (dlLibrary) DeviceGetFanSpeed(device nvmlDevice, speed *uint32) NvmlRetType {
	return NvmlRetType(C.nvmlDeviceGetFanSpeed(C.nvmlDevice_t(device), (*C.uint)(unsafe.Pointer(speed))))
}

func (dlLibrary) DeviceGetPowerUsage(device nvmlDevice, power *uint32) NvmlRetType {
	return NvmlRetType(C.nvmlDeviceGetPowerUsage(C.nvmlDevice_t(device), (*C.uint)(unsafe.Pointer(power))))
}

func (dlLibrary) DeviceGetPcieThroughput(device nvmlDevice, counter PcieUtilCounter, value *uint32) NvmlRetType {
	return NvmlRetType(C.nvmlDeviceGetPcieThroughput(C.nvmlDevice_t(device), C.nvmlPcieUtilCounter_t(counter),
		(*C.uint)(unsafe.Pointer(value))))
}

func (dlLibrary) DeviceGetUtilizationRates(device nvmlDevice, utilization *Utilization) NvmlRetType {
	return NvmlRetType(C.nvmlDeviceGetUtilizationRates(C.nvmlDevice_t(device),
		(*C.nvmlUtilization_t)(unsafe.Pointer(utilization))))
}

func (dlLibrary) DeviceGetComputeRunningProcesses(device nvmlDevice, infoCount *uint32, infos []ProcessInfo) NvmlRetType {
	if int(*infoCount) > len(infos) {
		return ErrorInvalidArgument
	}
	return NvmlRetType(C.nvmlDeviceGetComputeRunningProcesses(C.nvmlDevice_t(device),
		(*C.uint)(unsafe.Pointer(infoCount)), processInfoPtr(infos)))
}

func (dlLibrary) DeviceGetGraphicsRunningProcesses(device nvmlDevice, infoCount *uint32, infos []ProcessInfo) NvmlRetType {
	if int(*infoCount) > len(infos) {
		return ErrorInvalidArgument
	}
	return NvmlRetType(C.nvmlDeviceGetGraphicsRunningProcesses(C.nvmlDevice_t(device),
		(*C.uint)(unsafe.Pointer(infoCount)), processInfoPtr(infos)))
}
