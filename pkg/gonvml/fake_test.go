/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

package gonvml

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

type fakeGPU struct {
	name      []byte
	uuid      string
	index     uint32
	clocks    map[ClockType]uint32
	maxClocks map[ClockType]uint32
	memory    Memory
	util      Utilization
	compute   []ProcessInfo
	graphics  []ProcessInfo
	pci       nvmlPciInfo
	minor     uint32
	minorRet  NvmlRetType
	// failWith makes every device query return this code when set
	failWith NvmlRetType
}

// fakeAPI is an in-memory nativeAPI recording what crossed the boundary.
type fakeAPI struct {
	initRet     NvmlRetType
	shutdownRet NvmlRetType
	gpus        []*fakeGPU
	procNames   map[uint32][]byte

	calls         int
	initCalls     int
	shutdownCalls int
	processCalls  []uint32
	clockArgs     []ClockType
	// reportAfterRetry overrides the count returned by the second process query
	reportAfterRetry *uint32
	// memory queries running at the same time
	inFlight   atomic.Int32
	overlapped atomic.Bool
}

var _ nativeAPI = (*fakeAPI)(nil)

func newFakeAPI(gpus ...*fakeGPU) *fakeAPI {
	for i, g := range gpus {
		g.index = uint32(i)
		g.minor = uint32(i)
	}
	return &fakeAPI{gpus: gpus, procNames: map[uint32][]byte{}}
}

func (f *fakeAPI) gpu(h nvmlDevice) *fakeGPU {
	return (*fakeGPU)(unsafe.Pointer(h))
}

func fill(dst []byte, src []byte) NvmlRetType {
	if len(src) >= len(dst) {
		return ErrorInsufficientSize
	}
	copy(dst, src)
	return Success
}

func (f *fakeAPI) Init() NvmlRetType {
	f.calls++
	f.initCalls++
	return f.initRet
}

func (f *fakeAPI) Shutdown() NvmlRetType {
	f.calls++
	f.shutdownCalls++
	return f.shutdownRet
}

func (f *fakeAPI) SystemGetDriverVersion(version []byte) NvmlRetType {
	f.calls++
	return fill(version, []byte("535.104.05"))
}

func (f *fakeAPI) SystemGetProcessName(pid uint32, name []byte) NvmlRetType {
	f.calls++
	n, ok := f.procNames[pid]
	if !ok {
		return ErrorNotFound
	}
	return fill(name, n)
}

func (f *fakeAPI) DeviceGetCount(count *uint32) NvmlRetType {
	f.calls++
	*count = uint32(len(f.gpus))
	return Success
}

func (f *fakeAPI) DeviceGetHandleByIndex(index uint32, device *nvmlDevice) NvmlRetType {
	f.calls++
	if int(index) >= len(f.gpus) {
		return ErrorInvalidArgument
	}
	*device = nvmlDevice(unsafe.Pointer(f.gpus[index]))
	return Success
}

func (f *fakeAPI) DeviceGetIndex(device nvmlDevice, index *uint32) NvmlRetType {
	f.calls++
	g := f.gpu(device)
	if g.failWith != Success {
		return g.failWith
	}
	*index = g.index
	return Success
}

func (f *fakeAPI) DeviceGetName(device nvmlDevice, name []byte) NvmlRetType {
	f.calls++
	g := f.gpu(device)
	if g.failWith != Success {
		return g.failWith
	}
	return fill(name, g.name)
}

func (f *fakeAPI) DeviceGetUUID(device nvmlDevice, uuid []byte) NvmlRetType {
	f.calls++
	return fill(uuid, []byte(f.gpu(device).uuid))
}

func (f *fakeAPI) DeviceGetMinorNumber(device nvmlDevice, minor *uint32) NvmlRetType {
	f.calls++
	g := f.gpu(device)
	if g.minorRet != Success {
		return g.minorRet
	}
	*minor = g.minor
	return Success
}

func (f *fakeAPI) DeviceGetPciInfo(device nvmlDevice, pci *nvmlPciInfo) NvmlRetType {
	f.calls++
	g := f.gpu(device)
	if g.failWith != Success {
		return g.failWith
	}
	*pci = g.pci
	return Success
}

func (f *fakeAPI) DeviceGetMaxPcieLinkGeneration(device nvmlDevice, maxLinkGen *uint32) NvmlRetType {
	f.calls++
	*maxLinkGen = 4
	return Success
}

func (f *fakeAPI) DeviceGetMemoryInfo(device nvmlDevice, memory *Memory) NvmlRetType {
	if f.inFlight.Add(1) > 1 {
		f.overlapped.Store(true)
	}
	defer f.inFlight.Add(-1)
	runtime.Gosched()
	f.calls++
	*memory = f.gpu(device).memory
	return Success
}

func (f *fakeAPI) DeviceGetPowerManagementLimit(device nvmlDevice, limit *uint32) NvmlRetType {
	f.calls++
	*limit = 70000
	return Success
}

func (f *fakeAPI) DeviceGetClockInfo(device nvmlDevice, clockType ClockType, clockMHz *uint32) NvmlRetType {
	f.calls++
	f.clockArgs = append(f.clockArgs, clockType)
	v, ok := f.gpu(device).clocks[clockType]
	if !ok {
		return ErrorInvalidArgument
	}
	*clockMHz = v
	return Success
}

func (f *fakeAPI) DeviceGetMaxClockInfo(device nvmlDevice, clockType ClockType, clockMHz *uint32) NvmlRetType {
	f.calls++
	f.clockArgs = append(f.clockArgs, clockType)
	v, ok := f.gpu(device).maxClocks[clockType]
	if !ok {
		return ErrorNotSupported
	}
	*clockMHz = v
	return Success
}

func (f *fakeAPI) DeviceGetTemperature(device nvmlDevice, sensor TemperatureSensors, temp *uint32) NvmlRetType {
	f.calls++
	if sensor != TemperatureGpu {
		return ErrorInvalidArgument
	}
	*temp = 45
	return Success
}

func (f *fakeAPI) DeviceGetFanSpeed(device nvmlDevice, speed *uint32) NvmlRetType {
	f.calls++
	return ErrorNotSupported
}

func (f *fakeAPI) DeviceGetPowerUsage(device nvmlDevice, power *uint32) NvmlRetType {
	f.calls++
	*power = 27500
	return Success
}

func (f *fakeAPI) DeviceGetPcieThroughput(device nvmlDevice, counter PcieUtilCounter, value *uint32) NvmlRetType {
	f.calls++
	*value = 1000 + uint32(counter)
	return Success
}

func (f *fakeAPI) DeviceGetUtilizationRates(device nvmlDevice, utilization *Utilization) NvmlRetType {
	f.calls++
	*utilization = f.gpu(device).util
	return Success
}

func (f *fakeAPI) processes(list []ProcessInfo, infoCount *uint32, infos []ProcessInfo) NvmlRetType {
	f.calls++
	f.processCalls = append(f.processCalls, *infoCount)
	reported := uint32(len(list))
	if len(f.processCalls) > 1 && f.reportAfterRetry != nil {
		reported = *f.reportAfterRetry
	}
	if reported > *infoCount {
		*infoCount = reported
		return ErrorInsufficientSize
	}
	copy(infos, list)
	*infoCount = reported
	return Success
}

func (f *fakeAPI) DeviceGetComputeRunningProcesses(device nvmlDevice, infoCount *uint32, infos []ProcessInfo) NvmlRetType {
	return f.processes(f.gpu(device).compute, infoCount, infos)
}

func (f *fakeAPI) DeviceGetGraphicsRunningProcesses(device nvmlDevice, infoCount *uint32, infos []ProcessInfo) NvmlRetType {
	return f.processes(f.gpu(device).graphics, infoCount, infos)
}

type nativeStats struct {
	opened int
	closed int
}

// useFake routes library loading to api for the duration of the test.
func useFake(t *testing.T, api *fakeAPI) *nativeStats {
	t.Helper()
	stats := &nativeStats{}
	oldOpen, oldClose, oldLib := openNative, closeNative, libnvml
	openNative = func(string) (nativeAPI, error) {
		stats.opened++
		return api, nil
	}
	closeNative = func() error {
		stats.closed++
		return nil
	}
	libnvml = newLibrary()
	t.Cleanup(func() {
		openNative, closeNative, libnvml = oldOpen, oldClose, oldLib
	})
	return stats
}

func openFake(t *testing.T, api *fakeAPI, opts ...Option) *Session {
	t.Helper()
	useFake(t, api)
	s, err := Open(opts...)
	require.NoError(t, err)
	return s
}

func fakePci(bus uint32) nvmlPciInfo {
	p := nvmlPciInfo{Bus: bus, PciDeviceId: 0x1eb810de, PciSubSystemId: 0x12a210de}
	copy(p.BusId[:], fmt.Sprintf("00000000:%02X:00.0", bus))
	copy(p.BusIdLegacy[:], fmt.Sprintf("0000:%02X:00.0", bus))
	return p
}

func makeProcesses(n int) []ProcessInfo {
	list := make([]ProcessInfo, n)
	for i := range list {
		list[i] = ProcessInfo{
			Pid:               uint32(1000 + i),
			UsedGpuMemory:     uint64(i+1) << 20,
			GpuInstanceId:     0xFFFFFFFF,
			ComputeInstanceId: 0xFFFFFFFF,
		}
	}
	return list
}
