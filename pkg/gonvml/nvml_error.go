/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

package gonvml

import (
	"errors"
	"fmt"
)

var retMessages = map[NvmlRetType]string{
	Success:                      "operation was successful",
	ErrorUninitialized:           "NVML was not first initialized with nvmlInit()",
	ErrorInvalidArgument:         "a supplied argument is invalid",
	ErrorNotSupported:            "the requested operation is not available on the target device",
	ErrorNoPermission:            "the current user does not have permission for operation",
	ErrorAlreadyInitialized:      "NVML is already initialized",
	ErrorNotFound:                "a query to find an object was unsuccessful",
	ErrorInsufficientSize:        "an input argument is not large enough",
	ErrorInsufficientPower:       "a device's external power cables are not properly attached",
	ErrorDriverNotLoaded:         "NVIDIA driver is not loaded",
	ErrorTimeout:                 "user provided timeout passed",
	ErrorIrqIssue:                "NVIDIA kernel detected an interrupt issue with a GPU",
	ErrorLibraryNotFound:         "NVML shared library couldn't be found or loaded",
	ErrorFunctionNotFound:        "local version of NVML doesn't implement this function",
	ErrorCorruptedInforom:        "infoROM is corrupted",
	ErrorGpuIsLost:               "the GPU has fallen off the bus or has otherwise become inaccessible",
	ErrorResetRequired:           "the GPU requires a reset before it can be used again",
	ErrorOperatingSystem:         "the GPU control device has been blocked by the operating system/cgroups",
	ErrorLibRmVersionMismatch:    "RM detects a driver/library version mismatch",
	ErrorInUse:                   "an operation cannot be performed because the GPU is currently in use",
	ErrorMemory:                  "insufficient memory",
	ErrorNoData:                  "no data",
	ErrorVgpuEccNotSupported:     "the requested vgpu operation is not available on target device, because ECC is enabled",
	ErrorInsufficientResources:   "ran out of critical resources, other than memory",
	ErrorFreqNotSupported:        "requested clock frequency is not supported",
	ErrorArgumentVersionMismatch: "the provided version is invalid/unsupported",
	ErrorDeprecated:              "the requested functionality has been deprecated",
	ErrorUnknown:                 "an internal driver error occurred",
}

// String returns the description of the return code.
func (r NvmlRetType) String() string {
	if msg, ok := retMessages[r]; ok {
		return msg
	}
	return fmt.Sprintf("unknown return code %d", int32(r))
}

func (r NvmlRetType) documented() bool {
	_, ok := retMessages[r]
	return ok
}

// Error is the error returned by a failed NVML call.
type Error struct {
	code NvmlRetType
	// raw is the value received from the library, differs from code only for undocumented values.
	raw int32
}

// Code returns the return code the error stands for.
func (e *Error) Code() NvmlRetType {
	return e.code
}

// Raw returns the integer returned by the library.
func (e *Error) Raw() int32 {
	return e.raw
}

func (e *Error) Error() string {
	if e.code == ErrorUnknown && e.raw != int32(ErrorUnknown) {
		return fmt.Sprintf("nvml: %s (return code %d)", e.code, e.raw)
	}
	return "nvml: " + e.code.String()
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.code == e.code
}

func newError(code NvmlRetType) *Error {
	return &Error{code: code, raw: int32(code)}
}

// Sentinel errors, one per documented return code. Use errors.Is to match them.
var (
	ErrUninitialized           = newError(ErrorUninitialized)
	ErrInvalidArgument         = newError(ErrorInvalidArgument)
	ErrNotSupported            = newError(ErrorNotSupported)
	ErrNoPermission            = newError(ErrorNoPermission)
	ErrAlreadyInitialized      = newError(ErrorAlreadyInitialized)
	ErrNotFound                = newError(ErrorNotFound)
	ErrInsufficientSize        = newError(ErrorInsufficientSize)
	ErrInsufficientPower       = newError(ErrorInsufficientPower)
	ErrDriverNotLoaded         = newError(ErrorDriverNotLoaded)
	ErrTimeout                 = newError(ErrorTimeout)
	ErrIrqIssue                = newError(ErrorIrqIssue)
	ErrLibraryNotFound         = newError(ErrorLibraryNotFound)
	ErrFunctionNotFound        = newError(ErrorFunctionNotFound)
	ErrCorruptedInforom        = newError(ErrorCorruptedInforom)
	ErrGpuIsLost               = newError(ErrorGpuIsLost)
	ErrResetRequired           = newError(ErrorResetRequired)
	ErrOperatingSystem         = newError(ErrorOperatingSystem)
	ErrLibRmVersionMismatch    = newError(ErrorLibRmVersionMismatch)
	ErrInUse                   = newError(ErrorInUse)
	ErrMemory                  = newError(ErrorMemory)
	ErrNoData                  = newError(ErrorNoData)
	ErrVgpuEccNotSupported     = newError(ErrorVgpuEccNotSupported)
	ErrInsufficientResources   = newError(ErrorInsufficientResources)
	ErrFreqNotSupported        = newError(ErrorFreqNotSupported)
	ErrArgumentVersionMismatch = newError(ErrorArgumentVersionMismatch)
	ErrDeprecated              = newError(ErrorDeprecated)
	ErrUnknown                 = newError(ErrorUnknown)
)

// errorFromReturn converts a native return value into an error, nil on Success.
// Values outside the documented set map to ErrorUnknown.
func errorFromReturn(ret NvmlRetType) error {
	if ret == Success {
		return nil
	}
	if !ret.documented() {
		return &Error{code: ErrorUnknown, raw: int32(ret)}
	}
	return newError(ret)
}

// CodeOf extracts the return code carried by err.
func CodeOf(err error) (NvmlRetType, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.code, true
	}
	return Success, false
}

// ErrInvalidText the buffer filled by the library does not hold valid UTF-8 text
var ErrInvalidText = errors.New("nvml: buffer does not hold valid UTF-8 text")

// DecodeError reports a name buffer that could not be decoded.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ProcessLimitError reports a process list longer than MaxProcessCount.
type ProcessLimitError struct {
	Reported uint32
}

func (e *ProcessLimitError) Error() string {
	return fmt.Sprintf("nvml: %d running processes reported, at most %d supported", e.Reported, MaxProcessCount)
}

func (e *ProcessLimitError) Unwrap() error {
	return ErrInsufficientSize
}

func codeIn(err error, codes ...NvmlRetType) bool {
	code, ok := CodeOf(err)
	if !ok {
		return false
	}
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

// IsUnsupported reports errors after which the metric should be skipped but the device is still usable.
func IsUnsupported(err error) bool {
	return codeIn(err, ErrorNotSupported, ErrorFunctionNotFound, ErrorDeprecated,
		ErrorNoPermission, ErrorNotFound, ErrorNoData)
}

// IsTransient reports errors that may succeed when the query is issued again later.
func IsTransient(err error) bool {
	return codeIn(err, ErrorTimeout, ErrorInUse, ErrorIrqIssue, ErrorInsufficientResources,
		ErrorMemory, ErrorInsufficientPower)
}

// IsSessionFatal reports errors after which no further query on the session can succeed.
func IsSessionFatal(err error) bool {
	return codeIn(err, ErrorUninitialized, ErrorDriverNotLoaded, ErrorLibraryNotFound,
		ErrorLibRmVersionMismatch, ErrorGpuIsLost, ErrorResetRequired)
}
