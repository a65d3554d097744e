//go:build !(linux && cgo)

/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

package gonvml

import "fmt"

func openNativeLibrary(path string) (nativeAPI, error) {
	return nil, fmt.Errorf("%s: nvml requires linux with cgo enabled: %w", path, ErrLibraryNotFound)
}

func closeNativeLibrary() error {
	return nil
}
