/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

// Package versions record the program version
package versions

var (
	// BuildVersion record the program build version, set with -ldflags "-X"
	BuildVersion = "dev"
	// BuildName record the program build name
	BuildName = "gpu-info"
)
