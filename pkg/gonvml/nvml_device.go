/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

package gonvml

// Device identifies one GPU within a Session. The zero value means "no device".
// A Device is obtained only from Session.DeviceGetHandleByIndex and is valid until the
// session shuts down; using it afterwards is reported by the library, not detected here.
type Device struct {
	handle nvmlDevice
}

func (d Device) isEmpty() bool {
	return d.handle == nil
}
