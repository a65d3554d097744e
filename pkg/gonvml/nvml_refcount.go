/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

package gonvml

// Refcount counts the open sessions sharing the loaded library.
type Refcount int

// IncNoError increases the count when err is nil
func (r *Refcount) IncNoError(err error) {
	if err == nil {
		(*r)++
	}
}

// DecNoError decreases the count when err is nil, never below zero
func (r *Refcount) DecNoError(err error) {
	if err == nil && (*r) > 0 {
		(*r)--
	}
}
