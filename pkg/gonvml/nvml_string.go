/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

package gonvml

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// clen returns the length of the NUL terminated string held in n
func clen(n []byte) int {
	for i := 0; i < len(n); i++ {
		if n[i] == 0 {
			return i
		}
	}
	return len(n)
}

// decodeCString returns the text in buf up to the first NUL, rejecting invalid UTF-8.
func decodeCString(field string, buf []byte) (string, error) {
	text, _, err := transform.Bytes(encoding.UTF8Validator, buf[:clen(buf)])
	if err != nil {
		return "", &DecodeError{Field: field, Err: ErrInvalidText}
	}
	return string(text), nil
}
