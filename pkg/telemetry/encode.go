/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

package telemetry

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Formats accepted by Encode
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCBOR = "cbor"
)

// cborMode uses core deterministic encoding: the same snapshot always gives the same bytes.
var cborMode cbor.EncMode

func init() {
	var err error
	cborMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("telemetry: CBOR encoder initialization failed: " + err.Error())
	}
}

// Encode writes snap to w in format.
func Encode(w io.Writer, snap *Snapshot, format string) error {
	switch format {
	case FormatText, "":
		_, err := io.WriteString(w, RenderText(snap))
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case FormatCBOR:
		return cborMode.NewEncoder(w).Encode(snap)
	default:
		return fmt.Errorf("unknown output format [%s]", format)
	}
}

// MarshalCBOR encodes snap with the deterministic CBOR mode.
func MarshalCBOR(snap *Snapshot) ([]byte, error) {
	return cborMode.Marshal(snap)
}

// UnmarshalCBOR decodes data produced by MarshalCBOR.
func UnmarshalCBOR(data []byte) (*Snapshot, error) {
	snap := &Snapshot{}
	if err := cbor.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
