/*
 * Copyright (c) Huawei Technologies Co., Ltd. 2024-2025. All rights reserved.
 */

package telemetry

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(t *testing.T) *Snapshot {
	q := newFakeQuerier(sampleDevices()...)
	q.names[100] = "python3"
	s := NewSampler(q)
	s.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	snap, err := s.Sample()
	require.NoError(t, err)
	return snap
}

func TestEncodeJSON(t *testing.T) {
	snap := testSnapshot(t)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, snap, FormatJSON))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "550.54.15", decoded["driverVersion"])
	devices, ok := decoded["devices"].([]interface{})
	require.True(t, ok)
	require.Len(t, devices, 2)
	first := devices[0].(map[string]interface{})
	assert.Equal(t, "NVIDIA A100-SXM4-40GB", first["name"])
	assert.NotContains(t, first, "unsupported")
	second := devices[1].(map[string]interface{})
	assert.Equal(t, []interface{}{MetricFanSpeed}, second["unsupported"])
}

func TestEncodeCBOR(t *testing.T) {
	snap := testSnapshot(t)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, snap, FormatCBOR))

	data, err := MarshalCBOR(snap)
	require.NoError(t, err)
	assert.Equal(t, data, buf.Bytes())

	again, err := MarshalCBOR(testSnapshot(t))
	require.NoError(t, err)
	assert.Equal(t, data, again)

	decoded, err := UnmarshalCBOR(data)
	require.NoError(t, err)
	assert.True(t, snap.Timestamp.Equal(decoded.Timestamp))
	decoded.Timestamp = snap.Timestamp
	assert.Equal(t, snap, decoded)
}

func TestUnmarshalCBORInvalid(t *testing.T) {
	_, err := UnmarshalCBOR([]byte{0xff, 0x00})
	assert.Error(t, err)
}

func TestEncodeText(t *testing.T) {
	snap := testSnapshot(t)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, snap, FormatText))
	out := buf.String()
	assert.Contains(t, out, "driver 550.54.15")
	assert.Contains(t, out, "NVIDIA A100-SXM4-40GB")
	assert.Contains(t, out, "NVIDIA T4")
	assert.Contains(t, out, "python3")
	assert.Contains(t, out, "Fan         n/a")
	assert.Contains(t, out, "PCI bus     00000000:3B:00.0  minor 1")
	assert.Contains(t, out, "unsupported: "+MetricFanSpeed)

	buf.Reset()
	require.NoError(t, Encode(&buf, snap, ""))
	assert.Equal(t, out, buf.String())
}

func TestEncodeUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Encode(&buf, &Snapshot{}, "xml"))
	assert.Zero(t, buf.Len())
}

func TestRenderBar(t *testing.T) {
	for _, percent := range []float64{-5, 0, 37.5, 100, 250} {
		bar := renderBar(percent, "39")
		assert.Equal(t, barWidth, len([]rune(stripANSI(bar))))
	}
}

func stripANSI(s string) string {
	var out []rune
	skip := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			skip = true
		case skip && r == 'm':
			skip = false
		case !skip:
			out = append(out, r)
		}
	}
	return string(out)
}
