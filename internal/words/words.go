// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package words reinterprets raw hardware buffers as sequences of
// 32-bit unsigned words.
//
// Buffers reach the decoders typed as unsigned or signed integers, or as
// floating point values (EPICS waveforms are double arrays).
// Whatever the storage type, every element must denote a 32-bit word
// exactly: integers are reinterpreted bit for bit, floating point values
// must be integral and lie in [-2^31, 2^32).
package words // import "github.com/go-lpc/cxas/internal/words"

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/go-lpc/cxas"
)

// Word is the set of storage types a raw buffer may be held in.
type Word interface {
	~uint32 | ~int32 | ~float32 | ~float64
}

// Of returns the 32-bit words held by buf.
//
// []uint32 and []int32 storages are returned without copying, so the
// returned slice may alias buf.
func Of[W Word](buf []W) ([]uint32, error) {
	switch v := any(buf).(type) {
	case []uint32:
		return v, nil
	case []int32:
		if len(v) == 0 {
			return nil, nil
		}
		ptr := (*uint32)(unsafe.Pointer(&v[0]))
		return unsafe.Slice(ptr, len(v)), nil
	}

	out := make([]uint32, len(buf))
	for i, v := range buf {
		w, ok := From(float64(v))
		if !ok {
			return nil, fmt.Errorf(
				"words: element %d (%v) is not a 32-bit word: %w",
				i, v, cxas.InvalidWord,
			)
		}
		out[i] = w
	}
	return out, nil
}

// From converts v to a 32-bit word.
// From reports false when v is not integral or does not fit.
// Negative values are taken as two's complement 32-bit integers.
func From(v float64) (uint32, bool) {
	switch {
	case v != math.Trunc(v):
		return 0, false
	case v < math.MinInt32 || v >= 1<<32:
		return 0, false
	case v < 0:
		return uint32(int32(v)), true
	default:
		return uint32(v), true
	}
}

// FromBytes decodes little-endian 32-bit words from p.
func FromBytes(p []byte) ([]uint32, error) {
	if len(p)%4 != 0 {
		return nil, fmt.Errorf(
			"words: byte buffer length %d is not a multiple of 4: %w",
			len(p), cxas.Truncated,
		)
	}
	out := make([]uint32, len(p)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(p[4*i:])
	}
	return out, nil
}

// Unprefix strips the length prefix of an EPICS waveform.
// The first word holds the number of valid elements, itself included.
func Unprefix(buf []uint32) ([]uint32, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("words: empty prefixed buffer: %w", cxas.Truncated)
	}
	n := int64(buf[0])
	if n < 1 || n > int64(len(buf)) {
		return nil, fmt.Errorf(
			"words: invalid prefix length %d (buffer=%d): %w",
			n, len(buf), cxas.Truncated,
		)
	}
	return buf[1:n], nil
}

// Float64s converts words into the double representation used by
// EPICS waveform records.
func Float64s(ws []uint32) []float64 {
	out := make([]float64, len(ws))
	for i, w := range ws {
		out[i] = float64(w)
	}
	return out
}
