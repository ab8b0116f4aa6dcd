// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xcnv provides tools to convert decoded DXP and FPGA data to/from
// LCIO and to hbook histograms.
package xcnv // import "github.com/go-lpc/cxas/internal/xcnv"

import (
	"unsafe"
)

func i32sFrom(vs []uint32) []int32 {
	if len(vs) == 0 {
		return nil
	}
	ptr := (*int32)(unsafe.Pointer(&vs[0]))
	return unsafe.Slice(ptr, len(vs))
}

func u32sFrom(vs []int32) []uint32 {
	if len(vs) == 0 {
		return nil
	}
	ptr := (*uint32)(unsafe.Pointer(&vs[0]))
	return append([]uint32(nil), unsafe.Slice(ptr, len(vs))...)
}

// Known returns whether detector names a detector written by this package.
func Known(detector string) bool {
	switch detector {
	case dxpDetector, fpgaDetector:
		return true
	}
	return false
}
