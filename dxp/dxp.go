// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dxp decodes mapping-mode buffers of XIA DXP digital pulse
// processors.
//
// A buffer holds one region per detector module.
// Each region starts with a buffer header followed by one pixel record
// per scan point; each pixel record holds the statistics and the
// spectrum (MCA mode) or the windowed counters (SCA mode) of the
// 4 channels of the module.
package dxp // import "github.com/go-lpc/cxas/dxp"

import (
	"fmt"

	"github.com/go-lpc/cxas"
	"github.com/go-lpc/cxas/internal/words"
	"golang.org/x/xerrors"
)

const (
	ChansPerModule = 4       // number of channels per module
	MaxMCAChannels = 2048    // maximum spectrum length in MCA mode
	MaxSCAWindows  = 8       // maximum number of windows in SCA mode
	ClockPeriod    = 320e-9  // period of the statistics clock (s)
	maxRecordWords = 1 << 28 // upper bound on output storage
	maxInt         = int(^uint(0) >> 1)
)

const (
	bufMarker0 = 0x55aa // buffer header marker
	bufMarker1 = 0xaa55 // buffer header marker (2nd word)
	pixMarker0 = 0x33cc // pixel header marker
	pixMarker1 = 0xcc33 // pixel header marker (2nd word)

	firstPixel = 256 // offset of the first pixel header

	mcaHeaderLen = 256
	scaHeaderLen = 64

	statsOffset = 32 // offset of the channel statistics in a pixel record
	statsLen    = 8  // words of statistics per channel
)

// buffer header fields
const (
	hdrBufHeadLen = 2
	hdrNumPixels  = 8
	hdrStartLo    = 9
	hdrStartHi    = 10
)

// pixel header fields, relative to the pixel record
const (
	pixHeadLen = 2
	pixChanLen = 8
)

// Mode is the readout mode of a mapping buffer.
type Mode uint8

const (
	MCA Mode = iota + 1 // full spectrum per channel
	SCA                 // windowed counters per channel
)

func (m Mode) String() string {
	switch m {
	case MCA:
		return "MCA"
	case SCA:
		return "SCA"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// Layout describes the structure of a mapping buffer, as advertised by
// its headers.
type Layout struct {
	Mode       Mode
	BufHeadLen int    // length of the buffer header, in words
	PixHeadLen int    // length of the pixel header, in words
	NumChanLen int    // spectrum length (MCA) or number of windows (SCA)
	Pixels     int    // number of pixels per module region
	StartPixel uint32 // index of the first pixel of the buffer
	Modules    int    // number of module regions held by the buffer
}

// Width returns the number of words holding one spectrum sample.
func (lay Layout) Width() int {
	if lay.Mode == SCA {
		return 2
	}
	return 1
}

// PixelLen returns the length in words of one pixel record.
func (lay Layout) PixelLen() int {
	return lay.PixHeadLen + lay.Width()*ChansPerModule*lay.NumChanLen
}

// ModuleLen returns the length in words of one module region.
func (lay Layout) ModuleLen() int {
	return lay.PixelLen()*lay.Pixels + lay.BufHeadLen
}

// ModuleOffset returns the offset of the region of module m.
func (lay Layout) ModuleOffset(m int) int {
	return lay.ModuleLen() * m
}

// PixelOffset returns the offset of pixel p relative to its module region.
func (lay Layout) PixelOffset(p int) int {
	return lay.PixelLen()*p + lay.BufHeadLen
}

// StatsOffset returns the offset of the statistics of channel c
// relative to its pixel record.
func (lay Layout) StatsOffset(c int) int {
	return statsOffset + c*statsLen
}

// DataOffset returns the offset of sample i of channel c relative to its
// pixel record.
func (lay Layout) DataOffset(c, i int) int {
	switch lay.Mode {
	case SCA:
		return scaHeaderLen + 2*c*lay.NumChanLen + 2*i
	default:
		return mcaHeaderLen + c*lay.NumChanLen + i
	}
}

// Records returns the number of (module, pixel, channel) records.
func (lay Layout) Records() int {
	return lay.Modules * ChansPerModule * lay.Pixels
}

// Index returns the record index of channel c of module m for pixel p.
func (lay Layout) Index(m, p, c int) int {
	return lay.Modules*ChansPerModule*p + m*ChansPerModule + c
}

// ProbeModuleCount returns the number of module regions held by buf.
func ProbeModuleCount[W words.Word](buf []W) (int, error) {
	lay, err := Probe(buf)
	if err != nil {
		return 0, err
	}
	return lay.Modules, nil
}

// Probe validates the headers of buf and returns its layout.
func Probe[W words.Word](buf []W) (Layout, error) {
	raw, err := words.Of(buf)
	if err != nil {
		return Layout{}, xerrors.Errorf("dxp: could not read buffer: %w", err)
	}
	return probe(raw)
}

func probe(buf []uint32) (Layout, error) {
	var lay Layout
	if len(buf) < 2 {
		return lay, xerrors.Errorf("dxp: buffer too short (len=%d): %w", len(buf), cxas.Truncated)
	}
	if buf[0] != bufMarker0 || buf[1] != bufMarker1 {
		return lay, xerrors.Errorf(
			"dxp: invalid buffer header marker (got=0x%x,0x%x): %w",
			buf[0], buf[1], cxas.CorruptHeader,
		)
	}
	if len(buf) < firstPixel+2 {
		return lay, xerrors.Errorf("dxp: buffer too short (len=%d): %w", len(buf), cxas.Truncated)
	}
	if buf[firstPixel] != pixMarker0 || buf[firstPixel+1] != pixMarker1 {
		return lay, xerrors.Errorf(
			"dxp: invalid pixel header marker (got=0x%x,0x%x): %w",
			buf[firstPixel], buf[firstPixel+1], cxas.CorruptHeader,
		)
	}

	lay.BufHeadLen = int(buf[hdrBufHeadLen])
	if lay.BufHeadLen+pixChanLen >= len(buf) {
		return lay, xerrors.Errorf(
			"dxp: buffer header length %d beyond buffer (len=%d): %w",
			lay.BufHeadLen, len(buf), cxas.Truncated,
		)
	}
	lay.Pixels = int(buf[hdrNumPixels])
	lay.StartPixel = buf[hdrStartHi]<<16 | buf[hdrStartLo]
	lay.PixHeadLen = int(buf[lay.BufHeadLen+pixHeadLen])
	lay.NumChanLen = int(buf[lay.BufHeadLen+pixChanLen])

	switch lay.PixHeadLen {
	case mcaHeaderLen:
		lay.Mode = MCA
	case scaHeaderLen:
		lay.Mode = SCA
	default:
		return lay, xerrors.Errorf(
			"dxp: invalid pixel header length %d: %w",
			lay.PixHeadLen, cxas.InvalidHeaderLength,
		)
	}

	switch {
	case lay.Pixels > 0 && lay.PixelLen() > (maxInt-lay.BufHeadLen)/lay.Pixels:
		// module region larger than any addressable buffer.
		lay.Modules = 0
	case lay.ModuleLen() == 0:
		return lay, xerrors.Errorf("dxp: empty module region: %w", cxas.StructuralMismatch)
	default:
		lay.Modules = len(buf) / lay.ModuleLen()
	}
	return lay, nil
}
