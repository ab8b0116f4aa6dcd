// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dxp

import (
	"github.com/go-lpc/cxas"
	"github.com/go-lpc/cxas/internal/words"
	"golang.org/x/xerrors"
)

// Output holds the decoded records of a mapping buffer.
//
// All slices are indexed by record index (see Layout.Index) and are
// provided by the caller, possibly through NewOutput.
// The spectrum of record i starts at Spectrum[i*Stride].
type Output struct {
	Layout Layout // layout of the last decoded buffer

	Element     []uint32  // element (module*4+channel) of each record
	Pixel       []uint32  // pixel of each record
	LiveTime    []float64 // live time (s)
	RealTime    []float64 // real time (s)
	ICR         []float64 // input count rate (Hz)
	OCR         []float64 // output count rate (Hz)
	SpectrumLen []int32   // number of valid spectrum samples
	Spectrum    []uint32  // spectrum (MCA) or windowed counters (SCA)

	Stride int // spectrum samples per record. 0 means NumChanLen.
}

// NewOutput allocates an output large enough for buffers of layout lay.
func NewOutput(lay Layout) (*Output, error) {
	n := lay.Records()
	if n < 0 || n > maxRecordWords || (lay.NumChanLen > 0 && n > maxRecordWords/lay.NumChanLen) {
		return nil, xerrors.Errorf(
			"dxp: output too large (records=%d, channels=%d): %w",
			n, lay.NumChanLen, cxas.AllocationFailed,
		)
	}
	return &Output{
		Layout:      lay,
		Element:     make([]uint32, n),
		Pixel:       make([]uint32, n),
		LiveTime:    make([]float64, n),
		RealTime:    make([]float64, n),
		ICR:         make([]float64, n),
		OCR:         make([]float64, n),
		SpectrumLen: make([]int32, n),
		Spectrum:    make([]uint32, n*lay.NumChanLen),
		Stride:      lay.NumChanLen,
	}, nil
}

// Len returns the number of records of the last decoded buffer.
func (out *Output) Len() int {
	return out.Layout.Records()
}

// Record is a value view of one decoded record.
type Record struct {
	Element  uint32
	Pixel    uint32
	LiveTime float64
	RealTime float64
	ICR      float64
	OCR      float64
	Spectrum []uint32
}

// Record returns the i-th record of the last decoded buffer.
// The returned spectrum shares the output storage.
func (out *Output) Record(i int) Record {
	var (
		stride = out.stride(out.Layout)
		beg    = i * stride
		end    = beg + int(out.SpectrumLen[i])
	)
	return Record{
		Element:  out.Element[i],
		Pixel:    out.Pixel[i],
		LiveTime: out.LiveTime[i],
		RealTime: out.RealTime[i],
		ICR:      out.ICR[i],
		OCR:      out.OCR[i],
		Spectrum: out.Spectrum[beg:end:end],
	}
}

func (out *Output) stride(lay Layout) int {
	if out.Stride > 0 {
		return out.Stride
	}
	return lay.NumChanLen
}

func (out *Output) check(lay Layout) error {
	var (
		n      = lay.Records()
		stride = out.stride(lay)
	)
	if stride < lay.NumChanLen {
		return xerrors.Errorf(
			"dxp: spectrum stride %d smaller than channel length %d: %w",
			stride, lay.NumChanLen, cxas.ShortBuffer,
		)
	}
	for _, v := range []struct {
		name string
		n    int
	}{
		{"element", len(out.Element)},
		{"pixel", len(out.Pixel)},
		{"live-time", len(out.LiveTime)},
		{"real-time", len(out.RealTime)},
		{"icr", len(out.ICR)},
		{"ocr", len(out.OCR)},
		{"spectrum-len", len(out.SpectrumLen)},
	} {
		if v.n < n {
			return xerrors.Errorf(
				"dxp: %s output too short (got=%d, want=%d): %w",
				v.name, v.n, n, cxas.ShortBuffer,
			)
		}
	}
	if n > 0 {
		want := (n-1)*stride + lay.NumChanLen
		if len(out.Spectrum) < want {
			return xerrors.Errorf(
				"dxp: spectrum output too short (got=%d, want=%d): %w",
				len(out.Spectrum), want, cxas.ShortBuffer,
			)
		}
	}
	return nil
}

// Decode decodes the mapping buffer buf into out.
//
// Decode validates the whole buffer before writing any record: when an
// error is returned, out is left untouched.
func Decode[W words.Word](out *Output, buf []W) error {
	raw, err := words.Of(buf)
	if err != nil {
		return xerrors.Errorf("dxp: could not read buffer: %w", err)
	}

	lay, err := probe(raw)
	if err != nil {
		return err
	}
	if lay.Modules == 0 {
		return xerrors.Errorf(
			"dxp: buffer (len=%d) smaller than one module region (len=%d): %w",
			len(raw), lay.ModuleLen(), cxas.Truncated,
		)
	}

	err = out.check(lay)
	if err != nil {
		return err
	}

	err = validate(raw, lay)
	if err != nil {
		return err
	}

	decode(out, raw, lay)
	out.Layout = lay
	return nil
}

// validate checks the markers of every module region and pixel record.
func validate(buf []uint32, lay Layout) error {
	for m := 0; m < lay.Modules; m++ {
		beg := lay.ModuleOffset(m)
		if v := buf[beg]; v != bufMarker0 {
			return xerrors.Errorf(
				"dxp: module %d: invalid buffer header marker at %d (got=0x%x): %w",
				m, beg, v, cxas.StructuralMismatch,
			)
		}
		for p := 0; p < lay.Pixels; p++ {
			pix := beg + lay.PixelOffset(p)
			if v := buf[pix]; v != pixMarker0 {
				return xerrors.Errorf(
					"dxp: module %d, pixel %d: invalid pixel header marker at %d (got=0x%x): %w",
					m, p, pix, v, cxas.StructuralMismatch,
				)
			}
		}
	}
	return nil
}

func decode(out *Output, buf []uint32, lay Layout) {
	stride := out.stride(lay)
	for m := 0; m < lay.Modules; m++ {
		beg := lay.ModuleOffset(m)
		for p := 0; p < lay.Pixels; p++ {
			pix := buf[beg+lay.PixelOffset(p):]
			for c := 0; c < ChansPerModule; c++ {
				var (
					i     = lay.Index(m, p, c)
					stats = pix[lay.StatsOffset(c):]
					rtime = float64(u32(stats[0:])) * ClockPeriod
					ltime = float64(u32(stats[2:])) * ClockPeriod
					trigs = float64(u32(stats[4:]))
					evts  = float64(u32(stats[6:]))
				)
				out.Element[i] = uint32(m*ChansPerModule + c)
				out.Pixel[i] = lay.StartPixel + uint32(p)
				out.RealTime[i] = rtime
				out.LiveTime[i] = ltime
				out.ICR[i] = trigs / ltime
				out.OCR[i] = evts / ltime
				out.SpectrumLen[i] = int32(lay.NumChanLen)

				spec := out.Spectrum[i*stride : i*stride+lay.NumChanLen]
				switch lay.Mode {
				case MCA:
					off := lay.DataOffset(c, 0)
					copy(spec, pix[off:off+lay.NumChanLen])
				case SCA:
					for j := range spec {
						spec[j] = u32(pix[lay.DataOffset(c, j):])
					}
				}
			}
		}
	}
}

// u32 reassembles a 32-bit value split in two 16-bit words, low word first.
func u32(p []uint32) uint32 {
	return p[1]<<16 | p[0]
}
