// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fpga

import (
	"github.com/go-lpc/cxas"
	"github.com/go-lpc/cxas/internal/words"
	"golang.org/x/xerrors"
)

// Output holds the decoded frames of a stream.
//
// Per-channel slices hold Frames*N values, frame after frame.
// Status is optional: when nil, status words are not decoded.
type Output struct {
	Shape Shape // shape of the last decoded stream

	Time    []uint64 // 37-bit trigger time
	Gate    []uint32 // gate width
	Counter []uint32
	ADC     []uint32
	Encoder []uint32
	Motor   []uint32

	Status    []Status
	NumStatus int // number of decoded status words
}

// NewOutput allocates an output large enough for streams of the given shape.
func NewOutput(shape Shape) *Output {
	n := shape.Frames
	return &Output{
		Shape:   shape,
		Time:    make([]uint64, n),
		Gate:    make([]uint32, n),
		Counter: make([]uint32, n*shape.Counters),
		ADC:     make([]uint32, n*shape.ADCs),
		Encoder: make([]uint32, n*shape.Encoders),
		Motor:   make([]uint32, n*shape.Motors),
		Status:  make([]Status, n),
	}
}

// Frame is a view of one decoded frame.
type Frame struct {
	Time     uint64
	Gate     uint32
	Counters []uint32
	ADCs     []uint32
	Encoders []uint32
	Motors   []uint32
	Status   Status
}

// Frame returns the i-th frame of the last decoded stream.
// The returned slices share the output storage.
func (out *Output) Frame(i int) Frame {
	var (
		shape = out.Shape
		frame = Frame{
			Time:     out.Time[i],
			Gate:     out.Gate[i],
			Counters: sub(out.Counter, i, shape.Counters),
			ADCs:     sub(out.ADC, i, shape.ADCs),
			Encoders: sub(out.Encoder, i, shape.Encoders),
			Motors:   sub(out.Motor, i, shape.Motors),
		}
	)
	if i < out.NumStatus {
		frame.Status = out.Status[i]
	}
	return frame
}

func sub(vs []uint32, i, n int) []uint32 {
	beg := i * n
	end := beg + n
	return vs[beg:end:end]
}

func (out *Output) check(shape Shape) error {
	n := shape.Frames
	for _, v := range []struct {
		name string
		got  int
		want int
	}{
		{"time", len(out.Time), n},
		{"gate", len(out.Gate), n},
		{"counter", len(out.Counter), n * shape.Counters},
		{"adc", len(out.ADC), n * shape.ADCs},
		{"encoder", len(out.Encoder), n * shape.Encoders},
		{"motor", len(out.Motor), n * shape.Motors},
	} {
		if v.got < v.want {
			return xerrors.Errorf(
				"fpga: %s output too short (got=%d, want=%d): %w",
				v.name, v.got, v.want, cxas.ShortBuffer,
			)
		}
	}
	if out.Status != nil && len(out.Status) < n {
		return xerrors.Errorf(
			"fpga: status output too short (got=%d, want=%d): %w",
			len(out.Status), n, cxas.ShortBuffer,
		)
	}
	return nil
}

// Decode decodes the frame stream buf into out.
//
// Decode validates the whole buffer before writing any frame: when an
// error is returned, out is left untouched.
func Decode[W words.Word](out *Output, buf []W) error {
	raw, err := words.Of(buf)
	if err != nil {
		return xerrors.Errorf("fpga: could not read buffer: %w", err)
	}

	shape, err := probe(raw)
	if err != nil {
		return err
	}

	if n := shape.Frames; n > 0 {
		// the status word of the last frame lies past the declared payload.
		need := shape.StatusOffset(n - 1)
		if len(raw) < need {
			return xerrors.Errorf(
				"fpga: buffer too short for %d frames (got=%d, want=%d): %w",
				n, len(raw), need, cxas.Truncated,
			)
		}
	}

	err = out.check(shape)
	if err != nil {
		return err
	}

	decode(out, raw, shape)
	out.Shape = shape
	return nil
}

func decode(out *Output, buf []uint32, shape Shape) {
	nstatus := 0
	for n := 0; n < shape.Frames; n++ {
		var (
			trig = shape.TriggerOffset(n)
			lo   = buf[trig]
			hi   = buf[trig+1]
		)
		out.Time[n] = uint64(lo&maskTimeLSB) | uint64(hi&maskTimeMSB)<<5
		out.Gate[n] = hi & maskGate

		copy(sub(out.Counter, n, shape.Counters), buf[shape.CounterOffset(n):])
		copy(sub(out.ADC, n, shape.ADCs), buf[shape.ADCOffset(n):])

		enc := sub(out.Encoder, n, shape.Encoders)
		for i := range enc {
			enc[i] = buf[shape.EncoderOffset(n)+i] + EncoderBias
		}

		copy(sub(out.Motor, n, shape.Motors), buf[shape.MotorOffset(n):])

		if out.Status == nil {
			continue
		}
		if st := shape.StatusOffset(n); st < len(buf) {
			out.Status[n] = DecodeStatus(buf[st])
			nstatus++
		}
	}
	out.NumStatus = nstatus
}
