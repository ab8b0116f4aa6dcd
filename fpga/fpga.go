// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fpga decodes the frame streams produced by the beamline
// acquisition FPGA.
//
// A stream starts with a 5-word header:
//
//	0  payload length in bytes
//	1  trigger time (low word) of the first frame
//	2  trigger time (high word) and gate width of the first frame
//	3  configuration of config words, ADCs, encoders and motors
//	4  configuration of counters
//
// followed by the payload of the first frame, then by the subsequent
// frames, each starting with its 2 trigger words.
// The configuration words are bit masks of the enabled channels: the
// number of words of each kind in a frame is the population count of
// the corresponding mask.
package fpga // import "github.com/go-lpc/cxas/fpga"

import (
	"math/bits"

	"github.com/go-lpc/cxas"
	"github.com/go-lpc/cxas/internal/words"
	"golang.org/x/xerrors"
)

const (
	hdrBytes = 0
	hdrTrig1 = 1
	hdrTrig2 = 2
	hdrConf1 = 3
	hdrConf2 = 4
	hdrLen   = 5

	minBytes     = 4 * hdrLen
	triggerWords = 2
	statusWords  = 1

	notDAQ = 0x80000000 // automatic status report, not DAQ data
)

const (
	maskTimeLSB = 0x7fffffff
	maskTimeMSB = 0xfc000000
	maskGate    = 0x3ffffff

	maskConfig        = 0x3f
	maskADC           = 0x3fc00
	maskMotorEncoder  = 0x3c0000
	maskCounter       = 0xffffffff
	shiftConfig       = 0
	shiftADC          = 10
	shiftMotorEncoder = 18
	shiftCounter      = 0
)

// EncoderBias recenters encoder positions, transmitted as signed values.
const EncoderBias = 0x7fffffff

// Shape describes the frames held by a stream.
type Shape struct {
	Frames   int // number of frames
	Configs  int // config words per frame
	ADCs     int // ADC samples per frame
	Counters int // counters per frame
	Motors   int // motor positions per frame
	Encoders int // encoder positions per frame
}

// FrameLen returns the number of words of a frame.
func (s Shape) FrameLen() int {
	return s.Configs + s.ADCs + s.Encoders + s.Motors + s.Counters + triggerWords + statusWords
}

// TriggerOffset returns the offset of the trigger words of frame n.
func (s Shape) TriggerOffset(n int) int {
	if n == 0 {
		return hdrTrig1
	}
	return s.FrameLen()*n + 3
}

// ConfigOffset returns the offset of the config words of frame n.
// The payload of the first frame follows the configuration header words.
func (s Shape) ConfigOffset(n int) int {
	off := s.TriggerOffset(n) + triggerWords
	if n == 0 {
		off += hdrLen - hdrConf1
	}
	return off
}

// CounterOffset returns the offset of the counters of frame n.
func (s Shape) CounterOffset(n int) int { return s.ConfigOffset(n) + s.Configs }

// ADCOffset returns the offset of the ADC samples of frame n.
func (s Shape) ADCOffset(n int) int { return s.CounterOffset(n) + s.Counters }

// EncoderOffset returns the offset of the encoder positions of frame n.
func (s Shape) EncoderOffset(n int) int { return s.ADCOffset(n) + s.ADCs }

// MotorOffset returns the offset of the motor positions of frame n.
func (s Shape) MotorOffset(n int) int { return s.EncoderOffset(n) + s.Encoders }

// StatusOffset returns the offset of the status word of frame n.
func (s Shape) StatusOffset(n int) int { return s.MotorOffset(n) + s.Motors }

// shapeOf returns the per-frame shape advertised by the configuration
// words.
func shapeOf(conf1, conf2 uint32) Shape {
	var shape Shape
	shape.Configs = bits.OnesCount32((conf1 & maskConfig) >> shiftConfig)
	shape.ADCs = bits.OnesCount32((conf1 & maskADC) >> shiftADC)
	// encoders and motors are enabled by the same bits.
	shape.Encoders = bits.OnesCount32((conf1 & maskMotorEncoder) >> shiftMotorEncoder)
	shape.Motors = shape.Encoders
	shape.Counters = bits.OnesCount32((conf2 & maskCounter) >> shiftCounter)
	return shape
}

// Probe validates the header of buf and returns the shape of its frames.
func Probe[W words.Word](buf []W) (Shape, error) {
	raw, err := words.Of(buf)
	if err != nil {
		return Shape{}, xerrors.Errorf("fpga: could not read buffer: %w", err)
	}
	return probe(raw)
}

func probe(buf []uint32) (Shape, error) {
	var shape Shape
	if len(buf) == 0 {
		return shape, xerrors.Errorf("fpga: empty buffer: %w", cxas.Truncated)
	}

	n := buf[hdrBytes]
	if n < minBytes {
		return shape, xerrors.Errorf(
			"fpga: payload too short (bytes=%d): %w",
			n, cxas.TooShort,
		)
	}
	if len(buf) < hdrLen {
		return shape, xerrors.Errorf(
			"fpga: buffer too short for header (len=%d): %w",
			len(buf), cxas.Truncated,
		)
	}
	if buf[hdrTrig1]&notDAQ != 0 {
		return shape, xerrors.Errorf(
			"fpga: buffer holds a status report (tag=0x%x): %w",
			buf[hdrTrig1], cxas.NotDAQData,
		)
	}

	shape = shapeOf(buf[hdrConf1], buf[hdrConf2])

	var (
		payload = n - 2*4
		frame   = uint32(4 * shape.FrameLen())
	)
	if payload%frame != 0 {
		return shape, xerrors.Errorf(
			"fpga: payload (bytes=%d) not a multiple of frame size (bytes=%d): %w",
			payload, frame, cxas.MisalignedFrameSize,
		)
	}
	shape.Frames = int(payload / frame)

	return shape, nil
}
