// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fpga

import (
	"strings"
)

// NumMotors is the number of motor axes reported by the status word.
const NumMotors = 4

const (
	maskMotorStatus  = 0x1f // 5 bits per motor
	shiftMotorStatus = 5

	maskDigitalIn  = 0xff00000
	shiftDigitalIn = 20
	maskDAC        = 0x80000000
	shiftDAC       = 31
)

// MotorStatus holds the limit and motion flags of a motor axis.
type MotorStatus uint8

const (
	CWLimit   MotorStatus = 1 << iota // clockwise limit switch reached
	CCWLimit                          // counter-clockwise limit switch reached
	IndexHit                          // encoder index mark seen
	CWMoving                          // moving clockwise
	CCWMoving                         // moving counter-clockwise
)

// Has returns whether all flags of f are set.
func (ms MotorStatus) Has(f MotorStatus) bool {
	return ms&f == f
}

func (ms MotorStatus) String() string {
	var o []string
	for _, v := range []struct {
		f    MotorStatus
		name string
	}{
		{CWLimit, "cw-limit"},
		{CCWLimit, "ccw-limit"},
		{IndexHit, "index"},
		{CWMoving, "cw-moving"},
		{CCWMoving, "ccw-moving"},
	} {
		if ms.Has(v.f) {
			o = append(o, v.name)
		}
	}
	if len(o) == 0 {
		return "idle"
	}
	return strings.Join(o, "|")
}

// Status is the I/O status word closing every frame.
type Status struct {
	Motors    [NumMotors]MotorStatus
	DigitalIn uint8 // state of the 8 digital inputs
	DAC       bool
}

// DecodeStatus decodes a frame status word.
func DecodeStatus(w uint32) Status {
	var st Status
	for i := range st.Motors {
		shift := shiftMotorStatus * i
		st.Motors[i] = MotorStatus((w >> shift) & maskMotorStatus)
	}
	st.DigitalIn = uint8((w & maskDigitalIn) >> shiftDigitalIn)
	st.DAC = (w&maskDAC)>>shiftDAC == 1
	return st
}

// Word encodes the status back into its wire representation.
func (st Status) Word() uint32 {
	var w uint32
	for i, m := range st.Motors {
		w |= (uint32(m) & maskMotorStatus) << (shiftMotorStatus * i)
	}
	w |= uint32(st.DigitalIn) << shiftDigitalIn
	if st.DAC {
		w |= maskDAC
	}
	return w
}
