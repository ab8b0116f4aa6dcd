// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cxas

import (
	"errors"
	"fmt"
)

// Code is a status code as reported to the host control system.
// Negative values describe a failure, OK describes a success.
//
// Code implements the error interface so decoders can wrap it
// and callers can match it with errors.Is.
type Code int32

const (
	OK                  Code = 1
	UpstreamFailure     Code = -1
	CorruptHeader       Code = -2
	InvalidHeaderLength Code = -3
	StructuralMismatch  Code = -4
	TooShort            Code = -5
	NotDAQData          Code = -6
	MisalignedFrameSize Code = -7
	BelowThreshold      Code = -8
	OutOfRange          Code = -9
	Truncated           Code = -10
	AllocationFailed    Code = -11
	InvalidWord         Code = -12
	InvalidTrajectory   Code = -13
	FieldOverflow       Code = -14
	ShortBuffer         Code = -15
)

var codeNames = map[Code]string{
	OK:                  "ok",
	UpstreamFailure:     "upstream failure",
	CorruptHeader:       "corrupt header",
	InvalidHeaderLength: "invalid header length",
	StructuralMismatch:  "structural mismatch",
	TooShort:            "buffer too short",
	NotDAQData:          "not DAQ data",
	MisalignedFrameSize: "misaligned frame size",
	BelowThreshold:      "energy below threshold",
	OutOfRange:          "value out of range",
	Truncated:           "truncated buffer",
	AllocationFailed:    "allocation failed",
	InvalidWord:         "invalid raw word",
	InvalidTrajectory:   "invalid trajectory",
	FieldOverflow:       "bit-field overflow",
	ShortBuffer:         "short destination buffer",
}

func (c Code) Error() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("status code %d", int32(c))
}

func (c Code) String() string { return c.Error() }

// Status collapses err into the single status value expected by the
// host control system.
// A nil error yields OK, an error that does not carry a Code yields
// UpstreamFailure.
func Status(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return UpstreamFailure
}
