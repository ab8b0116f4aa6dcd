// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package motion

import (
	"fmt"
	"math"

	"github.com/go-lpc/cxas"
	"gonum.org/v1/gonum/floats"
)

// Axis identifies a motor axis of the monochromator.
type Axis uint8

const (
	Phi Axis = iota // crystal rotation (deg)
	Z               // crystal translation (mm)
)

func (ax Axis) String() string {
	switch ax {
	case Phi:
		return "phi"
	case Z:
		return "z"
	default:
		return fmt.Sprintf("Axis(%d)", uint8(ax))
	}
}

// Direction is the direction of motion of an axis.
type Direction uint8

const (
	CW  Direction = 0 // increasing coordinate
	CCW Direction = 1 // decreasing coordinate
)

func (dir Direction) String() string {
	switch dir {
	case CW:
		return "cw"
	case CCW:
		return "ccw"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(dir))
	}
}

// limits of the command word fields.
const (
	MaxSegments = 0x1fff   // 13 bits
	MaxSteps    = 0x800000 // 23 bits, less 1
	MaxInterval = 0x100000 // 20 bits, less 1
	MaxDelta    = 0xfffff  // 20 bits

	dirFlag = 1 << 31
)

// Segment is a run of steps with a linear interval ramp.
// The i-th step of a segment (starting at 0) lasts Interval+i*Delta µs.
type Segment struct {
	Start    float64 // coordinate at the start of the segment
	End      float64 // coordinate at the end of the segment
	Duration float64 // exact duration of the segment (µs)
	Exact    float64 // exact number of steps of the segment

	Steps    int // number of steps
	Interval int // initial interval between steps (µs)
	Delta    int // change of interval per step (µs)
}

// Direction returns the direction of motion during the segment.
func (seg Segment) Direction() Direction {
	if seg.End < seg.Start {
		return CCW
	}
	return CW
}

// Time returns the duration of the segment as executed by the
// controller, in µs.
func (seg Segment) Time() float64 {
	n := float64(seg.Steps - 1)
	return float64(seg.Steps)*float64(seg.Interval) + 0.5*float64(seg.Delta)*(n*n+n)
}

func (seg Segment) check() error {
	switch {
	case seg.Steps < 1 || seg.Steps > MaxSteps:
		return fmt.Errorf("motion: invalid step count %d: %w", seg.Steps, cxas.FieldOverflow)
	case seg.Interval < 1 || seg.Interval > MaxInterval:
		return fmt.Errorf("motion: invalid step interval %d µs: %w", seg.Interval, cxas.FieldOverflow)
	case seg.Delta < -MaxDelta || seg.Delta > MaxDelta:
		return fmt.Errorf("motion: invalid interval delta %d µs: %w", seg.Delta, cxas.FieldOverflow)
	}
	return nil
}

// words returns the 2 command words of the segment.
//
//	A: bits 0-22 steps-1, bits 23-31 interval-1 (9 LSBs)
//	B: bits 0-10 interval-1 (11 MSBs), bits 11-30 |delta|, bit 31 delta<0
func (seg Segment) words() (a, b uint32) {
	iv := uint32(seg.Interval - 1)
	a = uint32(seg.Steps-1)&0x7fffff | (iv&0x1ff)<<23
	b = (iv >> 9) & 0x7ff
	switch {
	case seg.Delta < 0:
		b |= (uint32(-seg.Delta)&MaxDelta)<<11 | dirFlag
	default:
		b |= (uint32(seg.Delta) & MaxDelta) << 11
	}
	return a, b
}

func segmentFrom(a, b uint32) Segment {
	seg := Segment{
		Steps:    int(a&0x7fffff) + 1,
		Interval: int(a>>23|(b&0x7ff)<<9) + 1,
		Delta:    int((b >> 11) & MaxDelta),
	}
	if b&dirFlag != 0 {
		seg.Delta = -seg.Delta
	}
	return seg
}

// Program is the stepper profile of one axis.
type Program struct {
	Axis      Axis
	Direction Direction // initial direction of motion
	Segments  []Segment

	TargetSteps float64 // exact number of steps of the trajectory
	TargetTime  float64 // exact duration of the trajectory (s)
}

// NewProgram computes the stepper profile following coords at the given
// times (s), for an axis with res steps per coordinate unit.
//
// Consecutive waypoints are merged until their displacement amounts to
// at least one step, so that no segment is empty.
// Waypoints past the last full step are dropped.
func NewProgram(axis Axis, times, coords []float64, res float64) (Program, error) {
	prog := Program{Axis: axis}
	switch {
	case len(times) != len(coords):
		return prog, fmt.Errorf(
			"motion: %v: times/coordinates length mismatch (%d != %d): %w",
			axis, len(times), len(coords), cxas.InvalidTrajectory,
		)
	case len(times) < 2:
		return prog, fmt.Errorf(
			"motion: %v: trajectory needs at least 2 points (got=%d): %w",
			axis, len(times), cxas.InvalidTrajectory,
		)
	case !(res > 0) || math.IsInf(res, 0):
		return prog, fmt.Errorf("motion: %v: invalid resolution %g: %w", axis, res, cxas.OutOfRange)
	}

	for i := range times {
		t, c := times[i], coords[i]
		if math.IsNaN(t) || math.IsInf(t, 0) || math.IsNaN(c) || math.IsInf(c, 0) {
			return prog, fmt.Errorf(
				"motion: %v: point %d is not finite (t=%g, x=%g): %w",
				axis, i, t, c, cxas.InvalidTrajectory,
			)
		}
		if i > 0 && !(t > times[i-1]) {
			return prog, fmt.Errorf(
				"motion: %v: point %d not after point %d: %w",
				axis, i, i-1, cxas.InvalidTrajectory,
			)
		}
	}

	var (
		n     = len(times)
		steps = 0.0 // step rounding error
		ivals = 0.0 // interval rounding error
		segs  = make([]Segment, 0, n-1)
	)
	for i, j := 0, 1; i+j < n; {
		exact := math.Abs(coords[i+j]-coords[i]) * res
		carried := steps
		nsteps := carry(exact, &carried)
		if exact == 0 || nsteps < 1 {
			j++
			continue
		}
		steps = carried

		// the controller runs Steps*Interval: spread the duration over the
		// rounded step count.
		dur := (times[i+j] - times[i]) * 1e6
		iv := carry(dur/nsteps, &ivals)
		seg := Segment{
			Start:    coords[i],
			End:      coords[i+j],
			Duration: dur,
			Exact:    exact,
			Steps:    int(math.Min(nsteps, MaxSteps+1)),
			Interval: int(math.Min(iv, MaxInterval+1)),
		}
		if err := seg.check(); err != nil {
			return prog, fmt.Errorf("motion: %v: segment %d: %w", axis, len(segs), err)
		}
		segs = append(segs, seg)

		i += j
		j = 1
	}

	// interval ramps, from the unrounded initial intervals of consecutive segments.
	deltas := 0.0
	for k := 0; k < len(segs)-1; k++ {
		var (
			n    = float64(segs[k].Steps)
			cur  = segs[k].Duration / n
			next = segs[k+1].Duration / float64(segs[k+1].Steps)
			d    = carry((next-cur)/n, &deltas)
		)
		segs[k].Delta = int(math.Max(math.Min(d, MaxDelta+1), -MaxDelta-1))
		if err := segs[k].check(); err != nil {
			return prog, fmt.Errorf("motion: %v: segment %d: %w", axis, k, err)
		}
	}

	prog.Segments = segs
	if len(segs) > 0 {
		prog.Direction = segs[0].Direction()
	}
	prog.TargetSteps = math.Abs(coords[n-1]-coords[0]) * res
	prog.TargetTime = math.Abs(times[n-1] - times[0])
	return prog, nil
}

// Len returns the number of command words of the encoded program.
func (p Program) Len() int {
	return 2*len(p.Segments) + 2
}

// Encode writes the command words of the program into dst and returns
// the number of words written.
//
// The header word holds the number of segments and, for the phi axis,
// the initial direction in bit 31. The second word is reserved.
func (p Program) Encode(dst []uint32) (int, error) {
	n := len(p.Segments)
	if n > MaxSegments {
		return 0, fmt.Errorf(
			"motion: %v: too many segments (got=%d, max=%d): %w",
			p.Axis, n, MaxSegments, cxas.FieldOverflow,
		)
	}
	if len(dst) < p.Len() {
		return 0, fmt.Errorf(
			"motion: %v: program buffer too short (got=%d, want=%d): %w",
			p.Axis, len(dst), p.Len(), cxas.ShortBuffer,
		)
	}
	for i, seg := range p.Segments {
		if err := seg.check(); err != nil {
			return 0, fmt.Errorf("motion: %v: segment %d: %w", p.Axis, i, err)
		}
	}

	dst[0] = uint32(n) & MaxSegments
	if p.Axis == Phi && p.Direction == CCW {
		dst[0] |= dirFlag
	}
	dst[1] = 0
	for i, seg := range p.Segments {
		dst[2*i+2], dst[2*i+3] = seg.words()
	}
	return p.Len(), nil
}

// Words returns the command words of the program.
func (p Program) Words() ([]uint32, error) {
	ws := make([]uint32, p.Len())
	_, err := p.Encode(ws)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// DecodeProgram decodes the command words of a program for the given axis.
// Only the integer parts of the segments are recovered.
func DecodeProgram(axis Axis, ws []uint32) (Program, error) {
	prog := Program{Axis: axis}
	if len(ws) < 2 {
		return prog, fmt.Errorf(
			"motion: %v: program too short (len=%d): %w",
			axis, len(ws), cxas.Truncated,
		)
	}
	n := int(ws[0] & MaxSegments)
	if len(ws) < 2*n+2 {
		return prog, fmt.Errorf(
			"motion: %v: program too short for %d segments (len=%d): %w",
			axis, n, len(ws), cxas.Truncated,
		)
	}
	if axis == Phi && ws[0]&dirFlag != 0 {
		prog.Direction = CCW
	}
	prog.Segments = make([]Segment, n)
	for i := range prog.Segments {
		prog.Segments[i] = segmentFrom(ws[2*i+2], ws[2*i+3])
	}
	return prog, nil
}

// Report compares a program with its target trajectory.
type Report struct {
	Axis        Axis
	Segments    int
	TargetSteps float64 // exact number of steps
	Steps       float64 // number of steps of the program
	TargetTime  float64 // exact duration (s)
	Time        float64 // duration of the program (s)
}

func (r Report) String() string {
	return fmt.Sprintf(
		"%v: segments=%d steps=%.0f (target=%.4f, err=%+.4f) time=%.6fs (target=%.6fs, err=%+.6fs)",
		r.Axis, r.Segments,
		r.Steps, r.TargetSteps, r.Steps-r.TargetSteps,
		r.Time, r.TargetTime, r.Time-r.TargetTime,
	)
}

// Verify recomputes the total number of steps and the total duration of
// the program from its integer segments.
// Rounding makes exact agreement with the targets impossible: the report
// is meant for diagnostics.
func (p Program) Verify() Report {
	var (
		steps = make([]float64, len(p.Segments))
		times = make([]float64, len(p.Segments))
	)
	for i, seg := range p.Segments {
		steps[i] = float64(seg.Steps)
		times[i] = seg.Time()
	}
	return Report{
		Axis:        p.Axis,
		Segments:    len(p.Segments),
		TargetSteps: p.TargetSteps,
		Steps:       floats.Sum(steps),
		TargetTime:  p.TargetTime,
		Time:        floats.Sum(times) / 1e6,
	}
}
