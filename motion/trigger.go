// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package motion

import (
	"fmt"
	"math"

	"github.com/go-lpc/cxas"
)

// MaxTriggers is the maximum number of intervals of a trigger list.
const MaxTriggers = 0x3fff

// Trigger is a list of detector trigger intervals.
type Trigger struct {
	Intervals []uint32 // intervals between consecutive triggers (ms)
}

// NewTrigger returns the trigger list firing at every waypoint.
// Intervals must fit in a 32-bit word of milliseconds (about 49.7 days).
func NewTrigger(wps []Waypoint) (Trigger, error) {
	err := validate(wps)
	if err != nil {
		return Trigger{}, err
	}

	var (
		tr  = Trigger{Intervals: make([]uint32, len(wps)-1)}
		rem = 0.0
	)
	for i := range tr.Intervals {
		ms := carry((wps[i+1].Time-wps[i].Time)*1000, &rem)
		if ms > math.MaxUint32 {
			return Trigger{}, fmt.Errorf(
				"motion: trigger interval %d too long (%g ms): %w",
				i, ms, cxas.FieldOverflow,
			)
		}
		tr.Intervals[i] = uint32(ms)
	}
	return tr, nil
}

// Len returns the number of command words of the encoded list.
func (tr Trigger) Len() int {
	return len(tr.Intervals) + 1
}

// Duration returns the total duration of the list, in seconds.
func (tr Trigger) Duration() float64 {
	var sum uint64
	for _, v := range tr.Intervals {
		sum += uint64(v)
	}
	return float64(sum) / 1000
}

// Encode writes the command words of the list into dst and returns the
// number of words written.
func (tr Trigger) Encode(dst []uint32) (int, error) {
	n := len(tr.Intervals)
	if n > MaxTriggers {
		return 0, fmt.Errorf(
			"motion: too many trigger intervals (got=%d, max=%d): %w",
			n, MaxTriggers, cxas.FieldOverflow,
		)
	}
	if len(dst) < tr.Len() {
		return 0, fmt.Errorf(
			"motion: trigger buffer too short (got=%d, want=%d): %w",
			len(dst), tr.Len(), cxas.ShortBuffer,
		)
	}
	dst[0] = uint32(n) & MaxTriggers
	copy(dst[1:], tr.Intervals)
	return tr.Len(), nil
}

// Words returns the command words of the list.
func (tr Trigger) Words() ([]uint32, error) {
	ws := make([]uint32, tr.Len())
	_, err := tr.Encode(ws)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// DecodeTrigger decodes a trigger list from its command words.
func DecodeTrigger(ws []uint32) (Trigger, error) {
	if len(ws) == 0 {
		return Trigger{}, fmt.Errorf("motion: empty trigger list: %w", cxas.Truncated)
	}
	n := int(ws[0] & MaxTriggers)
	if len(ws) < n+1 {
		return Trigger{}, fmt.Errorf(
			"motion: trigger list too short (got=%d, want=%d): %w",
			len(ws), n+1, cxas.Truncated,
		)
	}
	return Trigger{Intervals: append([]uint32(nil), ws[1:n+1]...)}, nil
}
