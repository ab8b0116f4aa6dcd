// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package motion synthesizes the command streams driving the
// monochromator of the beamline during an energy scan.
//
// An energy scan is described by a list of waypoints (time, energy).
// From these, the package derives:
//   - a trigger list, the detector trigger intervals in milliseconds,
//   - a phi program, the stepper profile of the crystal rotation,
//   - a z program, the stepper profile of the crystal translation
//     keeping the exit beam at a fixed height.
//
// Motor programs are piecewise-linear profiles: each segment holds a
// number of steps, an initial step interval and a per-step interval
// change. All quantities are rounded to integers while carrying the
// rounding error over to the next segment, so that the total number of
// steps and the total duration stay within one unit of their targets.
package motion // import "github.com/go-lpc/cxas/motion"

import (
	"fmt"
	"math"

	"github.com/go-lpc/cxas"
)

// Waypoint is a point of an energy scan.
type Waypoint struct {
	Time   float64 // time since the start of the scan (s)
	Energy float64 // photon energy (eV)
}

func validate(wps []Waypoint) error {
	if len(wps) < 2 {
		return fmt.Errorf(
			"motion: trajectory needs at least 2 waypoints (got=%d): %w",
			len(wps), cxas.InvalidTrajectory,
		)
	}
	for i, wp := range wps {
		if math.IsNaN(wp.Time) || math.IsInf(wp.Time, 0) || math.IsNaN(wp.Energy) || math.IsInf(wp.Energy, 0) {
			return fmt.Errorf(
				"motion: waypoint %d is not finite (%+v): %w",
				i, wp, cxas.InvalidTrajectory,
			)
		}
		if i > 0 && !(wp.Time > wps[i-1].Time) {
			return fmt.Errorf(
				"motion: waypoint %d not after waypoint %d (t=%g, prev=%g): %w",
				i, i-1, wp.Time, wps[i-1].Time, cxas.InvalidTrajectory,
			)
		}
	}
	return nil
}

func timesOf(wps []Waypoint) []float64 {
	ts := make([]float64, len(wps))
	for i, wp := range wps {
		ts[i] = wp.Time
	}
	return ts
}

// carry rounds v+*err to the nearest integer and stores the rounding
// error in err.
func carry(v float64, err *float64) float64 {
	v += *err
	r := math.Round(v)
	*err = v - r
	return r
}
