// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package motion

import (
	"fmt"
	"math"

	"github.com/go-lpc/cxas"
	"github.com/go-lpc/cxas/bragg"
)

// Angles returns the Bragg angles (deg) of the waypoints for a crystal
// with lattice spacing d (m).
func Angles(wps []Waypoint, d float64) ([]float64, error) {
	out := make([]float64, len(wps))
	for i, wp := range wps {
		v, err := bragg.Angle(wp.Energy, d)
		if err != nil {
			return nil, fmt.Errorf(
				"motion: could not convert waypoint %d: %w: %w",
				i, cxas.UpstreamFailure, err,
			)
		}
		out[i] = v
	}
	return out, nil
}

// Heights returns the crystal translations (mm) keeping the exit beam at
// a fixed offset from the incident beam, for crystals separated by gap
// (mm) and rotated by the given Bragg angles (deg).
func Heights(angles []float64, gap float64) []float64 {
	out := make([]float64, len(angles))
	for i, v := range angles {
		out[i] = 2 * gap * math.Cos(v*math.Pi/180)
	}
	return out
}

// PhiProgram returns the rotation program of the trajectory.
func PhiProgram(wps []Waypoint, cfg Config) (Program, error) {
	err := validate(wps)
	if err != nil {
		return Program{}, err
	}
	phi, err := Angles(wps, cfg.DSpacing)
	if err != nil {
		return Program{}, err
	}
	return NewProgram(Phi, timesOf(wps), phi, cfg.PhiRes)
}

// ZProgram returns the translation program of the trajectory.
func ZProgram(wps []Waypoint, cfg Config) (Program, error) {
	err := validate(wps)
	if err != nil {
		return Program{}, err
	}
	phi, err := Angles(wps, cfg.DSpacing)
	if err != nil {
		return Program{}, err
	}
	return NewProgram(Z, timesOf(wps), Heights(phi, cfg.Gap), cfg.ZRes)
}

// Synthesize returns the rotation and translation programs of the
// trajectory.
func Synthesize(wps []Waypoint, cfg Config) (phi, z Program, err error) {
	err = cfg.Validate()
	if err != nil {
		return phi, z, err
	}
	err = validate(wps)
	if err != nil {
		return phi, z, err
	}

	angles, err := Angles(wps, cfg.DSpacing)
	if err != nil {
		return phi, z, err
	}
	times := timesOf(wps)

	phi, err = NewProgram(Phi, times, angles, cfg.PhiRes)
	if err != nil {
		return phi, z, err
	}
	z, err = NewProgram(Z, times, Heights(angles, cfg.Gap), cfg.ZRes)
	if err != nil {
		return phi, z, err
	}
	return phi, z, nil
}
