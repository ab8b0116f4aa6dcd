// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bragg converts photon energies to and from diffraction angles
// of a monochromator crystal.
//
// Energies are expressed in eV, angles in degrees and lattice spacings
// in metres.
package bragg // import "github.com/go-lpc/cxas/bragg"

import (
	"fmt"
	"math"

	"github.com/go-lpc/cxas"
)

const (
	Planck           = 6.62607004e-34 // Planck constant (J.s)
	LightSpeed       = 299792458      // speed of light in vacuum (m/s)
	ElementaryCharge = 1.60217662e-19 // elementary charge (C)
	hc               = Planck * LightSpeed
)

// Threshold returns the lowest energy Angle accepts for the lattice
// spacing d.
func Threshold(d float64) float64 {
	return hc / (math.Pi * ElementaryCharge * d)
}

// Angle returns the Bragg angle reflecting photons of the given energy
// off a crystal with lattice spacing d.
func Angle(energy, d float64) (float64, error) {
	if !(d > 0) {
		return 0, fmt.Errorf("bragg: invalid lattice spacing %g: %w", d, cxas.OutOfRange)
	}
	if energy < Threshold(d) {
		return 0, fmt.Errorf(
			"bragg: energy %g eV below threshold %g eV: %w",
			energy, Threshold(d), cxas.BelowThreshold,
		)
	}
	v := hc / (2 * d * ElementaryCharge * energy)
	if v > 1 {
		return 0, fmt.Errorf(
			"bragg: energy %g eV not reachable with d=%g m: %w",
			energy, d, cxas.BelowThreshold,
		)
	}
	return math.Asin(v) * 180 / math.Pi, nil
}

// Energy returns the photon energy reflected at the given Bragg angle off
// a crystal with lattice spacing d.
func Energy(angle, d float64) (float64, error) {
	if !(d > 0) {
		return 0, fmt.Errorf("bragg: invalid lattice spacing %g: %w", d, cxas.OutOfRange)
	}
	if !(angle > 0 && angle < 90) {
		return 0, fmt.Errorf("bragg: angle %g deg out of (0, 90): %w", angle, cxas.OutOfRange)
	}
	return hc / (2 * d * ElementaryCharge * math.Sin(angle*math.Pi/180)), nil
}
