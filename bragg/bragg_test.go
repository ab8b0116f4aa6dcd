// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bragg

import (
	"errors"
	"math"
	"testing"

	"github.com/go-lpc/cxas"
	"gonum.org/v1/gonum/floats/scalar"
)

const si220 = 1.9202e-10 // Si(220) lattice spacing (m)

func TestAngle(t *testing.T) {
	for _, tc := range []struct {
		name   string
		energy float64
		d      float64
		want   float64
		err    error
	}{
		{
			name:   "cu-k-edge",
			energy: 8979,
			d:      si220,
			want:   21.072695,
		},
		{
			name:   "fe-k-edge",
			energy: 7112,
			d:      si220,
			want:   26.996731,
		},
		{
			name:   "below-threshold",
			energy: 1000,
			d:      si220,
			err:    cxas.BelowThreshold,
		},
		{
			name:   "beyond-backscattering",
			energy: 3000,
			d:      si220,
			err:    cxas.BelowThreshold,
		},
		{
			name:   "invalid-spacing",
			energy: 8979,
			d:      0,
			err:    cxas.OutOfRange,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Angle(tc.energy, tc.d)
			if !errors.Is(err, tc.err) {
				t.Fatalf("invalid error: got=%v, want=%v", err, tc.err)
			}
			if tc.err != nil {
				return
			}
			if !scalar.EqualWithinAbs(got, tc.want, 1e-4) {
				t.Fatalf("invalid angle: got=%g, want=%g", got, tc.want)
			}
		})
	}
}

func TestEnergy(t *testing.T) {
	for _, tc := range []struct {
		name  string
		angle float64
		err   error
	}{
		{"zero", 0, cxas.OutOfRange},
		{"negative", -1, cxas.OutOfRange},
		{"right-angle", 90, cxas.OutOfRange},
		{"nan", math.NaN(), cxas.OutOfRange},
		{"valid", 45, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Energy(tc.angle, si220)
			if !errors.Is(err, tc.err) {
				t.Fatalf("invalid error: got=%v, want=%v", err, tc.err)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, energy := range []float64{3300, 5000, 7112, 8979, 12000, 25000} {
		angle, err := Angle(energy, si220)
		if err != nil {
			t.Fatalf("could not convert %g eV: %+v", energy, err)
		}
		got, err := Energy(angle, si220)
		if err != nil {
			t.Fatalf("could not convert %g deg: %+v", angle, err)
		}
		if !scalar.EqualWithinRel(got, energy, 1e-12) {
			t.Fatalf("invalid round trip: got=%g, want=%g", got, energy)
		}
	}
}

func TestThreshold(t *testing.T) {
	got := Threshold(si220)
	if !scalar.EqualWithinRel(got, 2055.275, 1e-5) {
		t.Fatalf("invalid threshold: got=%g", got)
	}
}
