// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package motion

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-lpc/cxas"
)

// Trajectory is an energy scan as described by a .tra file.
//
// A .tra file starts with 6 header lines of the form "key value":
//
//	bragg-start   Bragg angle at the start of the scan (deg)
//	bragg-stop    Bragg angle at the end of the scan (deg)
//	height-start  beam height at the start of the scan (mm)
//	height-stop   beam height at the end of the scan (mm)
//	(reserved)
//	length        number of points
//
// followed by tab-separated rows "index time energy".
// Everything after a '#' is a comment.
type Trajectory struct {
	BraggStart  float64
	BraggStop   float64
	HeightStart float64
	HeightStop  float64
	Length      float64

	Waypoints []Waypoint
}

const traHeaderLines = 6

// ReadTrajectory reads a .tra trajectory from r.
func ReadTrajectory(r io.Reader) (Trajectory, error) {
	var (
		tra Trajectory
		sc  = bufio.NewScanner(r)
		hdr = []*float64{
			&tra.BraggStart, &tra.BraggStop,
			&tra.HeightStart, &tra.HeightStop,
			nil,
			&tra.Length,
		}
		line = 0
	)

	for sc.Scan() {
		line++
		txt := sc.Text()
		if line <= traHeaderLines {
			ptr := hdr[line-1]
			if ptr == nil {
				continue
			}
			toks := strings.Fields(txt)
			if len(toks) < 2 {
				return tra, fmt.Errorf(
					"motion: invalid trajectory header line %d %q: %w",
					line, txt, cxas.InvalidTrajectory,
				)
			}
			v, err := strconv.ParseFloat(toks[1], 64)
			if err != nil {
				return tra, fmt.Errorf(
					"motion: could not parse trajectory header line %d: %w: %w",
					line, cxas.InvalidTrajectory, err,
				)
			}
			*ptr = v
			continue
		}

		if i := strings.Index(txt, "#"); i >= 0 {
			txt = txt[:i]
		}
		if strings.TrimSpace(txt) == "" {
			continue
		}
		toks := strings.Split(txt, "\t")
		if len(toks) < 3 {
			return tra, fmt.Errorf(
				"motion: invalid trajectory row at line %d: %q: %w",
				line, txt, cxas.InvalidTrajectory,
			)
		}
		var (
			wp  Waypoint
			err error
		)
		wp.Time, err = strconv.ParseFloat(strings.TrimSpace(toks[1]), 64)
		if err != nil {
			return tra, fmt.Errorf(
				"motion: could not parse time at line %d: %w: %w",
				line, cxas.InvalidTrajectory, err,
			)
		}
		wp.Energy, err = strconv.ParseFloat(strings.TrimSpace(toks[2]), 64)
		if err != nil {
			return tra, fmt.Errorf(
				"motion: could not parse energy at line %d: %w: %w",
				line, cxas.InvalidTrajectory, err,
			)
		}
		tra.Waypoints = append(tra.Waypoints, wp)
	}

	if err := sc.Err(); err != nil {
		return tra, fmt.Errorf("motion: could not scan trajectory: %w", err)
	}
	if line < traHeaderLines {
		return tra, fmt.Errorf(
			"motion: truncated trajectory header (lines=%d): %w",
			line, cxas.InvalidTrajectory,
		)
	}
	return tra, nil
}
