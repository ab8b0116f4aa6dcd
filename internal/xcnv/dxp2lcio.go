// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"fmt"
	"log"

	"github.com/go-lpc/cxas"
	"github.com/go-lpc/cxas/dxp"
	"go-hep.org/x/hep/lcio"
)

const (
	dxpDetector = "CXAS-DXP"
	dxpStats    = "DXP_STATS"
	dxpSpectra  = "DXP_SPECTRA"
)

// DXPWriter writes decoded DXP buffers as LCIO events, one event per pixel.
//
// Each event holds 2 collections with one element per (module, channel):
//   - DXP_STATS: I32s={element, pixel}, F64s={live, real, icr, ocr}
//   - DXP_SPECTRA: I32s=spectrum
type DXPWriter struct {
	w   *lcio.Writer
	run int32
	msg *log.Logger

	hdr  bool  // whether the run header was written
	ievt int32 // next event number
}

func NewDXPWriter(w *lcio.Writer, run int32, msg *log.Logger) *DXPWriter {
	return &DXPWriter{w: w, run: run, msg: msg}
}

// Write writes the records of the last buffer decoded into out.
func (dw *DXPWriter) Write(out *dxp.Output) error {
	lay := out.Layout
	if !dw.hdr {
		err := dw.w.WriteRunHeader(&lcio.RunHeader{
			RunNumber: dw.run,
			Detector:  dxpDetector,
			Descr:     "XIA DXP mapping mode, " + cxas.Banner(),
			Params: lcio.Params{
				Ints: map[string][]int32{
					"Mode":       {int32(lay.Mode)},
					"Modules":    {int32(lay.Modules)},
					"NumChanLen": {int32(lay.NumChanLen)},
				},
				Floats: map[string][]float32{
					"ClockPeriod": {dxp.ClockPeriod},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("could not write run header: %w", err)
		}
		dw.hdr = true
	}

	nrecs := lay.Modules * dxp.ChansPerModule
	for p := 0; p < lay.Pixels; p++ {
		if dw.ievt%100 == 0 {
			dw.msg.Printf("processing evt %d...", dw.ievt)
		}
		var (
			stats = &lcio.GenericObject{Data: make([]lcio.GenericObjectData, nrecs)}
			specs = &lcio.GenericObject{Data: make([]lcio.GenericObjectData, nrecs)}
		)
		for j := 0; j < nrecs; j++ {
			rec := out.Record(p*nrecs + j)
			stats.Data[j] = lcio.GenericObjectData{
				I32s: []int32{int32(rec.Element), int32(rec.Pixel)},
				F64s: []float64{rec.LiveTime, rec.RealTime, rec.ICR, rec.OCR},
			}
			specs.Data[j] = lcio.GenericObjectData{
				I32s: i32sFrom(rec.Spectrum),
			}
		}

		evt := lcio.Event{
			RunNumber:   dw.run,
			EventNumber: dw.ievt,
			TimeStamp:   int64(lay.StartPixel) + int64(p),
			Detector:    dxpDetector,
		}
		evt.Add(dxpStats, stats)
		evt.Add(dxpSpectra, specs)

		err := dw.w.WriteEvent(&evt)
		if err != nil {
			return fmt.Errorf("could not write DXP event: %w", err)
		}
		dw.ievt++
	}
	return nil
}

// LCIO2DXP reads back the DXP records stored in r.
func LCIO2DXP(r *lcio.Reader) ([]dxp.Record, error) {
	var recs []dxp.Record
	for r.Next() {
		evt := r.Event()
		stats, ok := evt.Get(dxpStats).(*lcio.GenericObject)
		if !ok {
			return nil, fmt.Errorf("event %d: no %s collection", evt.EventNumber, dxpStats)
		}
		specs, ok := evt.Get(dxpSpectra).(*lcio.GenericObject)
		if !ok {
			return nil, fmt.Errorf("event %d: no %s collection", evt.EventNumber, dxpSpectra)
		}
		if len(stats.Data) != len(specs.Data) {
			return nil, fmt.Errorf(
				"event %d: stats/spectra mismatch (%d != %d)",
				evt.EventNumber, len(stats.Data), len(specs.Data),
			)
		}
		for i, st := range stats.Data {
			if len(st.I32s) != 2 || len(st.F64s) != 4 {
				return nil, fmt.Errorf("event %d: invalid stats element %d", evt.EventNumber, i)
			}
			recs = append(recs, dxp.Record{
				Element:  uint32(st.I32s[0]),
				Pixel:    uint32(st.I32s[1]),
				LiveTime: st.F64s[0],
				RealTime: st.F64s[1],
				ICR:      st.F64s[2],
				OCR:      st.F64s[3],
				Spectrum: u32sFrom(specs.Data[i].I32s),
			})
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("could not read LCIO events: %w", err)
	}
	return recs, nil
}
