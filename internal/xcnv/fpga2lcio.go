// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"fmt"
	"log"

	"github.com/go-lpc/cxas"
	"github.com/go-lpc/cxas/fpga"
	"go-hep.org/x/hep/lcio"
)

const (
	fpgaDetector = "CXAS-FPGA"
	fpgaFrame    = "FPGA_FRAME"
)

// FPGA2LCIO writes the frames of the last stream decoded into out as LCIO
// events, one event per frame.
//
// Each event holds a FPGA_FRAME collection with 5 elements:
// {time-lo, time-hi, gate, status, has-status}, counters, ADCs, encoders
// and motors.
func FPGA2LCIO(w *lcio.Writer, out *fpga.Output, run int32, msg *log.Logger) error {
	shape := out.Shape
	err := w.WriteRunHeader(&lcio.RunHeader{
		RunNumber: run,
		Detector:  fpgaDetector,
		Descr:     "FPGA acquisition frames, " + cxas.Banner(),
		Params: lcio.Params{
			Ints: map[string][]int32{
				"Configs":  {int32(shape.Configs)},
				"Counters": {int32(shape.Counters)},
				"ADCs":     {int32(shape.ADCs)},
				"Encoders": {int32(shape.Encoders)},
				"Motors":   {int32(shape.Motors)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("could not write run header: %w", err)
	}

	for i := 0; i < shape.Frames; i++ {
		if i%100 == 0 {
			msg.Printf("processing evt %d...", i)
		}
		var (
			frame = out.Frame(i)
			flag  = int32(0)
		)
		if i < out.NumStatus {
			flag = 1
		}
		raw := &lcio.GenericObject{
			Data: []lcio.GenericObjectData{
				{I32s: []int32{
					int32(uint32(frame.Time)),
					int32(uint32(frame.Time >> 32)),
					int32(frame.Gate),
					int32(frame.Status.Word()),
					flag,
				}},
				{I32s: i32sFrom(frame.Counters)},
				{I32s: i32sFrom(frame.ADCs)},
				{I32s: i32sFrom(frame.Encoders)},
				{I32s: i32sFrom(frame.Motors)},
			},
		}

		evt := lcio.Event{
			RunNumber:   run,
			EventNumber: int32(i),
			TimeStamp:   int64(frame.Time),
			Detector:    fpgaDetector,
		}
		evt.Add(fpgaFrame, raw)

		err = w.WriteEvent(&evt)
		if err != nil {
			return fmt.Errorf("could not write FPGA event: %w", err)
		}
	}
	return nil
}

// LCIO2FPGA reads back the FPGA frames stored in r.
func LCIO2FPGA(r *lcio.Reader) ([]fpga.Frame, error) {
	var frames []fpga.Frame
	for r.Next() {
		evt := r.Event()
		raw, ok := evt.Get(fpgaFrame).(*lcio.GenericObject)
		if !ok {
			return nil, fmt.Errorf("event %d: no %s collection", evt.EventNumber, fpgaFrame)
		}
		if len(raw.Data) != 5 || len(raw.Data[0].I32s) != 5 {
			return nil, fmt.Errorf("event %d: invalid %s collection", evt.EventNumber, fpgaFrame)
		}
		hdr := u32sFrom(raw.Data[0].I32s)
		frame := fpga.Frame{
			Time:     uint64(hdr[0]) | uint64(hdr[1])<<32,
			Gate:     hdr[2],
			Counters: u32sFrom(raw.Data[1].I32s),
			ADCs:     u32sFrom(raw.Data[2].I32s),
			Encoders: u32sFrom(raw.Data[3].I32s),
			Motors:   u32sFrom(raw.Data[4].I32s),
		}
		if hdr[4] != 0 {
			frame.Status = fpga.DecodeStatus(hdr[3])
		}
		frames = append(frames, frame)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("could not read LCIO events: %w", err)
	}
	return frames, nil
}
