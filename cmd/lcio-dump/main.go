// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// lcio-dump decodes and displays DXP records or FPGA frames embedded in
// LCIO files.
//
// Usage: lcio-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> lcio-dump ./testdata/dxp.lcio
//	=== file: dxp.lcio ===
//	records:     8
//	  elem=000 pixel=0 live=0.000160 real=0.000320 icr=62500.0 ocr=56250.0 counts=1
//	  elem=001 pixel=0 live=0.000160 real=0.000320 icr=62500.0 ocr=56250.0 counts=21
//	[...]
//
//	$> lcio-dump -fpga ./testdata/fpga.lcio
//	=== file: fpga.lcio ===
//	frames:      2
//	  frame=0 time=2147483664 gate=256 counters=[5] adcs=[160] encoders=[2147483648] motors=[100] status=[cw-limit cw-moving idle idle] din=0xa5 dac=false
//	[...]
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/go-lpc/cxas/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

const usage = `lcio-dump decodes and displays DXP records or FPGA frames embedded in LCIO files.

Usage: lcio-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> lcio-dump ./testdata/dxp.lcio
 $> lcio-dump -fpga ./testdata/fpga.lcio

`

func main() {
	log.SetPrefix("lcio-dump: ")
	log.SetFlags(0)

	err := xmain(os.Stdout, os.Args[1:])
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func xmain(w io.Writer, args []string) error {
	var (
		fset = flag.NewFlagSet("lcio-dump", flag.ContinueOnError)

		fpga = fset.Bool("fpga", false, "decode FPGA frames instead of DXP records")
	)

	fset.Usage = func() {
		fmt.Fprint(fset.Output(), usage)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		return fmt.Errorf("could not parse input arguments: %w", err)
	}

	if fset.NArg() == 0 {
		fset.Usage()
		return fmt.Errorf("missing path to input LCIO file")
	}

	for _, fname := range fset.Args() {
		err := process(w, fname, *fpga)
		if err != nil {
			return fmt.Errorf("could not dump file %q: %w", fname, err)
		}
	}
	return nil
}

func process(w io.Writer, fname string, fpga bool) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	r, err := lcio.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open LCIO file: %w", err)
	}
	defer r.Close()

	fmt.Fprintf(wbuf, "=== file: %s ===\n", filepath.Base(fname))

	if fpga {
		frames, err := xcnv.LCIO2FPGA(r)
		if err != nil {
			return fmt.Errorf("could not decode FPGA frames: %w", err)
		}
		fmt.Fprintf(wbuf, "frames:  %5d\n", len(frames))
		for i, frame := range frames {
			st := frame.Status
			fmt.Fprintf(wbuf,
				"  frame=%d time=%d gate=%d counters=%v adcs=%v encoders=%v motors=%v status=%v din=0x%02x dac=%v\n",
				i, frame.Time, frame.Gate,
				frame.Counters, frame.ADCs, frame.Encoders, frame.Motors,
				st.Motors, st.DigitalIn, st.DAC,
			)
		}
		return wbuf.Flush()
	}

	recs, err := xcnv.LCIO2DXP(r)
	if err != nil {
		return fmt.Errorf("could not decode DXP records: %w", err)
	}
	fmt.Fprintf(wbuf, "records: %5d\n", len(recs))
	for _, rec := range recs {
		counts := uint64(0)
		for _, v := range rec.Spectrum {
			counts += uint64(v)
		}
		fmt.Fprintf(wbuf,
			"  elem=%03d pixel=%d live=%.6f real=%.6f icr=%.1f ocr=%.1f counts=%d\n",
			rec.Element, rec.Pixel, rec.LiveTime, rec.RealTime, rec.ICR, rec.OCR, counts,
		)
	}
	return wbuf.Flush()
}
