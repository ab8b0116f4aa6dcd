// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command lcio-rerun reads a DXP or FPGA LCIO file and rewrites its run
// number, renumbering its events from the provided offset.
package main // import "github.com/go-lpc/cxas/cmd/lcio-rerun"

import (
	"compress/flate"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-lpc/cxas/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

func main() {
	log.SetPrefix("lcio-rerun: ")
	log.SetFlags(0)

	err := xmain(os.Args[1:])
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func xmain(args []string) error {
	var (
		fset = flag.NewFlagSet("lcio-rerun", flag.ContinueOnError)

		runnbr = fset.Int("run", 0, "run number to use for output LCIO file")
		evtnbr = fset.Int("evt", 0, "number of the first output event")
		oname  = fset.String("o", "out.lcio", "path to output rewritten LCIO file")
	)

	fset.Usage = func() {
		fmt.Fprintf(fset.Output(), `Usage: lcio-rerun [OPTIONS] FILE.lcio

ex:
 $> lcio-rerun -o output.lcio -run=1234 ./dxp.lcio
 lcio-rerun: processing event 0...
 lcio-rerun: processing event 100...
 lcio-rerun: processed 128 events (detector=CXAS-DXP)

options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		return fmt.Errorf("could not parse input arguments: %w", err)
	}

	if fset.NArg() != 1 {
		fset.Usage()
		return fmt.Errorf("missing input LCIO file to rewrite")
	}

	return process(*oname, fset.Arg(0), int32(*runnbr), int32(*evtnbr))
}

func process(oname, fname string, run, ievt int32) error {
	r, err := lcio.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open input LCIO file: %w", err)
	}
	defer r.Close()

	w, err := lcio.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create output LCIO file: %w", err)
	}
	defer w.Close()

	w.SetCompressionLevel(flate.BestCompression)

	err = rewrite(w, r, run, ievt)
	if err != nil {
		return fmt.Errorf("could not rewrite %q: %w", fname, err)
	}

	err = w.Close()
	if err != nil {
		return fmt.Errorf("could not close output file: %w", err)
	}
	return nil
}

func rewrite(w *lcio.Writer, r *lcio.Reader, run, ievt int32) error {
	var (
		rhdr lcio.RunHeader
		n    = 0
	)
	for r.Next() {
		if n == 0 {
			rhdr = r.RunHeader()
			if !xcnv.Known(rhdr.Detector) {
				return fmt.Errorf("unknown detector %q", rhdr.Detector)
			}
			rhdr.RunNumber = run

			err := w.WriteRunHeader(&rhdr)
			if err != nil {
				return fmt.Errorf("could not write run header: %w", err)
			}
		}

		evt := r.Event()
		if evt.Detector != rhdr.Detector {
			return fmt.Errorf(
				"event %d: detector mismatch (got=%q, want=%q)",
				evt.EventNumber, evt.Detector, rhdr.Detector,
			)
		}
		evt.RunNumber = run
		evt.EventNumber = ievt + int32(n)
		if n%100 == 0 {
			log.Printf("processing event %d...", evt.EventNumber)
		}
		err := w.WriteEvent(&evt)
		if err != nil {
			return fmt.Errorf("could not write evt %d: %w", evt.EventNumber, err)
		}
		n++
	}

	err := r.Err()
	if err != nil && err != io.EOF {
		return fmt.Errorf("could not read LCIO file: %w", err)
	}

	log.Printf("processed %d events (detector=%s)", n, rhdr.Detector)
	return nil
}
