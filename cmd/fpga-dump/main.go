// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// fpga-dump decodes and displays FPGA frame capture files.
//
// Usage: fpga-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> fpga-dump ./testdata/frames.raw
//	=== file: frames.raw ===
//	frames:       2
//	configs:      1
//	counters:     1
//	adcs:         1
//	encoders:     1
//	motors:       1
//	  frame=0 time=2147483664 gate=256 counters=[5] adcs=[160] encoders=[2147483648] motors=[100] status=[cw-limit cw-moving idle idle] din=0xa5 dac=false
//	[...]
package main // import "github.com/go-lpc/cxas/cmd/fpga-dump"

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/go-lpc/cxas/fpga"
	"github.com/go-lpc/cxas/internal/mmap"
	"github.com/go-lpc/cxas/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

var (
	msg = log.New(os.Stdout, "fpga-dump: ", 0)
)

func main() {
	log.SetPrefix("fpga-dump: ")
	log.SetFlags(0)

	err := xmain(os.Stdout, os.Args[1:])
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func xmain(w io.Writer, args []string) error {
	var (
		fset  = flag.NewFlagSet("fpga-dump", flag.ContinueOnError)
		oname = fset.String("o", "", "path to output LCIO file (one input file only)")
		run   = fset.Int("run", 0, "run number of the output LCIO file")
	)

	fset.Usage = func() {
		fmt.Fprintf(fset.Output(), `fpga-dump decodes and displays FPGA frame capture files.

Usage: fpga-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> fpga-dump ./testdata/frames.raw
 $> fpga-dump -o frames.lcio -run 42 ./testdata/frames.raw

Options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		return err
	}

	switch {
	case fset.NArg() == 0:
		fset.Usage()
		return fmt.Errorf("missing path to input FPGA file")
	case *oname != "" && fset.NArg() != 1:
		fset.Usage()
		return fmt.Errorf("LCIO output needs exactly one input file")
	}

	for _, fname := range fset.Args() {
		err := process(w, *oname, int32(*run), fname)
		if err != nil {
			return fmt.Errorf("could not dump file %q: %w", fname, err)
		}
	}
	return nil
}

func process(w io.Writer, oname string, run int32, fname string) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	h, err := mmap.Open(fname)
	if err != nil {
		return err
	}
	defer h.Close()

	buf, err := h.Words()
	if err != nil {
		return err
	}

	shape, err := fpga.Probe(buf)
	if err != nil {
		return err
	}

	out := fpga.NewOutput(shape)
	err = fpga.Decode(out, buf)
	if err != nil {
		return err
	}

	fmt.Fprintf(wbuf, "=== file: %s ===\n", filepath.Base(fname))
	fmt.Fprintf(wbuf, "frames:   %5d\n", shape.Frames)
	fmt.Fprintf(wbuf, "configs:  %5d\n", shape.Configs)
	fmt.Fprintf(wbuf, "counters: %5d\n", shape.Counters)
	fmt.Fprintf(wbuf, "adcs:     %5d\n", shape.ADCs)
	fmt.Fprintf(wbuf, "encoders: %5d\n", shape.Encoders)
	fmt.Fprintf(wbuf, "motors:   %5d\n", shape.Motors)

	for i := 0; i < shape.Frames; i++ {
		frame := out.Frame(i)
		fmt.Fprintf(wbuf,
			"  frame=%d time=%d gate=%d counters=%v adcs=%v encoders=%v motors=%v",
			i, frame.Time, frame.Gate,
			frame.Counters, frame.ADCs, frame.Encoders, frame.Motors,
		)
		switch {
		case i < out.NumStatus:
			st := frame.Status
			fmt.Fprintf(wbuf, " status=%v din=0x%02x dac=%v\n", st.Motors, st.DigitalIn, st.DAC)
		default:
			fmt.Fprintf(wbuf, " status=n/a\n")
		}
	}

	err = wbuf.Flush()
	if err != nil {
		return fmt.Errorf("could not flush output: %w", err)
	}

	if oname == "" {
		return nil
	}

	lw, err := lcio.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create output LCIO file: %w", err)
	}
	defer lw.Close()

	err = xcnv.FPGA2LCIO(lw, out, run, msg)
	if err != nil {
		return fmt.Errorf("could not convert FPGA frames to LCIO: %w", err)
	}

	err = lw.Close()
	if err != nil {
		return fmt.Errorf("could not close output LCIO file: %w", err)
	}

	return nil
}
