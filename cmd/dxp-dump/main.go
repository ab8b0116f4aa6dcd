// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// dxp-dump decodes and displays DXP mapping mode capture files.
//
// Usage: dxp-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> dxp-dump ./testdata/mca.raw
//	=== file: mca.raw ===
//	mode:          MCA
//	modules:         1
//	pixels:          1
//	start pixel:     7
//	channels:        4
//	  elem=000 pixel=7 live=0.500000 real=1.000000 icr=2000.0 ocr=1800.0 counts=10
//	  elem=001 pixel=7 live=0.500000 real=1.000000 icr=2000.0 ocr=1800.0 counts=50
//	[...]
package main // import "github.com/go-lpc/cxas/cmd/dxp-dump"

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-lpc/cxas/dxp"
	"github.com/go-lpc/cxas/internal/mmap"
	"github.com/go-lpc/cxas/internal/xcnv"
	"go-hep.org/x/hep/hbook"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.SetPrefix("dxp-dump: ")
	log.SetFlags(0)

	err := xmain(os.Stdout, os.Args[1:])
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func xmain(w io.Writer, args []string) error {
	var (
		fset = flag.NewFlagSet("dxp-dump", flag.ContinueOnError)
		yoda = fset.String("yoda", "", "path to output YODA file with summed spectra")
		pdir = fset.String("plot", "", "output directory for PNG plots of summed spectra")
	)

	fset.Usage = func() {
		fmt.Fprintf(fset.Output(), `dxp-dump decodes and displays DXP mapping mode capture files.

Usage: dxp-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> dxp-dump ./testdata/mca.raw
 $> dxp-dump -yoda spectra.yoda ./testdata/mca-*.raw
 $> dxp-dump -plot ./plots ./testdata/mca.raw

Options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		return err
	}

	if fset.NArg() == 0 {
		fset.Usage()
		return fmt.Errorf("missing path to input DXP file")
	}

	return process(w, *yoda, *pdir, fset.Args())
}

func process(w io.Writer, yoda, pdir string, fnames []string) error {
	var (
		grp  errgroup.Group
		outs = make([]*dxp.Output, len(fnames))
	)
	grp.SetLimit(runtime.NumCPU())

	for i, fname := range fnames {
		i, fname := i, fname
		grp.Go(func() error {
			out, err := decode(fname)
			if err != nil {
				return fmt.Errorf("could not decode %q: %w", fname, err)
			}
			outs[i] = out
			return nil
		})
	}

	err := grp.Wait()
	if err != nil {
		return err
	}

	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	for i, out := range outs {
		dump(wbuf, filepath.Base(fnames[i]), out)
	}

	err = wbuf.Flush()
	if err != nil {
		return fmt.Errorf("could not flush output: %w", err)
	}

	if yoda != "" {
		err = writeYODA(yoda, fnames, outs)
		if err != nil {
			return err
		}
	}

	if pdir != "" {
		err = writePlots(pdir, fnames, outs)
		if err != nil {
			return err
		}
	}

	return nil
}

func writeYODA(fname string, fnames []string, outs []*dxp.Output) error {
	var hs []*hbook.H1D
	for i, out := range outs {
		for _, h := range xcnv.Spectra(out) {
			h.Annotation()["name"] = filepath.Base(fnames[i]) + "/" + h.Name()
			hs = append(hs, h)
		}
	}

	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("could not create YODA file: %w", err)
	}
	defer f.Close()

	err = xcnv.WriteYODA(f, hs)
	if err != nil {
		return fmt.Errorf("could not write YODA file: %w", err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("could not close YODA file: %w", err)
	}

	return nil
}

func writePlots(dir string, fnames []string, outs []*dxp.Output) error {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return fmt.Errorf("could not create plot directory: %w", err)
	}

	for i, out := range outs {
		var (
			base = filepath.Base(fnames[i])
			stem = strings.TrimSuffix(base, filepath.Ext(base))
		)
		for _, h := range xcnv.Spectra(out) {
			oname := filepath.Join(dir, stem+"-"+h.Name()+".png")
			err := xcnv.PlotSpectrum(oname, base+": "+h.Name(), h)
			if err != nil {
				return fmt.Errorf("could not plot %s/%s: %w", base, h.Name(), err)
			}
		}
	}

	return nil
}

func decode(fname string) (*dxp.Output, error) {
	h, err := mmap.Open(fname)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	buf, err := h.Words()
	if err != nil {
		return nil, err
	}

	lay, err := dxp.Probe(buf)
	if err != nil {
		return nil, err
	}

	out, err := dxp.NewOutput(lay)
	if err != nil {
		return nil, err
	}

	err = dxp.Decode(out, buf)
	if err != nil {
		return nil, err
	}

	return out, nil
}

func dump(w io.Writer, name string, out *dxp.Output) {
	lay := out.Layout
	fmt.Fprintf(w, "=== file: %s ===\n", name)
	fmt.Fprintf(w, "mode:        %5v\n", lay.Mode)
	fmt.Fprintf(w, "modules:     %5d\n", lay.Modules)
	fmt.Fprintf(w, "pixels:      %5d\n", lay.Pixels)
	fmt.Fprintf(w, "start pixel: %5d\n", lay.StartPixel)
	fmt.Fprintf(w, "channels:    %5d\n", lay.NumChanLen)

	for i, n := 0, out.Len(); i < n; i++ {
		rec := out.Record(i)
		counts := uint64(0)
		for _, v := range rec.Spectrum {
			counts += uint64(v)
		}
		fmt.Fprintf(w,
			"  elem=%03d pixel=%d live=%.6f real=%.6f icr=%.1f ocr=%.1f counts=%d\n",
			rec.Element, rec.Pixel, rec.LiveTime, rec.RealTime, rec.ICR, rec.OCR, counts,
		)
	}
}
