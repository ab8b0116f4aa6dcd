// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command dxp2lcio converts DXP mapping mode capture files to an LCIO one.
package main // import "github.com/go-lpc/cxas/cmd/dxp2lcio"

import (
	"compress/flate"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-lpc/cxas/dxp"
	"github.com/go-lpc/cxas/internal/mmap"
	"github.com/go-lpc/cxas/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

var (
	msg = log.New(os.Stdout, "dxp2lcio: ", 0)
)

func main() {
	var (
		oname = flag.String("o", "out.lcio", "path to output LCIO file")
		compr = flag.Int("lvl", flate.DefaultCompression, "compression level for output LCIO file")
		run   = flag.Int("run", 0, "run number")
	)

	flag.Usage = func() {
		fmt.Printf(`Usage: dxp2lcio [OPTIONS] file1.raw [file2.raw [...]]

ex:
 $> dxp2lcio -o out.lcio -lvl=9 -run=42 ./buffer-000.raw ./buffer-001.raw

options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		msg.Fatalf("missing input DXP raw file")
	}

	if *oname == "" {
		flag.Usage()
		msg.Fatalf("invalid output LCIO file name")
	}

	err := process(*oname, *compr, int32(*run), flag.Args())
	if err != nil {
		msg.Fatalf("could not convert DXP files: %+v", err)
	}
}

func process(oname string, lvl int, run int32, fnames []string) error {
	w, err := lcio.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create output LCIO file: %w", err)
	}
	defer w.Close()

	w.SetCompressionLevel(lvl)

	var (
		dw  = xcnv.NewDXPWriter(w, run, msg)
		out *dxp.Output
	)
	for _, fname := range fnames {
		out, err = convert(dw, out, fname)
		if err != nil {
			return fmt.Errorf("could not convert %q: %w", fname, err)
		}
	}

	err = w.Close()
	if err != nil {
		return fmt.Errorf("could not close output LCIO file: %w", err)
	}

	return nil
}

// convert decodes fname and writes its records to dw.
// The output storage is reused across buffers of identical layout.
func convert(dw *xcnv.DXPWriter, out *dxp.Output, fname string) (*dxp.Output, error) {
	h, err := mmap.Open(fname)
	if err != nil {
		return out, err
	}
	defer h.Close()

	buf, err := h.Words()
	if err != nil {
		return out, err
	}

	lay, err := dxp.Probe(buf)
	if err != nil {
		return out, err
	}

	if out == nil || out.Layout.Records() != lay.Records() || out.Stride < lay.NumChanLen {
		out, err = dxp.NewOutput(lay)
		if err != nil {
			return nil, err
		}
	}

	err = dxp.Decode(out, buf)
	if err != nil {
		return out, err
	}

	err = dw.Write(out)
	if err != nil {
		return out, fmt.Errorf("could not write LCIO events: %w", err)
	}

	return out, nil
}
