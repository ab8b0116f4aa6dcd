// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/go-lpc/cxas/fpga"
	"github.com/go-lpc/cxas/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

func createFPGA(t *testing.T, fname string, run int32) {
	t.Helper()

	out := fpga.NewOutput(fpga.Shape{Frames: 3, Counters: 1})
	for i := range out.Time {
		out.Time[i] = uint64(10 * i)
		out.Counter[i] = uint32(i)
	}

	w, err := lcio.Create(fname)
	if err != nil {
		t.Fatalf("could not create LCIO file: %+v", err)
	}
	defer w.Close()

	err = xcnv.FPGA2LCIO(w, out, run, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("could not write FPGA frames: %+v", err)
	}

	err = w.Close()
	if err != nil {
		t.Fatalf("could not close LCIO file: %+v", err)
	}
}

func TestRerun(t *testing.T) {
	var (
		tmp   = t.TempDir()
		iname = filepath.Join(tmp, "fpga.lcio")
		oname = filepath.Join(tmp, "out.lcio")
	)
	createFPGA(t, iname, 1)

	err := xmain([]string{"-o", oname, "-run", "42", "-evt", "10", iname})
	if err != nil {
		t.Fatalf("could not rewrite file: %+v", err)
	}

	r, err := lcio.Open(oname)
	if err != nil {
		t.Fatalf("could not open rewritten file: %+v", err)
	}
	defer r.Close()

	n := 0
	for r.Next() {
		if n == 0 {
			rhdr := r.RunHeader()
			if got, want := rhdr.RunNumber, int32(42); got != want {
				t.Fatalf("invalid run header number: got=%d, want=%d", got, want)
			}
		}
		evt := r.Event()
		if got, want := evt.RunNumber, int32(42); got != want {
			t.Fatalf("invalid event run number: got=%d, want=%d", got, want)
		}
		if got, want := evt.EventNumber, int32(10+n); got != want {
			t.Fatalf("invalid event number: got=%d, want=%d", got, want)
		}
		if got, want := evt.TimeStamp, int64(10*n); got != want {
			t.Fatalf("invalid event time stamp: got=%d, want=%d", got, want)
		}
		n++
	}
	if err := r.Err(); err != nil && err != io.EOF {
		t.Fatalf("could not read rewritten file: %+v", err)
	}
	if got, want := n, 3; got != want {
		t.Fatalf("invalid number of events: got=%d, want=%d", got, want)
	}
}

func TestRerunUnknownDetector(t *testing.T) {
	var (
		tmp   = t.TempDir()
		iname = filepath.Join(tmp, "other.lcio")
		oname = filepath.Join(tmp, "out.lcio")
	)

	w, err := lcio.Create(iname)
	if err != nil {
		t.Fatalf("could not create LCIO file: %+v", err)
	}
	err = w.WriteRunHeader(&lcio.RunHeader{RunNumber: 1, Detector: "SDHCAL"})
	if err != nil {
		t.Fatalf("could not write run header: %+v", err)
	}
	err = w.WriteEvent(&lcio.Event{RunNumber: 1, Detector: "SDHCAL"})
	if err != nil {
		t.Fatalf("could not write event: %+v", err)
	}
	err = w.Close()
	if err != nil {
		t.Fatalf("could not close LCIO file: %+v", err)
	}

	err = process(oname, iname, 2, 0)
	if err == nil {
		t.Fatalf("expected an error for an unknown detector")
	}
}

func TestRerunErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		args []string
	}{
		{"no-input", nil},
		{"not-exist", []string{"-o", filepath.Join(t.TempDir(), "out.lcio"), "not-there.lcio"}},
		{"bad-flag", []string{"-run", "x", "in.lcio"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := xmain(tc.args)
			if err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}
