// Copyright 2021 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"io"
	"log"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-lpc/cxas/dxp"
	"github.com/go-lpc/cxas/fpga"
	"github.com/go-lpc/cxas/internal/xcnv"
	"go-hep.org/x/hep/lcio"
)

func createDXP(t *testing.T, fname string) {
	t.Helper()

	lay := dxp.Layout{
		Mode:       dxp.MCA,
		BufHeadLen: 256,
		PixHeadLen: 256,
		NumChanLen: 2,
		Pixels:     2,
		Modules:    1,
	}
	out, err := dxp.NewOutput(lay)
	if err != nil {
		t.Fatalf("could not create DXP output: %+v", err)
	}
	for p := 0; p < lay.Pixels; p++ {
		for c := 0; c < dxp.ChansPerModule; c++ {
			var (
				i    = lay.Index(0, p, c)
				live = 500 * dxp.ClockPeriod
			)
			out.Element[i] = uint32(c)
			out.Pixel[i] = uint32(p)
			out.LiveTime[i] = live
			out.RealTime[i] = 1000 * dxp.ClockPeriod
			out.ICR[i] = 10 / live
			out.OCR[i] = 9 / live
			out.SpectrumLen[i] = 2
			out.Spectrum[2*i+0] = uint32(100*p + 10*c)
			out.Spectrum[2*i+1] = uint32(100*p + 10*c + 1)
		}
	}

	w, err := lcio.Create(fname)
	if err != nil {
		t.Fatalf("could not create LCIO file: %+v", err)
	}
	defer w.Close()

	err = xcnv.NewDXPWriter(w, 1, log.New(io.Discard, "", 0)).Write(out)
	if err != nil {
		t.Fatalf("could not write DXP records: %+v", err)
	}

	err = w.Close()
	if err != nil {
		t.Fatalf("could not close LCIO file: %+v", err)
	}
}

func createFPGA(t *testing.T, fname string) {
	t.Helper()

	out := fpga.NewOutput(fpga.Shape{
		Frames: 2, Configs: 1, Counters: 1, ADCs: 1, Encoders: 1, Motors: 1,
	})
	for i := 0; i < 2; i++ {
		out.Counter[i] = uint32(5 + i)
		out.ADC[i] = uint32(0xa0 + i)
		out.Encoder[i] = 0x80000000 - uint32(i)
		out.Motor[i] = uint32(100 + i)
	}
	out.Time[0], out.Gate[0] = 0x80000010, 0x100
	out.Time[1], out.Gate[1] = 0x20, 0x200
	out.Status[0] = fpga.DecodeStatus(0x1 | 0x8<<5 | 0xa5<<20)
	out.Status[1] = fpga.DecodeStatus(0x80000000)
	out.NumStatus = 2

	w, err := lcio.Create(fname)
	if err != nil {
		t.Fatalf("could not create LCIO file: %+v", err)
	}
	defer w.Close()

	err = xcnv.FPGA2LCIO(w, out, 1, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("could not write FPGA frames: %+v", err)
	}

	err = w.Close()
	if err != nil {
		t.Fatalf("could not close LCIO file: %+v", err)
	}
}

func TestProcess(t *testing.T) {
	tmp := t.TempDir()

	var (
		dxpName  = filepath.Join(tmp, "dxp.lcio")
		fpgaName = filepath.Join(tmp, "fpga.lcio")
	)
	createDXP(t, dxpName)
	createFPGA(t, fpgaName)

	for _, tc := range []struct {
		name  string
		fname string
		fpga  bool
		want  string
	}{
		{
			name:  "dxp",
			fname: dxpName,
			want: `=== file: dxp.lcio ===
records:     8
  elem=000 pixel=0 live=0.000160 real=0.000320 icr=62500.0 ocr=56250.0 counts=1
  elem=001 pixel=0 live=0.000160 real=0.000320 icr=62500.0 ocr=56250.0 counts=21
  elem=002 pixel=0 live=0.000160 real=0.000320 icr=62500.0 ocr=56250.0 counts=41
  elem=003 pixel=0 live=0.000160 real=0.000320 icr=62500.0 ocr=56250.0 counts=61
  elem=000 pixel=1 live=0.000160 real=0.000320 icr=62500.0 ocr=56250.0 counts=201
  elem=001 pixel=1 live=0.000160 real=0.000320 icr=62500.0 ocr=56250.0 counts=221
  elem=002 pixel=1 live=0.000160 real=0.000320 icr=62500.0 ocr=56250.0 counts=241
  elem=003 pixel=1 live=0.000160 real=0.000320 icr=62500.0 ocr=56250.0 counts=261
`,
		},
		{
			name:  "fpga",
			fname: fpgaName,
			fpga:  true,
			want: `=== file: fpga.lcio ===
frames:      2
  frame=0 time=2147483664 gate=256 counters=[5] adcs=[160] encoders=[2147483648] motors=[100] status=[cw-limit cw-moving idle idle] din=0xa5 dac=false
  frame=1 time=32 gate=512 counters=[6] adcs=[161] encoders=[2147483647] motors=[101] status=[idle idle idle idle] din=0x00 dac=true
`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out := new(strings.Builder)
			err := process(out, tc.fname, tc.fpga)
			if err != nil {
				t.Fatalf("could not dump file: %+v", err)
			}
			if got, want := out.String(), tc.want; got != want {
				t.Fatalf("invalid lcio-dump output:\ngot:\n%s\nwant:\n%s\n", got, want)
			}
		})
	}

	t.Run("wrong-kind", func(t *testing.T) {
		err := process(io.Discard, dxpName, true)
		if err == nil {
			t.Fatalf("expected an error decoding DXP records as FPGA frames")
		}
	})

	t.Run("xmain", func(t *testing.T) {
		err := xmain(io.Discard, []string{dxpName})
		if err != nil {
			t.Fatalf("could not run lcio-dump: %+v", err)
		}
		err = xmain(io.Discard, nil)
		if err == nil {
			t.Fatalf("expected an error with no input file")
		}
	})
}
