// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"bytes"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-lpc/cxas/dxp"
	"github.com/go-lpc/cxas/fpga"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go-hep.org/x/hep/lcio"
)

func newDXPOutput(t *testing.T) *dxp.Output {
	t.Helper()

	lay := dxp.Layout{
		Mode:       dxp.MCA,
		BufHeadLen: 256,
		PixHeadLen: 256,
		NumChanLen: 4,
		Pixels:     2,
		StartPixel: 10,
		Modules:    1,
	}
	out, err := dxp.NewOutput(lay)
	if err != nil {
		t.Fatalf("could not create DXP output: %+v", err)
	}
	for p := 0; p < lay.Pixels; p++ {
		for c := 0; c < dxp.ChansPerModule; c++ {
			i := lay.Index(0, p, c)
			out.Element[i] = uint32(c)
			out.Pixel[i] = lay.StartPixel + uint32(p)
			out.LiveTime[i] = 0.5 + float64(i)
			out.RealTime[i] = 1.0 + float64(i)
			out.ICR[i] = 100 * float64(i)
			out.OCR[i] = 90 * float64(i)
			out.SpectrumLen[i] = int32(lay.NumChanLen)
			for j := 0; j < lay.NumChanLen; j++ {
				out.Spectrum[i*lay.NumChanLen+j] = uint32(c*10 + j + p)
			}
		}
	}
	// idle channel.
	out.ICR[0] = math.Inf(+1)
	return out
}

func TestDXP2LCIO(t *testing.T) {
	var (
		tmp   = t.TempDir()
		fname = filepath.Join(tmp, "dxp.lcio")
		msg   = log.New(io.Discard, "", 0)
		out   = newDXPOutput(t)
	)

	lw, err := lcio.Create(fname)
	if err != nil {
		t.Fatalf("could not create LCIO file: %+v", err)
	}
	defer lw.Close()

	dw := NewDXPWriter(lw, 42, msg)
	for i := 0; i < 2; i++ {
		err = dw.Write(out)
		if err != nil {
			t.Fatalf("could not convert buffer %d to LCIO: %+v", i, err)
		}
	}

	err = lw.Close()
	if err != nil {
		t.Fatalf("could not close LCIO file: %+v", err)
	}

	lr, err := lcio.Open(fname)
	if err != nil {
		t.Fatalf("could not open LCIO file: %+v", err)
	}
	defer lr.Close()

	got, err := LCIO2DXP(lr)
	if err != nil {
		t.Fatalf("could not read back DXP records: %+v", err)
	}

	var want []dxp.Record
	for i := 0; i < 2; i++ {
		for j := 0; j < out.Len(); j++ {
			want = append(want, out.Record(j))
		}
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("invalid round trip (-want +got):\n%s", diff)
	}
}

func TestFPGA2LCIO(t *testing.T) {
	var (
		tmp   = t.TempDir()
		fname = filepath.Join(tmp, "fpga.lcio")
		msg   = log.New(io.Discard, "", 0)
		shape = fpga.Shape{Frames: 2, Configs: 2, Counters: 1, ADCs: 2, Encoders: 1, Motors: 1}
		out   = fpga.NewOutput(shape)
	)
	for i := 0; i < shape.Frames; i++ {
		out.Time[i] = 0x1f_8000_0020 + uint64(i)
		out.Gate[i] = 0x3ffff00 + uint32(i)
		out.Counter[i] = 0xffffffff - uint32(i)
		out.ADC[2*i+0] = 0x10 + uint32(i)
		out.ADC[2*i+1] = 0x20 + uint32(i)
		out.Encoder[i] = 0x7fffffff + uint32(i)
		out.Motor[i] = 0x100 + uint32(i)
	}
	out.Status[0] = fpga.Status{
		Motors:    [fpga.NumMotors]fpga.MotorStatus{fpga.CWLimit, 0, fpga.CCWMoving, 0},
		DigitalIn: 0xa5,
		DAC:       true,
	}
	out.NumStatus = 1

	lw, err := lcio.Create(fname)
	if err != nil {
		t.Fatalf("could not create LCIO file: %+v", err)
	}
	defer lw.Close()

	err = FPGA2LCIO(lw, out, 7, msg)
	if err != nil {
		t.Fatalf("could not convert to LCIO: %+v", err)
	}

	err = lw.Close()
	if err != nil {
		t.Fatalf("could not close LCIO file: %+v", err)
	}

	lr, err := lcio.Open(fname)
	if err != nil {
		t.Fatalf("could not open LCIO file: %+v", err)
	}
	defer lr.Close()

	got, err := LCIO2FPGA(lr)
	if err != nil {
		t.Fatalf("could not read back FPGA frames: %+v", err)
	}

	want := []fpga.Frame{out.Frame(0), out.Frame(1)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("invalid round trip (-want +got):\n%s", diff)
	}
}

func TestSpectra(t *testing.T) {
	out := newDXPOutput(t)
	hs := Spectra(out)

	if got, want := len(hs), dxp.ChansPerModule; got != want {
		t.Fatalf("invalid number of histograms: got=%d, want=%d", got, want)
	}

	for c, h := range hs {
		if got, want := h.Len(), 4; got != want {
			t.Fatalf("elem %d: invalid number of bins: got=%d, want=%d", c, got, want)
		}
		for j := 0; j < 4; j++ {
			// sum over 2 pixels of c*10+j+p.
			want := float64(2*(c*10+j) + 1)
			if got := h.Value(j); got != want {
				t.Fatalf("elem %d: invalid bin %d: got=%v, want=%v", c, j, got, want)
			}
		}
	}

	buf := new(bytes.Buffer)
	err := WriteYODA(buf, hs)
	if err != nil {
		t.Fatalf("could not write YODA: %+v", err)
	}
	for _, name := range []string{"elem-000", "elem-003"} {
		if !strings.Contains(buf.String(), name) {
			t.Fatalf("missing histogram %q in YODA output", name)
		}
	}
	if got, want := strings.Count(buf.String(), "BEGIN YODA_HISTO1D"), len(hs); got != want {
		t.Fatalf("invalid number of YODA histograms: got=%d, want=%d", got, want)
	}
}

func TestPlotSpectrum(t *testing.T) {
	var (
		out   = newDXPOutput(t)
		hs    = Spectra(out)
		fname = filepath.Join(t.TempDir(), "elem-001.png")
	)

	err := PlotSpectrum(fname, "mca.raw: elem-001", hs[1])
	if err != nil {
		t.Fatalf("could not plot spectrum: %+v", err)
	}

	raw, err := os.ReadFile(fname)
	if err != nil {
		t.Fatalf("could not read plot: %+v", err)
	}
	if !bytes.HasPrefix(raw, []byte("\x89PNG")) {
		t.Fatalf("invalid PNG header: %q", raw[:min(len(raw), 8)])
	}
}

func TestKnown(t *testing.T) {
	for _, tc := range []struct {
		name string
		want bool
	}{
		{"CXAS-DXP", true},
		{"CXAS-FPGA", true},
		{"SDHCAL", false},
		{"", false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := Known(tc.name); got != tc.want {
				t.Fatalf("invalid detector %q: got=%v, want=%v", tc.name, got, tc.want)
			}
		})
	}
}
