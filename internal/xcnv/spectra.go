// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"fmt"
	"io"

	"github.com/go-lpc/cxas/dxp"
	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot/vg"
)

// Spectra returns the spectra of the last buffer decoded into out,
// summed over pixels, one histogram per element.
// Bin i holds the counts of spectrum sample i.
func Spectra(out *dxp.Output) []*hbook.H1D {
	var (
		lay   = out.Layout
		nelem = lay.Modules * dxp.ChansPerModule
		hs    = make([]*hbook.H1D, nelem)
		nbins = lay.NumChanLen
	)
	if nbins == 0 {
		nbins = 1
	}
	for i := range hs {
		h := hbook.NewH1D(nbins, 0, float64(nbins))
		h.Annotation()["name"] = fmt.Sprintf("elem-%03d", i)
		h.Annotation()["title"] = fmt.Sprintf("%v spectrum, element %d", lay.Mode, i)
		hs[i] = h
	}

	for i, n := 0, out.Len(); i < n; i++ {
		rec := out.Record(i)
		h := hs[rec.Element]
		for j, v := range rec.Spectrum {
			if v == 0 {
				continue
			}
			h.Fill(float64(j)+0.5, float64(v))
		}
	}
	return hs
}

// WriteYODA writes the histograms to w in the YODA format.
func WriteYODA(w io.Writer, hs []*hbook.H1D) error {
	for _, h := range hs {
		raw, err := h.MarshalYODA()
		if err != nil {
			return fmt.Errorf("could not marshal %q to YODA: %w", h.Name(), err)
		}
		_, err = w.Write(raw)
		if err != nil {
			return fmt.Errorf("could not write %q: %w", h.Name(), err)
		}
	}
	return nil
}

// PlotSpectrum draws the histogram h and saves it to fname.
// The image format is deduced from the file extension.
func PlotSpectrum(fname, title string, h *hbook.H1D) error {
	p := hplot.New()
	p.Title.Text = title
	p.X.Label.Text = "channel"
	p.Y.Label.Text = "counts"

	p.Add(hplot.NewH1D(h), hplot.NewGrid())

	err := p.Save(14*vg.Centimeter, 8*vg.Centimeter, fname)
	if err != nil {
		return fmt.Errorf("could not save plot %q: %w", fname, err)
	}
	return nil
}
