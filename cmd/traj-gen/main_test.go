// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/go-lpc/cxas"
	"github.com/go-lpc/cxas/motion"
	"github.com/google/go-cmp/cmp"
)

func writeTrajectory(t *testing.T, fname string, e0, de float64) {
	t.Helper()

	o := new(strings.Builder)
	fmt.Fprintf(o, "bragg-start 21.0727\nbragg-stop 21.0457\n")
	fmt.Fprintf(o, "height-start 9.3313\nheight-stop 9.3296\n")
	fmt.Fprintf(o, "reserved 0\nlength 11\n")
	for i := 0; i < 11; i++ {
		fmt.Fprintf(o, "%d\t%g\t%g\n", i, 0.1*float64(i), e0+de*float64(i))
	}

	err := os.WriteFile(fname, []byte(o.String()), 0644)
	if err != nil {
		t.Fatalf("could not create trajectory file: %+v", err)
	}
}

func readWords(t *testing.T, fname string) []uint32 {
	t.Helper()

	raw, err := os.ReadFile(fname)
	if err != nil {
		t.Fatalf("could not read %q: %+v", fname, err)
	}

	var ws []uint32
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		v, err := strconv.ParseUint(line, 10, 32)
		if err != nil {
			t.Fatalf("could not parse word %q: %+v", line, err)
		}
		ws = append(ws, uint32(v))
	}
	return ws
}

func TestProcess(t *testing.T) {
	var (
		tmp   = t.TempDir()
		fname = filepath.Join(tmp, "cu-edge.tra")
		cfg   = filepath.Join(tmp, "si220.yaml")
		odir  = filepath.Join(tmp, "out")
		buf   = new(bytes.Buffer)
		msg   = log.New(buf, "traj-gen: ", 0)
	)
	writeTrajectory(t, fname, 8979, 1.1)

	err := os.WriteFile(cfg, []byte("d-spacing: 1.9202e-10\ngap: 5\n"), 0644)
	if err != nil {
		t.Fatalf("could not create config file: %+v", err)
	}

	err = xmain(msg, []string{"-cfg", cfg, "-o", odir, fname})
	if err != nil {
		t.Fatalf("could not run traj-gen: %+v", err)
	}

	trig := readWords(t, filepath.Join(odir, "cu-edge.tlst"))
	want := []uint32{10, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100}
	if diff := cmp.Diff(want, trig); diff != "" {
		t.Fatalf("invalid trigger list (-want +got):\n%s", diff)
	}

	for _, tc := range []struct {
		name string
		axis motion.Axis
		hdr  uint32
	}{
		{"cu-edge-phi.plst", motion.Phi, 0x80000000 | 10},
		{"cu-edge-z.plst", motion.Z, 10},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ws := readWords(t, filepath.Join(odir, tc.name))
			if got, want := ws[0], tc.hdr; got != want {
				t.Fatalf("invalid header: got=0x%x, want=0x%x", got, want)
			}
			prog, err := motion.DecodeProgram(tc.axis, ws)
			if err != nil {
				t.Fatalf("could not decode program: %+v", err)
			}
			if got, want := len(ws), 2*len(prog.Segments)+2; got != want {
				t.Fatalf("invalid number of words: got=%d, want=%d", got, want)
			}
			for i, seg := range prog.Segments {
				if seg.Steps < 1 {
					t.Fatalf("segment %d has no step", i)
				}
			}
		})
	}

	for _, want := range []string{
		"traj-gen: trigger: intervals=10 duration=1.000s (target=1.000s)\n",
		"traj-gen: phi: segments=10 steps=2701 ",
		"traj-gen: z: segments=10 steps=68 ",
	} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("missing log line %q in:\n%s", want, buf.String())
		}
	}
}

func TestProcessPrefix(t *testing.T) {
	var (
		tmp   = t.TempDir()
		fname = filepath.Join(tmp, "scan.tra")
		msg   = log.New(new(bytes.Buffer), "", 0)
	)
	writeTrajectory(t, fname, 7112, -1)

	err := xmain(msg, []string{"-o", tmp, "-prefix", "run-42", fname})
	if err != nil {
		t.Fatalf("could not run traj-gen: %+v", err)
	}

	for _, name := range []string{"run-42.tlst", "run-42-phi.plst", "run-42-z.plst"} {
		_, err := os.Stat(filepath.Join(tmp, name))
		if err != nil {
			t.Fatalf("missing output file %q: %+v", name, err)
		}
	}

	// decreasing energy: increasing Bragg angle.
	phi := readWords(t, filepath.Join(tmp, "run-42-phi.plst"))
	if phi[0]&0x80000000 != 0 {
		t.Fatalf("invalid phi direction: header=0x%x", phi[0])
	}
}

func TestProcessLogFile(t *testing.T) {
	var (
		tmp   = t.TempDir()
		fname = filepath.Join(tmp, "scan.tra")
		cfg   = filepath.Join(tmp, "si220.yaml")
		lname = filepath.Join(tmp, "logs", "traj-gen.log")
		buf   = new(bytes.Buffer)
		msg   = log.New(buf, "traj-gen: ", 0)
	)
	writeTrajectory(t, fname, 8979, 1.1)

	err := os.WriteFile(cfg, []byte("d-spacing: 1.9202e-10\ngap: 5\n"), 0644)
	if err != nil {
		t.Fatalf("could not create config file: %+v", err)
	}

	err = xmain(msg, []string{"-cfg", cfg, "-o", tmp, "-log", lname, fname})
	if err != nil {
		t.Fatalf("could not run traj-gen: %+v", err)
	}

	raw, err := os.ReadFile(lname)
	if err != nil {
		t.Fatalf("could not read log file: %+v", err)
	}

	for _, want := range []string{
		"traj-gen: ",
		"trigger: intervals=10 ",
		"phi: segments=10 steps=2701 ",
		"z: segments=10 steps=68 ",
	} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("missing log line %q in log file:\n%s", want, raw)
		}
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("missing log line %q in:\n%s", want, buf.String())
		}
	}
}

func TestProcessErrors(t *testing.T) {
	var (
		tmp = t.TempDir()
		msg = log.New(new(bytes.Buffer), "", 0)
		low = filepath.Join(tmp, "low.tra")
	)
	writeTrajectory(t, low, 1000, 1)

	err := xmain(msg, []string{"-o", tmp, low})
	if !errors.Is(err, cxas.BelowThreshold) {
		t.Fatalf("invalid error: got=%v, want=%v", err, cxas.BelowThreshold)
	}
	if got, want := cxas.Status(err), cxas.UpstreamFailure; got != want {
		t.Fatalf("invalid status: got=%v, want=%v", got, want)
	}

	err = xmain(msg, []string{"-cfg", "a.yaml", "-db", "dsn", low})
	if err == nil {
		t.Fatalf("expected an error with -cfg and -db")
	}

	err = xmain(msg, nil)
	if err == nil {
		t.Fatalf("expected an error with no input file")
	}

	err = xmain(msg, []string{filepath.Join(tmp, "not-there.tra")})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("invalid error: %+v", err)
	}
}
