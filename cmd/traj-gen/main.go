// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// traj-gen generates the command words driving an energy scan.
//
// traj-gen reads a .tra trajectory and writes 3 files holding one
// decimal command word per line:
//   - PREFIX.tlst: the detector trigger list,
//   - PREFIX-phi.plst: the crystal rotation program,
//   - PREFIX-z.plst: the crystal translation program.
//
// The monochromator mechanics are read from a YAML file (-cfg) or from
// the condition database (-db).
// Reports are also appended to a rotated log file when -log is set.
//
// Usage: traj-gen [OPTIONS] FILE.tra
//
// Example:
//
//	$> traj-gen -cfg si220.yaml -o ./out ./cu-edge.tra
//	traj-gen: trigger: intervals=100 duration=10.000s (target=10.000s)
//	traj-gen: phi: segments=100 steps=26695 (target=26695.2014, err=-0.2014) time=9.999883s (target=10.000000s, err=-0.000117s)
//	traj-gen: z: segments=100 steps=671 (target=671.3636, err=-0.3636) time=10.040474s (target=10.000000s, err=+0.040474s)
package main // import "github.com/go-lpc/cxas/cmd/traj-gen"

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-lpc/cxas"
	"github.com/go-lpc/cxas/conddb"
	"github.com/go-lpc/cxas/motion"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	log.SetPrefix("traj-gen: ")
	log.SetFlags(0)

	err := xmain(log.Default(), os.Args[1:])
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func xmain(msg *log.Logger, args []string) error {
	var (
		fset    = flag.NewFlagSet("traj-gen", flag.ContinueOnError)
		cfgName = fset.String("cfg", "", "path to YAML monochromator configuration")
		dsn     = fset.String("db", "", "data source name of the condition database")
		crystal = fset.String("crystal", "", "crystal pair to use from the condition database (default: last installed)")
		odir    = fset.String("o", ".", "output directory")
		prefix  = fset.String("prefix", "", "prefix of output files (default: input file name)")
		logName = fset.String("log", "", "path to a rotated log file collecting scan reports")
	)

	fset.Usage = func() {
		fmt.Fprintf(fset.Output(), `traj-gen generates the command words driving an energy scan.

Usage: traj-gen [OPTIONS] FILE.tra

Example:

 $> traj-gen -cfg si220.yaml -o ./out ./cu-edge.tra
 $> traj-gen -db "user:pass@tcp(localhost:3306)/beamline" -crystal Si111 ./cu-edge.tra
 $> traj-gen -log /var/log/cxas/traj-gen.log ./cu-edge.tra

Options:
`)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		return err
	}

	if fset.NArg() != 1 {
		fset.Usage()
		return fmt.Errorf("missing path to input trajectory file")
	}

	if *logName != "" {
		rot := &lumberjack.Logger{
			Filename:   *logName,
			MaxSize:    10, // MB
			MaxAge:     90, // days
			MaxBackups: 10,
		}
		defer rot.Close()

		msg = log.New(io.MultiWriter(msg.Writer(), rot), msg.Prefix(), log.LstdFlags)
	}

	msg.Printf("%s", cxas.Banner())

	fname := fset.Arg(0)
	if *prefix == "" {
		*prefix = strings.TrimSuffix(filepath.Base(fname), filepath.Ext(fname))
	}

	cfg, err := loadConfig(msg, *cfgName, *dsn, *crystal)
	if err != nil {
		return fmt.Errorf("could not load monochromator configuration: %w", err)
	}

	return process(msg, *odir, *prefix, cfg, fname)
}

func loadConfig(msg *log.Logger, fname, dsn, crystal string) (motion.Config, error) {
	switch {
	case fname != "" && dsn != "":
		return motion.Config{}, fmt.Errorf("-cfg and -db are mutually exclusive")
	case fname != "":
		f, err := os.Open(fname)
		if err != nil {
			return motion.Config{}, err
		}
		defer f.Close()
		return motion.LoadConfig(f)
	case dsn != "":
		db, err := conddb.Open(dsn)
		if err != nil {
			return motion.Config{}, err
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if crystal == "" {
			crystal, err = db.LastCrystal(ctx)
			if err != nil {
				return motion.Config{}, err
			}
		}
		msg.Printf("crystal: %s", crystal)
		return db.Crystal(ctx, crystal)
	default:
		return motion.DefaultConfig(), nil
	}
}

func process(msg *log.Logger, odir, prefix string, cfg motion.Config, fname string) error {
	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open trajectory file: %w", err)
	}
	defer f.Close()

	tra, err := motion.ReadTrajectory(f)
	if err != nil {
		return fmt.Errorf("could not read trajectory file %q: %w", fname, err)
	}

	if n := len(tra.Waypoints); tra.Length != 0 && float64(n) != tra.Length {
		msg.Printf("trajectory header announces %v points, got %d", tra.Length, n)
	}

	var (
		grp  errgroup.Group
		trig motion.Trigger
		phi  motion.Program
		z    motion.Program
		wps  = tra.Waypoints
	)
	grp.Go(func() error {
		var err error
		trig, err = motion.NewTrigger(wps)
		if err != nil {
			return fmt.Errorf("could not compute trigger list: %w", err)
		}
		return nil
	})
	grp.Go(func() error {
		var err error
		phi, err = motion.PhiProgram(wps, cfg)
		if err != nil {
			return fmt.Errorf("could not compute phi program: %w", err)
		}
		return nil
	})
	grp.Go(func() error {
		var err error
		z, err = motion.ZProgram(wps, cfg)
		if err != nil {
			return fmt.Errorf("could not compute z program: %w", err)
		}
		return nil
	})

	err = grp.Wait()
	if err != nil {
		return err
	}

	msg.Printf(
		"trigger: intervals=%d duration=%.3fs (target=%.3fs)",
		len(trig.Intervals), trig.Duration(), wps[len(wps)-1].Time-wps[0].Time,
	)
	msg.Printf("%v", phi.Verify())
	msg.Printf("%v", z.Verify())

	err = os.MkdirAll(odir, 0755)
	if err != nil {
		return fmt.Errorf("could not create output directory: %w", err)
	}

	for _, out := range []struct {
		name  string
		words func() ([]uint32, error)
	}{
		{prefix + ".tlst", trig.Words},
		{prefix + "-phi.plst", phi.Words},
		{prefix + "-z.plst", z.Words},
	} {
		ws, err := out.words()
		if err != nil {
			return fmt.Errorf("could not encode %q: %w", out.name, err)
		}
		err = writeWords(filepath.Join(odir, out.name), ws)
		if err != nil {
			return err
		}
	}

	return nil
}

func writeWords(fname string, ws []uint32) error {
	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("could not create %q: %w", fname, err)
	}
	defer f.Close()

	err = encodeWords(f, ws)
	if err != nil {
		return fmt.Errorf("could not write %q: %w", fname, err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("could not close %q: %w", fname, err)
	}

	return nil
}

func encodeWords(w io.Writer, ws []uint32) error {
	wbuf := bufio.NewWriter(w)
	for _, v := range ws {
		_, err := fmt.Fprintf(wbuf, "%d\n", v)
		if err != nil {
			return err
		}
	}
	return wbuf.Flush()
}
