// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command cxas-sql inspects the crystal parameters stored in the
// condition database.
//
// The database password is read from the CXAS_DB_PASSWORD environment
// variable.
package main // import "github.com/go-lpc/cxas/cmd/cxas-sql"

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-lpc/cxas/conddb"
)

var open = conddb.Open

func main() {
	log.SetPrefix("cxas-sql: ")
	log.SetFlags(0)

	err := xmain(log.Default(), os.Args[1:])
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func xmain(msg *log.Logger, args []string) error {
	var (
		fset = flag.NewFlagSet("cxas-sql", flag.ContinueOnError)

		usr     = fset.String("u", "cxas", "database user")
		addr    = fset.String("addr", "localhost:3306", "database address")
		dbname  = fset.String("db", "beamline", "database name")
		crystal = fset.String("crystal", "", "crystal pair to inspect (default: last installed)")
		all     = fset.Bool("all", false, "list all crystal pairs")
	)

	err := fset.Parse(args)
	if err != nil {
		return fmt.Errorf("could not parse input arguments: %w", err)
	}

	dsn := conddb.DSN(*usr, os.Getenv("CXAS_DB_PASSWORD"), *addr, *dbname)
	db, err := open(dsn)
	if err != nil {
		return fmt.Errorf("could not open condition db: %w", err)
	}
	defer db.Close()

	err = doQuery(msg, db, *crystal, *all)
	if err != nil {
		return fmt.Errorf("could not do query: %w", err)
	}
	return nil
}

func doQuery(msg *log.Logger, db *conddb.DB, crystal string, all bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if all {
		xtals, err := db.Crystals(ctx)
		if err != nil {
			return fmt.Errorf("could not retrieve crystals: %w", err)
		}
		msg.Printf("crystals: %d", len(xtals))
		for i, xtal := range xtals {
			msg.Printf("row[%d]: %s (%s) %+v", i, xtal.Name, xtal.Date.Format(time.RFC3339), xtal.Config)
		}
		return nil
	}

	if crystal == "" {
		v, err := db.LastCrystal(ctx)
		if err != nil {
			return fmt.Errorf("could not get last crystal value: %w", err)
		}
		crystal = v
	}
	msg.Printf("crystal: %q", crystal)

	cfg, err := db.Crystal(ctx, crystal)
	if err != nil {
		return fmt.Errorf("could not get crystal %q: %w", crystal, err)
	}
	msg.Printf("d-spacing: %g m", cfg.DSpacing)
	msg.Printf("gap:       %g mm", cfg.Gap)
	msg.Printf("phi-res:   %g steps/deg", cfg.PhiRes)
	msg.Printf("z-res:     %g steps/mm", cfg.ZRes)

	return nil
}
