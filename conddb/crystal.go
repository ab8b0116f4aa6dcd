// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package conddb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-lpc/cxas/motion"
)

// Crystal describes a monochromator crystal pair.
type Crystal struct {
	Name   string        `json:"name"`
	Date   time.Time     `json:"datetime"`
	Config motion.Config `json:"config"`
}

// Crystal returns the latest mechanics configuration of the named
// crystal pair.
func (db *DB) Crystal(ctx context.Context, name string) (motion.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		cfg   motion.Config
		found = false
	)
	rows, err := db.db.QueryContext(
		ctx,
		`
SELECT d_spacing, gap, phi_res, z_res FROM crystals
WHERE name=?
ORDER BY datetime DESC LIMIT 1
`,
		name,
	)
	if err != nil {
		return cfg, fmt.Errorf("conddb: could not run crystal %q query: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		err = rows.Scan(&cfg.DSpacing, &cfg.Gap, &cfg.PhiRes, &cfg.ZRes)
		if err != nil {
			return cfg, fmt.Errorf("conddb: could not scan crystal %q: %w", name, err)
		}
		found = true
	}

	if err := rows.Err(); err != nil {
		return cfg, fmt.Errorf("conddb: could not scan db for crystal %q: %w", name, err)
	}

	if err := ctx.Err(); err != nil {
		return cfg, fmt.Errorf("conddb: context error while retrieving crystal %q: %w", name, err)
	}

	if !found {
		return cfg, fmt.Errorf("conddb: no crystal %q: %w", name, sql.ErrNoRows)
	}

	err = cfg.Validate()
	if err != nil {
		return cfg, fmt.Errorf("conddb: invalid crystal %q: %w", name, err)
	}

	return cfg, nil
}

// Crystals returns all the crystal configurations, most recent first.
func (db *DB) Crystals(ctx context.Context) ([]Crystal, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var xtals []Crystal
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT name, datetime, d_spacing, gap, phi_res, z_res FROM crystals ORDER BY datetime DESC",
	)
	if err != nil {
		return xtals, fmt.Errorf("conddb: could not run crystals query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var xtal Crystal
		err = rows.Scan(
			&xtal.Name, &xtal.Date,
			&xtal.Config.DSpacing, &xtal.Config.Gap,
			&xtal.Config.PhiRes, &xtal.Config.ZRes,
		)
		if err != nil {
			return xtals, fmt.Errorf("conddb: could not scan crystals: %w", err)
		}
		xtals = append(xtals, xtal)
	}

	if err := rows.Err(); err != nil {
		return xtals, fmt.Errorf("conddb: could not scan db for crystals: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return xtals, fmt.Errorf("conddb: context error while retrieving crystals: %w", err)
	}

	return xtals, nil
}
