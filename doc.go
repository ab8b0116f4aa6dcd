// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cxas holds code to decode detector and FPGA buffers of an
// energy-scanning beamline and to synthesize the motion programs that
// drive its monochromator.
package cxas // import "github.com/go-lpc/cxas"

import (
	"runtime/debug"
)

const modPath = "github.com/go-lpc/cxas"

// Version returns the version of cxas and its checksum.
// The returned values are only valid in binaries built with module support.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	return versionOf(b)
}

// Banner returns a one-line identification of the cxas build, suitable
// for run logs and file headers.
func Banner() string {
	vers, _ := Version()
	return banner(vers)
}

func banner(vers string) string {
	if vers == "" {
		vers = "(devel)"
	}
	return "cxas " + vers
}

func versionOf(b *debug.BuildInfo) (version, sum string) {
	if b == nil {
		return "", ""
	}

	// tools under cmd/ are built as part of the main module.
	if b.Main.Path == modPath {
		return versionFrom(&b.Main)
	}

	for _, m := range b.Deps {
		if m.Path == modPath {
			return versionFrom(m)
		}
	}
	return "", ""
}

func versionFrom(m *debug.Module) (version, sum string) {
	r := m.Replace
	switch {
	case r == nil:
		return m.Version, m.Sum
	case r.Version != "" && r.Path != "":
		return r.Path + " " + r.Version, r.Sum
	case r.Version != "":
		return r.Version, r.Sum
	case r.Path != "":
		return r.Path, r.Sum
	default:
		return m.Version + "*", ""
	}
}
