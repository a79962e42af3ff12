// Copyright © 2014-2020 D-TACQ Solutions Ltd. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Si5326 clock synthesizer tools for D-TACQ carriers: a one-shot register
// cli and the gateway daemon, run as commands of a single binary.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/D-TACQ/SI5326"
	"github.com/D-TACQ/SI5326/cmd"
	si5326cmd "github.com/D-TACQ/SI5326/cmd/si5326"
	"github.com/D-TACQ/SI5326/cmd/si5326d"
	"github.com/D-TACQ/SI5326/lang"
)

func main() {
	g := &goes.Goes{
		Name: "si5326",
		APROPOS: lang.Alt{
			lang.EnUS: "si5326 clock synthesizer tools",
		},
		ByName: map[string]cmd.Cmd{},
	}
	g.Plot(si5326cmd.Command{}, &si5326d.Command{})

	args := os.Args[1:]
	// busybox style: a si5326d link or rename runs the daemon directly
	if name := filepath.Base(os.Args[0]); name != g.Name {
		if _, found := g.ByName[name]; found {
			args = append([]string{name}, args...)
		}
	}
	if err := g.Main(args...); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", g.Name, err)
		os.Exit(1)
	}
}
