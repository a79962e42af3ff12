// Copyright © 2014-2020 D-TACQ Solutions Ltd. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package goes provides a slim command multiplexer for the si5326 tools,
// fashioned after the goes embedded system shell.
package goes

import (
	"fmt"
	"sort"

	"github.com/D-TACQ/SI5326/cmd"
	"github.com/D-TACQ/SI5326/lang"
)

type Goes struct {
	Name    string
	USAGE   string
	APROPOS lang.Alt
	ByName  map[string]cmd.Cmd

	names []string
}

func (g *Goes) String() string { return g.Name }

// Names returns the sorted list of plotted commands.
func (g *Goes) Names() []string {
	if g.names == nil {
		g.names = make([]string, 0, len(g.ByName))
		for name := range g.ByName {
			g.names = append(g.names, name)
		}
		sort.Strings(g.names)
	}
	return g.names
}

// Plot adds commands to the ByName index.
func (g *Goes) Plot(cmds ...cmd.Cmd) {
	if g.ByName == nil {
		g.ByName = make(map[string]cmd.Cmd)
	}
	for _, v := range cmds {
		g.ByName[v.String()] = v
	}
	g.names = nil
}

// Main runs the command named by args[0]. Hyphen prefaced helper flags are
// swapped with the command, so `COMMAND -help` becomes `help COMMAND`.
// Daemons run in the calling process; the host init system supervises them.
func (g *Goes) Main(args ...string) error {
	if len(args) == 0 {
		return g.usage()
	}
	cmd.Swap(args)
	switch args[0] {
	case "apropos":
		return g.apropos(args[1:]...)
	case "help":
		return g.help(args[1:]...)
	case "usage":
		return g.usage(args[1:]...)
	}
	v, found := g.ByName[args[0]]
	if !found {
		return fmt.Errorf("%s: command not found", args[0])
	}
	return v.Main(args[1:]...)
}
