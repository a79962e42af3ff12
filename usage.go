// Copyright © 2014-2020 D-TACQ Solutions Ltd. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package goes

import (
	"fmt"
	"strings"
)

func Usage(v Usager) string {
	return fmt.Sprint("usage:\t", strings.TrimSpace(v.Usage()))
}

type Usager interface {
	Usage() string
}

func (g *Goes) Usage() string {
	usage := g.USAGE
	if len(usage) == 0 {
		usage = `
	` + g.Name + ` COMMAND [ ARGS ]...
	` + g.Name + ` COMMAND -[-]HELPER [ ARGS ]...
	` + g.Name + ` HELPER [ COMMAND ] [ ARGS ]...

	HELPER := { apropos | help | usage }`
	}
	return usage
}

func (g *Goes) usage(args ...string) error {
	var u Usager = g
	if len(args) > 0 {
		u = g.ByName[args[0]]
		if u == nil {
			return fmt.Errorf("%s: not found", args[0])
		}
	}
	fmt.Println(Usage(u))
	return nil
}
