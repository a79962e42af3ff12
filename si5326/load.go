// Copyright © 2014-2020 D-TACQ Solutions Ltd. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package si5326

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Load plays a register map, as generated by the vendor's setup program,
// through the gateway: one command per line, blank lines skipped, comments
// preserved as no-ops. It stops at the first failing line and returns the
// number of lines applied along with the error annotated with its line
// number.
func (g *Gateway) Load(r io.Reader) (int, error) {
	applied := 0
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := sc.Text()
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		if err := g.Store(line); err != nil {
			return applied, fmt.Errorf("line %d: %w", n, err)
		}
		applied++
	}
	if err := sc.Err(); err != nil {
		return applied, err
	}
	return applied, nil
}
