// Copyright © 2014-2020 D-TACQ Solutions Ltd. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package si5326 provides a cli command for one-shot access to an si5326
// register gateway, bypassing the daemon.
package si5326

import (
	"fmt"
	"os"

	"github.com/D-TACQ/SI5326/internal/regio"
	"github.com/D-TACQ/SI5326/lang"
	chip "github.com/D-TACQ/SI5326/si5326"
	"github.com/platinasystems/flags"
	"github.com/platinasystems/parms"
)

type Command struct{}

func (Command) String() string { return "si5326" }

func (Command) Usage() string {
	return "si5326 [-probe] [-f FILE] BUS.ADDR [COMMAND]..."
}

func (Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "read/write si5326 registers",
	}
}

func (Command) Man() lang.Alt {
	return lang.Alt{
		lang.EnUS: `
DESCRIPTION
	Access the register gateway of the si5326 at hex BUS.ADDR.

	-probe	verify the chip holds its documented reset values
	-f FILE	play a vendor generated register map through the gateway

	Each remaining COMMAND is one gateway line:

	'ADDR 0xVALUE'	write VALUE to decimal register ADDR
	'ADDR'		select decimal register ADDR for readback
	'#...'		ignored

	If a register is selected when the commands are done, its
	'ADDR VALUE' readback pair is printed in hex.

EXAMPLES
	si5326 -probe 0.68
	si5326 -f plan.map 0.68
	si5326 0.68 '2 0x42' '2'`,
	}
}

func (c Command) Main(arg ...string) error {
	flag, arg := flags.New(arg, "-probe")
	parm, arg := parms.New(arg, "-f")

	if len(arg) == 0 {
		return fmt.Errorf("BUS.ADDR: missing")
	}
	var b, a uint8
	if _, err := fmt.Sscanf(arg[0], "%x.%x", &b, &a); err != nil {
		return fmt.Errorf("%s: invalid BUS.ADDR: %v", arg[0], err)
	}
	arg = arg[1:]

	dev := &regio.Dev{Bus: int(b), Addr: int(a)}
	g := chip.New(dev)

	if flag.ByName["-probe"] {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("%s: %v", dev, err)
		}
		fmt.Printf("%s: si5326 found with reset values in first %d regs\n",
			dev, len(chip.ResetValues))
	}

	if fn := parm.ByName["-f"]; len(fn) > 0 {
		f, err := os.Open(fn)
		if err != nil {
			return err
		}
		defer f.Close()
		applied, err := g.Load(f)
		if err != nil {
			return fmt.Errorf("%s: %v", fn, err)
		}
		fmt.Println(fn, ":", applied, "lines applied")
	}

	for _, line := range arg {
		if err := g.Store(line); err != nil {
			return err
		}
	}

	s, err := g.Show()
	if err == chip.ErrNoAddr {
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Println(s)
	return nil
}
