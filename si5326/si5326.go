// Copyright © 2014-2020 D-TACQ Solutions Ltd. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package si5326 provides uninterpreted register access to the Silicon Labs
// Si5326 clock multiplier/jitter attenuator.
//
// This package claims no knowledge of how the chip works. The vendor's setup
// program generates a register/value map for a given frequency plan; the
// Gateway is the hook that plays such a map out to the device and reads
// registers back:
//
//	7 0x1a		write 0x1a to register 7
//	7		select register 7 for the next readback
//	#...		comment
//
// A readback reports "ADDR VALUE" with both bytes in hex.
package si5326

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// ResetValues is the documented content of registers 0-3 immediately after
// power-on reset. The chip has no id register reachable through byte
// transactions, so these are the cheapest available identity signal.
var ResetValues = [4]byte{0x14, 0xe4, 0x42, 0x05}

// ByteBus is the register transport: one bus transaction per call.
type ByteBus interface {
	ReadByte(reg uint8) (byte, error)
	WriteByte(reg uint8, value byte) error
}

var (
	// ErrCommand reports input that matches no command form.
	ErrCommand = errors.New("invalid command")
	// ErrNoAddr reports a readback before any register was selected.
	ErrNoAddr = errors.New("no register selected")
)

// Mismatch is one register that did not hold its reset value.
type Mismatch struct {
	Reg  int
	Got  byte
	Want byte
}

// MismatchError reports every register that failed the reset value check,
// not just the first. The chip responded, but is either already configured
// or not an si5326.
type MismatchError struct {
	Regs []Mismatch
}

func (e *MismatchError) Error() string {
	s := "not an si5326 in reset state:"
	for _, m := range e.Regs {
		s += fmt.Sprintf(" reg[%d] %02x not %02x", m.Reg, m.Got, m.Want)
	}
	return s
}

// Gateway owns the register access state for one device: the most recently
// selected address and a guard serializing commands. Commands against
// different Gateways are independent.
type Gateway struct {
	bus   ByteBus
	mutex sync.Mutex

	// lastAddr is mutated only by a single token command while holding
	// mutex; -1 until the first select.
	lastAddr int
}

func New(bus ByteBus) *Gateway {
	return &Gateway{bus: bus, lastAddr: -1}
}

// Validate reads registers 0-3 and compares them against ResetValues.
// A failed read aborts immediately with the transport error; a value
// mismatch is recorded and the check continues, so the returned
// *MismatchError identifies every differing register.
func (g *Gateway) Validate() error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	var bad []Mismatch
	for i, want := range ResetValues {
		got, err := g.bus.ReadByte(uint8(i))
		if err != nil {
			return fmt.Errorf("read reg %d: %w", i, err)
		}
		if got != want {
			bad = append(bad, Mismatch{Reg: i, Got: got, Want: want})
		}
	}
	if len(bad) > 0 {
		return &MismatchError{Regs: bad}
	}
	return nil
}

// Store applies one command line. The forms are tried in order:
// comment, then ADDR VALUE write, then ADDR select. The address token is
// decimal and the value token must carry an explicit 0x prefix; a two token
// line with an unprefixed value is an error here, where the original C
// driver's sscanf would have fallen back to selecting the address.
// A write does not move lastAddr.
func (g *Gateway) Store(line string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if strings.HasPrefix(line, "#") {
		return nil
	}
	fields := strings.Fields(strings.TrimRight(line, "\n"))
	switch len(fields) {
	case 2:
		addr, err := parseAddr(fields[0])
		if err != nil {
			return fmt.Errorf("%q: %w", line, ErrCommand)
		}
		value, err := parseValue(fields[1])
		if err != nil {
			return fmt.Errorf("%q: %w", line, ErrCommand)
		}
		return g.bus.WriteByte(addr, value)
	case 1:
		addr, err := parseAddr(fields[0])
		if err != nil {
			return fmt.Errorf("%q: %w", line, ErrCommand)
		}
		g.lastAddr = int(addr)
		return nil
	}
	return fmt.Errorf("%q: %w", line, ErrCommand)
}

// Show reads the register at the selected address and reports the
// "ADDR VALUE" pair in hex. A transport failure is returned as is;
// nothing is reported.
func (g *Gateway) Show() (string, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.lastAddr < 0 {
		return "", ErrNoAddr
	}
	value, err := g.bus.ReadByte(uint8(g.lastAddr))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02x %02x", g.lastAddr, value), nil
}

func parseAddr(s string) (uint8, error) {
	addr, err := strconv.ParseUint(s, 10, 8)
	return uint8(addr), err
}

func parseValue(s string) (byte, error) {
	if !strings.HasPrefix(s, "0x") {
		return 0, ErrCommand
	}
	value, err := strconv.ParseUint(s[2:], 16, 8)
	return byte(value), err
}
