// Copyright © 2014-2020 D-TACQ Solutions Ltd. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package si5326

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

var errNak = errors.New("i2c: no ack")

type busOp struct {
	write bool
	reg   uint8
	value byte
}

// fakeBus simulates one chip holding its reset values. It records every
// transaction, fails selected registers on demand, and flags overlapping
// transactions against the same device.
type fakeBus struct {
	t      *testing.T
	regs   [256]byte
	failAt map[uint8]error
	ops    []busOp
	inUse  int32
}

func newFakeBus(t *testing.T) *fakeBus {
	b := &fakeBus{t: t, failAt: make(map[uint8]error)}
	copy(b.regs[:], ResetValues[:])
	return b
}

func (b *fakeBus) enter() {
	if atomic.AddInt32(&b.inUse, 1) != 1 {
		b.t.Error("overlapping transactions on one device")
	}
}

func (b *fakeBus) exit() { atomic.AddInt32(&b.inUse, -1) }

func (b *fakeBus) ReadByte(reg uint8) (byte, error) {
	b.enter()
	defer b.exit()
	b.ops = append(b.ops, busOp{reg: reg})
	if err, found := b.failAt[reg]; found {
		return 0, err
	}
	return b.regs[reg], nil
}

func (b *fakeBus) WriteByte(reg uint8, value byte) error {
	b.enter()
	defer b.exit()
	b.ops = append(b.ops, busOp{write: true, reg: reg, value: value})
	if err, found := b.failAt[reg]; found {
		return err
	}
	b.regs[reg] = value
	return nil
}

func (b *fakeBus) reads() (n int) {
	for _, op := range b.ops {
		if !op.write {
			n++
		}
	}
	return
}

func (b *fakeBus) writes() (n int) {
	for _, op := range b.ops {
		if op.write {
			n++
		}
	}
	return
}

func TestValidate(t *testing.T) {
	b := newFakeBus(t)
	g := New(b)
	if err := g.Validate(); err != nil {
		t.Fatal(err)
	}
	if n := b.reads(); n != len(ResetValues) {
		t.Errorf("got %d reads, want %d", n, len(ResetValues))
	}
}

func TestValidateMismatch(t *testing.T) {
	b := newFakeBus(t)
	b.regs[1] = 0xff
	b.regs[3] = 0x00
	g := New(b)

	err := g.Validate()
	var me *MismatchError
	if !errors.As(err, &me) {
		t.Fatalf("got %v, want MismatchError", err)
	}
	want := []Mismatch{
		{Reg: 1, Got: 0xff, Want: 0xe4},
		{Reg: 3, Got: 0x00, Want: 0x05},
	}
	if len(me.Regs) != len(want) {
		t.Fatalf("got mismatches %v, want %v", me.Regs, want)
	}
	for i, m := range me.Regs {
		if m != want[i] {
			t.Errorf("mismatch %d: got %+v, want %+v", i, m, want[i])
		}
	}
	// every register checked despite the first mismatch
	if n := b.reads(); n != len(ResetValues) {
		t.Errorf("got %d reads, want %d", n, len(ResetValues))
	}
}

func TestValidateReadFault(t *testing.T) {
	b := newFakeBus(t)
	b.failAt[2] = errNak
	g := New(b)

	if err := g.Validate(); !errors.Is(err, errNak) {
		t.Fatalf("got %v, want %v", err, errNak)
	}
	// aborted at the failing register; reg 3 never attempted
	if n := b.reads(); n != 3 {
		t.Errorf("got %d reads, want 3", n)
	}
}

func TestComment(t *testing.T) {
	b := newFakeBus(t)
	g := New(b)
	for _, line := range []string{"#ignore me", "#", "# 7 0x1a"} {
		if err := g.Store(line); err != nil {
			t.Errorf("%q: %v", line, err)
		}
	}
	if len(b.ops) != 0 {
		t.Errorf("comments cost %d transactions", len(b.ops))
	}
}

func TestWrite(t *testing.T) {
	b := newFakeBus(t)
	g := New(b)
	if err := g.Store("3"); err != nil {
		t.Fatal(err)
	}
	if err := g.Store("7 0x1a"); err != nil {
		t.Fatal(err)
	}
	if n := b.writes(); n != 1 {
		t.Fatalf("got %d writes, want 1", n)
	}
	if op := b.ops[0]; !op.write || op.reg != 7 || op.value != 0x1a {
		t.Fatalf("got %+v, want write reg 7 value 1a", op)
	}
	// the write must not move the cursor off register 3
	s, err := g.Show()
	if err != nil {
		t.Fatal(err)
	}
	if s != "03 05" {
		t.Errorf("got %q, want %q", s, "03 05")
	}
}

func TestWriteLeavesCursorUnset(t *testing.T) {
	b := newFakeBus(t)
	g := New(b)
	if err := g.Store("7 0x1a"); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Show(); !errors.Is(err, ErrNoAddr) {
		t.Fatalf("got %v, want %v", err, ErrNoAddr)
	}
}

func TestSelect(t *testing.T) {
	b := newFakeBus(t)
	b.regs[7] = 0xab
	g := New(b)
	if err := g.Store("7"); err != nil {
		t.Fatal(err)
	}
	if len(b.ops) != 0 {
		t.Fatalf("select cost %d transactions", len(b.ops))
	}
	s, err := g.Show()
	if err != nil {
		t.Fatal(err)
	}
	if s != "07 ab" {
		t.Errorf("got %q, want %q", s, "07 ab")
	}
	if n := b.reads(); n != 1 {
		t.Errorf("got %d reads, want 1", n)
	}
	if op := b.ops[0]; op.write || op.reg != 7 {
		t.Errorf("got %+v, want read reg 7", op)
	}
}

func TestStoreMalformed(t *testing.T) {
	for _, line := range []string{
		"",
		"   ",
		" # not a comment",
		"7 26", // value must carry the 0x prefix
		"7 0X26",
		"0x7",
		"0x7 0x26",
		"abc",
		"7 0xzz",
		"7 0x",
		"-1",
		"256",
		"7 0x100",
		"7 0x1a 9",
	} {
		b := newFakeBus(t)
		g := New(b)
		if err := g.Store(line); !errors.Is(err, ErrCommand) {
			t.Errorf("%q: got %v, want %v", line, err, ErrCommand)
		}
		if len(b.ops) != 0 {
			t.Errorf("%q: cost %d transactions", line, len(b.ops))
		}
		if _, err := g.Show(); !errors.Is(err, ErrNoAddr) {
			t.Errorf("%q: moved the cursor", line)
		}
	}
}

func TestShowBeforeSelect(t *testing.T) {
	b := newFakeBus(t)
	g := New(b)
	if _, err := g.Show(); !errors.Is(err, ErrNoAddr) {
		t.Fatalf("got %v, want %v", err, ErrNoAddr)
	}
	if len(b.ops) != 0 {
		t.Errorf("cost %d transactions", len(b.ops))
	}
}

func TestShowReadFault(t *testing.T) {
	b := newFakeBus(t)
	b.failAt[9] = errNak
	g := New(b)
	if err := g.Store("9"); err != nil {
		t.Fatal(err)
	}
	if s, err := g.Show(); !errors.Is(err, errNak) || s != "" {
		t.Fatalf("got %q, %v; want \"\", %v", s, err, errNak)
	}
}

func TestRoundTrip(t *testing.T) {
	b := newFakeBus(t)
	g := New(b)
	if err := g.Store("3 0x2a"); err != nil {
		t.Fatal(err)
	}
	if err := g.Store("3"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		s, err := g.Show()
		if err != nil {
			t.Fatal(err)
		}
		if s != "03 2a" {
			t.Fatalf("got %q, want %q", s, "03 2a")
		}
	}
}

func TestIndependentGateways(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		b := newFakeBus(t)
		g := New(b)
		// two writers per device; the fake flags any overlap
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for n := 0; n < 100; n++ {
					if err := g.Store("7 0x1a"); err != nil {
						t.Error(err)
					}
					if err := g.Store("7"); err != nil {
						t.Error(err)
					}
					if _, err := g.Show(); err != nil {
						t.Error(err)
					}
				}
			}()
		}
	}
	wg.Wait()
}

func TestLoad(t *testing.T) {
	b := newFakeBus(t)
	g := New(b)
	m := `# vendor generated map
2 0x42

3 0x2a
7
`
	applied, err := g.Load(strings.NewReader(m))
	if err != nil {
		t.Fatal(err)
	}
	if applied != 4 {
		t.Errorf("got %d lines applied, want 4", applied)
	}
	if b.regs[2] != 0x42 || b.regs[3] != 0x2a {
		t.Errorf("got regs 2,3 = %02x,%02x; want 42,2a",
			b.regs[2], b.regs[3])
	}
	if s, _ := g.Show(); s != "07 00" {
		t.Errorf("got %q, want %q", s, "07 00")
	}
}

func TestLoadBadLine(t *testing.T) {
	b := newFakeBus(t)
	g := New(b)
	m := "2 0x42\nbogus line\n3 0x2a\n"
	applied, err := g.Load(strings.NewReader(m))
	if !errors.Is(err, ErrCommand) {
		t.Fatalf("got %v, want %v", err, ErrCommand)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("got %q, want the failing line number", err)
	}
	if applied != 1 {
		t.Errorf("got %d lines applied, want 1", applied)
	}
	if b.regs[3] == 0x2a {
		t.Error("kept going after the failing line")
	}
}
