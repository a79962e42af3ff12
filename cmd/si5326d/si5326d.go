// Copyright © 2014-2020 D-TACQ Solutions Ltd. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package si5326d provides the si5326 register gateway daemon. It is the
// goes rendition of the driver's sysfs hook: each attached chip gets a
// redis hash field, si5326.BUS-ADDR.reg, whose Hset carries the command
// grammar and whose published value is the "ADDR VALUE" readback of the
// selected register.
package si5326d

import (
	"fmt"
	"net/rpc"
	"strings"
	"sync"
	"time"

	"github.com/D-TACQ/SI5326/cmd"
	"github.com/D-TACQ/SI5326/internal/fdtclk"
	"github.com/D-TACQ/SI5326/internal/regio"
	"github.com/D-TACQ/SI5326/lang"
	"github.com/D-TACQ/SI5326/si5326"
	"github.com/platinasystems/atsock"
	"github.com/platinasystems/gpio"
	"github.com/platinasystems/log"
	"github.com/platinasystems/redis"
	"github.com/platinasystems/redis/publisher"
	"github.com/platinasystems/redis/rpc/args"
	"github.com/platinasystems/redis/rpc/reply"
)

var (
	pollInterval time.Duration = 5

	// Vdev lists the chips to attach. A machine's Init hook may assign
	// it; left empty, Main discovers devices from the dtb.
	Vdev []regio.Dev

	// DtbFile may be reassigned before Main for non-standard layouts.
	DtbFile = fdtclk.DefaultFile

	// ResetPin names an optional gpio wired to the chip's reset input.
	// When the machine defines it, Main pulses it before validation so
	// the reset signature probe sees post-reset register contents.
	ResetPin = "SI5326_RST_L"
)

type Command struct {
	Info
	Init func()
	init sync.Once
}

type Info struct {
	mutex    sync.Mutex
	rpc      *atsock.RpcServer
	pub      *publisher.Publisher
	stop     chan struct{}
	gateways map[string]*si5326.Gateway
	lasts    map[string]string
}

func (*Command) String() string { return "si5326d" }

func (*Command) Usage() string { return "si5326d" }

func (*Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "si5326 clock synthesizer register gateway daemon",
	}
}

func (*Command) Kind() cmd.Kind { return cmd.Daemon }

func (c *Command) Main(...string) error {
	if c.Init != nil {
		c.init.Do(c.Init)
	}

	err := redis.IsReady()
	if err != nil {
		return err
	}

	devs := Vdev
	if len(devs) == 0 {
		found, err := fdtclk.Gather(DtbFile)
		if err != nil {
			return err
		}
		for _, f := range found {
			devs = append(devs, regio.Dev{Bus: f.Bus, Addr: f.Addr})
		}
	}
	if len(devs) == 0 {
		return fmt.Errorf("no si5326 devices")
	}

	resetChips()

	c.gateways = make(map[string]*si5326.Gateway)
	c.lasts = make(map[string]string)
	for i := range devs {
		dev := &devs[i]
		g := si5326.New(dev)
		if err = g.Validate(); err != nil {
			// the chip stays unregistered; no field is exposed
			log.Print(dev, ": ", err)
			continue
		}
		log.Print(dev, ": si5326 found with reset values in first ",
			len(si5326.ResetValues), " regs")
		c.gateways[field(dev)] = g
	}
	if len(c.gateways) == 0 {
		return fmt.Errorf("no si5326 recognized")
	}

	c.stop = make(chan struct{})

	if c.pub, err = publisher.New(); err != nil {
		return err
	}

	if c.rpc, err = atsock.NewRpcServer("si5326d"); err != nil {
		return err
	}
	rpc.Register(&c.Info)
	if err = redis.Assign(redis.DefaultHash+":si5326.", "si5326d",
		"Info"); err != nil {
		return err
	}

	t := time.NewTicker(pollInterval * time.Second)
	defer t.Stop()
	for {
		select {
		case <-c.stop:
			return nil
		case <-t.C:
			c.update()
		}
	}
}

func (c *Command) Close() error {
	close(c.stop)
	return nil
}

func (c *Command) update() {
	c.Info.mutex.Lock()
	defer c.Info.mutex.Unlock()

	for k, g := range c.gateways {
		c.Info.show(k, g)
	}
}

// Hset carries one command line to the addressed gateway. A fresh readback
// is published after any successful command once a register is selected.
func (i *Info) Hset(a args.Hset, r *reply.Hset) error {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	g, found := i.gateways[a.Field]
	if !found {
		return fmt.Errorf("don't know how to set %s", a.Field)
	}
	line := strings.TrimRight(string(a.Value), "\n")
	if err := g.Store(line); err != nil {
		return err
	}
	i.show(a.Field, g)
	*r = 1
	return nil
}

func (i *Info) show(key string, g *si5326.Gateway) {
	s, err := g.Show()
	if err != nil {
		if err != si5326.ErrNoAddr {
			log.Print(key, ": ", err)
		}
		return
	}
	if s != i.lasts[key] {
		i.pub.Print(key, ": ", s)
		i.lasts[key] = s
	}
}

func field(dev *regio.Dev) string {
	return fmt.Sprint("si5326.", dev, ".reg")
}

func resetChips() {
	pin, found := gpio.FindPin(ResetPin)
	if !found {
		return
	}
	pin.SetValue(false)
	time.Sleep(time.Millisecond)
	pin.SetValue(true)
	// allow the part to complete power-on reset before probing
	time.Sleep(10 * time.Millisecond)
}
