// Copyright © 2014-2020 D-TACQ Solutions Ltd. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package fdtclk locates si5326 instances in the flattened device tree.
package fdtclk

import (
	"fmt"
	"io/ioutil"
	"strconv"
	"strings"

	"github.com/platinasystems/fdt"
)

const (
	// Compatible is the description-based discovery string.
	Compatible = "si,si5326"
	// DefaultFile is where the machine's dtb is found.
	DefaultFile = "/boot/linux.dtb"
)

// Device is one si5326 instance: the controller bus index from the i2cN
// alias and the slave address from the node's unit address.
type Device struct {
	Name string
	Bus  int
	Addr int
}

// Gather parses the dtb and returns every child of an aliased i2c
// controller whose compatible property names the si5326. No bus traffic
// occurs; the device is not probed here.
func Gather(file string) ([]Device, error) {
	b, err := ioutil.ReadFile(file)
	if err != nil {
		return nil, err
	}
	t := &fdt.Tree{Debug: false, IsLittleEndian: false}
	t.Parse(b)

	// i2c controller node name -> bus index, from /aliases
	buses := make(map[string]int)
	t.MatchNode("aliases", func(n *fdt.Node) {
		for p, pn := range n.Properties {
			if !strings.HasPrefix(p, "i2c") {
				continue
			}
			i, err := strconv.Atoi(strings.TrimPrefix(p, "i2c"))
			if err != nil {
				continue
			}
			val := strings.Split(string(pn), "\x00")
			v := strings.Split(val[0], "/")
			buses[v[len(v)-1]] = i
		}
	})

	var devs []Device
	for name, bus := range buses {
		bus := bus
		t.MatchNode(name, func(n *fdt.Node) {
			for _, c := range n.Children {
				compat, found := c.Properties["compatible"]
				if !found {
					continue
				}
				if !strings.Contains(string(compat), Compatible) {
					continue
				}
				addr, err := UnitAddr(c.Name)
				if err != nil {
					continue
				}
				devs = append(devs, Device{
					Name: c.Name,
					Bus:  bus,
					Addr: addr,
				})
			}
		})
	}
	return devs, nil
}

// UnitAddr parses the hex unit address from a node name, e.g.
// "si5326@68" -> 0x68.
func UnitAddr(name string) (int, error) {
	i := strings.LastIndex(name, "@")
	if i < 0 {
		return 0, fmt.Errorf("%s: no unit address", name)
	}
	// i2c slave addresses are at most 10 bits (extended addressing)
	addr, err := strconv.ParseUint(name[i+1:], 16, 10)
	if err != nil {
		return 0, fmt.Errorf("%s: %v", name, err)
	}
	return int(addr), nil
}
