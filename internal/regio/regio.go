// Copyright © 2014-2020 D-TACQ Solutions Ltd. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package regio provides single register read/write transactions against an
// addressable i2c device. Register contents are not interpreted here.
package regio

import (
	"fmt"

	"github.com/platinasystems/i2c"
)

// Dev identifies one chip instance on an i2c bus.
type Dev struct {
	Bus  int
	Addr int
}

// String returns the linux i2c device name, e.g. "0-0068".
func (d *Dev) String() string { return fmt.Sprintf("%d-%04x", d.Bus, d.Addr) }

func (d *Dev) do(rw i2c.RW, reg uint8, data *i2c.SMBusData) (err error) {
	var bus i2c.Bus

	err = bus.Open(d.Bus)
	if err != nil {
		return
	}
	defer bus.Close()

	err = bus.ForceSlaveAddress(d.Addr)
	if err != nil {
		return
	}

	err = bus.Do(rw, reg, i2c.ByteData, data)
	return
}

// ReadByte issues a single byte-data read transaction at reg.
func (d *Dev) ReadByte(reg uint8) (byte, error) {
	var data i2c.SMBusData
	if err := d.do(i2c.Read, reg, &data); err != nil {
		return 0, err
	}
	return byte(data[0]), nil
}

// WriteByte issues a single byte-data write transaction at reg.
func (d *Dev) WriteByte(reg uint8, value byte) error {
	var data i2c.SMBusData
	data[0] = value
	return d.do(i2c.Write, reg, &data)
}
