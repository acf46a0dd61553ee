// Package regclient speaks the supply register protocol as a bus controller.
// A host board or a bench probe uses it to read and drive a power plane over
// I2C.
package regclient

import (
	"tinygo.org/x/drivers"

	"powerctl-go/errcode"
	"powerctl-go/internal/control"
	"powerctl-go/internal/supply"
)

type Client struct {
	bus  drivers.I2C
	addr uint16
	rx   [1]byte
}

func New(bus drivers.I2C, addr uint16) *Client {
	return &Client{bus: bus, addr: addr}
}

// Status selects id and reads back its status byte.
func (c *Client) Status(id supply.ID) (control.Status, error) {
	if !id.Valid() {
		return control.StatusInvalid, errcode.UnknownSupply
	}
	if err := c.bus.Tx(c.addr, []byte{byte(id)}, c.rx[:]); err != nil {
		return control.StatusInvalid, errcode.Wrap(errcode.HardwareFault, "regclient status", err)
	}
	st := control.Status(c.rx[0])
	if st.Invalid() {
		return st, errcode.UnknownSupply
	}
	return st, nil
}

// SetEnabled requests id on or off. Only bit 0 of the data byte is used by
// the target.
func (c *Client) SetEnabled(id supply.ID, on bool) error {
	if !id.Valid() {
		return errcode.UnknownSupply
	}
	var data byte
	if on {
		data = byte(control.BitRequested)
	}
	if err := c.bus.Tx(c.addr, []byte{byte(id), data}, nil); err != nil {
		return errcode.Wrap(errcode.HardwareFault, "regclient set", err)
	}
	return nil
}

// Scan reads every supply in id order. It stops at the first bus error.
func (c *Client) Scan() ([supply.Count]control.Status, error) {
	var out [supply.Count]control.Status
	for i, id := range supply.All() {
		st, err := c.Status(id)
		if err != nil {
			return out, err
		}
		out[i] = st
	}
	return out, nil
}
