//go:build rp2040

// regprobe is bench firmware for a second Pico wired to the plane's register
// bus. It prints every supply's status byte once a second and toggles N12
// while the button on GP15 is held.
package main

import (
	"machine"
	"time"

	"powerctl-go/internal/regclient"
	"powerctl-go/internal/supply"
	"powerctl-go/x/conv"
)

const (
	planeAddr = 0x28
	pollEvery = time.Second
	buttonPin = machine.GP15
)

func main() {
	time.Sleep(2 * time.Second)
	println("[regprobe] boot")

	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{
		Frequency: 100 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	}); err != nil {
		println("[regprobe] i2c:", err.Error())
		return
	}
	buttonPin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	c := regclient.New(i2c, planeAddr)
	n12 := false
	var hx [2]byte
	for {
		st, err := c.Scan()
		if err != nil {
			println("[regprobe] scan:", err.Error())
		} else {
			for i, id := range supply.All() {
				print(id.String(), "=0x", string(conv.ByteHex(hx[:], byte(st[i]))), " ")
			}
			println()
		}

		if !buttonPin.Get() {
			n12 = !n12
			if err := c.SetEnabled(supply.N12, n12); err != nil {
				println("[regprobe] set N12:", err.Error())
			}
		}
		time.Sleep(pollEvery)
	}
}
