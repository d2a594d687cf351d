// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"fmt"
	"time"
)

// Pinout maps the LCD control lines to bit positions on the expander's
// output byte. The data nibble always occupies bits 0-3, so the control
// lines must sit in bits 4-7.
type Pinout struct {
	RS        uint8
	RW        uint8
	EN        uint8
	Backlight uint8
}

// Opts holds the device configuration. It is fixed at construction.
type Opts struct {
	// I²C address of the expander backpack.
	Addr uint16
	// Display geometry. Common modules are 2x16 and 4x20.
	Rows int
	Cols int
	// Control line wiring on the expander port.
	Pinout Pinout
	// Initial backlight state.
	Backlight bool
	// Extra pause after each character write. Zero is fine for I²C
	// backpacks, the bus transfer itself is slower than the controller's
	// execution time.
	CharDelay time.Duration
}

// DefaultOpts matches the common PCF8574 backpack wiring.
var DefaultOpts = Opts{
	Addr:      0x27,
	Rows:      2,
	Cols:      16,
	Pinout:    Pinout{RS: 4, RW: 5, EN: 6, Backlight: 7},
	Backlight: true,
}

func (o *Opts) validate() error {
	switch {
	case o.Addr >= 0x20 && o.Addr <= 0x27: // PCF8574
	case o.Addr >= 0x38 && o.Addr <= 0x3f: // PCF8574A
	default:
		return fmt.Errorf("%s: unsupported I²C address %#x", packageName, o.Addr)
	}
	if o.Rows < 1 || o.Rows > 4 {
		return fmt.Errorf("%s: unsupported row count %d", packageName, o.Rows)
	}
	if o.Cols < 1 || o.Cols > 40 {
		return fmt.Errorf("%s: unsupported column count %d", packageName, o.Cols)
	}
	var mask uint8
	for _, bit := range []uint8{o.Pinout.RS, o.Pinout.RW, o.Pinout.EN, o.Pinout.Backlight} {
		if bit < 4 || bit > 7 {
			return fmt.Errorf("%s: control line bit %d collides with the data nibble", packageName, bit)
		}
		if mask&(1<<bit) != 0 {
			return fmt.Errorf("%s: control lines share bit %d", packageName, bit)
		}
		mask |= 1 << bit
	}
	return nil
}
