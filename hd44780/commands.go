// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

// HD44780 instruction set. Every command byte has a single high bit that
// identifies the command class; the bits below it carry the options.
const (
	cmdClearDisplay   byte = 0x01
	cmdReturnHome     byte = 0x02
	cmdEntryModeSet   byte = 0x04
	cmdDisplayControl byte = 0x08
	cmdShift          byte = 0x10
	cmdFunctionSet    byte = 0x20
	cmdSetCGRAMAddr   byte = 0x40
	cmdSetDDRAMAddr   byte = 0x80
)

const (
	optIncrement    byte = 0x02 // cmdEntryModeSet, 0 = decrement
	optAutoscroll   byte = 0x01 // cmdEntryModeSet
	optDisplayOn    byte = 0x04 // cmdDisplayControl
	optCursorOn     byte = 0x02 // cmdDisplayControl
	optBlinkOn      byte = 0x01 // cmdDisplayControl
	optShiftDisplay byte = 0x08 // cmdShift, 0 = move cursor
	optShiftRight   byte = 0x04 // cmdShift, 0 = left
	opt8BitMode     byte = 0x10 // cmdFunctionSet, 0 = 4 bit
	optTwoLines     byte = 0x08 // cmdFunctionSet, 0 = one line
	opt5x10Font     byte = 0x04 // cmdFunctionSet, 0 = 5x8
)

func encodeEntryMode(leftToRight, autoscroll bool) byte {
	b := cmdEntryModeSet
	if leftToRight {
		b |= optIncrement
	}
	if autoscroll {
		b |= optAutoscroll
	}
	return b
}

func encodeDisplayControl(on, cursor, blink bool) byte {
	b := cmdDisplayControl
	if on {
		b |= optDisplayOn
	}
	if cursor {
		b |= optCursorOn
	}
	if blink {
		b |= optBlinkOn
	}
	return b
}

func encodeFunctionSet(eightBit, twoLines, largeFont bool) byte {
	b := cmdFunctionSet
	if eightBit {
		b |= opt8BitMode
	}
	if twoLines {
		b |= optTwoLines
	}
	if largeFont {
		b |= opt5x10Font
	}
	return b
}

func encodeShift(displayShift, right bool) byte {
	b := cmdShift
	if displayShift {
		b |= optShiftDisplay
	}
	if right {
		b |= optShiftRight
	}
	return b
}

// rowBase returns the DDRAM address of column 0 of the given row. DDRAM is
// banked: rows 0 and 2 share the first bank and rows 1 and 3 the second,
// with the upper half of each bank offset by the column stride. Row order
// in the address space is 0, 2, 1, 3 - not monotonic with the row number.
func rowBase(row, cols int) byte {
	return byte(row%2)*0x40 + byte(row/2*cols)
}

func encodeDDRAMAddr(row, col, cols int) byte {
	return cmdSetDDRAMAddr | (rowBase(row, cols) + byte(col))
}

// frame is a single 4-bit transfer to the expander: the data nibble plus
// the state of the control lines that share the expander's output byte.
type frame struct {
	nibble    byte
	data      bool // register select, true when writing DDRAM/CGRAM data
	backlight bool
}

// splitByte converts one controller byte into the two frames the 4-bit bus
// expects, high nibble first.
func splitByte(b byte, data, backlight bool) (hi, lo frame) {
	hi = frame{nibble: b >> 4, data: data, backlight: backlight}
	lo = frame{nibble: b & 0x0f, data: data, backlight: backlight}
	return hi, lo
}

// wire packs the frame into the expander's output byte. The data nibble
// occupies bits 0-3 and the control lines sit at the positions given by p.
// R/W stays low, this driver never reads the controller back.
func (f frame) wire(p Pinout) byte {
	v := f.nibble & 0x0f
	if f.data {
		v |= 1 << p.RS
	}
	if f.backlight {
		v |= 1 << p.Backlight
	}
	return v
}
