// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hd44780 controls the Hitachi HD44780 LCD display chipset through
// an I²C I/O-expander backpack (PCF8574 style).
//
// The controller is write-only through these backpacks, so the driver keeps
// an in-memory mirror of the cursor position and the display flags. The
// mirror is updated only after the corresponding bytes were accepted by the
// bus; Reset rebuilds it when it is suspected to have diverged from the
// hardware.
//
// Implements periph.io/x/conn/v3/display/TextDisplay and
// display.DisplayBacklight.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
//
// A description of the I²C backpack byte layout can be found here:
//
// https://www.handsontec.com/dataspecs/I2C_2004_LCD.pdf
package hd44780

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"
)

const packageName = "hd44780"

// Settle delays mandated by the datasheet. Each constant is tied to the
// command it follows; dropping any of them makes the controller fall out of
// nibble sync and misread subsequent command pairs.
const (
	// Wait after power-up before the controller accepts commands.
	delayPowerOn = 50 * time.Millisecond
	// Waits between the forced function-set writes of the init sequence.
	delayInit1 = 4500 * time.Microsecond
	delayInit2 = 150 * time.Microsecond
	// Execution time of Clear and Home.
	delayClear = 2 * time.Millisecond
	delayHome  = 1600 * time.Microsecond
	// Execution time of every other command or data write.
	delaySettle = 40 * time.Microsecond
	// Width of the enable pulse. The controller latches the data lines on
	// the falling edge.
	delayEnable = 2 * time.Microsecond
)

var (
	// ErrOutOfBounds is returned when a requested position is outside the
	// configured geometry. No bus traffic happens in that case.
	ErrOutOfBounds = errors.New("position out of range")
	// ErrDisplayFull is returned by writes once the last cell of the last
	// row has been filled. The returned count tells how many characters
	// made it out.
	ErrDisplayFull = errors.New("display full")
)

// InitError reports which phase of the power-on sequence failed. New never
// returns a usable Dev alongside an InitError; the controller may be stuck
// between nibbles and its state is unknown.
type InitError struct {
	Phase string
	Err   error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("%s: init %s: %v", packageName, e.Phase, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %s: %w", packageName, op, err)
}

// Dev is an HD44780 display behind an I²C expander backpack. One Dev owns
// one physical display; operations are serialized internally so partial
// nibble sequences from two operations never interleave on the bus.
type Dev struct {
	d    *i2c.Dev
	opts Opts

	mu sync.Mutex
	// Tracked cursor position, 0-indexed. col may reach opts.Cols (or -1 in
	// right-to-left mode) once the end of the display has been written;
	// further writes are refused instead of wrapping back to the first row.
	row, col    int
	leftToRight bool
	autoscroll  bool
	on          bool
	cursor      bool
	blink       bool
	backlight   bool

	// Timer hook, replaced in tests to assert settle delays.
	sleep func(time.Duration)
}

// New initializes the display behind the backpack and returns it ready for
// use. A nil opts selects DefaultOpts. If any phase of the power-on
// sequence fails, an *InitError is returned and the Dev must not be used.
func New(bus i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	d := &Dev{
		d:         &i2c.Dev{Bus: bus, Addr: opts.Addr},
		opts:      *opts,
		backlight: opts.Backlight,
		sleep:     time.Sleep,
	}
	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

// init runs the power-on sequence from the datasheet. The controller may
// come up in 8-bit or 4-bit mode depending on what it saw before power
// cycled; forcing the 8-bit function set three times is the only sequence
// that converges to a known interface width from any starting state.
func (d *Dev) init() error {
	d.sleep(delayPowerOn)
	for _, pause := range []time.Duration{delayInit1, delayInit1, delayInit2} {
		if err := d.writeFrame(frame{nibble: 0x03, backlight: d.backlight}); err != nil {
			return &InitError{Phase: "force 8-bit mode", Err: err}
		}
		d.sleep(pause)
	}
	if err := d.writeFrame(frame{nibble: 0x02, backlight: d.backlight}); err != nil {
		return &InitError{Phase: "switch to 4-bit mode", Err: err}
	}
	d.sleep(delayInit2)

	if err := d.sendCommand(encodeFunctionSet(false, d.opts.Rows > 1, false)); err != nil {
		return &InitError{Phase: "function set", Err: err}
	}
	d.on, d.cursor, d.blink = false, false, false
	if err := d.sendCommand(encodeDisplayControl(false, false, false)); err != nil {
		return &InitError{Phase: "display off", Err: err}
	}
	if err := d.sendCommand(cmdClearDisplay); err != nil {
		return &InitError{Phase: "clear", Err: err}
	}
	d.sleep(delayClear)
	d.row, d.col = 0, 0
	d.leftToRight, d.autoscroll = true, false
	if err := d.sendCommand(encodeEntryMode(true, false)); err != nil {
		return &InitError{Phase: "entry mode", Err: err}
	}
	if err := d.sendCommand(encodeDisplayControl(true, false, false)); err != nil {
		return &InitError{Phase: "display on", Err: err}
	}
	d.on = true
	log.Debugf("%s: initialized %s", packageName, d.d.String())
	return nil
}

// writeFrame puts one frame on the expander port and pulses enable.
func (d *Dev) writeFrame(f frame) error {
	v := f.wire(d.opts.Pinout)
	if err := d.d.Tx([]byte{v | 1<<d.opts.Pinout.EN}, nil); err != nil {
		return err
	}
	d.sleep(delayEnable)
	return d.d.Tx([]byte{v}, nil)
}

// sendByte multiplexes one controller byte over the 4-bit port, high nibble
// first, then waits out the command execution time.
func (d *Dev) sendByte(b byte, data bool) error {
	hi, lo := splitByte(b, data, d.backlight)
	if err := d.writeFrame(hi); err != nil {
		return err
	}
	if err := d.writeFrame(lo); err != nil {
		return err
	}
	d.sleep(delaySettle)
	return nil
}

func (d *Dev) sendCommand(b byte) error { return d.sendByte(b, false) }
func (d *Dev) sendData(b byte) error    { return d.sendByte(b, true) }

// Clear clears the display and moves the cursor to (0, 0).
func (d *Dev) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.sendCommand(cmdClearDisplay); err != nil {
		return wrap("clear", err)
	}
	d.sleep(delayClear)
	d.row, d.col = 0, 0
	return nil
}

// Home moves the cursor to (0, 0) without clearing and undoes any display
// shift. Faster than Clear.
func (d *Dev) Home() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.sendCommand(cmdReturnHome); err != nil {
		return wrap("home", err)
	}
	d.sleep(delayHome)
	d.row, d.col = 0, 0
	return nil
}

// MoveTo moves the cursor to the given 0-indexed position.
func (d *Dev) MoveTo(row, col int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.moveTo(row, col)
}

func (d *Dev) moveTo(row, col int) error {
	if row < 0 || row >= d.opts.Rows || col < 0 || col >= d.opts.Cols {
		return fmt.Errorf("%s.MoveTo(%d,%d): %w", packageName, row, col, ErrOutOfBounds)
	}
	if err := d.sendCommand(encodeDDRAMAddr(row, col, d.opts.Cols)); err != nil {
		return wrap("move", err)
	}
	d.row, d.col = row, col
	return nil
}

// full reports whether the cursor is parked past the last writable cell.
func (d *Dev) full() bool {
	if d.leftToRight {
		return d.row == d.opts.Rows-1 && d.col >= d.opts.Cols
	}
	return d.row == 0 && d.col < 0
}

// advance moves the tracked cursor one cell in the entry direction. The
// controller auto-increments its DDRAM address, but the banked layout means
// a row boundary needs an explicit address command; letting the hardware
// run on would land writes in off-screen memory. At the far end of the
// display the cursor parks one cell past the boundary and stays there.
func (d *Dev) advance() error {
	if d.leftToRight {
		d.col++
		if d.col < d.opts.Cols || d.row == d.opts.Rows-1 {
			return nil
		}
		return d.moveTo(d.row+1, 0)
	}
	d.col--
	if d.col >= 0 || d.row == 0 {
		return nil
	}
	return d.moveTo(d.row-1, d.opts.Cols-1)
}

func (d *Dev) writeChar(c byte) error {
	if d.full() {
		return fmt.Errorf("%s: %w", packageName, ErrDisplayFull)
	}
	if err := d.sendData(c); err != nil {
		return wrap("write", err)
	}
	if d.opts.CharDelay > 0 {
		d.sleep(d.opts.CharDelay)
	}
	return d.advance()
}

// WriteChar writes a single character cell at the cursor position.
func (d *Dev) WriteChar(c byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeChar(c)
}

// Write sends p as character data starting at the cursor position, wrapping
// at row boundaries. Writing past the end of the last row truncates: the
// returned count tells how many bytes were written and the error is
// ErrDisplayFull. Note that retrying a Write that failed mid-way duplicates
// output; the hardware gives no way to tell how much of the original
// attempt was applied.
func (d *Dev) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for n, c := range p {
		if err := d.writeChar(c); err != nil {
			return n, err
		}
	}
	return len(p), nil
}

// WriteString writes a string to the display.
func (d *Dev) WriteString(text string) (int, error) {
	return d.Write([]byte(text))
}

// WriteInt formats n in base 10 and writes it at the cursor position.
func (d *Dev) WriteInt(n int64) (int, error) {
	return d.WriteString(strconv.FormatInt(n, 10))
}

// WriteFloat writes the shortest decimal representation of f.
func (d *Dev) WriteFloat(f float64) (int, error) {
	return d.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
}

// setControl resends the packed display-control byte. The three flags share
// one command; a change to any of them rewrites all three.
func (d *Dev) setControl(op string, on, cursor, blink bool) error {
	if err := d.sendCommand(encodeDisplayControl(on, cursor, blink)); err != nil {
		return wrap(op, err)
	}
	d.on, d.cursor, d.blink = on, cursor, blink
	return nil
}

// Display turns the display on or off. Contents, DDRAM and the backlight
// are retained.
func (d *Dev) Display(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setControl("display", on, d.cursor, d.blink)
}

// SetCursorVisible shows or hides the underline cursor.
func (d *Dev) SetCursorVisible(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setControl("cursor", d.on, on, d.blink)
}

// SetCursorBlink blinks the cell under the cursor.
func (d *Dev) SetCursorBlink(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setControl("blink", d.on, d.cursor, on)
}

// Cursor sets the cursor mode. You can pass multiple arguments.
// Cursor(CursorOff, CursorUnderline)
func (d *Dev) Cursor(modes ...display.CursorMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cursor, blink := false, false
	for _, mode := range modes {
		switch mode {
		case display.CursorOff:
		case display.CursorUnderline:
			cursor = true
		case display.CursorBlink, display.CursorBlock:
			cursor = true
			blink = true
		default:
			return fmt.Errorf("%s: unexpected cursor mode: %d", packageName, mode)
		}
	}
	return d.setControl("cursor", d.on, cursor, blink)
}

// SetEntryMode sets the write direction and autoscroll. With autoscroll
// enabled the display shifts on every write instead of the cursor moving.
func (d *Dev) SetEntryMode(leftToRight, autoscroll bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setEntryMode(leftToRight, autoscroll)
}

func (d *Dev) setEntryMode(leftToRight, autoscroll bool) error {
	if err := d.sendCommand(encodeEntryMode(leftToRight, autoscroll)); err != nil {
		return wrap("entry mode", err)
	}
	d.leftToRight, d.autoscroll = leftToRight, autoscroll
	return nil
}

// AutoScroll enables or disables autoscroll, keeping the current write
// direction.
func (d *Dev) AutoScroll(enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setEntryMode(d.leftToRight, enabled)
}

// Move shifts the cursor one cell forward or backward without writing. The
// tracked position follows, wrapping across row boundaries. Moving backward
// from (0, 0) is a no-op: shifting the controller there would walk its
// address counter off-screen and the mirror could no longer vouch for the
// cursor.
func (d *Dev) Move(dir display.CursorDirection) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var right bool
	switch dir {
	case display.Forward:
		right = true
	case display.Backward:
		if d.row == 0 && d.col <= 0 {
			return nil
		}
	default:
		return fmt.Errorf("%s: %w", packageName, display.ErrNotImplemented)
	}
	if err := d.sendCommand(encodeShift(false, right)); err != nil {
		return wrap("move", err)
	}
	if right {
		d.col++
		if d.col >= d.opts.Cols && d.row < d.opts.Rows-1 {
			return d.moveTo(d.row+1, 0)
		}
	} else {
		d.col--
		if d.col < 0 && d.row > 0 {
			return d.moveTo(d.row-1, d.opts.Cols-1)
		}
	}
	return nil
}

// ShiftDisplay scrolls the entire display one column left or right. The
// controller shifts its window over DDRAM; the tracked cursor position is
// a DDRAM address and therefore does not change. Callers that mix
// ShiftDisplay with positioned writes must account for the visual offset.
func (d *Dev) ShiftDisplay(right bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return wrap("shift", d.sendCommand(encodeShift(true, right)))
}

// SetBacklight drives the backlight line on the expander. This is the one
// operation that involves no controller command: it writes the expander
// byte once with all control lines idle.
func (d *Dev) SetBacklight(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := frame{backlight: on}
	if err := d.d.Tx([]byte{f.wire(d.opts.Pinout)}, nil); err != nil {
		return wrap("backlight", err)
	}
	d.backlight = on
	return nil
}

// Backlight implements display.DisplayBacklight. The expander offers a
// single on/off line, any non-zero intensity turns it on.
func (d *Dev) Backlight(intensity display.Intensity) error {
	return d.SetBacklight(intensity > 0)
}

// CreateChar programs one of the eight CGRAM slots (0-7) with a 5x8 glyph,
// one byte per pixel row, low 5 bits used. The glyph shows up by writing
// the slot number as a character. The DDRAM address is restored afterwards
// so the tracked cursor stays valid.
func (d *Dev) CreateChar(slot byte, glyph [8]byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if slot > 7 {
		return fmt.Errorf("%s.CreateChar(%d): %w", packageName, slot, ErrOutOfBounds)
	}
	if err := d.sendCommand(cmdSetCGRAMAddr | slot<<3); err != nil {
		return wrap("cgram", err)
	}
	for _, b := range glyph {
		if err := d.sendData(b); err != nil {
			return wrap("cgram", err)
		}
	}
	col := d.col
	if col >= d.opts.Cols {
		col = d.opts.Cols - 1
	} else if col < 0 {
		col = 0
	}
	if err := d.sendCommand(encodeDDRAMAddr(d.row, col, d.opts.Cols)); err != nil {
		return wrap("cgram", err)
	}
	return nil
}

// Reset re-runs the full power-on sequence, restoring the default state.
// Use it when the mirror is suspected to no longer match the hardware,
// e.g. after a failed or cancelled write. The backlight keeps its current
// state, it lives on the expander and is unaffected by controller resets.
func (d *Dev) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.init()
}

// Halt clears the display and turns the display and the backlight off.
func (d *Dev) Halt() error {
	if err := d.Clear(); err != nil {
		return err
	}
	if err := d.Display(false); err != nil {
		return err
	}
	return d.SetBacklight(false)
}

// Rows returns the number of rows the display supports.
func (d *Dev) Rows() int { return d.opts.Rows }

// Cols returns the number of columns the display supports.
func (d *Dev) Cols() int { return d.opts.Cols }

// MinRow returns the min row position. Positions are 0-indexed.
func (d *Dev) MinRow() int { return 0 }

// MinCol returns the min column position.
func (d *Dev) MinCol() int { return 0 }

// CursorPosition returns the tracked cursor position. It reflects the last
// state successfully written out; the controller cannot be queried.
func (d *Dev) CursorPosition() (row, col int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.row, d.col
}

func (d *Dev) String() string {
	return fmt.Sprintf("%s{%s, %dx%d}", packageName, d.d.String(), d.opts.Rows, d.opts.Cols)
}

var _ display.TextDisplay = &Dev{}
var _ display.DisplayBacklight = &Dev{}
var _ conn.Resource = &Dev{}
