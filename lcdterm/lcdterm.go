// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdterm emulates a character LCD on an ANSI terminal.
//
// It implements the same display.TextDisplay surface as hd44780 and returns
// the same sentinel errors, so a program can develop against a terminal and
// switch to the real module at construction time.
//
// Useful while you are waiting for your I²C backpack to come by mail.
package lcdterm

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"sync"

	"github.com/GermanBionicSystems/lcd/hd44780"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
)

const packageName = "lcdterm"

// Opts represents the options available for this display.
type Opts struct {
	Rows int
	Cols int
	// Palette translates the backlight color to terminal colors. Nil selects
	// ansi256.Default.
	Palette *ansi256.Palette
	// Backlight is the color of the lit bezel. The zero value selects the
	// yellow-green of the common 2x16 modules.
	Backlight color.NRGBA
	// Writer receives the rendered frames. Nil selects a color capable
	// stdout.
	Writer io.Writer
}

// DefaultOpts mirrors the geometry of hd44780.DefaultOpts.
var DefaultOpts = Opts{Rows: 2, Cols: 16}

// Dev is a character LCD emulator that renders to the console. The bezel
// around the character cells is drawn in the backlight color so backlight
// changes are visible too.
type Dev struct {
	w       io.Writer
	rows    int
	cols    int
	palette ansi256.Palette
	lit     color.NRGBA

	mu          sync.Mutex
	cells       [][]byte
	row, col    int
	leftToRight bool
	autoscroll  bool
	on          bool
	cursor      bool
	blink       bool
	backlight   bool
	painted     bool
	buf         bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Rows < 1 || opts.Rows > 4 {
		return nil, fmt.Errorf("%s: unsupported row count %d", packageName, opts.Rows)
	}
	if opts.Cols < 1 || opts.Cols > 40 {
		return nil, fmt.Errorf("%s: unsupported column count %d", packageName, opts.Cols)
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	lit := opts.Backlight
	if lit == (color.NRGBA{}) {
		lit = color.NRGBA{R: 0x9a, G: 0xcd, B: 0x32, A: 0xff}
	}
	w := opts.Writer
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	d := &Dev{
		w:           w,
		rows:        opts.Rows,
		cols:        opts.Cols,
		palette:     *p,
		lit:         lit,
		cells:       make([][]byte, opts.Rows),
		leftToRight: true,
		on:          true,
		backlight:   true,
	}
	for i := range d.cells {
		d.cells[i] = bytes.Repeat([]byte{' '}, opts.Cols)
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("%s{%dx%d}", packageName, d.rows, d.cols)
}

// refresh repaints the whole frame. After the first paint it moves the
// terminal cursor back up over the previous frame so the display stays in
// place.
func (d *Dev) refresh() error {
	d.buf.Reset()
	if d.painted {
		fmt.Fprintf(&d.buf, "\033[%dA", d.rows+2)
	}
	d.painted = true
	glow := " "
	if d.backlight {
		glow = d.palette.Block(d.lit)
	}
	d.bezelRow(glow)
	for r := 0; r < d.rows; r++ {
		d.buf.WriteString("\r")
		d.buf.WriteString(glow)
		d.buf.WriteString("\033[0m")
		for c := 0; c < d.cols; c++ {
			ch := d.cells[r][c]
			if !d.on {
				ch = ' '
			}
			if d.on && d.cursor && r == d.row && c == d.col {
				// Inverse video stands in for the underline cursor.
				d.buf.WriteString("\033[7m")
				d.buf.WriteByte(ch)
				d.buf.WriteString("\033[0m")
			} else {
				d.buf.WriteByte(ch)
			}
		}
		d.buf.WriteString(glow)
		d.buf.WriteString("\033[0m\n")
	}
	d.bezelRow(glow)
	_, err := d.buf.WriteTo(d.w)
	return err
}

func (d *Dev) bezelRow(glow string) {
	d.buf.WriteString("\r")
	for i := 0; i < d.cols+2; i++ {
		d.buf.WriteString(glow)
	}
	d.buf.WriteString("\033[0m\n")
}

// Clear clears the display and moves the cursor to (0, 0).
func (d *Dev) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.cells {
		for j := range d.cells[i] {
			d.cells[i][j] = ' '
		}
	}
	d.row, d.col = 0, 0
	return d.refresh()
}

// Home moves the cursor to (0, 0) without clearing.
func (d *Dev) Home() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.row, d.col = 0, 0
	return d.refresh()
}

// MoveTo moves the cursor to the given 0-indexed position.
func (d *Dev) MoveTo(row, col int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if row < 0 || row >= d.rows || col < 0 || col >= d.cols {
		return fmt.Errorf("%s.MoveTo(%d,%d): %w", packageName, row, col, hd44780.ErrOutOfBounds)
	}
	d.row, d.col = row, col
	return d.refresh()
}

// Move shifts the cursor one cell forward or backward. Moving backward from
// (0, 0) is a no-op, matching hd44780.
func (d *Dev) Move(dir display.CursorDirection) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch dir {
	case display.Forward:
		d.col++
		if d.col >= d.cols && d.row < d.rows-1 {
			d.row, d.col = d.row+1, 0
		}
	case display.Backward:
		if d.row == 0 && d.col <= 0 {
			return nil
		}
		d.col--
		if d.col < 0 {
			d.row, d.col = d.row-1, d.cols-1
		}
	default:
		return fmt.Errorf("%s: %w", packageName, display.ErrNotImplemented)
	}
	return d.refresh()
}

func (d *Dev) full() bool {
	if d.leftToRight {
		return d.row == d.rows-1 && d.col >= d.cols
	}
	return d.row == 0 && d.col < 0
}

func (d *Dev) writeChar(c byte) error {
	if d.full() {
		return fmt.Errorf("%s: %w", packageName, hd44780.ErrDisplayFull)
	}
	if d.col < 0 || d.col >= d.cols {
		return fmt.Errorf("%s: write at column %d: %w", packageName, d.col, hd44780.ErrOutOfBounds)
	}
	if c < 0x20 || c > 0x7e {
		// Outside the printable ASCII range; the real character ROM has
		// glyphs there but the terminal does not.
		c = '?'
	}
	d.cells[d.row][d.col] = c
	if d.leftToRight {
		d.col++
		if d.col >= d.cols && d.row < d.rows-1 {
			d.row, d.col = d.row+1, 0
		}
	} else {
		d.col--
		if d.col < 0 && d.row > 0 {
			d.row, d.col = d.row-1, d.cols-1
		}
	}
	return nil
}

// WriteChar writes a single character cell at the cursor position.
func (d *Dev) WriteChar(c byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.writeChar(c); err != nil {
		return err
	}
	return d.refresh()
}

// Write writes character data at the cursor position, wrapping at row
// boundaries. Writing past the end of the display truncates and returns
// hd44780.ErrDisplayFull.
func (d *Dev) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for n, c := range p {
		if err := d.writeChar(c); err != nil {
			_ = d.refresh()
			return n, err
		}
	}
	return len(p), d.refresh()
}

// WriteString writes a string to the display.
func (d *Dev) WriteString(text string) (int, error) {
	return d.Write([]byte(text))
}

// Display turns the rendered character cells on or off. Contents are
// retained.
func (d *Dev) Display(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.on = on
	return d.refresh()
}

// Cursor sets the cursor mode.
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
	d.cursor, d.blink = cursor, blink
	return d.refresh()
}

// SetEntryMode sets the write direction and autoscroll.
func (d *Dev) SetEntryMode(leftToRight, autoscroll bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.leftToRight, d.autoscroll = leftToRight, autoscroll
	return nil
}

// AutoScroll enables or disables autoscroll, keeping the current write
// direction.
func (d *Dev) AutoScroll(enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.autoscroll = enabled
	return nil
}

// SetBacklight lights or darkens the bezel around the character cells.
func (d *Dev) SetBacklight(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.backlight = on
	return d.refresh()
}

// Backlight implements display.DisplayBacklight.
func (d *Dev) Backlight(intensity display.Intensity) error {
	return d.SetBacklight(intensity > 0)
}

// Rows returns the number of rows the display supports.
func (d *Dev) Rows() int { return d.rows }

// Cols returns the number of columns the display supports.
func (d *Dev) Cols() int { return d.cols }

// MinRow returns the min row position. Positions are 0-indexed.
func (d *Dev) MinRow() int { return 0 }

// MinCol returns the min column position.
func (d *Dev) MinCol() int { return 0 }

// CursorPosition returns the tracked cursor position.
func (d *Dev) CursorPosition() (row, col int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.row, d.col
}

// Halt clears the display and restores the terminal attributes.
func (d *Dev) Halt() error {
	if err := d.Clear(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.w.Write([]byte("\033[0m\n"))
	return err
}

var _ display.TextDisplay = &Dev{}
var _ display.DisplayBacklight = &Dev{}
var _ conn.Resource = &Dev{}
