// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdsink renders a character LCD into an image and serves it over
// HTTP.
//
// It implements the same display.TextDisplay surface as hd44780 and returns
// the same sentinel errors. The primary use case is the development of
// display outputs on a host machine; devices with network connectivity can
// also use it to mirror their local display via a web interface.
//
// Clients GET a snapshot of the rendered display. PNG is the default image
// format, JPEG can be selected via Opts.Format or the "format" URL parameter.
package lcdsink

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/GermanBionicSystems/lcd/hd44780"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
)

const packageName = "lcdsink"

// Cell geometry in pixels, sized for the gomono face below.
const (
	cellW    = 12
	cellH    = 22
	padding  = 10
	fontSize = 17
)

// Opts for lcdsink displays.
type Opts struct {
	Rows int
	Cols int
	// Format specifies the image format to send to clients.
	Format ImageFormat
}

// Display is a character LCD emulator that renders to an in-memory image.
// It doubles as an http.Handler serving that image.
type Display struct {
	rows, cols    int
	defaultFormat ImageFormat
	face          font.Face

	mu          sync.Mutex
	cells       [][]byte
	row, col    int
	leftToRight bool
	autoscroll  bool
	on          bool
	cursor      bool
	blink       bool
	backlight   bool
	snapshot    map[ImageFormat][]byte
}

// New creates a new lcdsink display instance.
func New(opts *Opts) (*Display, error) {
	if opts == nil {
		opts = &Opts{Rows: 2, Cols: 16}
	}
	if opts.Rows < 1 || opts.Rows > 4 {
		return nil, fmt.Errorf("%s: unsupported row count %d", packageName, opts.Rows)
	}
	if opts.Cols < 1 || opts.Cols > 40 {
		return nil, fmt.Errorf("%s: unsupported column count %d", packageName, opts.Cols)
	}
	f, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", packageName, err)
	}
	d := &Display{
		rows:          opts.Rows,
		cols:          opts.Cols,
		defaultFormat: opts.Format,
		face:          truetype.NewFace(f, &truetype.Options{Size: fontSize}),
		cells:         make([][]byte, opts.Rows),
		leftToRight:   true,
		on:            true,
		backlight:     true,
		snapshot:      map[ImageFormat][]byte{},
	}
	for i := range d.cells {
		d.cells[i] = make([]byte, opts.Cols)
		for j := range d.cells[i] {
			d.cells[i][j] = ' '
		}
	}
	return d, nil
}

// String returns the name of the device.
func (d *Display) String() string {
	return fmt.Sprintf("%s{%dx%d}", packageName, d.rows, d.cols)
}

// Bounds returns the pixel dimensions of the rendered image.
func (d *Display) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.cols*cellW+2*padding, d.rows*cellH+2*padding)
}

// render draws the current cell matrix. The glass is filled with the
// backlight color, each cell gets its glyph and the cursor is drawn as an
// underline.
func (d *Display) render() image.Image {
	b := d.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())

	glass := color.NRGBA{R: 0x9a, G: 0xcd, B: 0x32, A: 0xff}
	ink := color.NRGBA{R: 0x1a, G: 0x30, B: 0x10, A: 0xff}
	if !d.backlight {
		glass = color.NRGBA{R: 0x2a, G: 0x33, B: 0x28, A: 0xff}
		ink = color.NRGBA{R: 0x49, G: 0x55, B: 0x45, A: 0xff}
	}
	dc.SetColor(glass)
	dc.Clear()

	if !d.on {
		return dc.Image()
	}

	dc.SetColor(ink)
	dc.SetFontFace(d.face)
	for r := 0; r < d.rows; r++ {
		for c := 0; c < d.cols; c++ {
			ch := d.cells[r][c]
			x := float64(padding + c*cellW)
			y := float64(padding + r*cellH)
			if ch != ' ' {
				dc.DrawStringAnchored(string(rune(ch)), x+cellW/2, y+cellH/2, 0.5, 0.4)
			}
		}
	}
	if d.cursor && d.row < d.rows && d.col < d.cols {
		x := float64(padding + d.col*cellW)
		y := float64(padding + d.row*cellH)
		dc.DrawRectangle(x+1, y+cellH-3, cellW-2, 2)
		dc.Fill()
	}
	return dc.Image()
}

// changedLocked drops the cached encoded snapshots.
func (d *Display) changedLocked() {
	for cfg := range d.snapshot {
		delete(d.snapshot, cfg)
	}
}

// Clear clears the display and moves the cursor to (0, 0).
func (d *Display) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.cells {
		for j := range d.cells[i] {
			d.cells[i][j] = ' '
		}
	}
	d.row, d.col = 0, 0
	d.changedLocked()
	return nil
}

// Home moves the cursor to (0, 0) without clearing.
func (d *Display) Home() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.row, d.col = 0, 0
	d.changedLocked()
	return nil
}

// MoveTo moves the cursor to the given 0-indexed position.
func (d *Display) MoveTo(row, col int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if row < 0 || row >= d.rows || col < 0 || col >= d.cols {
		return fmt.Errorf("%s.MoveTo(%d,%d): %w", packageName, row, col, hd44780.ErrOutOfBounds)
	}
	d.row, d.col = row, col
	d.changedLocked()
	return nil
}

// Move shifts the cursor one cell forward or backward. Moving backward from
// (0, 0) is a no-op, matching hd44780.
func (d *Display) Move(dir display.CursorDirection) error {
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
	d.changedLocked()
	return nil
}

func (d *Display) full() bool {
	if d.leftToRight {
		return d.row == d.rows-1 && d.col >= d.cols
	}
	return d.row == 0 && d.col < 0
}

func (d *Display) writeChar(c byte) error {
	if d.full() {
		return fmt.Errorf("%s: %w", packageName, hd44780.ErrDisplayFull)
	}
	if d.col < 0 || d.col >= d.cols {
		return fmt.Errorf("%s: write at column %d: %w", packageName, d.col, hd44780.ErrOutOfBounds)
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
func (d *Display) WriteChar(c byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.writeChar(c); err != nil {
		return err
	}
	d.changedLocked()
	return nil
}

// Write writes character data at the cursor position, wrapping at row
// boundaries. Writing past the end of the display truncates and returns
// hd44780.ErrDisplayFull.
func (d *Display) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	defer d.changedLocked()
	for n, c := range p {
		if err := d.writeChar(c); err != nil {
			return n, err
		}
	}
	return len(p), nil
}

// WriteString writes a string to the display.
func (d *Display) WriteString(text string) (int, error) {
	return d.Write([]byte(text))
}

// Display turns the rendered character cells on or off. Contents are
// retained.
func (d *Display) Display(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.on = on
	d.changedLocked()
	return nil
}

// Cursor sets the cursor mode.
func (d *Display) Cursor(modes ...display.CursorMode) error {
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
	d.changedLocked()
	return nil
}

// SetEntryMode sets the write direction and autoscroll.
func (d *Display) SetEntryMode(leftToRight, autoscroll bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.leftToRight, d.autoscroll = leftToRight, autoscroll
	return nil
}

// AutoScroll enables or disables autoscroll, keeping the current write
// direction.
func (d *Display) AutoScroll(enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.autoscroll = enabled
	return nil
}

// SetBacklight changes the rendered glass color.
func (d *Display) SetBacklight(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.backlight = on
	d.changedLocked()
	return nil
}

// Backlight implements display.DisplayBacklight.
func (d *Display) Backlight(intensity display.Intensity) error {
	return d.SetBacklight(intensity > 0)
}

// Rows returns the number of rows the display supports.
func (d *Display) Rows() int { return d.rows }

// Cols returns the number of columns the display supports.
func (d *Display) Cols() int { return d.cols }

// MinRow returns the min row position. Positions are 0-indexed.
func (d *Display) MinRow() int { return 0 }

// MinCol returns the min column position.
func (d *Display) MinCol() int { return 0 }

// CursorPosition returns the tracked cursor position.
func (d *Display) CursorPosition() (row, col int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.row, d.col
}

// Image returns a render of the current display state.
func (d *Display) Image() image.Image {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.render()
}

// Halt clears the display.
func (d *Display) Halt() error {
	if err := d.Clear(); err != nil {
		return err
	}
	return d.SetBacklight(false)
}

var _ display.TextDisplay = (*Display)(nil)
var _ display.DisplayBacklight = (*Display)(nil)
var _ conn.Resource = (*Display)(nil)
