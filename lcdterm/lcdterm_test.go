// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdterm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/GermanBionicSystems/lcd/hd44780"
	"periph.io/x/conn/v3/display"
)

func setup(t *testing.T, rows, cols int) (*Dev, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	d, err := New(&Opts{Rows: rows, Cols: cols, Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	return d, &buf
}

func TestWriteRenders(t *testing.T) {
	d, buf := setup(t, 2, 16)
	n, err := d.WriteString("Hello")
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Errorf("n = %d, want 5", n)
	}
	if got := string(d.cells[0][:5]); got != "Hello" {
		t.Errorf("cells = %q, want %q", got, "Hello")
	}
	if !strings.Contains(buf.String(), "Hello") {
		t.Error("rendered frame does not contain the written text")
	}
	if row, col := d.CursorPosition(); row != 0 || col != 5 {
		t.Errorf("cursor = (%d,%d), want (0,5)", row, col)
	}
}

func TestWriteWrapsToNextRow(t *testing.T) {
	d, _ := setup(t, 2, 16)
	if err := d.MoveTo(0, 15); err != nil {
		t.Fatal(err)
	}
	if _, err := d.WriteString("AB"); err != nil {
		t.Fatal(err)
	}
	if d.cells[0][15] != 'A' || d.cells[1][0] != 'B' {
		t.Errorf("cells around the row boundary: %q %q", d.cells[0][15], d.cells[1][0])
	}
	if row, col := d.CursorPosition(); row != 1 || col != 1 {
		t.Errorf("cursor = (%d,%d), want (1,1)", row, col)
	}
}

func TestWriteClampsAtEnd(t *testing.T) {
	d, _ := setup(t, 2, 16)
	if err := d.MoveTo(1, 15); err != nil {
		t.Fatal(err)
	}
	n, err := d.WriteString("XY")
	if !errors.Is(err, hd44780.ErrDisplayFull) {
		t.Fatalf("err = %v, want hd44780.ErrDisplayFull", err)
	}
	if n != 1 {
		t.Errorf("n = %d, want 1", n)
	}
	if d.cells[0][0] != ' ' {
		t.Error("write wrapped back to the first row")
	}
}

func TestMoveToBounds(t *testing.T) {
	d, _ := setup(t, 2, 16)
	for _, pos := range [][2]int{{2, 0}, {0, 16}, {-1, 0}, {0, -1}} {
		if err := d.MoveTo(pos[0], pos[1]); !errors.Is(err, hd44780.ErrOutOfBounds) {
			t.Errorf("MoveTo(%d,%d) = %v, want ErrOutOfBounds", pos[0], pos[1], err)
		}
	}
}

func TestRightToLeftWrite(t *testing.T) {
	d, _ := setup(t, 2, 16)
	if err := d.SetEntryMode(false, false); err != nil {
		t.Fatal(err)
	}
	if err := d.MoveTo(1, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := d.WriteString("AB"); err != nil {
		t.Fatal(err)
	}
	if d.cells[1][0] != 'A' || d.cells[0][15] != 'B' {
		t.Errorf("cells = %q %q", d.cells[1][0], d.cells[0][15])
	}
	if row, col := d.CursorPosition(); row != 0 || col != 14 {
		t.Errorf("cursor = (%d,%d), want (0,14)", row, col)
	}
}

func TestClear(t *testing.T) {
	d, _ := setup(t, 2, 16)
	if _, err := d.WriteString("junk"); err != nil {
		t.Fatal(err)
	}
	if err := d.Clear(); err != nil {
		t.Fatal(err)
	}
	for r := range d.cells {
		if string(d.cells[r]) != strings.Repeat(" ", 16) {
			t.Errorf("row %d not cleared: %q", r, d.cells[r])
		}
	}
	if row, col := d.CursorPosition(); row != 0 || col != 0 {
		t.Errorf("cursor = (%d,%d), want (0,0)", row, col)
	}
}

func TestDisplayOffHidesText(t *testing.T) {
	d, buf := setup(t, 1, 16)
	if _, err := d.WriteString("secret"); err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	if err := d.Display(false); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "secret") {
		t.Error("text still rendered with the display off")
	}
	buf.Reset()
	if err := d.Display(true); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "secret") {
		t.Error("contents lost across a display toggle")
	}
}

func TestBacklightChangesFrame(t *testing.T) {
	d, buf := setup(t, 1, 4)
	if err := d.SetBacklight(true); err != nil {
		t.Fatal(err)
	}
	lit := buf.String()
	buf.Reset()
	if err := d.SetBacklight(false); err != nil {
		t.Fatal(err)
	}
	dark := buf.String()
	if lit == dark {
		t.Error("backlight toggle did not change the rendered frame")
	}
}

func TestNonPrintableSubstituted(t *testing.T) {
	d, _ := setup(t, 1, 4)
	if err := d.WriteChar(0x01); err != nil {
		t.Fatal(err)
	}
	if d.cells[0][0] != '?' {
		t.Errorf("cell = %q, want '?'", d.cells[0][0])
	}
}

func TestMoveBackwardAtOrigin(t *testing.T) {
	d, _ := setup(t, 2, 16)
	if err := d.Move(display.Backward); err != nil {
		t.Fatal(err)
	}
	if row, col := d.CursorPosition(); row != 0 || col != 0 {
		t.Errorf("cursor = (%d,%d), want (0,0)", row, col)
	}
	if err := d.WriteChar('x'); err != nil {
		t.Fatal(err)
	}
	if d.cells[0][0] != 'x' {
		t.Errorf("cell = %q, want 'x'", d.cells[0][0])
	}
}

func TestCursorModes(t *testing.T) {
	d, _ := setup(t, 1, 4)
	if err := d.Cursor(display.CursorUnderline); err != nil {
		t.Fatal(err)
	}
	if !d.cursor || d.blink {
		t.Errorf("cursor=%t blink=%t after underline", d.cursor, d.blink)
	}
	if err := d.Cursor(display.CursorMode(99)); err == nil {
		t.Error("unknown cursor mode accepted")
	}
}

func TestHaltResetsTerminal(t *testing.T) {
	d, buf := setup(t, 1, 4)
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(buf.String(), "\033[0m\n") {
		t.Error("terminal attributes not reset")
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New(&Opts{Rows: 0, Cols: 16}); err == nil {
		t.Error("zero rows accepted")
	}
	if _, err := New(&Opts{Rows: 2, Cols: 41}); err == nil {
		t.Error("oversized columns accepted")
	}
}
