// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdlog

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/display"
)

// fakeDisplay records text the way a 2x16 module would show it.
type fakeDisplay struct {
	rows, cols int
	cells      [][]byte
	row, col   int
	cleared    int
}

func newFake(rows, cols int) *fakeDisplay {
	f := &fakeDisplay{rows: rows, cols: cols}
	f.cells = make([][]byte, rows)
	for i := range f.cells {
		f.cells[i] = bytes.Repeat([]byte{' '}, cols)
	}
	return f
}

func (f *fakeDisplay) Clear() error {
	for i := range f.cells {
		for j := range f.cells[i] {
			f.cells[i][j] = ' '
		}
	}
	f.row, f.col = 0, 0
	f.cleared++
	return nil
}

func (f *fakeDisplay) MoveTo(row, col int) error {
	f.row, f.col = row, col
	return nil
}

func (f *fakeDisplay) Write(p []byte) (int, error) {
	for _, c := range p {
		if f.col < f.cols {
			f.cells[f.row][f.col] = c
			f.col++
		}
	}
	return len(p), nil
}

func (f *fakeDisplay) WriteString(s string) (int, error)  { return f.Write([]byte(s)) }
func (f *fakeDisplay) Home() error                        { f.row, f.col = 0, 0; return nil }
func (f *fakeDisplay) Move(display.CursorDirection) error { return nil }
func (f *fakeDisplay) Cursor(...display.CursorMode) error { return nil }
func (f *fakeDisplay) AutoScroll(bool) error              { return nil }
func (f *fakeDisplay) Display(bool) error                 { return nil }
func (f *fakeDisplay) Rows() int                          { return f.rows }
func (f *fakeDisplay) Cols() int                          { return f.cols }
func (f *fakeDisplay) MinRow() int                        { return 0 }
func (f *fakeDisplay) MinCol() int                        { return 0 }
func (f *fakeDisplay) Halt() error                        { return nil }
func (f *fakeDisplay) String() string                     { return "fake" }

var _ display.TextDisplay = (*fakeDisplay)(nil)

func newLogger(h *Hook) *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	log.Level = logrus.DebugLevel
	log.AddHook(h)
	return log
}

func TestFireLaysOutEntry(t *testing.T) {
	f := newFake(2, 16)
	h := New(f, logrus.InfoLevel)
	e := &logrus.Entry{
		Time:    time.Date(2025, 6, 1, 13, 37, 42, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "fan stalled",
	}
	if err := h.Fire(e); err != nil {
		t.Fatal(err)
	}
	if got := string(f.cells[0]); got != "13:37:42 WARN   " {
		t.Errorf("header row = %q", got)
	}
	if got := string(f.cells[1]); got != "fan stalled     " {
		t.Errorf("message row = %q", got)
	}
	if f.cleared != 1 {
		t.Errorf("cleared %d times, want 1", f.cleared)
	}
}

func TestFireTruncatesToGeometry(t *testing.T) {
	f := newFake(2, 16)
	h := New(f, logrus.InfoLevel)
	e := &logrus.Entry{
		Time:    time.Now(),
		Level:   logrus.ErrorLevel,
		Message: strings.Repeat("x", 100),
	}
	if err := h.Fire(e); err != nil {
		t.Fatal(err)
	}
	if got := string(f.cells[1]); got != strings.Repeat("x", 16) {
		t.Errorf("message row = %q", got)
	}
}

func TestSingleRowSkipsHeader(t *testing.T) {
	f := newFake(1, 16)
	h := New(f, logrus.InfoLevel)
	e := &logrus.Entry{Time: time.Now(), Level: logrus.InfoLevel, Message: "booting"}
	if err := h.Fire(e); err != nil {
		t.Fatal(err)
	}
	if got := string(f.cells[0][:7]); got != "booting" {
		t.Errorf("row = %q", got)
	}
}

func TestNonPrintableReplaced(t *testing.T) {
	f := newFake(1, 16)
	h := New(f, logrus.InfoLevel)
	e := &logrus.Entry{Time: time.Now(), Level: logrus.InfoLevel, Message: "a\tb\xffc"}
	if err := h.Fire(e); err != nil {
		t.Fatal(err)
	}
	row := string(f.cells[0])
	for _, c := range row {
		if c < 0x20 || c > 0x7e {
			t.Fatalf("non printable %q reached the display", c)
		}
	}
}

func TestLevelFilter(t *testing.T) {
	f := newFake(2, 16)
	h := New(f, logrus.WarnLevel)
	log := newLogger(h)

	log.Info("quiet")
	if f.cleared != 0 {
		t.Error("info entry reached a warn-level hook")
	}
	log.Warn("loud")
	if f.cleared != 1 {
		t.Error("warn entry did not reach the hook")
	}
}

func TestLevelTags(t *testing.T) {
	tests := []struct {
		level logrus.Level
		want  string
	}{
		{logrus.DebugLevel, "DEBU"},
		{logrus.InfoLevel, "INFO"},
		{logrus.WarnLevel, "WARN"},
		{logrus.ErrorLevel, "ERRO"},
	}
	for _, tt := range tests {
		if got := tag(tt.level); got != tt.want {
			t.Errorf("tag(%s) = %q, want %q", tt.level, got, tt.want)
		}
	}
}
