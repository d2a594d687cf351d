// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdlog mirrors logrus entries to a character LCD.
//
// The latest entry replaces the previous one; a small display has no room
// for history. Attach it to a logger with AddHook. This package will not
// find or init a display, that must be done separately.
package lcdlog

import (
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/display"
)

// Hook writes every matching log entry to a text display.
type Hook struct {
	mu sync.Mutex
	d  display.TextDisplay
	lv []logrus.Level
}

// New returns a Hook that shows entries of the given severity or worse on d.
func New(d display.TextDisplay, level logrus.Level) *Hook {
	return &Hook{d: d, lv: logrus.AllLevels[:level+1]}
}

// Levels implements logrus.Hook.
func (h *Hook) Levels() []logrus.Level {
	return h.lv
}

// tag returns the four letter level tag logrus uses in its text formatter.
func tag(level logrus.Level) string {
	return strings.ToUpper(level.String())[:4]
}

// layout splits an entry into display rows. The first row carries the time
// and level when there is more than one row, the message fills the rest and
// is truncated to the geometry.
func layout(e *logrus.Entry, rows, cols int) []string {
	msg := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return ' '
		}
		return r
	}, e.Message)

	var out []string
	if rows > 1 {
		header := e.Time.Format("15:04:05") + " " + tag(e.Level)
		if len(header) > cols {
			header = header[:cols]
		}
		out = append(out, header)
	}
	for len(out) < rows && msg != "" {
		n := len(msg)
		if n > cols {
			n = cols
		}
		out = append(out, msg[:n])
		msg = msg[n:]
	}
	return out
}

// Fire implements logrus.Hook. A display error is returned to logrus, which
// reports it on stderr without failing the log call.
func (h *Hook) Fire(e *logrus.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.d.Clear(); err != nil {
		return err
	}
	for i, row := range layout(e, h.d.Rows(), h.d.Cols()) {
		if err := h.d.MoveTo(h.d.MinRow()+i, h.d.MinCol()); err != nil {
			return err
		}
		if _, err := h.d.WriteString(row); err != nil {
			return err
		}
	}
	return nil
}

var _ logrus.Hook = (*Hook)(nil)
