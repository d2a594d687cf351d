// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcd is a container for HD44780 character display drivers and the
// tooling around them.
//
// The hd44780 package drives the display through an I²C I/O-expander
// backpack. lcdterm and lcdsink emulate a character display on a terminal
// and over HTTP for development without hardware, and lcdlog mirrors log
// output onto any character display.
package lcd
