// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsink

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime"
	"net/http"
	"strconv"
)

// ImageFormat selects the encoding of served snapshots. The zero value is
// PNG, which suits computer-drawn glyphs better than JPEG.
type ImageFormat int

const (
	PNG ImageFormat = iota
	JPEG
)

// parseFormat maps the "format" URL parameter to an ImageFormat.
func parseFormat(value string) (ImageFormat, bool) {
	switch value {
	case "png":
		return PNG, true
	case "jpg", "jpeg":
		return JPEG, true
	}
	return 0, false
}

func (f ImageFormat) mimeType() string {
	if f == JPEG {
		return "image/jpeg"
	}
	return "image/png"
}

func (f ImageFormat) encode(w io.Writer, img image.Image) error {
	if f == JPEG {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	}
	return png.Encode(w, img)
}

// grabSnapshot returns the encoded current frame, re-encoding only when the
// display changed since the last request for this format.
func (d *Display) grabSnapshot(format ImageFormat) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if encoded, ok := d.snapshot[format]; ok {
		return encoded, nil
	}
	var buf bytes.Buffer
	if err := format.encode(&buf, d.render()); err != nil {
		return nil, err
	}
	encoded := buf.Bytes()
	d.snapshot[format] = encoded
	return encoded, nil
}

// ServeHTTP handles HTTP GET requests with a snapshot of the rendered
// display. Opts.Format sets the default encoding; clients can override it
// with the "format" parameter ("?format=png", "?format=jpeg").
func (d *Display) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}
	format := d.defaultFormat
	if value := r.URL.Query().Get("format"); value != "" {
		f, ok := parseFormat(value)
		if !ok {
			http.Error(w, fmt.Sprintf("unrecognized image format %q", value), http.StatusBadRequest)
			return
		}
		format = f
	}
	payload, err := d.grabSnapshot(format)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", mime.FormatMediaType(format.mimeType(), nil))
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(payload)
}

var _ http.Handler = (*Display)(nil)
